package backend

import (
	"context"

	"caixinha/internal/tables"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the table store and an optional cleanup function.
type BackendResult struct {
	Store   tables.Store
	Cleanup CleanupFunc
}

// Factory creates table stores based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// CSV specific
	CSVDataDir string

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the kind of table store backing the service
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, CSVBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
