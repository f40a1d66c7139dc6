package backend

import (
	"context"
	"fmt"
	"log/slog"

	"caixinha/internal/storage"
	"caixinha/internal/tables/csvfile"
	"caixinha/internal/tables/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend()
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:   memory.New(),
		Cleanup: nil,
	}, nil
}

func (f *DefaultFactory) createCSVBackend(config Config) (*BackendResult, error) {
	dataDir := config.CSVDataDir
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := csvfile.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CSV store: %w", err)
	}

	f.logger.Info("Initialized CSV backend", "data_directory", dataDir)

	return &BackendResult{
		Store:   store,
		Cleanup: nil,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}
