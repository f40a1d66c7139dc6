// Package tables defines the storage ports for the three persisted flat
// tables. Every backend exposes whole-table load/replace semantics: each
// interaction reloads the table, mutates it in memory and rewrites it.
// There is no row-level addressing and no cross-table transaction; a
// concurrent admin session is last-writer-wins at table granularity.
package tables

import (
	"context"

	"caixinha/internal/core"
)

// Table names, used for backend wiring and the admin full-table edit.
const (
	Ledger   = "ledger"
	Debtors  = "debtors"
	Requests = "requests"
)

type (
	LedgerTable interface {
		LoadLedger(ctx context.Context) ([]core.LedgerEntry, error)
		ReplaceLedger(ctx context.Context, entries []core.LedgerEntry) error
	}

	DebtorTable interface {
		LoadDebtors(ctx context.Context) ([]core.Debtor, error)
		ReplaceDebtors(ctx context.Context, debtors []core.Debtor) error
	}

	RequestTable interface {
		LoadRequests(ctx context.Context) ([]core.PurchaseRequest, error)
		ReplaceRequests(ctx context.Context, requests []core.PurchaseRequest) error
	}

	// Store is the full set of tables a backend provides.
	Store interface {
		LedgerTable
		DebtorTable
		RequestTable
	}

	// RawEditor is the optional direct-edit port: read or replace a named
	// table as raw CSV text. Only file-backed stores implement it.
	RawEditor interface {
		ReadTable(name string) (string, error)
		WriteTable(name, content string) error
	}
)
