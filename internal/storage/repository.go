// Package storage implements the table ports on SQLite. Replace keeps
// the whole-table-write contract: delete-all plus insert-all inside one
// transaction, so a table is never observed half written.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"caixinha/internal/core"
	"caixinha/internal/tables"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ tables.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) LoadLedger(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_date, movement_type, project, description, amount_cents, source
		 FROM ledger_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var (
			dateStr, mt, project, desc, source string
			cents                              int64
		)
		if err := rows.Scan(&dateStr, &mt, &project, &desc, &cents, &source); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		date, _ := core.ParseDate(dateStr)
		entries = append(entries, core.LedgerEntry{
			Date:        date,
			Type:        core.MovementType(mt),
			Project:     project,
			Description: desc,
			Amount:      core.Money{Cents: cents},
			Source:      core.FundsSource(source),
		})
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) ReplaceLedger(ctx context.Context, entries []core.LedgerEntry) error {
	return r.replace(ctx, "ledger_entries", func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ledger_entries (entry_date, movement_type, project, description, amount_cents, source)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				e.Date.String(), string(e.Type), e.Project, e.Description, e.Amount.Cents, string(e.Source)); err != nil {
				return fmt.Errorf("insert ledger row: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadDebtors(ctx context.Context) ([]core.Debtor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, amount_due_cents, last_update FROM debtors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query debtors: %w", err)
	}
	defer rows.Close()

	var debtors []core.Debtor
	for rows.Next() {
		var (
			name, updated string
			cents         int64
		)
		if err := rows.Scan(&name, &cents, &updated); err != nil {
			return nil, fmt.Errorf("scan debtor row: %w", err)
		}
		date, _ := core.ParseDate(updated)
		debtors = append(debtors, core.Debtor{
			Name:       name,
			AmountDue:  core.Money{Cents: cents},
			LastUpdate: date,
		})
	}
	return debtors, rows.Err()
}

func (r *SQLiteRepository) ReplaceDebtors(ctx context.Context, debtors []core.Debtor) error {
	return r.replace(ctx, "debtors", func(tx *sql.Tx) error {
		for _, d := range debtors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO debtors (name, amount_due_cents, last_update) VALUES (?, ?, ?)`,
				d.Name, d.AmountDue.Cents, d.LastUpdate.String()); err != nil {
				return fmt.Errorf("insert debtor row: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) LoadRequests(ctx context.Context) ([]core.PurchaseRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_date, requester, item, estimated_value_cents, justification, status
		 FROM purchase_requests ORDER BY request_date, id`)
	if err != nil {
		return nil, fmt.Errorf("query purchase requests: %w", err)
	}
	defer rows.Close()

	var requests []core.PurchaseRequest
	for rows.Next() {
		var (
			id, dateStr, requester, item, justification, status string
			cents                                               int64
		)
		if err := rows.Scan(&id, &dateStr, &requester, &item, &cents, &justification, &status); err != nil {
			return nil, fmt.Errorf("scan purchase request row: %w", err)
		}
		date, _ := core.ParseDate(dateStr)
		requests = append(requests, core.PurchaseRequest{
			ID:             id,
			Date:           date,
			Requester:      requester,
			Item:           item,
			EstimatedValue: core.Money{Cents: cents},
			Justification:  justification,
			Status:         core.RequestStatus(status),
		})
	}
	return requests, rows.Err()
}

func (r *SQLiteRepository) ReplaceRequests(ctx context.Context, requests []core.PurchaseRequest) error {
	return r.replace(ctx, "purchase_requests", func(tx *sql.Tx) error {
		for _, req := range requests {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO purchase_requests (id, request_date, requester, item, estimated_value_cents, justification, status)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				req.ID, req.Date.String(), req.Requester, req.Item,
				req.EstimatedValue.Cents, req.Justification, string(req.Status)); err != nil {
				return fmt.Errorf("insert purchase request row: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) replace(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", table, err)
	}
	return nil
}
