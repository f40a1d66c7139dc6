// Package csvfile persists the three tables as flat CSV files, one row
// per record, matching the club's historical spreadsheet exports. A
// missing or corrupt file recovers to an empty table with the canonical
// column set; that is never a fatal condition.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"caixinha/internal/core"
	"caixinha/internal/tables"
)

// Canonical file names inside the data directory.
const (
	LedgerFile   = "caixinha.csv"
	DebtorsFile  = "controle.csv"
	RequestsFile = "solicitacoes.csv"
)

// Canonical headers. "Categoria" is the legacy name for "Projeto" and is
// renamed on load; a missing "Origem" column is backfilled with Banco.
var (
	ledgerHeader   = []string{"Data", "Tipo", "Projeto", "Descricao", "Valor", "Origem"}
	debtorsHeader  = []string{"Petiano", "TotalDevedor", "UltimaAtualizacao"}
	requestsHeader = []string{"ID", "Data", "Solicitante", "Item", "ValorEstimado", "Justificativa", "Status"}
)

type Store struct {
	dir string
}

var (
	_ tables.Store     = (*Store)(nil)
	_ tables.RawEditor = (*Store)(nil)
)

// New creates the store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readRecords loads a CSV file, returning (nil, true) when the file is
// missing or unreadable so callers can substitute an empty table.
func (s *Store) readRecords(name string) ([][]string, bool) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Table file unreadable, substituting empty table", "file", name, "error", err)
		}
		return nil, true
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		slog.Warn("Table file corrupt, substituting empty table", "file", name, "error", err)
		return nil, true
	}
	return records, false
}

// writeRecords rewrites a whole table file. The write goes to a temp file
// first and is renamed into place so a crash never leaves a partial table.
func (s *Store) writeRecords(name string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp table file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp table file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("replace table file: %w", err)
	}
	return nil
}

// columnIndex returns the position of a header column, -1 when absent.
// Matching is case-insensitive and ignores surrounding whitespace.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (s *Store) LoadLedger(ctx context.Context) ([]core.LedgerEntry, error) {
	records, empty := s.readRecords(LedgerFile)
	if empty || len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	dateIdx := columnIndex(header, "Data")
	typeIdx := columnIndex(header, "Tipo")
	projectIdx := columnIndex(header, "Projeto")
	if projectIdx < 0 {
		// Schema upgrade: older exports used "Categoria" for the project
		// dimension. Cheap enough to check on every load.
		projectIdx = columnIndex(header, "Categoria")
	}
	descIdx := columnIndex(header, "Descricao")
	amountIdx := columnIndex(header, "Valor")
	sourceIdx := columnIndex(header, "Origem")

	entries := make([]core.LedgerEntry, 0, len(records)-1)
	for _, row := range records[1:] {
		date, _ := core.ParseDate(cell(row, dateIdx))
		source := core.FundsSource(cell(row, sourceIdx))
		if sourceIdx < 0 || source == "" {
			// Schema upgrade: rows predating the source column default to
			// the bank account.
			source = core.Bank
		}
		entries = append(entries, core.LedgerEntry{
			Date:        date,
			Type:        core.MovementType(cell(row, typeIdx)),
			Project:     cell(row, projectIdx),
			Description: cell(row, descIdx),
			Amount:      core.Money{Cents: core.LenientCents(cell(row, amountIdx))},
			Source:      source,
		})
	}
	slog.DebugContext(ctx, "Ledger table loaded", "rows", len(entries))
	return entries, nil
}

func (s *Store) ReplaceLedger(_ context.Context, entries []core.LedgerEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Date.String(),
			string(e.Type),
			e.Project,
			e.Description,
			e.Amount.Decimal(),
			string(e.Source),
		})
	}
	return s.writeRecords(LedgerFile, ledgerHeader, rows)
}

func (s *Store) LoadDebtors(ctx context.Context) ([]core.Debtor, error) {
	records, empty := s.readRecords(DebtorsFile)
	if empty || len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	nameIdx := columnIndex(header, "Petiano")
	dueIdx := columnIndex(header, "TotalDevedor")
	updatedIdx := columnIndex(header, "UltimaAtualizacao")

	debtors := make([]core.Debtor, 0, len(records)-1)
	for _, row := range records[1:] {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		updated, _ := core.ParseDate(cell(row, updatedIdx))
		debtors = append(debtors, core.Debtor{
			Name:       name,
			AmountDue:  core.Money{Cents: core.LenientCents(cell(row, dueIdx))},
			LastUpdate: updated,
		})
	}
	slog.DebugContext(ctx, "Debtor table loaded", "rows", len(debtors))
	return debtors, nil
}

func (s *Store) ReplaceDebtors(_ context.Context, debtors []core.Debtor) error {
	rows := make([][]string, 0, len(debtors))
	for _, d := range debtors {
		rows = append(rows, []string{
			d.Name,
			d.AmountDue.Decimal(),
			d.LastUpdate.String(),
		})
	}
	return s.writeRecords(DebtorsFile, debtorsHeader, rows)
}

func (s *Store) LoadRequests(ctx context.Context) ([]core.PurchaseRequest, error) {
	records, empty := s.readRecords(RequestsFile)
	if empty || len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	idIdx := columnIndex(header, "ID")
	dateIdx := columnIndex(header, "Data")
	requesterIdx := columnIndex(header, "Solicitante")
	itemIdx := columnIndex(header, "Item")
	valueIdx := columnIndex(header, "ValorEstimado")
	justIdx := columnIndex(header, "Justificativa")
	statusIdx := columnIndex(header, "Status")

	requests := make([]core.PurchaseRequest, 0, len(records)-1)
	for _, row := range records[1:] {
		date, _ := core.ParseDate(cell(row, dateIdx))
		status := core.RequestStatus(cell(row, statusIdx))
		if status == "" {
			status = core.StatusPending
		}
		requests = append(requests, core.PurchaseRequest{
			ID:             cell(row, idIdx),
			Date:           date,
			Requester:      cell(row, requesterIdx),
			Item:           cell(row, itemIdx),
			EstimatedValue: core.Money{Cents: core.LenientCents(cell(row, valueIdx))},
			Justification:  cell(row, justIdx),
			Status:         status,
		})
	}
	slog.DebugContext(ctx, "Request table loaded", "rows", len(requests))
	return requests, nil
}

func (s *Store) ReplaceRequests(_ context.Context, requests []core.PurchaseRequest) error {
	rows := make([][]string, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, []string{
			r.ID,
			r.Date.String(),
			r.Requester,
			r.Item,
			r.EstimatedValue.Decimal(),
			r.Justification,
			string(r.Status),
		})
	}
	return s.writeRecords(RequestsFile, requestsHeader, rows)
}

// ReadTable returns the raw CSV text of a named table for the admin
// full-table editor. A missing file renders as just the canonical header.
func (s *Store) ReadTable(name string) (string, error) {
	file, header, err := tableFile(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(file))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return strings.Join(header, ",") + "\n", nil
		}
		return "", fmt.Errorf("read table %s: %w", name, err)
	}
	return string(data), nil
}

// WriteTable replaces a named table with raw CSV text, validating only
// that the payload parses as CSV. This is the direct-edit escape hatch.
func (s *Store) WriteTable(name, content string) error {
	file, header, err := tableFile(name)
	if err != nil {
		return err
	}
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil && err != io.EOF {
		return fmt.Errorf("parse table %s: %w", name, err)
	}
	if len(records) == 0 {
		records = [][]string{header}
	}
	return s.writeRecords(file, records[0], records[1:])
}

func tableFile(name string) (file string, header []string, err error) {
	switch name {
	case tables.Ledger:
		return LedgerFile, ledgerHeader, nil
	case tables.Debtors:
		return DebtorsFile, debtorsHeader, nil
	case tables.Requests:
		return RequestsFile, requestsHeader, nil
	}
	return "", nil, fmt.Errorf("unknown table %q", name)
}
