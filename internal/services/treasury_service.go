// Package services holds the reconciliation operations that keep the
// three tables mutually consistent. Every operation follows the same
// shape: reload the table from storage, mutate in memory, rewrite the
// whole table. Settlement is the only operation touching two tables; its
// two writes are not atomic, matching the whole-table write model.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"caixinha/internal/amqp"
	"caixinha/internal/core"
	"caixinha/internal/tables"
	"caixinha/internal/tables/csvfile"
)

// EntryPublisher pushes recorded ledger entries towards the sheet sync
// worker. Publishing is best effort; the entry is already persisted.
type EntryPublisher interface {
	PublishLedgerEntry(ctx context.Context, msg *amqp.LedgerSyncMessage) error
}

type TreasuryService struct {
	store     tables.Store
	publisher EntryPublisher
}

func NewTreasuryService(store tables.Store, publisher EntryPublisher) *TreasuryService {
	return &TreasuryService{store: store, publisher: publisher}
}

// RecordEntry validates and appends one movement to the ledger.
func (s *TreasuryService) RecordEntry(ctx context.Context, e core.LedgerEntry) error {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return err
	}

	entries, err := s.store.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	entries = append(entries, e)
	if err := s.store.ReplaceLedger(ctx, entries); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry recorded",
		"type", string(e.Type),
		"project", e.Project,
		"amount_cents", e.Amount.Cents,
		"source", string(e.Source))

	s.publish(ctx, e)
	return nil
}

func (s *TreasuryService) publish(ctx context.Context, e core.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEntry(ctx, amqp.NewLedgerSyncMessage(e)); err != nil {
		// The entry is saved locally; sync can catch up later.
		slog.ErrorContext(ctx, "Failed to publish ledger sync message", "error", err)
	}
}

// Ledger returns the full ledger table.
func (s *TreasuryService) Ledger(ctx context.Context) ([]core.LedgerEntry, error) {
	return s.store.LoadLedger(ctx)
}

// Summary aggregates the ledger for the dashboard.
func (s *TreasuryService) Summary(ctx context.Context) (core.Summary, error) {
	entries, err := s.store.LoadLedger(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load ledger: %w", err)
	}
	return core.Summarize(entries), nil
}

// OutflowsByProject sums outflow amounts per project for chart display.
func (s *TreasuryService) OutflowsByProject(ctx context.Context) (map[string]core.Money, error) {
	entries, err := s.store.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return core.GroupByProject(entries, core.Outflow), nil
}

// Debtors returns the whole registry, including settled members.
func (s *TreasuryService) Debtors(ctx context.Context) ([]core.Debtor, error) {
	return s.store.LoadDebtors(ctx)
}

// ListOutstanding returns debtors still owing, largest balance first.
func (s *TreasuryService) ListOutstanding(ctx context.Context) ([]core.Debtor, error) {
	debtors, err := s.store.LoadDebtors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load debtors: %w", err)
	}
	var out []core.Debtor
	for _, d := range debtors {
		if d.AmountDue.Cents > 0 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AmountDue.Cents > out[j].AmountDue.Cents
	})
	return out, nil
}

// AddDebtor registers a member in the registry. Names are the registry
// key, so duplicates are rejected.
func (s *TreasuryService) AddDebtor(ctx context.Context, name string, due core.Money) (core.Debtor, error) {
	d := core.Debtor{
		Name:       strings.TrimSpace(name),
		AmountDue:  due,
		LastUpdate: core.Today(),
	}
	if err := d.Validate(); err != nil {
		return core.Debtor{}, err
	}

	debtors, err := s.store.LoadDebtors(ctx)
	if err != nil {
		return core.Debtor{}, fmt.Errorf("load debtors: %w", err)
	}
	for _, existing := range debtors {
		if existing.Name == d.Name {
			return core.Debtor{}, core.ErrDebtorExists
		}
	}
	debtors = append(debtors, d)
	if err := s.store.ReplaceDebtors(ctx, debtors); err != nil {
		return core.Debtor{}, fmt.Errorf("save debtors: %w", err)
	}

	slog.InfoContext(ctx, "Debtor registered", "name", d.Name, "amount_due_cents", d.AmountDue.Cents)
	return d, nil
}

// Settle reduces a debtor's balance by a payment and records the payment
// as a dues inflow. The balance clamps at zero; excess payment is
// discarded. The registry write and the ledger write are two separate
// whole-table writes; a crash in between leaves them out of step.
func (s *TreasuryService) Settle(ctx context.Context, name string, paid core.Money, source core.FundsSource) (core.Debtor, error) {
	if err := paid.Validate(); err != nil {
		return core.Debtor{}, err
	}
	if err := source.Validate(); err != nil {
		return core.Debtor{}, err
	}
	name = strings.TrimSpace(name)

	debtors, err := s.store.LoadDebtors(ctx)
	if err != nil {
		return core.Debtor{}, fmt.Errorf("load debtors: %w", err)
	}

	idx := -1
	for i, d := range debtors {
		if d.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Debtor{}, core.ErrDebtorNotFound
	}

	today := core.Today()
	settled := debtors[idx].WithPayment(paid, today)
	debtors[idx] = settled
	if err := s.store.ReplaceDebtors(ctx, debtors); err != nil {
		return core.Debtor{}, fmt.Errorf("save debtors: %w", err)
	}

	entry := core.LedgerEntry{
		Date:        today,
		Type:        core.Inflow,
		Project:     core.DuesProject,
		Description: "Pagamento divida: " + name,
		Amount:      paid,
		Source:      source,
	}
	if err := s.RecordEntry(ctx, entry); err != nil {
		return settled, fmt.Errorf("record settlement inflow: %w", err)
	}

	slog.InfoContext(ctx, "Debt settled",
		"name", name,
		"paid_cents", paid.Cents,
		"remaining_cents", settled.AmountDue.Cents)
	return settled, nil
}

// SubmitRequest queues a new purchase request as Pending. The ID is
// generated here so later status updates do not depend on row position.
func (s *TreasuryService) SubmitRequest(ctx context.Context, requester, item string, value core.Money, justification string) (core.PurchaseRequest, error) {
	r := core.PurchaseRequest{
		ID:             uuid.NewString(),
		Date:           core.Today(),
		Requester:      strings.TrimSpace(requester),
		Item:           strings.TrimSpace(item),
		EstimatedValue: value,
		Justification:  strings.TrimSpace(justification),
		Status:         core.StatusPending,
	}
	if err := r.Validate(); err != nil {
		return core.PurchaseRequest{}, err
	}

	requests, err := s.store.LoadRequests(ctx)
	if err != nil {
		return core.PurchaseRequest{}, fmt.Errorf("load requests: %w", err)
	}
	requests = append(requests, r)
	if err := s.store.ReplaceRequests(ctx, requests); err != nil {
		return core.PurchaseRequest{}, fmt.Errorf("save requests: %w", err)
	}

	slog.InfoContext(ctx, "Purchase request submitted",
		"id", r.ID,
		"requester", r.Requester,
		"item", r.Item,
		"estimated_cents", r.EstimatedValue.Cents)
	return r, nil
}

// SetRequestStatus resolves a request to Approved or Refused. Repeating
// the call on an already resolved request simply overwrites the status;
// approval does not post a ledger outflow.
func (s *TreasuryService) SetRequestStatus(ctx context.Context, id string, status core.RequestStatus) (core.PurchaseRequest, error) {
	if !status.Terminal() {
		return core.PurchaseRequest{}, core.ErrInvalidStatus
	}

	requests, err := s.store.LoadRequests(ctx)
	if err != nil {
		return core.PurchaseRequest{}, fmt.Errorf("load requests: %w", err)
	}

	idx := -1
	for i, r := range requests {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.PurchaseRequest{}, core.ErrRequestNotFound
	}

	requests[idx].Status = status
	if err := s.store.ReplaceRequests(ctx, requests); err != nil {
		return core.PurchaseRequest{}, fmt.Errorf("save requests: %w", err)
	}

	slog.InfoContext(ctx, "Purchase request resolved", "id", id, "status", string(status))
	return requests[idx], nil
}

// ListPending filters the queue down to unresolved requests.
func (s *TreasuryService) ListPending(ctx context.Context) ([]core.PurchaseRequest, error) {
	requests, err := s.store.LoadRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}
	var out []core.PurchaseRequest
	for _, r := range requests {
		if r.Status == core.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

// Requests returns the whole queue for the admin view.
func (s *TreasuryService) Requests(ctx context.Context) ([]core.PurchaseRequest, error) {
	return s.store.LoadRequests(ctx)
}

// ImportLegacyLedger appends the entries of one legacy month-sharded
// export to the ledger. Returns how many rows were imported.
func (s *TreasuryService) ImportLegacyLedger(ctx context.Context, r io.Reader) (int, error) {
	imported, err := csvfile.ReadLegacyMonth(r)
	if err != nil {
		return 0, err
	}
	if len(imported) == 0 {
		return 0, nil
	}
	entries, err := s.store.LoadLedger(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}
	entries = append(entries, imported...)
	if err := s.store.ReplaceLedger(ctx, entries); err != nil {
		return 0, fmt.Errorf("save ledger: %w", err)
	}
	slog.InfoContext(ctx, "Legacy ledger rows imported", "rows", len(imported))
	return len(imported), nil
}

// ImportLegacyDebtors merges a legacy control export into the registry.
// Known names get their balance overwritten; unknown names are added.
func (s *TreasuryService) ImportLegacyDebtors(ctx context.Context, r io.Reader) (int, error) {
	imported, err := csvfile.ReadLegacyControl(r)
	if err != nil {
		return 0, err
	}
	if len(imported) == 0 {
		return 0, nil
	}

	debtors, err := s.store.LoadDebtors(ctx)
	if err != nil {
		return 0, fmt.Errorf("load debtors: %w", err)
	}
	byName := make(map[string]int, len(debtors))
	for i, d := range debtors {
		byName[d.Name] = i
	}

	today := core.Today()
	for _, d := range imported {
		d.LastUpdate = today
		if i, ok := byName[d.Name]; ok {
			debtors[i] = d
			continue
		}
		byName[d.Name] = len(debtors)
		debtors = append(debtors, d)
	}
	if err := s.store.ReplaceDebtors(ctx, debtors); err != nil {
		return 0, fmt.Errorf("save debtors: %w", err)
	}
	slog.InfoContext(ctx, "Legacy control rows imported", "rows", len(imported))
	return len(imported), nil
}
