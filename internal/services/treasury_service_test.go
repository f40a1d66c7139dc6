package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"caixinha/internal/amqp"
	"caixinha/internal/core"
	"caixinha/internal/tables/memory"
)

type capturePublisher struct {
	messages []*amqp.LedgerSyncMessage
	fail     bool
}

func (p *capturePublisher) PublishLedgerEntry(_ context.Context, msg *amqp.LedgerSyncMessage) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newService(t *testing.T) (*TreasuryService, *memory.Store, *capturePublisher) {
	t.Helper()
	store := memory.New()
	pub := &capturePublisher{}
	return NewTreasuryService(store, pub), store, pub
}

func TestRecordEntryAppendsAndPublishes(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	err := svc.RecordEntry(ctx, core.LedgerEntry{
		Date:        core.NewDate(2025, 8, 1),
		Type:        core.Outflow,
		Description: "papelaria",
		Amount:      core.Money{Cents: 1500},
		Source:      core.Cash,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Project != core.DefaultProject {
		t.Fatalf("blank project must default, got %q", entries[0].Project)
	}
	if len(pub.messages) != 1 || pub.messages[0].AmountCents != 1500 {
		t.Fatalf("sync message not published: %+v", pub.messages)
	}
}

func TestRecordEntryRejectsInvalid(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	err := svc.RecordEntry(ctx, core.LedgerEntry{
		Date:        core.NewDate(2025, 8, 1),
		Type:        core.Inflow,
		Description: "x",
		Amount:      core.Money{Cents: 0},
		Source:      core.Bank,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 0 {
		t.Fatal("rejected entry must not be written")
	}
}

func TestRecordEntrySurvivesPublishFailure(t *testing.T) {
	store := memory.New()
	svc := NewTreasuryService(store, &capturePublisher{fail: true})
	ctx := context.Background()

	err := svc.RecordEntry(ctx, core.LedgerEntry{
		Date:        core.NewDate(2025, 8, 1),
		Type:        core.Inflow,
		Description: "mensalidade",
		Amount:      core.Money{Cents: 5000},
		Source:      core.Bank,
	})
	if err != nil {
		t.Fatalf("publish failure must not fail the record: %v", err)
	}
	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 1 {
		t.Fatal("entry must still be persisted")
	}
}

func TestSettleClampsAndRecordsInflow(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	store.Seed(nil, []core.Debtor{
		{Name: "Alice", AmountDue: core.Money{Cents: 3000}},
	}, nil)

	settled, err := svc.Settle(ctx, "Alice", core.Money{Cents: 5000}, core.Cash)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.AmountDue.Cents != 0 {
		t.Fatalf("balance must clamp at zero, got %d", settled.AmountDue.Cents)
	}

	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 1 {
		t.Fatalf("exactly one ledger entry expected, got %d", len(entries))
	}
	e := entries[0]
	if e.Type != core.Inflow || e.Amount.Cents != 5000 || e.Project != core.DuesProject || e.Source != core.Cash {
		t.Fatalf("unexpected settlement entry: %+v", e)
	}

	debtors, _ := store.LoadDebtors(ctx)
	if len(debtors) != 1 {
		t.Fatal("settled debtor must remain listed")
	}
}

func TestSettleUnknownDebtor(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Settle(ctx, "Nobody", core.Money{Cents: 1000}, core.Bank)
	if !errors.Is(err, core.ErrDebtorNotFound) {
		t.Fatalf("expected ErrDebtorNotFound, got %v", err)
	}
	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 0 {
		t.Fatal("failed settlement must not write to the ledger")
	}
}

func TestSettleRejectsNonPositivePayment(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Settle(context.Background(), "Alice", core.Money{Cents: 0}, core.Bank); err == nil {
		t.Fatal("expected error")
	}
}

func TestListOutstandingSortsDescending(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	store.Seed(nil, []core.Debtor{
		{Name: "Alice", AmountDue: core.Money{Cents: 1000}},
		{Name: "Bruno", AmountDue: core.Money{Cents: 0}},
		{Name: "Carla", AmountDue: core.Money{Cents: 7500}},
	}, nil)

	out, err := svc.ListOutstanding(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("zero balances must be filtered, got %+v", out)
	}
	if out[0].Name != "Carla" || out[1].Name != "Alice" {
		t.Fatalf("not sorted by balance: %+v", out)
	}
}

func TestAddDebtor(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	d, err := svc.AddDebtor(ctx, " Alice ", core.Money{Cents: 2500})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if d.Name != "Alice" {
		t.Fatalf("name not trimmed: %q", d.Name)
	}

	if _, err := svc.AddDebtor(ctx, "Alice", core.Money{Cents: 100}); !errors.Is(err, core.ErrDebtorExists) {
		t.Fatalf("expected ErrDebtorExists, got %v", err)
	}
	if _, err := svc.AddDebtor(ctx, "  ", core.Money{Cents: 100}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRequestLifecycle(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	r, err := svc.SubmitRequest(ctx, "Bruno", "protoboard", core.Money{Cents: 4500}, "bancada nova")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.ID == "" || r.Status != core.StatusPending {
		t.Fatalf("unexpected request: %+v", r)
	}

	pending, _ := svc.ListPending(ctx)
	if len(pending) != 1 || pending[0].ID != r.ID {
		t.Fatalf("submitted request missing from pending list: %+v", pending)
	}

	resolved, err := svc.SetRequestStatus(ctx, r.ID, core.StatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resolved.Status != core.StatusApproved {
		t.Fatalf("status not applied: %+v", resolved)
	}

	pending, _ = svc.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("approved request must leave the pending list: %+v", pending)
	}
}

func TestSetRequestStatusValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SetRequestStatus(ctx, "whatever", core.StatusPending); !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("pending is not a resolution: %v", err)
	}
	if _, err := svc.SetRequestStatus(ctx, "missing-id", core.StatusApproved); !errors.Is(err, core.ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestSetRequestStatusOverwrite(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	r, _ := svc.SubmitRequest(ctx, "Bruno", "cabo hdmi", core.Money{Cents: 2000}, "")
	if _, err := svc.SetRequestStatus(ctx, r.ID, core.StatusRefused); err != nil {
		t.Fatalf("refuse: %v", err)
	}
	// No re-entry guard: resolving again simply overwrites.
	resolved, err := svc.SetRequestStatus(ctx, r.ID, core.StatusApproved)
	if err != nil {
		t.Fatalf("second resolution: %v", err)
	}
	if resolved.Status != core.StatusApproved {
		t.Fatalf("status not overwritten: %+v", resolved)
	}
}

func TestSubmitRequestRequiresItem(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.SubmitRequest(context.Background(), "Bruno", "  ", core.Money{Cents: 100}, ""); !errors.Is(err, core.ErrEmptyItem) {
		t.Fatalf("expected ErrEmptyItem, got %v", err)
	}
}

func TestApprovalPostsNoOutflow(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	r, _ := svc.SubmitRequest(ctx, "Bruno", "sensor", core.Money{Cents: 3000}, "")
	if _, err := svc.SetRequestStatus(ctx, r.ID, core.StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 0 {
		t.Fatalf("approval must not touch the ledger: %+v", entries)
	}
}

func TestImportLegacyLedger(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	legacy := "Caixinha,,,,,,\n" +
		"Data,Entradas,Especificação,,Data,Saídas,Especificação\n" +
		"2025-07-01,50.00,mensalidade,,2025-07-02,30.00,limpeza\n"
	n, err := svc.ImportLegacyLedger(ctx, strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d rows", n)
	}
	entries, _ := store.LoadLedger(ctx)
	if len(entries) != 2 {
		t.Fatalf("ledger rows: %d", len(entries))
	}
}

func TestImportLegacyDebtorsMerges(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	store.Seed(nil, []core.Debtor{
		{Name: "Alice", AmountDue: core.Money{Cents: 100}},
	}, nil)

	legacy := "Controle,,\n" +
		"Petiano,Total devedor 2025.1,Obs\n" +
		"Alice,30.00,\n" +
		"Carla,12.50,\n"
	n, err := svc.ImportLegacyDebtors(ctx, strings.NewReader(legacy))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d rows", n)
	}

	debtors, _ := store.LoadDebtors(ctx)
	if len(debtors) != 2 {
		t.Fatalf("registry size: %d", len(debtors))
	}
	byName := map[string]int64{}
	for _, d := range debtors {
		byName[d.Name] = d.AmountDue.Cents
	}
	if byName["Alice"] != 3000 || byName["Carla"] != 1250 {
		t.Fatalf("balances not merged: %v", byName)
	}
}
