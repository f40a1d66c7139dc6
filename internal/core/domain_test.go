package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-08-15")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.August || d.Day() != 15 {
		t.Fatalf("unexpected date: %v", d)
	}
	if d.String() != "2025-08-15" {
		t.Fatalf("round trip mismatch: %q", d.String())
	}

	for _, bad := range []string{"", "15/08/2025", "2025-13-01", "yesterday"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{
		Date:        NewDate(2025, 8, 1),
		Type:        Inflow,
		Project:     "Geral",
		Description: "mensalidade",
		Amount:      Money{Cents: 5000},
		Source:      Bank,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []LedgerEntry{
		{Type: Inflow, Description: "a", Amount: Money{Cents: 1}, Source: Bank}, // zero date
		{Date: NewDate(2025, 8, 1), Type: "Transfer", Description: "a", Amount: Money{Cents: 1}, Source: Bank},
		{Date: NewDate(2025, 8, 1), Type: Inflow, Description: "  ", Amount: Money{Cents: 1}, Source: Bank},
		{Date: NewDate(2025, 8, 1), Type: Inflow, Description: "a", Amount: Money{Cents: 0}, Source: Bank},
		{Date: NewDate(2025, 8, 1), Type: Inflow, Description: "a", Amount: Money{Cents: 1}, Source: "Cofre"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLedgerEntryNormalized(t *testing.T) {
	e := LedgerEntry{Project: "  ", Description: " compra de cabos "}
	n := e.Normalized()
	if n.Project != DefaultProject {
		t.Fatalf("expected default project, got %q", n.Project)
	}
	if n.Description != "compra de cabos" {
		t.Fatalf("expected trimmed description, got %q", n.Description)
	}

	e = LedgerEntry{Project: "Robotica"}
	if got := e.Normalized().Project; got != "Robotica" {
		t.Fatalf("project should be preserved, got %q", got)
	}
}

func TestDebtorWithPayment(t *testing.T) {
	on := NewDate(2025, 8, 20)
	cases := []struct {
		due, paid, want int64
	}{
		{3000, 5000, 0}, // overpayment clamps at zero, excess discarded
		{5000, 3000, 2000},
		{5000, 5000, 0},
		{0, 1000, 0},
	}
	for i, tc := range cases {
		d := Debtor{Name: "Alice", AmountDue: Money{Cents: tc.due}}
		got := d.WithPayment(Money{Cents: tc.paid}, on)
		if got.AmountDue.Cents != tc.want {
			t.Fatalf("case %d: due=%d", i, got.AmountDue.Cents)
		}
		if got.LastUpdate != on {
			t.Fatalf("case %d: last update not stamped", i)
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
	if !StatusApproved.Terminal() || !StatusRefused.Terminal() {
		t.Fatal("approved and refused are terminal")
	}
}

func TestPurchaseRequestValidate(t *testing.T) {
	good := PurchaseRequest{
		Date:           NewDate(2025, 8, 1),
		Requester:      "Bruno",
		Item:           "protoboard",
		EstimatedValue: Money{Cents: 4500},
		Status:         StatusPending,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	noItem := good
	noItem.Item = "  "
	if err := noItem.Validate(); err != ErrEmptyItem {
		t.Fatalf("expected ErrEmptyItem, got %v", err)
	}

	badStatus := good
	badStatus.Status = "Arquivada"
	if err := badStatus.Validate(); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	// A request may arrive without an estimate; only a negative one is
	// rejected.
	noEstimate := good
	noEstimate.EstimatedValue = Money{}
	if err := noEstimate.Validate(); err != nil {
		t.Fatalf("zero estimate must be valid, got %v", err)
	}

	negative := good
	negative.EstimatedValue = Money{Cents: -100}
	if err := negative.Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
