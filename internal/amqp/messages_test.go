package amqp

import (
	"testing"

	"caixinha/internal/core"
)

func TestLedgerSyncMessageCarriesEntry(t *testing.T) {
	entry := core.LedgerEntry{
		Date:        core.NewDate(2025, 8, 15),
		Type:        core.Inflow,
		Project:     core.DuesProject,
		Description: "Pagamento divida: Alice",
		Amount:      core.Money{Cents: 5000},
		Source:      core.Cash,
	}

	msg := NewLedgerSyncMessage(entry)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := LedgerSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := decoded.Entry(); got != entry {
		t.Fatalf("entry mismatch: got %+v want %+v", got, entry)
	}
}

func TestLedgerSyncMessageFromJSONInvalid(t *testing.T) {
	if _, err := LedgerSyncMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}
