package amqp

import (
	"encoding/json"
	"time"

	"caixinha/internal/core"
)

// LedgerSyncMessage carries one recorded ledger entry to the sheet sync
// worker. The flat tables have no row identity, so the message holds the
// full entry rather than a reference.
type LedgerSyncMessage struct {
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Project     string    `json:"project"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Source      string    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerSyncMessage builds a sync message from a ledger entry.
func NewLedgerSyncMessage(e core.LedgerEntry) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Date:        e.Date.String(),
		Type:        string(e.Type),
		Project:     e.Project,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Source:      string(e.Source),
		Timestamp:   time.Now(),
	}
}

// Entry reconstructs the ledger entry carried by the message.
func (m *LedgerSyncMessage) Entry() core.LedgerEntry {
	date, _ := core.ParseDate(m.Date)
	return core.LedgerEntry{
		Date:        date,
		Type:        core.MovementType(m.Type),
		Project:     m.Project,
		Description: m.Description,
		Amount:      core.Money{Cents: m.AmountCents},
		Source:      core.FundsSource(m.Source),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON creates a message from JSON bytes.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
