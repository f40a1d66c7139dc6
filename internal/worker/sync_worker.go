// Package worker mirrors recorded ledger entries into the club's Google
// Sheets workbook. The flat tables stay the source of truth; the
// workbook is a convenience copy for the treasurer.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"caixinha/internal/amqp"
	"caixinha/internal/core"
)

// SheetAppender is the outbound port to the workbook.
type SheetAppender interface {
	AppendEntry(ctx context.Context, e core.LedgerEntry) error
}

type SyncWorker struct {
	sheets SheetAppender
}

func NewSyncWorker(sheets SheetAppender) *SyncWorker {
	return &SyncWorker{sheets: sheets}
}

// HandleSyncMessage processes one ledger sync message from AMQP. An
// error requeues the delivery, so the append must be safe to retry;
// duplicated rows in the workbook are preferable to missing ones.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	entry := msg.Entry()
	if err := entry.Validate(); err != nil {
		// A malformed message will never become valid; drop it loudly.
		slog.ErrorContext(ctx, "Discarding invalid sync message",
			"error", err,
			"type", msg.Type,
			"amount_cents", msg.AmountCents)
		return nil
	}

	if err := w.sheets.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("append entry to workbook: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry synced to workbook",
		"type", msg.Type,
		"project", msg.Project,
		"amount_cents", msg.AmountCents)
	return nil
}
