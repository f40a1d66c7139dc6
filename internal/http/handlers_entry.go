package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"caixinha/internal/core"
)

// handleRecordEntry records a ledger movement from the admin form.
func (s *Server) handleRecordEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	date, err := parseDateField(r.Form, "date")
	if err != nil {
		UnprocessableEntityError("Data invalida").Write(w)
		return
	}

	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Valor invalido").Write(w)
		return
	}

	entry := core.LedgerEntry{
		Date:        date,
		Type:        core.MovementType(sanitizeInput(r.Form.Get("type"))),
		Project:     sanitizeInput(r.Form.Get("project")),
		Description: sanitizeInput(r.Form.Get("description")),
		Amount:      core.Money{Cents: cents},
		Source:      core.FundsSource(sanitizeInput(r.Form.Get("source"))),
	}

	if err := s.svc.RecordEntry(r.Context(), entry); err != nil {
		if isValidationError(err) {
			UnprocessableEntityError("Dados invalidos: " + err.Error()).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to record ledger entry",
			"error", err,
			"movement_type", string(entry.Type),
			"amount_cents", entry.Amount.Cents)
		InternalServerError("Erro ao salvar movimento").Write(w)
		return
	}

	s.invalidateDashboard()

	slog.InfoContext(r.Context(), "Ledger entry recorded",
		"movement_type", string(entry.Type),
		"project", entry.Project,
		"amount_cents", entry.Amount.Cents,
		"source", string(entry.Source))

	msg := fmt.Sprintf("Movimento registrado: %s %s (%s)",
		template.HTMLEscapeString(string(entry.Type)),
		template.HTMLEscapeString(entry.Amount.Display()),
		template.HTMLEscapeString(entry.Description))

	NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}

// isValidationError reports whether the error comes from domain validation
// rather than storage.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrInvalidMovement,
		core.ErrInvalidSource,
		core.ErrInvalidStatus,
		core.ErrEmptyDescription,
		core.ErrEmptyItem,
		core.ErrEmptyName,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
