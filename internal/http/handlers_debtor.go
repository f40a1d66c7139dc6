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

// handleAddDebtor registers a new debtor from the admin form.
func (s *Server) handleAddDebtor(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Valor invalido").Write(w)
		return
	}

	debtor, err := s.svc.AddDebtor(r.Context(), name, core.Money{Cents: cents})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDebtorExists):
			UnprocessableEntityError("Devedor ja cadastrado: " + name).Write(w)
		case isValidationError(err):
			UnprocessableEntityError("Dados invalidos: " + err.Error()).Write(w)
		default:
			slog.ErrorContext(r.Context(), "Failed to add debtor", "error", err, "debtor", name)
			InternalServerError("Erro ao cadastrar devedor").Write(w)
		}
		return
	}

	slog.InfoContext(r.Context(), "Debtor added",
		"debtor", debtor.Name,
		"amount_cents", debtor.AmountDue.Cents)

	msg := fmt.Sprintf("Devedor cadastrado: %s deve %s",
		template.HTMLEscapeString(debtor.Name),
		template.HTMLEscapeString(debtor.AmountDue.Display()))

	NewHTMXResponse().
		TriggerDebtorsChanged().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}

// handleSettle records a debt payment: the registry is updated and the
// payment lands on the ledger as an inflow.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Valor invalido").Write(w)
		return
	}
	source := core.FundsSource(sanitizeInput(r.Form.Get("source")))

	debtor, err := s.svc.Settle(r.Context(), name, core.Money{Cents: cents}, source)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDebtorNotFound):
			NotFoundError("Devedor nao encontrado: " + name).Write(w)
		case isValidationError(err):
			UnprocessableEntityError("Dados invalidos: " + err.Error()).Write(w)
		default:
			slog.ErrorContext(r.Context(), "Failed to settle debt", "error", err, "debtor", name)
			InternalServerError("Erro ao registrar pagamento").Write(w)
		}
		return
	}

	s.invalidateDashboard()

	slog.InfoContext(r.Context(), "Debt payment recorded",
		"debtor", debtor.Name,
		"paid_cents", cents,
		"remaining_cents", debtor.AmountDue.Cents)

	msg := fmt.Sprintf("Pagamento registrado: %s, saldo devedor %s",
		template.HTMLEscapeString(debtor.Name),
		template.HTMLEscapeString(debtor.AmountDue.Display()))

	NewHTMXResponse().
		TriggerDebtorsChanged().
		TriggerLedgerChanged().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}
