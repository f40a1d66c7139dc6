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

// handleSubmitRequest queues a purchase request from the public form.
func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	requester := sanitizeInput(r.Form.Get("requester"))
	item := sanitizeInput(r.Form.Get("item"))
	justification := sanitizeInput(r.Form.Get("justification"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseEstimateToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Valor estimado invalido").Write(w)
		return
	}

	request, err := s.svc.SubmitRequest(r.Context(), requester, item, core.Money{Cents: cents}, justification)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError("Dados invalidos: " + err.Error()).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to submit purchase request", "error", err, "item", item)
		InternalServerError("Erro ao enviar solicitacao").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Purchase request submitted",
		"purchase_request_id", request.ID,
		"requester", request.Requester,
		"item", request.Item,
		"amount_cents", request.EstimatedValue.Cents)

	msg := fmt.Sprintf("Solicitacao enviada: %s (%s)",
		template.HTMLEscapeString(request.Item),
		template.HTMLEscapeString(request.EstimatedValue.Display()))

	NewHTMXResponse().
		TriggerRequestsChanged().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}

// handleSetRequestStatus approves or refuses a pending purchase request.
// Approval never posts a ledger movement; the actual purchase is recorded
// separately once it happens.
func (s *Server) handleSetRequestStatus(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Formato de requisicao invalido").Write(w)
		return
	}

	id := parser.Get("id")
	status := core.RequestStatus(parser.Get("status"))
	if id == "" {
		BadRequestError("ID da solicitacao ausente").Write(w)
		return
	}

	request, err := s.svc.SetRequestStatus(r.Context(), id, status)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRequestNotFound):
			NotFoundError("Solicitacao nao encontrada").Write(w)
		case errors.Is(err, core.ErrInvalidStatus):
			UnprocessableEntityError("Status invalido: " + string(status)).Write(w)
		default:
			slog.ErrorContext(r.Context(), "Failed to update request status",
				"error", err, "purchase_request_id", id, "status", string(status))
			InternalServerError("Erro ao atualizar solicitacao").Write(w)
		}
		return
	}

	slog.InfoContext(r.Context(), "Purchase request updated",
		"purchase_request_id", request.ID,
		"status", string(request.Status))

	msg := fmt.Sprintf("Solicitacao %s: %s",
		template.HTMLEscapeString(strings.ToLower(string(request.Status))),
		template.HTMLEscapeString(request.Item))

	NewHTMXResponse().
		TriggerRequestsChanged().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}
