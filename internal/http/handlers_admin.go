package http

import (
	"crypto/subtle"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"caixinha/internal/core"
	"caixinha/internal/tables"
)

const adminCookieName = "caixinha_admin"

// withAdmin gates a handler behind the static admin secret. With no secret
// configured the whole admin surface stays off.
func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminSecret == "" {
			http.Error(w, "admin disabled", http.StatusForbidden)
			return
		}
		cookie, err := r.Cookie(adminCookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(s.adminSecret)) != 1 {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// handleAdminLogin renders the login form and checks the submitted secret.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.adminSecret == "" {
		http.Error(w, "admin disabled", http.StatusForbidden)
		return
	}

	if r.Method == http.MethodGet {
		if err := s.templates.ExecuteTemplate(w, "login.html", nil); err != nil {
			slog.ErrorContext(r.Context(), "Login template execution failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	secret := r.Form.Get("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.adminSecret)) != 1 {
		slog.WarnContext(r.Context(), "Admin login rejected", "client_ip", extractClientIP(r))
		UnprocessableEntityError("Senha incorreta").Write(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    secret,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.InfoContext(r.Context(), "Admin login", "client_ip", extractClientIP(r))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   adminCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAdminIndex renders the admin page with all management forms.
func (s *Server) handleAdminIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	debtors, err := s.svc.Debtors(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Debtors load error", "error", err)
	}
	requests, err := s.svc.Requests(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Requests load error", "error", err)
	}

	type debtorRow struct {
		Name       string
		AmountDue  string
		LastUpdate string
	}
	type requestRow struct {
		ID             string
		Date           string
		Requester      string
		Item           string
		EstimatedValue string
		Status         string
	}
	data := struct {
		Today      string
		CanEditRaw bool
		Tables     []string
		Debtors    []debtorRow
		Requests   []requestRow
	}{
		Today:      core.Today().String(),
		CanEditRaw: s.editor != nil,
		Tables:     []string{tables.Ledger, tables.Debtors, tables.Requests},
	}
	for _, d := range debtors {
		data.Debtors = append(data.Debtors, debtorRow{
			Name:       d.Name,
			AmountDue:  d.AmountDue.Display(),
			LastUpdate: d.LastUpdate.String(),
		})
	}
	for _, pr := range requests {
		data.Requests = append(data.Requests, requestRow{
			ID:             pr.ID,
			Date:           pr.Date.String(),
			Requester:      pr.Requester,
			Item:           pr.Item,
			EstimatedValue: pr.EstimatedValue.Display(),
			Status:         string(pr.Status),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "admin.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Admin template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleTables serves and accepts raw CSV for a named table. Only available
// on file-backed stores.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if s.editor == nil {
		NotFoundError("Edicao direta indisponivel neste backend").Write(w)
		return
	}

	name := sanitizeInput(r.URL.Query().Get("table"))
	if name == "" {
		name = tables.Ledger
	}

	switch r.Method {
	case http.MethodGet:
		content, err := s.editor.ReadTable(name)
		if err != nil {
			slog.ErrorContext(r.Context(), "Table read error", "error", err, "table", name)
			NotFoundError("Tabela desconhecida: " + name).Write(w)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(content))

	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}
		if v := sanitizeInput(r.Form.Get("table")); v != "" {
			name = v
		}
		content := r.Form.Get("content")
		if err := s.editor.WriteTable(name, content); err != nil {
			slog.ErrorContext(r.Context(), "Table write error", "error", err, "table", name)
			UnprocessableEntityError("Erro ao gravar tabela: " + err.Error()).Write(w)
			return
		}
		s.invalidateDashboard()
		slog.InfoContext(r.Context(), "Table overwritten", "table", name, "bytes", len(content))
		NewHTMXResponse().
			TriggerLedgerChanged().
			TriggerDebtorsChanged().
			TriggerRequestsChanged().
			BodyHTML(`<div class="success">Tabela gravada: ` + template.HTMLEscapeString(name) + `</div>`).
			Write(w)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// handleImportLedger merges a legacy month spreadsheet into the ledger.
func (s *Server) handleImportLedger(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, "ledger", func() (int, error) {
		file, _, err := r.FormFile("file")
		if err != nil {
			return 0, err
		}
		defer file.Close()
		return s.svc.ImportLegacyLedger(r.Context(), file)
	})
	s.invalidateDashboard()
}

// handleImportDebtors merges a legacy debtor-control spreadsheet.
func (s *Server) handleImportDebtors(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, "debtors", func() (int, error) {
		file, _, err := r.FormFile("file")
		if err != nil {
			return 0, err
		}
		defer file.Close()
		return s.svc.ImportLegacyDebtors(r.Context(), file)
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, kind string, run func() (int, error)) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		BadRequestError("Arquivo invalido").Write(w)
		return
	}

	count, err := run()
	if err != nil {
		slog.ErrorContext(r.Context(), "Legacy import failed", "error", err, "kind", kind)
		UnprocessableEntityError("Erro na importacao: " + err.Error()).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Legacy import completed", "kind", kind, "rows", count)

	msg := fmt.Sprintf("Importacao concluida: %d registros", count)
	NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerDebtorsChanged().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}
