package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"caixinha/internal/cache"
	"caixinha/internal/core"
)

const summaryCacheKey = "dashboard"

func newSummaryCache() *cache.LRUCache[dashboardView] {
	return cache.NewLRUCache[dashboardView](4, 5*time.Minute)
}

// dashboardView holds the pre-formatted summary shown on the dashboard.
type dashboardView struct {
	Inflow  string
	Outflow string
	Net     string
	Sources []sourceRow
	Project []projectRow
}

type sourceRow struct {
	Name    string
	Inflow  string
	Outflow string
	Net     string
}

type projectRow struct {
	Name   string
	Amount string
	Width  int
}

// getDashboard returns the dashboard view, serving from cache when possible.
func (s *Server) getDashboard(ctx context.Context) (dashboardView, error) {
	if view, found := s.summaryCache.Get(summaryCacheKey); found {
		slog.DebugContext(ctx, "Summary cache hit")
		return view, nil
	}

	summary, err := s.svc.Summary(ctx)
	if err != nil {
		return dashboardView{}, fmt.Errorf("load summary: %w", err)
	}
	byProject, err := s.svc.OutflowsByProject(ctx)
	if err != nil {
		return dashboardView{}, fmt.Errorf("load project outflows: %w", err)
	}

	view := buildDashboardView(summary, byProject)
	s.summaryCache.Set(summaryCacheKey, view)
	slog.DebugContext(ctx, "Summary cached", "net_cents", summary.Net.Cents)
	return view, nil
}

// invalidateDashboard drops the cached summary after any write.
func (s *Server) invalidateDashboard() {
	s.summaryCache.Clear()
}

func buildDashboardView(summary core.Summary, byProject map[string]core.Money) dashboardView {
	view := dashboardView{
		Inflow:  summary.Inflow.Display(),
		Outflow: summary.Outflow.Display(),
		Net:     summary.Net.Display(),
	}

	for _, src := range []core.FundsSource{core.Bank, core.Cash} {
		totals := summary.BySource[src]
		view.Sources = append(view.Sources, sourceRow{
			Name:    string(src),
			Inflow:  totals.Inflow.Display(),
			Outflow: totals.Outflow.Display(),
			Net:     totals.Net.Display(),
		})
	}

	names := make([]string, 0, len(byProject))
	var maxCents int64
	for name, amount := range byProject {
		names = append(names, name)
		if amount.Cents > maxCents {
			maxCents = amount.Cents
		}
	}
	sort.Strings(names)
	for _, name := range names {
		amount := byProject[name]
		width := 0
		if maxCents > 0 && amount.Cents > 0 {
			width = int((amount.Cents*100 + maxCents/2) / maxCents) // rounded percent
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		view.Project = append(view.Project, projectRow{Name: name, Amount: amount.Display(), Width: width})
	}

	return view
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Today   string
		Sources []core.FundsSource
	}{
		Today:   core.Today().String(),
		Sources: []core.FundsSource{core.Bank, core.Cash},
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSummaryPartial renders the fund summary partial.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	view, err := s.getDashboard(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary load error", "error", err)
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Erro carregando resumo</div></section>`))
		return
	}
	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Saldo: ` + view.Net + `</div></section>`))
		return
	}

	if err := s.templates.ExecuteTemplate(w, "summary.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "summary.html")
		_, _ = w.Write([]byte(`<section id="summary" class="summary"><div class="placeholder">Erro renderizando resumo</div></section>`))
	}
}

// handleDebtorsPartial renders the outstanding debtors partial.
func (s *Server) handleDebtorsPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	debtors, err := s.svc.ListOutstanding(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Debtors load error", "error", err)
		_, _ = w.Write([]byte(`<section id="debtors" class="debtors"><div class="placeholder">Erro carregando devedores</div></section>`))
		return
	}

	type row struct {
		Name       string
		AmountDue  string
		LastUpdate string
	}
	data := struct{ Rows []row }{}
	for _, d := range debtors {
		data.Rows = append(data.Rows, row{
			Name:       d.Name,
			AmountDue:  d.AmountDue.Display(),
			LastUpdate: d.LastUpdate.String(),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "debtors.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "debtors.html")
		_, _ = w.Write([]byte(`<section id="debtors" class="debtors"><div class="placeholder">Erro renderizando devedores</div></section>`))
	}
}

// handleRequestsPartial renders the pending purchase requests partial.
func (s *Server) handleRequestsPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	requests, err := s.svc.ListPending(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Requests load error", "error", err)
		_, _ = w.Write([]byte(`<section id="requests" class="requests"><div class="placeholder">Erro carregando solicitacoes</div></section>`))
		return
	}

	type row struct {
		ID             string
		Date           string
		Requester      string
		Item           string
		EstimatedValue string
		Justification  string
	}
	data := struct{ Rows []row }{}
	for _, pr := range requests {
		data.Rows = append(data.Rows, row{
			ID:             pr.ID,
			Date:           pr.Date.String(),
			Requester:      pr.Requester,
			Item:           pr.Item,
			EstimatedValue: pr.EstimatedValue.Display(),
			Justification:  pr.Justification,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "requests.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "requests.html")
		_, _ = w.Write([]byte(`<section id="requests" class="requests"><div class="placeholder">Erro renderizando solicitacoes</div></section>`))
	}
}
