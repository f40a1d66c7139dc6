package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"caixinha/internal/core"
	"caixinha/internal/services"
	"caixinha/internal/tables/memory"
)

func newTestServer(t *testing.T, secret string) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := services.NewTreasuryService(store, nil)
	srv := NewServer(":0", svc, nil, secret)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv, store
}

func adminCookie(secret string) *http.Cookie {
	return &http.Cookie{Name: adminCookieName, Value: secret}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestSubmitRequestPublic(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	form := url.Values{
		"requester": {"Ana"},
		"item":      {"Cafeteira"},
		"amount":    {"150,00"},
	}
	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Solicitacao enviada") {
		t.Errorf("body missing confirmation: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "requests:changed") {
		t.Errorf("HX-Trigger = %q, want requests:changed", rec.Header().Get("HX-Trigger"))
	}
}

func TestSubmitRequestRejectsBadAmount(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	form := url.Values{
		"requester": {"Ana"},
		"item":      {"Cafeteira"},
		"amount":    {"abc"},
	}
	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestSubmitRequestWithoutEstimate(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")

	for _, amount := range []string{"", "0"} {
		form := url.Values{
			"requester": {"Ana"},
			"item":      {"Cabo HDMI"},
			"amount":    {amount},
		}
		req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("amount %q: status = %d, body = %s", amount, rec.Code, rec.Body.String())
		}
	}

	requests, err := store.LoadRequests(context.Background())
	if err != nil {
		t.Fatalf("LoadRequests: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(requests))
	}
	for _, r := range requests {
		if r.EstimatedValue.Cents != 0 {
			t.Errorf("request %s: estimated cents = %d, want 0", r.ID, r.EstimatedValue.Cents)
		}
	}
}

func TestAdminRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAdminLoginFlow(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	form := url.Values{"secret": {"s3cret"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != adminCookieName {
		t.Fatalf("expected %s cookie, got %v", adminCookieName, cookies)
	}

	form = url.Values{"secret": {"wrong"}}
	req = httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("wrong secret status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestRecordEntryThroughAdmin(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")

	form := url.Values{
		"date":        {"2024-03-10"},
		"type":        {"Entrada"},
		"description": {"Mensalidade Ana"},
		"amount":      {"50,00"},
		"source":      {"Banco"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/entries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(adminCookie("s3cret"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	entries, err := store.LoadLedger(req.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger size = %d, want 1", len(entries))
	}
	if entries[0].Project != core.DefaultProject {
		t.Errorf("project = %q, want default %q", entries[0].Project, core.DefaultProject)
	}
	if entries[0].Amount.Cents != 5000 {
		t.Errorf("amount = %d cents, want 5000", entries[0].Amount.Cents)
	}
}

func TestRecordEntryValidation(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")

	form := url.Values{
		"date":        {"2024-03-10"},
		"type":        {"Transferencia"},
		"description": {"x"},
		"amount":      {"50,00"},
		"source":      {"Banco"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/entries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(adminCookie("s3cret"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	entries, _ := store.LoadLedger(req.Context())
	if len(entries) != 0 {
		t.Errorf("ledger size = %d, want 0 after rejected entry", len(entries))
	}
}

func TestSettleUnknownDebtorIs404(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	form := url.Values{
		"name":   {"Fantasma"},
		"amount": {"10,00"},
		"source": {"Dinheiro"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/settle", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(adminCookie("s3cret"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSetRequestStatus(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")

	store.Seed(nil, nil, []core.PurchaseRequest{{
		ID:             "req-1",
		Date:           core.Today(),
		Requester:      "Ana",
		Item:           "Cafeteira",
		EstimatedValue: core.Money{Cents: 15000},
		Status:         core.StatusPending,
	}})

	form := url.Values{"id": {"req-1"}, "status": {"Aprovada"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/requests/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(adminCookie("s3cret"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	requests, _ := store.LoadRequests(req.Context())
	if len(requests) != 1 || requests[0].Status != core.StatusApproved {
		t.Fatalf("requests = %+v, want approved", requests)
	}

	// Approval must not touch the ledger.
	entries, _ := store.LoadLedger(req.Context())
	if len(entries) != 0 {
		t.Errorf("ledger size = %d, want 0 after approval", len(entries))
	}
}

func TestSetRequestStatusRejectsPending(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")

	store.Seed(nil, nil, []core.PurchaseRequest{{
		ID:             "req-1",
		Date:           core.Today(),
		Requester:      "Ana",
		Item:           "Cafeteira",
		EstimatedValue: core.Money{Cents: 15000},
		Status:         core.StatusPending,
	}})

	form := url.Values{"id": {"req-1"}, "status": {"Pendente"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/requests/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(adminCookie("s3cret"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestTablesUnavailableWithoutEditor(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/admin/tables?table=ledger", nil)
	req.AddCookie(adminCookie("s3cret"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDashboardCacheInvalidation(t *testing.T) {
	srv, store := newTestServer(t, "s3cret")
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	view, err := srv.getDashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Net != "R$ 0,00" {
		t.Fatalf("net = %q, want R$ 0,00", view.Net)
	}

	store.Seed([]core.LedgerEntry{{
		Date:        core.Today(),
		Type:        core.Inflow,
		Project:     core.DefaultProject,
		Description: "deposito",
		Amount:      core.Money{Cents: 10000},
		Source:      core.Bank,
	}}, nil, nil)

	// Still served from cache until a write invalidates it.
	view, err = srv.getDashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Net != "R$ 0,00" {
		t.Fatalf("cached net = %q, want R$ 0,00", view.Net)
	}

	srv.invalidateDashboard()
	view, err = srv.getDashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Net != "R$ 100,00" {
		t.Fatalf("net after invalidation = %q, want R$ 100,00", view.Net)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	metrics := &securityMetrics{}
	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1", metrics) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1", metrics) {
		t.Error("request 61 should be rejected")
	}
	if !rl.allow("10.0.0.2", metrics) {
		t.Error("other client should not be affected")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.7:1234", "", "203.0.113.7"},
		{"trusted proxy forwards", "127.0.0.1:1234", "203.0.113.9", "203.0.113.9"},
		{"untrusted proxy ignored", "203.0.113.7:1234", "198.51.100.1", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
