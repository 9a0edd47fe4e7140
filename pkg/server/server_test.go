package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/api"
	"github.com/de-tools/ledger-atlas/pkg/services/financials"
	"github.com/de-tools/ledger-atlas/pkg/store/client"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerService fakes the remote ledger service for project P-1. gate, when
// set, runs before every response.
func ledgerService(t *testing.T, gate func(r *http.Request) bool) *httptest.Server {
	t.Helper()
	responses := map[string]string{
		"/invoices": `[{"id":"inv-1","total_amount":"1000","status":"paid","project_number":"P-1"}]`,
		"/billing-items": `{"data":[
			{"id":"bi-1","amount":"500","status":"unbilled","project_number":"P-1"},
			{"id":"bi-2","amount":"75","status":"unbilled","project_number":"P-2"}
		]}`,
		"/transactions": `[
			{"id":"t-1","transaction_type":"expense_voucher","amount":"300","status":"approved","project_number":"P-1"},
			{"id":"t-2","transaction_type":"expense","amount":"40","status":"approved","is_billable":true,"project_number":"P-2"}
		]`,
		"/collections": `[{"id":"c-1","amount":"250","project_number":"P-1"}]`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if gate != nil && !gate(r) {
			return
		}
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func setupWebAPI(t *testing.T) http.Handler {
	t.Helper()
	return setupWebAPIWithLedger(t, ledgerService(t, nil))
}

func setupWebAPIWithLedger(t *testing.T, ledger *httptest.Server) http.Handler {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))

	ledgerClient, err := client.New(client.Config{
		BaseURL:  ledger.URL,
		Token:    "test-token",
		RetryMax: 0,
		Logger:   logger,
	})
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC) }
	return NewWebAPI(logger, Config{
		Addr: ":0",
		Dependencies: Dependencies{
			Financials: financials.NewRegistry(ledgerClient, financials.WithClock(clock)),
		},
	}).Handler()
}

func TestWebAPI_EntityFinancials(t *testing.T) {
	handler := setupWebAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/project/P-1/financials?quotation=Q-404", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	var body api.EntityFinancials
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ready", body.State)
	assert.Equal(t, 1000.0, body.Totals.Revenue)
	assert.Equal(t, 500.0, body.Totals.UnbilledRevenue)
	assert.Equal(t, 300.0, body.Totals.Cost)
	assert.Equal(t, 1200.0, body.Totals.GrossProfit)
	assert.Equal(t, 250.0, body.Totals.Collected)

	// the quotation is unknown to the ledger service
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, "quotation", body.Warnings[0].Ledger)
}

func TestWebAPI_Portfolio(t *testing.T) {
	handler := setupWebAPI(t)

	payload := `{"entities":[{"kind":"project","id":"P-1"},{"kind":"project","id":"P-2"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/financials", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body api.PortfolioFinancials
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, 1500.0, body.Entries[0].Totals.ProductionValue)
	assert.Equal(t, 115.0, body.Entries[1].Totals.UnbilledRevenue)
	assert.Equal(t, 40.0, body.Entries[1].Totals.Cost)
	assert.Empty(t, body.Warnings)
}

func TestWebAPI_OverlappingRefreshes(t *testing.T) {
	var billingCalls atomic.Int32
	started := make(chan struct{})
	ledger := ledgerService(t, func(r *http.Request) bool {
		if r.URL.Path != "/billing-items" || billingCalls.Add(1) != 1 {
			return true
		}
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		return false
	})
	handler := setupWebAPIWithLedger(t, ledger)

	refresh := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entities/project/P-1/financials/refresh", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- refresh()
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never reached the ledger service")
	}

	second := refresh()
	require.Equal(t, http.StatusOK, second.Code)
	var body api.EntityFinancials
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, 500.0, body.Totals.UnbilledRevenue)

	select {
	case rec := <-first:
		assert.Equal(t, http.StatusOK, rec.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh did not return")
	}
}

func TestWebAPI_Health(t *testing.T) {
	handler := setupWebAPI(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
