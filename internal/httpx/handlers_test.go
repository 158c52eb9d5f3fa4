package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-sync/internal/catalog"
	"storefront-sync/internal/linkcheck"
	"storefront-sync/internal/orders"
)

type stubSyncer struct {
	run *catalog.Run
	err error
}

func (s *stubSyncer) SyncAll(ctx context.Context, trigger string) (*catalog.Run, error) {
	return s.run, s.err
}

type stubRunStore struct {
	runs []catalog.Run
}

func (s *stubRunStore) Begin(ctx context.Context, r *catalog.Run) error  { return nil }
func (s *stubRunStore) Finish(ctx context.Context, r *catalog.Run) error { return nil }
func (s *stubRunStore) LastRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	return s.runs, nil
}

type stubRunner struct {
	sum      orders.ProcessSummary
	err      error
	trackErr error
}

func (s *stubRunner) ProcessPending(ctx context.Context) (orders.ProcessSummary, error) {
	return s.sum, s.err
}

func (s *stubRunner) TrackSupplierOrders(ctx context.Context) error { return s.trackErr }

type stubOrderCreator struct {
	ok  bool
	err error
}

func (s *stubOrderCreator) CreateSupplierOrder(ctx context.Context, orderID string) (bool, error) {
	return s.ok, s.err
}

type stubOrderStore struct {
	orders.Store
	marked []string
}

func (s *stubOrderStore) MarkProcessing(ctx context.Context, id string) error {
	s.marked = append(s.marked, id)
	return nil
}

type stubChecker struct {
	report *linkcheck.Report
	runErr error
}

func (s *stubChecker) Run(ctx context.Context) (linkcheck.Report, error) {
	if s.runErr != nil {
		return linkcheck.Report{}, s.runErr
	}
	return *s.report, nil
}

func (s *stubChecker) Status(ctx context.Context) (*linkcheck.Report, error) {
	return s.report, nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleRun() *catalog.Run {
	return &catalog.Run{
		ID:         "run-1",
		Trigger:    catalog.TriggerCron,
		Status:     catalog.RunSuccess,
		StartedAt:  time.Now().UTC().Add(-time.Minute),
		FinishedAt: time.Now().UTC(),
		Imported:   4,
		Updated:    2,
		Outcomes: []catalog.SyncOutcome{
			{SupplierID: "s1", SupplierName: "Acme", Imported: 4, Updated: 2},
		},
	}
}

func TestCronSyncEndpoint(t *testing.T) {
	r := NewRouter()
	(&SyncHandler{Manager: &stubSyncer{run: sampleRun()}, Runs: &stubRunStore{}}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cron/sync-products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "supplier sync completed", body["message"])

	sum, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, sum["totalSuppliers"])
	assert.EqualValues(t, 1, sum["successfulSyncs"])
	assert.EqualValues(t, 4, sum["totalProductsImported"])
	assert.EqualValues(t, 2, sum["totalProductsUpdated"])
	assert.EqualValues(t, 0, sum["totalErrors"])
}

func TestManualSyncIncludesPerSupplierDetails(t *testing.T) {
	r := NewRouter()
	(&SyncHandler{Manager: &stubSyncer{run: sampleRun()}, Runs: &stubRunStore{}}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/suppliers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	details, ok := body["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	first := details[0].(map[string]any)
	assert.Equal(t, "Acme", first["supplier_name"])
}

func TestSyncEndpointSurfacesFatalError(t *testing.T) {
	r := NewRouter()
	(&SyncHandler{Manager: &stubSyncer{err: errors.New("db down")}, Runs: &stubRunStore{}}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cron/sync-products", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestListRunsEndpoint(t *testing.T) {
	r := NewRouter()
	store := &stubRunStore{runs: []catalog.Run{*sampleRun()}}
	(&SyncHandler{Manager: &stubSyncer{}, Runs: store}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sync/suppliers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	runs, ok := body["runs"].([]any)
	require.True(t, ok)
	assert.Len(t, runs, 1)
}

func TestCronProcessOrdersEndpoint(t *testing.T) {
	r := NewRouter()
	runner := &stubRunner{sum: orders.ProcessSummary{Processed: 2, Errors: 1, TotalPending: 3}}
	(&OrdersHandler{Runner: runner, Creator: &stubOrderCreator{}, Store: &stubOrderStore{}}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cron/process-orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	sum := body["summary"].(map[string]any)
	assert.EqualValues(t, 2, sum["ordersProcessed"])
	assert.EqualValues(t, 1, sum["errors"])
	assert.EqualValues(t, 3, sum["totalPending"])
}

func TestCronProcessCountsTrackingFailure(t *testing.T) {
	r := NewRouter()
	runner := &stubRunner{trackErr: errors.New("poll failed")}
	(&OrdersHandler{Runner: runner, Creator: &stubOrderCreator{}, Store: &stubOrderStore{}}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cron/process-orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode(t, rec)["summary"].(map[string]any)
	assert.EqualValues(t, 1, sum["errors"])
}

func TestProcessOrderRequiresOrderID(t *testing.T) {
	r := NewRouter()
	(&OrdersHandler{Runner: &stubRunner{}, Creator: &stubOrderCreator{}, Store: &stubOrderStore{}}).Register(r)

	for _, payload := range []string{`{}`, `not-json`, `{"orderId":""}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/orders/process", strings.NewReader(payload))
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %q", payload)
	}
}

func TestProcessOrderSuccessMarksProcessing(t *testing.T) {
	r := NewRouter()
	store := &stubOrderStore{}
	(&OrdersHandler{Runner: &stubRunner{}, Creator: &stubOrderCreator{ok: true}, Store: store}).Register(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders/process", strings.NewReader(`{"orderId":"o-1"}`))
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
	assert.Equal(t, []string{"o-1"}, store.marked)
}

func TestProcessOrderNotFoundIsBusinessFailure(t *testing.T) {
	r := NewRouter()
	creator := &stubOrderCreator{err: orders.ErrOrderNotFound}
	(&OrdersHandler{Runner: &stubRunner{}, Creator: creator, Store: &stubOrderStore{}}).Register(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders/process", strings.NewReader(`{"orderId":"nope"}`))
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestProcessOrderUnexpectedFailureIs500(t *testing.T) {
	r := NewRouter()
	creator := &stubOrderCreator{err: errors.New("supplier exploded")}
	(&OrdersHandler{Runner: &stubRunner{}, Creator: creator, Store: &stubOrderStore{}}).Register(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders/process", strings.NewReader(`{"orderId":"o-1"}`))
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMonitorStatusBeforeFirstRun(t *testing.T) {
	r := NewRouter()
	(&MonitorHandler{Checker: &stubChecker{}}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/monitor/links", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["report"])
	assert.Equal(t, "no check has run yet", body["message"])
}

func TestMonitorRunReturnsReport(t *testing.T) {
	r := NewRouter()
	checker := &stubChecker{report: &linkcheck.Report{
		CheckedAt: time.Now().UTC(),
		Checked:   3,
		Broken:    []linkcheck.BrokenLink{{URL: "https://example.com/x", StatusCode: 404, Reason: "404 Not Found"}},
	}}
	(&MonitorHandler{Checker: checker}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/monitor/links", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	report := body["report"].(map[string]any)
	assert.EqualValues(t, 3, report["checked"])
	broken := report["broken"].([]any)
	require.Len(t, broken, 1)
}

func TestHealthz(t *testing.T) {
	r := NewRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
