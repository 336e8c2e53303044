package periodhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"settlement-periods/internal/audit"
	"settlement-periods/internal/auth"
	"settlement-periods/internal/jobs"
	"settlement-periods/internal/period/application"
	period "settlement-periods/internal/period/domain"
	"settlement-periods/internal/period/infrastructure/memory"
	"settlement-periods/internal/settings"
	"settlement-periods/internal/statuscache"
)

type auditRecorder struct {
	entries []audit.Entry
}

func (a *auditRecorder) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type inlineQueue struct{}

func (inlineQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	return job.Execute(ctx)
}

type noopControl struct{}

func (noopControl) Toggle(context.Context, bool, string) error { return nil }

type testEnv struct {
	handler *Handler
	staging *memory.Staging
	repo    *memory.Repository
	audits  *auditRecorder
	service *application.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	staging := memory.NewStaging()
	repo := memory.NewRepository(staging)
	computer := application.ComputerFunc(func(_ context.Context, periodID int64) error {
		staging.AddTempTransaction(periodID, 1, "settlement", 50)
		return nil
	})
	svc, err := application.NewService(repo, staging, computer, inlineQueue{}, noopControl{},
		settings.NewMemoryStore(), statuscache.New(), time.Minute, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	audits := &auditRecorder{}
	return &testEnv{
		handler: NewHandler(svc, staging, audits, nil),
		staging: staging,
		repo:    repo,
		audits:  audits,
		service: svc,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID > 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return payload
}

func TestCreatePeriod(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 7)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["status"] != string(period.StatusOpen) {
		t.Fatalf("status = %v, want open", payload["status"])
	}
	if payload["full_period"] != "2024-01-01 - 2024-01-08" {
		t.Fatalf("full_period = %v", payload["full_period"])
	}

	if len(env.audits.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(env.audits.entries))
	}
	entry := env.audits.entries[0]
	if entry.Action != audit.ActionPeriodCreate {
		t.Fatalf("audit action = %s", entry.Action)
	}
	if entry.UserID == nil || *entry.UserID != 7 {
		t.Fatal("audit entry must carry the acting user")
	}
}

func TestCreatePeriod_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	first := env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create = %d", first.Code)
	}

	second := env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 2","date_from":"2024-01-08","date_to":"2024-01-15"}`, 0)
	if second.Code != http.StatusConflict {
		t.Fatalf("second create = %d, want 409", second.Code)
	}
}

func TestCreatePeriod_BadInput(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		body string
	}{
		{"missing number", `{"date_from":"2024-01-01","date_to":"2024-01-08"}`},
		{"bad date", `{"number":"P","date_from":"January 1","date_to":"2024-01-08"}`},
		{"inverted range", `{"number":"P","date_from":"2024-01-08","date_to":"2024-01-01"}`},
		{"not json", `number=P`},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodPost, "/api/v1/periods", tc.body, 0)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestComputeAndShow(t *testing.T) {
	env := newTestEnv(t)
	env.staging.SeedCurrentProperty(1, "balance", 120)
	created := decodeBody(t, env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0))
	if created["id"].(float64) != 1 {
		t.Fatalf("id = %v, want 1", created["id"])
	}

	// Open: show returns the current account properties.
	shown := decodeBody(t, env.do(t, http.MethodGet, "/api/v1/periods/1", "", 0))
	props := shown["properties"].([]any)
	if len(props) != 1 {
		t.Fatalf("open show properties = %d, want 1", len(props))
	}
	if _, hasTx := shown["transactions"]; hasTx {
		t.Fatal("open show must not include transactions")
	}

	rec := env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 3)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("compute = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The inline queue ran the job synchronously, so the period is in review.
	shown = decodeBody(t, env.do(t, http.MethodGet, "/api/v1/periods/1", "", 0))
	periodPayload := shown["period"].(map[string]any)
	if periodPayload["status"] != string(period.StatusReview) {
		t.Fatalf("status = %v, want review", periodPayload["status"])
	}
	txs := shown["transactions"].([]any)
	if len(txs) != 1 {
		t.Fatalf("review show transactions = %d, want 1", len(txs))
	}
	logs := shown["status_logs"].([]any)
	newest := logs[0].(map[string]any)
	if newest["status_to"] != string(period.StatusReview) {
		t.Fatalf("newest log status_to = %v", newest["status_to"])
	}

	// compute on a non-open period conflicts.
	rec = env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 3)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second compute = %d, want 409", rec.Code)
	}
}

func TestSubmitAndShowClosed(t *testing.T) {
	env := newTestEnv(t)
	env.staging.SeedCurrentProperty(1, "balance", 120)
	env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 0)

	rec := env.do(t, http.MethodPost, "/api/v1/periods/1/submit", "", 0)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit = %d, body = %s", rec.Code, rec.Body.String())
	}

	shown := decodeBody(t, env.do(t, http.MethodGet, "/api/v1/periods/1", "", 0))
	periodPayload := shown["period"].(map[string]any)
	if periodPayload["status"] != string(period.StatusClosed) {
		t.Fatalf("status = %v, want closed", periodPayload["status"])
	}
	txs := shown["transactions"].([]any)
	if len(txs) != 1 {
		t.Fatalf("closed show transactions = %d, want 1", len(txs))
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.staging.SeedCurrentProperty(1, "balance", 120)
	env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)

	rec := env.do(t, http.MethodPost, "/api/v1/periods/1/reset", "", 0)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reset outside review = %d, want 409", rec.Code)
	}

	env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 0)
	rec = env.do(t, http.MethodPost, "/api/v1/periods/1/reset", "", 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d, body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["status"] != string(period.StatusOpen) {
		t.Fatalf("status after reset = %v, want open", payload["status"])
	}
}

func TestCreateNext(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/periods/next", "", 0)
	if rec.Code != http.StatusConflict {
		t.Fatalf("create next without previous = %d, want 409", rec.Code)
	}

	env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/submit", "", 0)

	rec = env.do(t, http.MethodPost, "/api/v1/periods/next", "", 0)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create next = %d, body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["number"] != "Period - 2" {
		t.Fatalf("number = %v", payload["number"])
	}
	if payload["date_from"] != "2024-01-08" {
		t.Fatalf("date_from = %v", payload["date_from"])
	}
	if payload["date_to"] != "2024-01-15" {
		t.Fatalf("date_to = %v, want default seven-day period", payload["date_to"])
	}
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/submit", "", 0)
	env.do(t, http.MethodPost, "/api/v1/periods/next", "", 0)

	rec := env.do(t, http.MethodGet, "/api/v1/periods", "", 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	periods := payload["periods"].([]any)
	if len(periods) != 2 {
		t.Fatalf("listed %d periods, want 2", len(periods))
	}
	// Open ranks before closed.
	first := periods[0].(map[string]any)
	if first["status"] != string(period.StatusOpen) {
		t.Fatalf("first listed status = %v, want open", first["status"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/periods?status=closed", "", 0)
	payload = decodeBody(t, rec)
	if got := len(payload["periods"].([]any)); got != 1 {
		t.Fatalf("filtered list = %d, want 1", got)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/periods?status=bogus", "", 0)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status filter = %d, want 400", rec.Code)
	}
}

func TestStatusText(t *testing.T) {
	env := newTestEnv(t)
	env.staging.SeedCurrentProperty(1, "balance", 120)
	env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 0)

	rec := env.do(t, http.MethodGet, "/api/v1/periods/1/status-text", "", 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("status-text = %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["status_text"] != application.StatusTextCopyProperties {
		t.Fatalf("status_text = %v", payload["status_text"])
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.staging.SeedCurrentProperty(1, "balance", 120)
	env.do(t, http.MethodPost, "/api/v1/periods",
		`{"number":"Period - 1","date_from":"2024-01-01","date_to":"2024-01-08"}`, 0)
	env.do(t, http.MethodPost, "/api/v1/periods/1/compute", "", 0)

	rec := env.do(t, http.MethodGet, "/api/v1/periods/1/export/transactions.xlsx", "", 5)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx export = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("content type = %s", got)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty xlsx payload")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/periods/1/export/properties.xlsx", "", 5)
	if rec.Code != http.StatusOK {
		t.Fatalf("properties export = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/periods/1/export/summary.pdf", "", 5)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf export = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type = %s", got)
	}

	var exports int
	for _, entry := range env.audits.entries {
		if entry.Action == audit.ActionExport {
			exports++
		}
	}
	if exports != 3 {
		t.Fatalf("expected 3 export audit entries, got %d", exports)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/periods/42/export/summary.pdf", "", 5)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("export of unknown period = %d, want 404", rec.Code)
	}
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/v1/periods/abc", "", 0); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id = %d, want 400", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/periods/99", "", 0); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown period = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/periods/1/unknown", "", 0); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/periods", "", 0); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete collection = %d, want 405", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/periods/next", "", 0); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("get next = %d, want 405", rec.Code)
	}
}
