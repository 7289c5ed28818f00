package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"
	"jobsnap/services/capture/internal/page"
	"jobsnap/services/capture/internal/pipeline"

	"go.uber.org/zap/zaptest"
)

type fakeSettings struct {
	stored models.Settings
	saves  int
}

func (f *fakeSettings) Load(ctx context.Context) (models.Settings, error) {
	return f.stored, nil
}

func (f *fakeSettings) Save(ctx context.Context, s models.Settings) error {
	f.saves++
	f.stored = s
	return nil
}

type fakeChecks struct {
	pingKey  string
	probeURL string
	pingErr  error
	probeErr error
}

func (f *fakeChecks) Ping(ctx context.Context, apiKey string) error {
	f.pingKey = apiKey
	return f.pingErr
}

func (f *fakeChecks) Probe(ctx context.Context, webhookURL string) error {
	f.probeURL = webhookURL
	return f.probeErr
}

type fakeTabs struct {
	open     map[string]bool
	opened   int
	injected []string
	unloaded []string
}

func (f *fakeTabs) Open(ctx context.Context, url, rawHTML string) (*page.Page, error) {
	if url == "" {
		return nil, errors.InvalidInput("page url is required", nil)
	}
	f.opened++
	f.open["tab-1"] = true
	return &page.Page{ID: "tab-1", URL: url, HTML: []byte(rawHTML)}, nil
}

func (f *fakeTabs) Close(tabID string) bool {
	ok := f.open[tabID]
	delete(f.open, tabID)
	return ok
}

func (f *fakeTabs) Inject(ctx context.Context, tabID string) error {
	f.injected = append(f.injected, tabID)
	return nil
}

func (f *fakeTabs) Unload(tabID string) error {
	f.unloaded = append(f.unloaded, tabID)
	return nil
}

type fakePipeline struct {
	result   *pipeline.Result
	captured []string
	docs     []*models.PageDocument
}

func (f *fakePipeline) Capture(ctx context.Context, tabID string) *pipeline.Result {
	f.captured = append(f.captured, tabID)
	return f.result
}

func (f *fakePipeline) Process(ctx context.Context, doc *models.PageDocument) *pipeline.Result {
	f.docs = append(f.docs, doc)
	return f.result
}

type fakeRunner struct {
	submitted []string
}

func (f *fakeRunner) Submit(tabID string) (string, error) {
	f.submitted = append(f.submitted, tabID)
	return "cap-async", nil
}

type testServer struct {
	settings *fakeSettings
	checks   *fakeChecks
	tabs     *fakeTabs
	pipeline *fakePipeline
	runner   *fakeRunner
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{
		settings: &fakeSettings{},
		checks:   &fakeChecks{},
		tabs:     &fakeTabs{open: map[string]bool{}},
		pipeline: &fakePipeline{result: &pipeline.Result{
			CaptureID: "cap-1",
			State:     pipeline.StateSucceeded,
			Record:    &models.JobRecord{Company: models.Str("Acme Co"), URL: "https://jobs.example.com/42"},
		}},
		runner: &fakeRunner{},
	}
	ts.handler = NewServer(Deps{
		Settings: ts.settings,
		Pinger:   ts.checks,
		Prober:   ts.checks,
		Pages:    ts.tabs,
		Agents:   ts.tabs,
		Pipeline: ts.pipeline,
		Runner:   ts.runner,
		Preload:  true,
	}, zaptest.NewLogger(t))
	return ts
}

func newConfiguredServer(t *testing.T) *testServer {
	ts := newTestServer(t)
	ts.settings.stored = models.Settings{APIKey: "k", WebhookURL: "https://script.example.com/exec"}
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body == "" {
		req.ContentLength = 0
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decoding %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec, out := ts.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, out)
	}
}

func TestPutSettingsRequiresBothFields(t *testing.T) {
	ts := newTestServer(t)

	rec, out := ts.do(t, http.MethodPut, "/settings", `{"apiKey":"abc","webhookUrl":"   "}`)
	if rec.Code != http.StatusBadRequest || out["error"] != "Please fill in all fields." {
		t.Errorf("response = %d %v", rec.Code, out)
	}
	if ts.settings.saves != 0 {
		t.Error("settings should not be saved")
	}
}

func TestSettingsRoundTripMasksKey(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodPut, "/settings", `{"apiKey":" secret-key-9876 ","webhookUrl":"https://script.example.com/exec"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d", rec.Code)
	}
	if ts.settings.stored.APIKey != "secret-key-9876" {
		t.Errorf("stored key = %q", ts.settings.stored.APIKey)
	}

	_, out := ts.do(t, http.MethodGet, "/settings", "")
	if out["apiKey"] != "***********9876" || out["configured"] != true {
		t.Errorf("GET = %v", out)
	}
}

func TestTestSettingsUsesStoredValues(t *testing.T) {
	ts := newTestServer(t)
	ts.settings.stored = models.Settings{APIKey: "k", WebhookURL: "https://script.example.com/exec"}

	rec, out := ts.do(t, http.MethodPost, "/settings/test", "")
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("response = %d %v", rec.Code, out)
	}
	if ts.checks.pingKey != "k" || ts.checks.probeURL != "https://script.example.com/exec" {
		t.Errorf("checked %q %q", ts.checks.pingKey, ts.checks.probeURL)
	}
}

func TestTestSettingsMissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec, out := ts.do(t, http.MethodPost, "/settings/test", `{"apiKey":"k"}`)
	if rec.Code != http.StatusBadRequest || out["error"] != "Please fill in all fields first." {
		t.Errorf("response = %d %v", rec.Code, out)
	}
	if ts.checks.pingKey != "" {
		t.Error("no connectivity check should run")
	}
}

func TestTestSettingsReportsProbeFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.checks.probeErr = errors.Persistence(`Webhook not accessible. Make sure it's deployed as "Anyone".`, nil)

	rec, out := ts.do(t, http.MethodPost, "/settings/test", `{"apiKey":"k","webhookUrl":"https://x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(out["error"].(string), "Webhook not accessible") {
		t.Errorf("error = %v", out["error"])
	}
}

func TestCaptureOpensCapturesAndClosesTab(t *testing.T) {
	ts := newConfiguredServer(t)

	rec, out := ts.do(t, http.MethodPost, "/captures", `{"url":"https://jobs.example.com/42","html":"<html></html>"}`)
	if rec.Code != http.StatusOK || out["success"] != true || out["captureId"] != "cap-1" || out["state"] != "succeeded" {
		t.Fatalf("response = %d %v", rec.Code, out)
	}
	if len(ts.tabs.injected) != 1 || len(ts.pipeline.captured) != 1 {
		t.Errorf("injected = %v, captured = %v", ts.tabs.injected, ts.pipeline.captured)
	}
	if len(ts.tabs.open) != 0 || len(ts.tabs.unloaded) != 1 {
		t.Errorf("tab should be closed, open = %v", ts.tabs.open)
	}
}

func TestCaptureFailureStatus(t *testing.T) {
	ts := newConfiguredServer(t)
	ts.pipeline.result = &pipeline.Result{
		CaptureID: "cap-2",
		State:     pipeline.StateFailed,
		Err:       errors.Persistence("duplicate row", nil),
	}

	rec, out := ts.do(t, http.MethodPost, "/captures", `{"url":"https://jobs.example.com/42"}`)
	if rec.Code != http.StatusBadGateway || out["success"] != false || out["error"] != "duplicate row" {
		t.Errorf("response = %d %v", rec.Code, out)
	}
}

func TestCaptureRequiresURL(t *testing.T) {
	ts := newConfiguredServer(t)

	rec, _ := ts.do(t, http.MethodPost, "/captures", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCaptureWithoutSettingsSkipsFetch(t *testing.T) {
	ts := newTestServer(t)
	ts.settings.stored = models.Settings{APIKey: "k"}

	rec, out := ts.do(t, http.MethodPost, "/captures", `{"url":"https://jobs.example.com/42"}`)
	if rec.Code != http.StatusPreconditionFailed || out["success"] != false {
		t.Fatalf("response = %d %v", rec.Code, out)
	}
	if out["error"] != "Google Apps Script webhook URL not configured. Please go to settings." {
		t.Errorf("error = %v", out["error"])
	}
	if ts.tabs.opened != 0 || len(ts.pipeline.captured) != 0 {
		t.Errorf("opened = %d, captured = %v, want no page work", ts.tabs.opened, ts.pipeline.captured)
	}
}

func TestAsyncTabCapture(t *testing.T) {
	ts := newTestServer(t)

	rec, out := ts.do(t, http.MethodPost, "/tabs", `{"url":"https://jobs.example.com/42"}`)
	if rec.Code != http.StatusCreated || out["tabId"] != "tab-1" {
		t.Fatalf("open = %d %v", rec.Code, out)
	}

	rec, out = ts.do(t, http.MethodPost, "/tabs/tab-1/capture?async=true", "")
	if rec.Code != http.StatusAccepted || out["captureId"] != "cap-async" {
		t.Errorf("capture = %d %v", rec.Code, out)
	}
	if len(ts.runner.submitted) != 1 || len(ts.pipeline.captured) != 0 {
		t.Errorf("submitted = %v, captured synchronously = %v", ts.runner.submitted, ts.pipeline.captured)
	}

	rec, _ = ts.do(t, http.MethodDelete, "/tabs/tab-1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("close = %d", rec.Code)
	}
	rec, _ = ts.do(t, http.MethodDelete, "/tabs/tab-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second close = %d", rec.Code)
	}
}

func TestProcess(t *testing.T) {
	ts := newTestServer(t)

	rec, out := ts.do(t, http.MethodPost, "/captures/process", `{"action":"processJob","pageData":{"url":"https://jobs.example.com/42","title":"Cashier","bodyText":"hiring"}}`)
	if rec.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("response = %d %v", rec.Code, out)
	}
	if len(ts.pipeline.docs) != 1 || ts.pipeline.docs[0].BodyText != "hiring" {
		t.Errorf("docs = %+v", ts.pipeline.docs)
	}

	rec, _ = ts.do(t, http.MethodPost, "/captures/process", `{"action":"other"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d", rec.Code)
	}
}
