package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/db"
	"github.com/hpungsan/carryon/internal/logging"
	"github.com/hpungsan/carryon/internal/ops"
	"github.com/hpungsan/carryon/internal/summarize"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

const stateSummary = `## Current task
Render the **session state** page.

## Decisions
Markdown goes through goldmark.

## Context
internal/web/render.go

## Next steps
<script>alert(1)</script> stays escaped.
`

type flatEmbedder struct{}

func (flatEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}
func (flatEmbedder) Dims() int { return 1 }
func (flatEmbedder) Name() string { return "flat" }

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.SessionContinuationEnabled = true

	deps := &ops.Deps{
		Store: vectorstore.New(database, flatEmbedder{}),
		Summarizer: summarize.Func(func(context.Context, string, string, bool) (string, error) {
			return stateSummary, nil
		}),
		Config: cfg,
		Logger: logging.Discard(),
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer, err := NewRenderer(templateSub, "test", deps.Logger)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	return &Handlers{deps: deps, renderer: renderer}
}

// seedState saves a session state record through the save operation.
func seedState(t *testing.T, h *Handlers) string {
	t.Helper()
	out, err := ops.Save(context.Background(), h.deps, ops.SaveInput{
		Transcript:   strings.Repeat("user: render it\nassistant: rendering\n", 5),
		ContextID:    "web-ctx",
		MessageCount: 3,
	})
	if err != nil {
		t.Fatalf("seed state: %v", err)
	}
	if out.Status != "saved" {
		t.Fatalf("seed state status = %s", out.Status)
	}
	return out.RecordID
}

// --- HandleState ---

func TestHandleState_RendersMarkdown(t *testing.T) {
	h := setupTest(t)
	id := seedState(t, h)

	req := httptest.NewRequest("GET", "/state", nil)
	rec := httptest.NewRecorder()
	h.HandleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<h1>Session State</h1>",
		"<h2>Current task</h2>",
		"<strong>session state</strong>",
		id,
		"web-ctx",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("raw HTML from the record must not be rendered")
	}
}

func TestHandleState_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/state", nil)
	rec := httptest.NewRecorder()
	h.HandleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No session state saved yet.") {
		t.Error("expected empty-state message")
	}
	if !strings.Contains(body, "save every 3 messages") {
		t.Error("expected settings line")
	}
}

func TestHandleState_JSON(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/state", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleState(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertJSONErrorCode(t, rec, "NOT_FOUND")

	id := seedState(t, h)
	rec = httptest.NewRecorder()
	h.HandleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.StatusOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != id || out.ContextID != "web-ctx" || out.MessageCount != 3 {
		t.Errorf("unexpected status: %+v", out)
	}
}

func TestHandleState_HTMXPartial(t *testing.T) {
	h := setupTest(t)
	seedState(t, h)

	req := httptest.NewRequest("GET", "/state", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleState(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("HTMX request should not include layout")
	}
	if !strings.Contains(body, "Session state") {
		t.Error("expected content block in HTMX response")
	}
}

// --- HandleDocuments ---

func TestHandleDocuments(t *testing.T) {
	h := setupTest(t)
	seedState(t, h)
	ctx := context.Background()
	for _, text := range []string{"note one", "note two"} {
		if _, err := ops.Add(ctx, h.deps, ops.AddInput{Text: text, Metadata: map[string]string{"area": "notes"}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/documents?filter=area%3D%3D'notes'&limit=1", nil)
	rec := httptest.NewRecorder()
	h.HandleDocuments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var out ops.ListOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Items) != 1 || out.Pagination.Total != 2 || !out.Pagination.HasMore {
		t.Errorf("unexpected page: items=%d pagination=%+v", len(out.Items), out.Pagination)
	}
}

func TestHandleDocuments_BadFilter(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/documents?filter=area", nil)
	rec := httptest.NewRecorder()
	h.HandleDocuments(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertJSONErrorCode(t, rec, "INVALID_REQUEST")
}

// --- HandleSearch ---

func TestHandleSearch(t *testing.T) {
	h := setupTest(t)
	seedState(t, h)

	req := httptest.NewRequest("GET", "/search?q=current+task&filter=area%3D%3D'session_state'", nil)
	rec := httptest.NewRecorder()
	h.HandleSearch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out ops.SearchOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("count = %d, want 1", out.Count)
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/search", nil)
	rec := httptest.NewRecorder()
	h.HandleSearch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	assertJSONErrorCode(t, rec, "INVALID_REQUEST")
}

// --- Server ---

func TestNewServer_RoutesAndHeaders(t *testing.T) {
	h := setupTest(t)
	srv, err := NewServer(h.deps, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusFound},
		{"/state", http.StatusOK},
		{"/documents", http.StatusOK},
		{"/static/style.css", http.StatusOK},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("X-Frame-Options") != "DENY" {
				t.Error("missing X-Frame-Options header")
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing X-Content-Type-Options header")
			}
			if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
				t.Error("missing Content-Security-Policy header")
			}
		})
	}
}

// --- helpers ---

func TestFormatChars(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{6000, "6,000"},
		{1234567, "1,234,567"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		if got := formatChars(tt.n); got != tt.want {
			t.Errorf("formatChars(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	if got := formatTime(ts); got != "2026-03-04 04:06" {
		t.Errorf("formatTime() = %q", got)
	}
}

func TestRenderError_InternalHidesMessage(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/state", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.renderer.renderError(rec, req, context.DeadlineExceeded)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "deadline") {
		t.Error("internal error text leaked to client")
	}
}

func assertJSONErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v (%s)", err, rec.Body.String())
	}
	if body.Error.Code != want {
		t.Errorf("error code = %q, want %q", body.Error.Code, want)
	}
}
