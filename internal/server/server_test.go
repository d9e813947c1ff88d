package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/meetscribe/internal/coordinator"
	"github.com/MrWong99/meetscribe/internal/meeting"
	"github.com/MrWong99/meetscribe/internal/observe"
	"github.com/MrWong99/meetscribe/internal/server"
	"github.com/MrWong99/meetscribe/pkg/diarize"
)

// fakePipeline implements server.Pipeline with scriptable behaviour.
type fakePipeline struct {
	startErr error
	stopErr  error
	status   coordinator.Status
	speakers []diarize.Speaker
}

func (f *fakePipeline) Start(context.Context) error { return f.startErr }
func (f *fakePipeline) Stop(context.Context) error  { return f.stopErr }
func (f *fakePipeline) Status() coordinator.Status  { return f.status }
func (f *fakePipeline) Speakers() []diarize.Speaker { return f.speakers }

func newTestServer(t *testing.T, p *fakePipeline) (*httptest.Server, *meeting.Manager) {
	t.Helper()
	metrics, err := observe.NewMetrics(noopMeterProvider(t))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	meetings := meeting.NewManager()
	srv := httptest.NewServer(server.New(p, meetings, nil, metrics).Handler())
	t.Cleanup(srv.Close)
	return srv, meetings
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf [1 << 16]byte
	n, _ := resp.Body.Read(buf[:])
	return resp, buf[:n]
}

func TestStart_OK(t *testing.T) {
	p := &fakePipeline{status: coordinator.Status{ModelLoaded: true, IsListening: true, ModelAvailable: true}}
	srv, _ := newTestServer(t, p)

	resp, body := doJSON(t, "POST", srv.URL+"/api/stt/start", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var st coordinator.Status
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !st.IsListening {
		t.Errorf("response status = %+v", st)
	}
}

func TestStart_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"already running", coordinator.ErrAlreadyRunning, http.StatusConflict},
		{"model missing", coordinator.ErrModelNotFound, http.StatusPreconditionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakePipeline{startErr: tc.err})
			resp, body := doJSON(t, "POST", srv.URL+"/api/stt/start", "")
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
			var e struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
				t.Errorf("error body = %s", body)
			}
		})
	}
}

func TestStart_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	resp, _ := doJSON(t, "GET", srv.URL+"/api/stt/start", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestStopAndStatus(t *testing.T) {
	p := &fakePipeline{status: coordinator.Status{ModelLoaded: true, ModelAvailable: true}}
	srv, _ := newTestServer(t, p)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/stt/stop", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}

	resp, body := doJSON(t, "GET", srv.URL+"/api/stt/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var st coordinator.Status
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !st.ModelLoaded || st.IsListening {
		t.Errorf("status = %+v", st)
	}
}

func TestSpeakers_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	resp, body := doJSON(t, "GET", srv.URL+"/api/speakers", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(body)); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestSpeakers_ReturnsRoster(t *testing.T) {
	p := &fakePipeline{speakers: []diarize.Speaker{{ID: "Speaker 1", Label: "Speaker 1", MessageCount: 3}}}
	srv, _ := newTestServer(t, p)

	resp, body := doJSON(t, "GET", srv.URL+"/api/speakers", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var speakers []diarize.Speaker
	if err := json.Unmarshal(body, &speakers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(speakers) != 1 || speakers[0].Label != "Speaker 1" {
		t.Errorf("speakers = %+v", speakers)
	}
}

func TestMeeting_CRUD(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})

	// No context yet.
	resp, _ := doJSON(t, "GET", srv.URL+"/api/meeting", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET without context: status = %d, want 404", resp.StatusCode)
	}

	// Create.
	resp, body := doJSON(t, "PUT", srv.URL+"/api/meeting",
		`{"title":"Roadmap Sync","domain":"technical","duration_estimate_minutes":30}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT: status = %d, body = %s", resp.StatusCode, body)
	}

	// Enrich.
	resp, _ = doJSON(t, "POST", srv.URL+"/api/meeting/participants",
		`{"name":"Alice","role":"Engineer"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add participant: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, "POST", srv.URL+"/api/meeting/goals",
		`{"description":"Pick Q4 priorities","priority":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add goal: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, "POST", srv.URL+"/api/meeting/questions",
		`{"question":"What slipped from Q3?","category":"follow-up","priority":4}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add question: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, "POST", srv.URL+"/api/meeting/background",
		`{"topic":"Q3 retro","content":"Two slipped launches.","source":"wiki","relevance_score":0.8}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add background: status = %d", resp.StatusCode)
	}

	// Read back.
	resp, body = doJSON(t, "GET", srv.URL+"/api/meeting", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET: status = %d", resp.StatusCode)
	}
	var ctx meeting.Context
	if err := json.Unmarshal(body, &ctx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ctx.Title != "Roadmap Sync" || ctx.DurationMinutes != 30 {
		t.Errorf("context = %+v", ctx)
	}
	if len(ctx.Participants) != 1 || len(ctx.Goals) != 1 || len(ctx.Questions) != 1 {
		t.Errorf("rosters = %d/%d/%d, want 1/1/1", len(ctx.Participants), len(ctx.Goals), len(ctx.Questions))
	}

	// Summary.
	resp, body = doJSON(t, "GET", srv.URL+"/api/meeting/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: status = %d", resp.StatusCode)
	}
	var sum struct {
		Summary      string `json:"summary"`
		PromptPrefix string `json:"prompt_prefix"`
	}
	if err := json.Unmarshal(body, &sum); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if !strings.Contains(sum.Summary, "Roadmap Sync") {
		t.Errorf("summary missing title: %s", sum.Summary)
	}
	if !strings.Contains(sum.PromptPrefix, "technical") {
		t.Errorf("prompt prefix = %s", sum.PromptPrefix)
	}

	// Clear, then the old context shows up in history.
	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/meeting", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE: status = %d, want 204", resp.StatusCode)
	}
	resp, body = doJSON(t, "GET", srv.URL+"/api/meeting/history", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status = %d", resp.StatusCode)
	}
	var history []meeting.Context
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) != 1 || history[0].Title != "Roadmap Sync" {
		t.Errorf("history = %+v", history)
	}
}

func TestMeeting_MutationsRequireContext(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	resp, _ := doJSON(t, "POST", srv.URL+"/api/meeting/participants", `{"name":"Alice"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMeeting_ValidatesBody(t *testing.T) {
	srv, meetings := newTestServer(t, &fakePipeline{})
	meetings.Set(meeting.NewContext("X", meeting.DomainGeneral))

	tests := []struct {
		path string
		body string
	}{
		{"/api/meeting/participants", `{"role":"Engineer"}`},
		{"/api/meeting/goals", `{"priority":3}`},
		{"/api/meeting/questions", `{"category":"technical"}`},
		{"/api/meeting/background", `{"content":"no topic"}`},
		{"/api/meeting/participants", `not json`},
	}
	for _, tc := range tests {
		resp, _ := doJSON(t, "POST", srv.URL+tc.path, tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST %s %q: status = %d, want 400", tc.path, tc.body, resp.StatusCode)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	resp, body := doJSON(t, "GET", srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestReadyz(t *testing.T) {
	t.Run("model available", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakePipeline{status: coordinator.Status{ModelAvailable: true}})
		resp, _ := doJSON(t, "GET", srv.URL+"/readyz", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})
	t.Run("model missing", func(t *testing.T) {
		srv, _ := newTestServer(t, &fakePipeline{})
		resp, body := doJSON(t, "GET", srv.URL+"/readyz", "")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", resp.StatusCode)
		}
		if !strings.Contains(string(body), "model") {
			t.Errorf("body = %s", body)
		}
	})
}

func TestCorrelationIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	resp, _ := doJSON(t, "GET", srv.URL+"/api/stt/status", "")
	if got := resp.Header.Get("X-Correlation-ID"); got == "" {
		t.Error("missing X-Correlation-ID response header")
	}
}
