package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/mouse"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tracker"
)

// fakePipeline is an in-memory Pipeline.
type fakePipeline struct {
	mu       sync.Mutex
	snap     app.Snapshot
	enabled  bool
	running  bool
	jpeg     []byte
	watchers int
	subs     []chan app.Snapshot
	cfg      tracker.Config
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		enabled: true,
		running: true,
		cfg:     tracker.DefaultConfig(),
		snap: app.Snapshot{
			State:     mouse.State{Buttons: mouse.MiddleDown, Pos: image.Pt(640, 360)},
			Found:     true,
			FaceFound: true,
			Status:    tracker.StatusTracking,
			Fingers:   2,
			Mode:      capture.ModeActive,
			FPS:       14.5,
		},
	}
}

func (f *fakePipeline) Train(ctx context.Context, frames int) (*store.Model, error) {
	return nil, app.ErrNoStore
}
func (f *fakePipeline) ActivateModel(id string) error { return store.ErrNotFound }
func (f *fakePipeline) TrackerConfig() tracker.Config { return f.cfg }
func (f *fakePipeline) UpdateTrackerConfig(cfg tracker.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f.cfg = cfg
	return nil
}

func (f *fakePipeline) Snapshot() app.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakePipeline) Subscribe() (<-chan app.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan app.Snapshot, 4)
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakePipeline) publish(snap app.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	for _, ch := range f.subs {
		ch <- snap
	}
}

func (f *fakePipeline) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakePipeline) WatchDebug() func() {
	f.mu.Lock()
	f.watchers++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.watchers--
		f.mu.Unlock()
	}
}

func (f *fakePipeline) DebugJPEG() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jpeg
}

func (f *fakePipeline) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakePipeline) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

func (f *fakePipeline) Running() bool { return f.running }

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		decode(t, rec, &response)

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if response["tracker_status"] != "stopped" {
			t.Errorf("expected tracker_status 'stopped', got %v", response["tracker_status"])
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthWithPipeline(t *testing.T) {
	p := newFakePipeline()
	s := New(Config{Pipeline: p})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var response map[string]any
	decode(t, rec, &response)
	if response["tracker_status"] != "tracking" {
		t.Errorf("expected tracker_status 'tracking', got %v", response["tracker_status"])
	}
	if response["fps"] != 14.5 {
		t.Errorf("expected fps 14.5, got %v", response["fps"])
	}

	p.SetEnabled(false)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	decode(t, rec, &response)
	if response["tracker_status"] != "paused" {
		t.Errorf("expected tracker_status 'paused', got %v", response["tracker_status"])
	}
}

func TestServer_State(t *testing.T) {
	p := newFakePipeline()
	s := New(Config{Pipeline: p})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var state stateResponse
	decode(t, rec, &state)
	want := stateResponse{
		Buttons:    "middle",
		ButtonMask: 4,
		X:          640,
		Y:          360,
		Found:      true,
		FaceFound:  true,
		Status:     "tracking",
		Fingers:    2,
		Mode:       "active",
		FPS:        14.5,
		Enabled:    true,
	}
	if state != want {
		t.Errorf("got %+v, want %+v", state, want)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/state", strings.NewReader(`{"enabled": false}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	decode(t, rec, &state)
	if state.Enabled || p.IsEnabled() {
		t.Error("expected tracking to be paused")
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/state", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServer_Routes(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	tests := []struct {
		name   string
		config Config
		path   string
		want   int
	}{
		{"no pipeline state", Config{}, "/api/state", http.StatusNotFound},
		{"no store models", Config{}, "/api/models", http.StatusNotFound},
		{"models", Config{Store: st}, "/api/models", http.StatusOK},
		{"runs", Config{Store: st}, "/api/runs", http.StatusOK},
		{"missing model", Config{Store: st}, "/api/models/x", http.StatusNotFound},
		{"settings", Config{Pipeline: newFakePipeline()}, "/api/settings", http.StatusOK},
		{"unknown", Config{}, "/api/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tt.config).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>mudra</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != testContent {
		t.Errorf("expected index.html, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_CursorWebsocket(t *testing.T) {
	p := newFakePipeline()
	ts := httptest.NewServer(New(Config{Pipeline: p}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/cursor"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for p.subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := p.Snapshot()
	snap.State = mouse.State{Buttons: mouse.LeftDown, Pos: image.Pt(5, 6)}
	snap.Fingers = 0
	p.publish(snap)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got stateResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	if got.Buttons != "left" || got.X != 5 || got.Y != 6 || got.Fingers != 0 {
		t.Errorf("unexpected message: %+v", got)
	}
}

func TestServer_Stream(t *testing.T) {
	p := newFakePipeline()
	p.jpeg = []byte{0xFF, 0xD8, 0xFF, 0xD9}

	ts := httptest.NewServer(New(Config{Pipeline: p}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("unexpected content type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	var head bytes.Buffer
	for !strings.Contains(head.String(), "\r\n\r\n") {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read stream: %v", err)
		}
		head.WriteString(line)
	}
	if !strings.Contains(head.String(), "--frame") || !strings.Contains(head.String(), "Content-Length: 4") {
		t.Errorf("unexpected part header %q", head.String())
	}

	body := make([]byte, 4)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	if !bytes.Equal(body, p.jpeg) {
		t.Errorf("unexpected frame % x", body)
	}

	p.mu.Lock()
	watchers := p.watchers
	p.mu.Unlock()
	if watchers != 1 {
		t.Errorf("expected 1 debug watcher while streaming, got %d", watchers)
	}
}
