package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchctl/internal/app"
	"github.com/ayusman/pinchctl/internal/control"
	"github.com/ayusman/pinchctl/internal/logging"
	"github.com/ayusman/pinchctl/internal/store"
)

// fakeController records triggers and lets tests push level snapshots.
type fakeController struct {
	mu     sync.Mutex
	levels app.Levels
	resets int
	quits  int
	subs   []chan app.Levels
}

func (f *fakeController) Levels() app.Levels {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels
}

func (f *fakeController) Subscribe() (<-chan app.Levels, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan app.Levels, 1)
	ch <- f.levels
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeController) Quit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits++
}

func (f *fakeController) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets, f.quits
}

func (f *fakeController) push(lv app.Levels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = lv
	for _, ch := range f.subs {
		ch <- lv
	}
}

func (f *fakeController) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

func newTestServer(ctrl Controller, s *store.Store) *Server {
	return New(Config{Controller: ctrl, Store: s, Logger: logging.NewNop()})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(nil, nil)

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if response["journal"] != false {
			t.Errorf("expected journal false, got %v", response["journal"])
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(nil, nil)

	for _, path := range []string{"/api/nonexistent", "/api/levels", "/api/events", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Levels(t *testing.T) {
	ctrl := &fakeController{}
	ctrl.levels = app.Levels{
		Volume:     app.ChannelLevel{Channel: control.ChannelVolume, Enabled: true, Value: -32.625, Percent: 50, Min: -65.25},
		Brightness: app.ChannelLevel{Channel: control.ChannelBrightness, Error: "backend unavailable"},
		Frames:     42,
	}
	s := newTestServer(ctrl, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/levels", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got app.Levels
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Frames != 42 || got.Volume.Value != -32.625 || got.Brightness.Enabled {
		t.Errorf("levels = %+v", got)
	}
	if got.Brightness.Error != "backend unavailable" {
		t.Errorf("brightness error = %q", got.Brightness.Error)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/levels", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/levels status = %d", rec.Code)
	}
}

func TestServer_Triggers(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl, nil)

	tests := []struct {
		path       string
		method     string
		wantStatus int
	}{
		{"/api/reset", http.MethodPost, http.StatusAccepted},
		{"/api/reset", http.MethodGet, http.StatusMethodNotAllowed},
		{"/api/quit", http.MethodPost, http.StatusAccepted},
		{"/api/quit", http.MethodDelete, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
		}
	}

	if resets, quits := ctrl.counts(); resets != 1 || quits != 1 {
		t.Errorf("resets=%d quits=%d, want 1 and 1", resets, quits)
	}
}

func TestServer_LevelsWebSocket(t *testing.T) {
	ctrl := &fakeController{}
	ctrl.levels = app.Levels{Frames: 1}
	ts := httptest.NewServer(newTestServer(ctrl, nil))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/levels/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var lv app.Levels
	if err := conn.ReadJSON(&lv); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if lv.Frames != 1 {
		t.Errorf("initial Frames = %d, want 1", lv.Frames)
	}

	ctrl.push(app.Levels{Frames: 2, Volume: app.ChannelLevel{Percent: 75}})
	if err := conn.ReadJSON(&lv); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if lv.Frames != 2 || lv.Volume.Percent != 75 {
		t.Errorf("update = %+v", lv)
	}

	if err := conn.WriteJSON(map[string]string{"action": "reset"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resets, _ := ctrl.counts(); resets == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if resets, _ := ctrl.counts(); resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}

	// Loop stopping closes the socket.
	ctrl.closeAll()
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}

func TestServer_Journal(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	sess := &store.Session{FrameWidth: 648, FrameHeight: 488}
	st.Sessions().Create(sess)
	st.Events().Create(&store.Event{SessionID: sess.ID, Kind: store.EventReset})

	s := newTestServer(nil, st)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/events status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/sessions/{id} status = %d", rec.Code)
	}
}

func TestNew(t *testing.T) {
	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})

	t.Run("app implements Controller", func(t *testing.T) {
		var _ Controller = (*app.App)(nil)
	})
}
