package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pinchctl/internal/actuator"
	"github.com/ayusman/pinchctl/internal/app"
	"github.com/ayusman/pinchctl/internal/capture"
	"github.com/ayusman/pinchctl/internal/detector"
	"github.com/ayusman/pinchctl/internal/logging"
	"github.com/ayusman/pinchctl/internal/server"
	"github.com/ayusman/pinchctl/internal/store"
)

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func post(t *testing.T, client *http.Client, url string) {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST %s: status %d", url, resp.StatusCode)
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	camera := capture.NewMockCamera(648, 488)
	det := detector.NewMockDetector()
	volume := actuator.NewMock(-65.25, 0)
	brightness := actuator.NewMock(app.BrightnessMin, app.BrightnessMax)

	application, err := app.New(app.Config{
		Camera:        camera,
		Detector:      det,
		Volume:        volume,
		Brightness:    brightness,
		Store:         s,
		Logger:        logging.NewNop(),
		FrameInterval: 5 * time.Millisecond,

		VolumeResetPercent:     app.DefaultResetPercent,
		BrightnessResetPercent: app.DefaultResetPercent,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{Controller: application, Store: s, Logger: logging.NewNop()}))
	defer ts.Close()
	client := ts.Client()

	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(context.Background()) }()

	levels := func() app.Levels {
		var lv app.Levels
		getJSON(t, client, ts.URL+"/api/levels", &lv)
		return lv
	}

	t.Run("Health", func(t *testing.T) {
		var health map[string]any
		getJSON(t, client, ts.URL+"/api/health", &health)
		if health["status"] != "ok" || health["journal"] != true {
			t.Errorf("health = %v", health)
		}
	})

	t.Run("BothHandsConverge", func(t *testing.T) {
		// Right hand open wide, left hand pinched shut.
		det.SetHands([]detector.Hand{
			detector.PinchHand(100, 400, 120),
			detector.PinchHand(500, 400, 20),
		})

		eventually(t, "levels to converge", func() bool {
			lv := levels()
			return lv.Volume.Percent > 99 && lv.Brightness.Percent < 1 && lv.Brightness.Active
		})

		last, _ := volume.Last()
		if last < -1 || last > 0 {
			t.Errorf("volume backend level = %f, want close to 0", last)
		}
	})

	t.Run("WebSocketStream", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/levels/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var lv app.Levels
		if err := conn.ReadJSON(&lv); err != nil {
			t.Fatalf("read: %v", err)
		}
		if !lv.Volume.Enabled || !lv.Brightness.Enabled {
			t.Errorf("streamed levels = %+v", lv)
		}
	})

	t.Run("ActuationFailureIsJournaled", func(t *testing.T) {
		volume.SetError(errors.New("device busy"))

		eventually(t, "volume failures", func() bool {
			return levels().Volume.Failures > 0
		})
		volume.SetError(nil)

		eventually(t, "journaled failure", func() bool {
			var resp struct {
				Events []struct {
					Kind    string `json:"kind"`
					Channel string `json:"channel"`
				} `json:"events"`
			}
			getJSON(t, client, ts.URL+"/api/events", &resp)
			for _, e := range resp.Events {
				if e.Kind == "actuation_failure" && e.Channel == "volume" {
					return true
				}
			}
			return false
		})
	})

	t.Run("Reset", func(t *testing.T) {
		det.SetHands(nil)
		post(t, client, ts.URL+"/api/reset")

		eventually(t, "reset baselines", func() bool {
			lv := levels()
			return math.Abs(lv.Volume.Value-(-32.625)) < 1e-9 && math.Abs(lv.Brightness.Value-50) < 1e-9
		})

		if last, _ := brightness.Last(); last != 50 {
			t.Errorf("brightness backend level = %f, want 50", last)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		post(t, client, ts.URL+"/api/quit")

		select {
		case err := <-runErr:
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("Run did not return after quit")
		}

		var list struct {
			Sessions []struct {
				ID         string `json:"id"`
				EndedAt    string `json:"ended_at"`
				ExitReason string `json:"exit_reason"`
			} `json:"sessions"`
		}
		getJSON(t, client, ts.URL+"/api/sessions", &list)
		if len(list.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(list.Sessions))
		}
		sess := list.Sessions[0]
		if sess.EndedAt == "" || sess.ExitReason != "quit" {
			t.Errorf("session = %+v", sess)
		}

		var detail struct {
			EventCounts map[string]int `json:"event_counts"`
		}
		getJSON(t, client, ts.URL+"/api/sessions/"+sess.ID, &detail)
		if detail.EventCounts["reset"] != 1 || detail.EventCounts["actuation_failure"] == 0 {
			t.Errorf("event counts = %v", detail.EventCounts)
		}
	})
}

func TestE2E_VolumeBackendUnavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	det := detector.NewMockDetector()
	det.SetHands([]detector.Hand{
		detector.PinchHand(100, 400, 70),
		detector.PinchHand(500, 400, 70),
	})
	brightness := actuator.NewMock(app.BrightnessMin, app.BrightnessMax)

	application, err := app.New(app.Config{
		Camera:        capture.NewMockCamera(648, 488),
		Detector:      det,
		VolumeErr:     errors.New("no audio device"),
		Brightness:    brightness,
		Logger:        logging.NewNop(),
		FrameInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{Controller: application, Logger: logging.NewNop()}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx) }()

	eventually(t, "brightness to move", func() bool {
		return brightness.Calls() > 3
	})

	var lv app.Levels
	getJSON(t, ts.Client(), ts.URL+"/api/levels", &lv)
	if lv.Volume.Enabled {
		t.Error("volume should be disabled")
	}
	if !strings.Contains(lv.Volume.Error, "no audio device") {
		t.Errorf("volume error = %q", lv.Volume.Error)
	}
	if !lv.Brightness.Enabled || lv.Brightness.Value <= 0 {
		t.Errorf("brightness = %+v", lv.Brightness)
	}

	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
