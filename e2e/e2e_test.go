package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rrocketmann/Hanvas/internal/capture"
	"github.com/rrocketmann/Hanvas/internal/detector"
	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/render"
	"github.com/rrocketmann/Hanvas/internal/scheduler"
	"github.com/rrocketmann/Hanvas/internal/server"
	"github.com/rrocketmann/Hanvas/internal/session"
	"github.com/rrocketmann/Hanvas/internal/status"
	"github.com/rrocketmann/Hanvas/internal/store"
)

func TestE2E_CaptureSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	st, err := store.New(filepath.Join(tmpDir, "hanvas.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	factory := detector.NewMockFactory()
	factory.Capability.SetHands([]detector.HandLandmarks{detector.OpenHandLandmarks()})
	lifecycle := detector.NewLifecycle(factory.New, detector.DefaultOptions())
	if _, err := lifecycle.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	classifier := gesture.NewClassifier(gesture.DefaultConfig())
	recorder := status.NewRecorder()

	sched := scheduler.New(scheduler.Config{
		Lifecycle:  lifecycle,
		Classifier: classifier,
		Surface:    render.NewMockSurface(),
		Sink:       recorder,
		Interval:   time.Millisecond,
	})

	source := capture.NewMockSource()
	controller := session.NewController(session.Config{
		Source:    source,
		Scheduler: sched,
		Sink:      recorder,
	})
	defer controller.Close()

	srv := server.New(server.Config{
		Store:      st,
		Session:    controller,
		Scheduler:  sched,
		Classifier: classifier,
		Style:      render.DefaultStyle(),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("Health", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health request error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("StartSession", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/toggle", "application/json", nil)
		if err != nil {
			t.Fatalf("toggle request error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if got := controller.State(); got != session.StateActive {
			t.Fatalf("session state = %s, want %s", got, session.StateActive)
		}
	})

	t.Run("DetectsOpenHand", func(t *testing.T) {
		stream := source.Streams()[0]

		deadline := time.After(2 * time.Second)
		for {
			stream.AdvanceFrame()

			resp, err := client.Get(ts.URL + "/api/session")
			if err != nil {
				t.Fatalf("session request error = %v", err)
			}

			var state map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
				resp.Body.Close()
				t.Fatalf("decode response: %v", err)
			}
			resp.Body.Close()

			if state["hand_state"] == string(gesture.StateOpen) {
				break
			}

			select {
			case <-deadline:
				t.Fatalf("hand_state = %s, want %s", state["hand_state"], gesture.StateOpen)
			case <-time.After(5 * time.Millisecond):
			}
		}
	})

	t.Run("UpdateSettings", func(t *testing.T) {
		body := `{"classifier": {"extension_ratio": 1.2, "open_min": 4, "fist_max": 1}, "camera_id": 0, "max_hands": 2}`
		req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", strings.NewReader(body))
		if err != nil {
			t.Fatalf("build request: %v", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("settings request error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if got := classifier.Config().ExtensionRatio; got != 1.2 {
			t.Errorf("classifier ExtensionRatio = %g, want 1.2", got)
		}
	})

	t.Run("StopSession", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/toggle", "application/json", nil)
		if err != nil {
			t.Fatalf("toggle request error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if got := controller.State(); got != session.StateStopped {
			t.Fatalf("session state = %s, want %s", got, session.StateStopped)
		}

		stream := source.Streams()[0]
		if got := stream.Track().Stops(); got != 1 {
			t.Errorf("track stops = %d, want 1", got)
		}

		if got := recorder.LastHandState(); got != gesture.StateNone {
			t.Errorf("published hand state = %s, want %s", got, gesture.StateNone)
		}
	})
}
