package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lpernett/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/rrocketmann/Hanvas/internal/capture"
	"github.com/rrocketmann/Hanvas/internal/detector"
	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/render"
	"github.com/rrocketmann/Hanvas/internal/scheduler"
	"github.com/rrocketmann/Hanvas/internal/server"
	"github.com/rrocketmann/Hanvas/internal/session"
	"github.com/rrocketmann/Hanvas/internal/status"
	"github.com/rrocketmann/Hanvas/internal/store"
	"github.com/rrocketmann/Hanvas/internal/tray"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded")
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Println("Hanvas - Hand Tracking Demo")

	// Initialize the settings store
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".hanvas")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "hanvas.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	settings, err := st.Settings().Load()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	classifier := gesture.NewClassifier(settings.Classifier)

	options := detector.DefaultOptions()
	options.MaxHands = settings.MaxHands
	lifecycle := detector.NewLifecycle(detector.NewMediaPipeCapability, options)

	// Accelerator probing happens in the background; until it finishes the
	// loop runs without landmarks. Both tiers failing leaves the session
	// usable for raw video.
	go func() {
		if _, err := lifecycle.Initialize(context.Background()); err != nil {
			log.Printf("Detection unavailable: %v", err)
		}
	}()
	defer lifecycle.Close()

	overlay := render.NewOverlay(render.DefaultStyle())
	defer overlay.Close()

	hub := server.NewStateHub()
	trayUI := tray.New()

	sinks := status.Multi{status.NewLogSink(), hub}
	headless := os.Getenv("HANVAS_HEADLESS") != ""
	if !headless {
		sinks = append(sinks, trayUI)
	}

	sched := scheduler.New(scheduler.Config{
		Lifecycle:  lifecycle,
		Classifier: classifier,
		Surface:    overlay,
		Sink:       sinks,
	})

	constraints := capture.DefaultConstraints()
	constraints.DeviceID = settings.CameraID
	if v := os.Getenv("HANVAS_CAMERA"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			constraints.DeviceID = id
		}
	}

	controller := session.NewController(session.Config{
		Source:      capture.NewCameraSource(),
		Scheduler:   sched,
		Sink:        sinks,
		Constraints: constraints,
	})
	defer controller.Close()

	srv := server.New(server.Config{
		StaticDir:  findWebDir(),
		Store:      st,
		Session:    controller,
		Scheduler:  sched,
		Classifier: classifier,
		Style:      render.DefaultStyle(),
		Hub:        hub,
	})

	addr := os.Getenv("HANVAS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	if headless {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	trayUI.OnToggle(func() {
		if err := controller.Toggle(context.Background(), session.LocalEnvironment{}); err != nil {
			log.Printf("Toggle failed: %v", err)
		}
	})
	trayUI.OnQuit(func() {
		controller.Close()
	})

	trayUI.Run()
}

// findWebDir searches for the web directory in common locations.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".hanvas", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
