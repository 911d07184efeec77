package detector

import (
	"context"
	"errors"
	"testing"
)

func TestLifecycle_Initialize_GPUPreferred(t *testing.T) {
	factory := NewMockFactory()
	lc := NewLifecycle(factory.New, DefaultOptions())

	handle, err := lc.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if handle.Tier() != TierGPU {
		t.Errorf("Tier() = %s, want %s", handle.Tier(), TierGPU)
	}

	attempts := factory.Attempts()
	if len(attempts) != 1 || attempts[0] != TierGPU {
		t.Errorf("attempts = %v, want [gpu]", attempts)
	}
}

func TestLifecycle_Initialize_FallsBackToCPU(t *testing.T) {
	factory := NewMockFactory()
	factory.FailGPU = errors.New("no gpu delegate")
	lc := NewLifecycle(factory.New, DefaultOptions())

	handle, err := lc.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if handle.Tier() != TierCPU {
		t.Errorf("Tier() = %s, want %s", handle.Tier(), TierCPU)
	}

	attempts := factory.Attempts()
	if len(attempts) != 2 || attempts[0] != TierGPU || attempts[1] != TierCPU {
		t.Errorf("attempts = %v, want [gpu cpu]", attempts)
	}
}

func TestLifecycle_Initialize_BothTiersFail(t *testing.T) {
	factory := NewMockFactory()
	factory.FailGPU = errors.New("no gpu delegate")
	factory.FailCPU = errors.New("model load failed")
	lc := NewLifecycle(factory.New, DefaultOptions())

	handle, err := lc.Initialize(context.Background())
	if handle != nil {
		t.Fatal("expected nil handle when both tiers fail")
	}
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("Initialize() error = %v, want ErrDetectorUnavailable", err)
	}

	if !lc.Degraded() {
		t.Error("Degraded() = false, want true")
	}
	if lc.Handle() != nil {
		t.Error("Handle() != nil after failed initialization")
	}

	// CPU must have been attempted exactly once.
	cpuAttempts := 0
	for _, tier := range factory.Attempts() {
		if tier == TierCPU {
			cpuAttempts++
		}
	}
	if cpuAttempts != 1 {
		t.Errorf("CPU attempts = %d, want 1", cpuAttempts)
	}

	// A degraded lifecycle stays degraded without new construction attempts.
	if _, err := lc.Initialize(context.Background()); !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("second Initialize() error = %v, want ErrDetectorUnavailable", err)
	}
	if got := len(factory.Attempts()); got != 2 {
		t.Errorf("attempts after degraded retry = %d, want 2", got)
	}
}

func TestLifecycle_Initialize_ReturnsExistingHandle(t *testing.T) {
	factory := NewMockFactory()
	lc := NewLifecycle(factory.New, DefaultOptions())

	first, err := lc.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	second, err := lc.Initialize(context.Background())
	if err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	if first != second {
		t.Error("expected the same handle from repeated initialization")
	}
	if got := len(factory.Attempts()); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestHandle_EnsureVideoMode_OneWayUpgrade(t *testing.T) {
	factory := NewMockFactory()
	lc := NewLifecycle(factory.New, DefaultOptions())

	handle, err := lc.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if handle.Mode() != ModeImage {
		t.Fatalf("Mode() = %s, want %s before first frame", handle.Mode(), ModeImage)
	}

	if err := handle.EnsureVideoMode(); err != nil {
		t.Fatalf("EnsureVideoMode() error = %v", err)
	}
	if handle.Mode() != ModeVideo {
		t.Fatalf("Mode() = %s, want %s", handle.Mode(), ModeVideo)
	}

	// Second call is a no-op: the underlying capability sees one switch.
	if err := handle.EnsureVideoMode(); err != nil {
		t.Fatalf("second EnsureVideoMode() error = %v", err)
	}
	if got := factory.Capability.ModeCalls(); got != 1 {
		t.Errorf("capability mode calls = %d, want 1", got)
	}
	if handle.Mode() != ModeVideo {
		t.Errorf("Mode() = %s, want %s after repeated upgrade", handle.Mode(), ModeVideo)
	}
}

func TestHandle_Detect_RejectsImageMode(t *testing.T) {
	factory := NewMockFactory()
	lc := NewLifecycle(factory.New, DefaultOptions())

	handle, err := lc.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if _, err := handle.Detect(nil, 1); err == nil {
		t.Fatal("expected error from Detect while still in image mode")
	}
	if got := factory.Capability.DetectCalls(); got != 0 {
		t.Errorf("capability detect calls = %d, want 0", got)
	}
}
