package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	log "github.com/sirupsen/logrus"
)

// ErrDetectorUnavailable is returned when both accelerator tiers failed to
// initialize and detection is permanently unavailable for the session.
var ErrDetectorUnavailable = errors.New("hand detector unavailable")

// errImageMode is returned when Detect is called before the video-mode upgrade.
var errImageMode = errors.New("detector is still in image mode")

// Handle owns a constructed inference capability. At most one Handle exists
// per process; it is created by Lifecycle.Initialize.
type Handle struct {
	capability Capability
	tier       AcceleratorTier

	mu   sync.Mutex
	mode RunningMode
}

// Tier returns the accelerator tier the capability was created with.
func (h *Handle) Tier() AcceleratorTier {
	return h.tier
}

// Mode returns the current running mode.
func (h *Handle) Mode() RunningMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// EnsureVideoMode upgrades the running mode from image to video. The upgrade
// happens at most once; calling it when already in video mode is a no-op.
// The mode never reverts to image.
func (h *Handle) EnsureVideoMode() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode == ModeVideo {
		return nil
	}

	if err := h.capability.SetRunningMode(ModeVideo); err != nil {
		return fmt.Errorf("set video mode: %w", err)
	}

	h.mode = ModeVideo
	return nil
}

// Detect runs inference on a single frame. Timestamps must be monotonically
// increasing across calls. Callers must not invoke Detect again until the
// previous call has returned, and must call EnsureVideoMode first.
func (h *Handle) Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != ModeVideo {
		return nil, errImageMode
	}

	return h.capability.DetectForVideo(frame, timestampMs)
}

// Close releases the underlying capability.
func (h *Handle) Close() error {
	return h.capability.Close()
}

// Lifecycle manages creation of the single detector Handle, including the
// GPU-to-CPU fallback when the preferred accelerator is unavailable.
type Lifecycle struct {
	factory Factory
	options Options

	mu       sync.Mutex
	handle   *Handle
	degraded bool
}

// NewLifecycle creates a Lifecycle that builds capabilities via factory.
func NewLifecycle(factory Factory, options Options) *Lifecycle {
	return &Lifecycle{
		factory: factory,
		options: options,
	}
}

// Initialize constructs the inference capability, requesting GPU acceleration
// first and retrying once on CPU if that fails. When both tiers fail the
// lifecycle enters a degraded state: no handle exists, detection is
// permanently unavailable, and every subsequent call returns
// ErrDetectorUnavailable without retrying.
//
// Initialize returns the existing handle when called after a successful
// initialization. It must not be invoked concurrently with itself.
func (l *Lifecycle) Initialize(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		return l.handle, nil
	}
	if l.degraded {
		return nil, ErrDetectorUnavailable
	}

	var firstErr error
	for _, tier := range []AcceleratorTier{TierGPU, TierCPU} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opts := l.options
		opts.Acceleration = tier
		opts.RunningMode = ModeImage

		capability, err := l.factory(opts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.Printf("Detector init on %s failed: %v", tier, err)
			continue
		}

		l.handle = &Handle{
			capability: capability,
			tier:       tier,
			mode:       ModeImage,
		}
		log.Printf("Hand detector ready (%s)", tier)
		return l.handle, nil
	}

	l.degraded = true
	return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, firstErr)
}

// Handle returns the initialized handle, or nil while the detector is absent
// (not yet initialized, still initializing, or degraded).
func (l *Lifecycle) Handle() *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle
}

// Degraded reports whether both accelerator tiers failed to initialize.
func (l *Lifecycle) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// Close releases the handle if one was created.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle == nil {
		return nil
	}

	err := l.handle.Close()
	l.handle = nil
	return err
}
