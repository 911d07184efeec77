package detector

import "gocv.io/x/gocv"

// RunningMode selects how the inference capability ingests input.
type RunningMode string

const (
	// ModeImage treats every input as an independent still image.
	ModeImage RunningMode = "image"
	// ModeVideo treats inputs as a timestamped continuous video stream.
	ModeVideo RunningMode = "video"
)

// AcceleratorTier selects where inference runs. The tier is fixed when the
// capability is created and never changes afterwards.
type AcceleratorTier string

const (
	TierGPU AcceleratorTier = "gpu"
	TierCPU AcceleratorTier = "cpu"
)

// Options holds configuration for creating an inference capability.
type Options struct {
	// Acceleration is the requested accelerator tier.
	Acceleration AcceleratorTier

	// RunningMode is the initial running mode (default: image).
	RunningMode RunningMode

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64
}

// DefaultOptions returns Options with sensible default values.
func DefaultOptions() Options {
	return Options{
		Acceleration:  TierGPU,
		RunningMode:   ModeImage,
		MaxHands:      2,
		MinConfidence: 0.5,
	}
}

// Capability is the underlying hand-landmark inference engine. Given a frame
// and a timestamp it returns zero or more hands. Implementations are not
// required to be safe for concurrent use; callers must serialize Detect.
type Capability interface {
	// DetectForVideo analyzes a video frame and returns detected hand
	// landmarks. Returns an empty slice if no hands are detected.
	DetectForVideo(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error)

	// SetRunningMode switches the capability's running mode.
	SetRunningMode(mode RunningMode) error

	// Close releases any resources held by the capability.
	Close() error
}

// Factory constructs a Capability with the given options. Construction fails
// when the requested accelerator tier is unavailable or the model cannot be
// loaded.
type Factory func(opts Options) (Capability, error)
