package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCapability is a test implementation of the Capability interface. It
// records calls and allows tests to control the detection results.
type MockCapability struct {
	mu          sync.Mutex
	hands       []HandLandmarks
	err         error
	mode        RunningMode
	modeCalls   int
	detectCalls int
	timestamps  []int64
}

// NewMockCapability creates a new MockCapability in image mode.
func NewMockCapability() *MockCapability {
	return &MockCapability{mode: ModeImage}
}

// SetHands sets the hands that will be returned by DetectForVideo.
func (m *MockCapability) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by DetectForVideo.
func (m *MockCapability) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// DetectForVideo returns the pre-configured hands or error.
func (m *MockCapability) DetectForVideo(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detectCalls++
	m.timestamps = append(m.timestamps, timestampMs)

	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// SetRunningMode records the mode switch.
func (m *MockCapability) SetRunningMode(mode RunningMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	m.modeCalls++
	return nil
}

// Close is a no-op for the mock capability.
func (m *MockCapability) Close() error {
	return nil
}

// DetectCalls returns how many times DetectForVideo was invoked.
func (m *MockCapability) DetectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectCalls
}

// ModeCalls returns how many times SetRunningMode was invoked.
func (m *MockCapability) ModeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modeCalls
}

// Mode returns the last running mode set on the capability.
func (m *MockCapability) Mode() RunningMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Timestamps returns the inference timestamps seen so far, in call order.
func (m *MockCapability) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// MockFactory builds MockCapability instances and can be told to fail per
// accelerator tier, for exercising the GPU-to-CPU fallback.
type MockFactory struct {
	mu         sync.Mutex
	FailGPU    error
	FailCPU    error
	Capability *MockCapability
	attempts   []AcceleratorTier
}

// NewMockFactory creates a MockFactory backed by a fresh MockCapability.
func NewMockFactory() *MockFactory {
	return &MockFactory{Capability: NewMockCapability()}
}

// New implements Factory.
func (f *MockFactory) New(opts Options) (Capability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts = append(f.attempts, opts.Acceleration)

	switch opts.Acceleration {
	case TierGPU:
		if f.FailGPU != nil {
			return nil, f.FailGPU
		}
	case TierCPU:
		if f.FailCPU != nil {
			return nil, f.FailCPU
		}
	}

	return f.Capability, nil
}

// Attempts returns the accelerator tiers requested so far, in order.
func (f *MockFactory) Attempts() []AcceleratorTier {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AcceleratorTier, len(f.attempts))
	copy(out, f.attempts)
	return out
}

// Fingertip directions away from the wrist, thumb first.
var fingerDirs = [5][2]float64{
	{-0.71, -0.71}, // thumb
	{-0.26, -0.97}, // index
	{0.0, -1.0},    // middle
	{0.26, -0.97},  // ring
	{0.5, -0.87},   // pinky
}

// Radial distances from the wrist used by the preset builders. An extended
// tip sits well past the base joint; a curled tip folds back inside it.
const (
	presetBaseDist     = 0.12
	presetExtendedDist = 0.30
	presetCurledDist   = 0.08
)

// handWithFingers builds a synthetic right hand where extended[i] selects
// whether finger i (thumb first) is extended or curled. Joint positions are
// placed radially from the wrist so tip/base wrist distances are exact.
func handWithFingers(extended [5]bool) HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	wrist := Point3D{X: 0.5, Y: 0.85, Z: 0}
	lm.Points[Wrist] = wrist

	at := func(dir [2]float64, dist float64) Point3D {
		return Point3D{
			X: wrist.X + dir[0]*dist,
			Y: wrist.Y + dir[1]*dist,
			Z: 0,
		}
	}

	for i, dir := range fingerDirs {
		tipDist := presetCurledDist
		if extended[i] {
			tipDist = presetExtendedDist
		}

		if i == 0 {
			// Thumb: CMC, MCP (base), IP, tip
			lm.Points[ThumbCMC] = at(dir, presetBaseDist/2)
			lm.Points[ThumbMCP] = at(dir, presetBaseDist)
			lm.Points[ThumbIP] = at(dir, (presetBaseDist+tipDist)/2)
			lm.Points[ThumbTip] = at(dir, tipDist)
			continue
		}

		base := IndexMCP + (i-1)*4
		lm.Points[base] = at(dir, presetBaseDist)
		lm.Points[base+1] = at(dir, presetBaseDist+(tipDist-presetBaseDist)/3)
		lm.Points[base+2] = at(dir, presetBaseDist+2*(tipDist-presetBaseDist)/3)
		lm.Points[base+3] = at(dir, tipDist)
	}

	return lm
}

// OpenHandLandmarks returns a preset hand with all five fingers extended.
func OpenHandLandmarks() HandLandmarks {
	return handWithFingers([5]bool{true, true, true, true, true})
}

// FistLandmarks returns a preset hand with all five fingers curled.
func FistLandmarks() HandLandmarks {
	return handWithFingers([5]bool{false, false, false, false, false})
}

// PartialHandLandmarks returns a preset hand with only the index and middle
// fingers extended.
func PartialHandLandmarks() HandLandmarks {
	return handWithFingers([5]bool{false, true, true, false, false})
}
