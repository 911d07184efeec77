// Package scheduler drives the capture, inference and render loop.
package scheduler

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/rrocketmann/Hanvas/internal/capture"
	"github.com/rrocketmann/Hanvas/internal/detector"
	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/render"
	"github.com/rrocketmann/Hanvas/internal/status"
)

// State is the scheduler's run state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// DefaultInterval approximates a 30 Hz display refresh.
const DefaultInterval = 33 * time.Millisecond

// Config holds the scheduler's collaborators.
type Config struct {
	Lifecycle  *detector.Lifecycle
	Classifier *gesture.Classifier
	Surface    render.Surface
	Sink       status.Sink

	// Interval between ticks (default: DefaultInterval).
	Interval time.Duration

	// Now supplies wall-clock milliseconds for inference timestamps
	// (default: time.Now). Overridable for tests.
	Now func() int64
}

// Scheduler runs one detection and render cycle per tick. All per-tick work
// happens on a single goroutine; inference calls are serialized by the tick
// cadence and no tick starts while a previous one is still in flight.
type Scheduler struct {
	lifecycle  *detector.Lifecycle
	classifier *gesture.Classifier
	surface    render.Surface
	sink       status.Sink
	interval   time.Duration
	now        func() int64

	mu         sync.Mutex
	state      State
	stopCh     chan struct{}
	done       chan struct{}
	lastResult []detector.HandLandmarks
	lastState  gesture.State
	lastFrame  *gocv.Mat

	// Touched only from the loop goroutine.
	lastSourceTS int64
	lastDetectTS int64
}

// New creates a stopped Scheduler.
func New(config Config) *Scheduler {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	now := config.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}

	return &Scheduler{
		lifecycle:  config.Lifecycle,
		classifier: config.Classifier,
		surface:    config.Surface,
		sink:       config.Sink,
		interval:   interval,
		now:        now,
		state:      StateStopped,
		lastState:  gesture.StateNone,

		lastSourceTS: -1,
	}
}

// State returns the current run state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResult returns the hands from the most recent processed frame.
func (s *Scheduler) LastResult() []detector.HandLandmarks {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]detector.HandLandmarks, len(s.lastResult))
	copy(out, s.lastResult)
	return out
}

// LastState returns the most recently published hand state.
func (s *Scheduler) LastState() gesture.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastState
}

// LastFrame returns a copy of the most recently processed frame, or nil when
// no frame has been processed. The caller owns the returned Mat. Consumers
// read frames from here rather than from the stream; the stream itself is
// read only by the tick loop.
func (s *Scheduler) LastFrame() *gocv.Mat {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastFrame == nil {
		return nil
	}
	clone := s.lastFrame.Clone()
	return &clone
}

// Start begins ticking against the given stream. Starting a running
// scheduler is a no-op; a stopped scheduler must be restarted explicitly.
func (s *Scheduler) Start(stream capture.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return
	}

	s.state = StateRunning
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.lastResult = nil
	s.lastState = gesture.StateNone
	s.lastSourceTS = -1

	go s.run(stream, s.stopCh, s.done)
	log.Println("Frame scheduler started")
}

// Stop halts the loop. The stop is cooperative: a tick already in flight
// runs to completion, and Stop waits for it, so nothing renders or publishes
// after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}

	close(s.stopCh)
	s.stopCh = nil
	s.state = StateStopped
	done := s.done
	s.done = nil
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.lastResult = nil
	s.lastState = gesture.StateNone
	if s.lastFrame != nil {
		s.lastFrame.Close()
		s.lastFrame = nil
	}
	s.mu.Unlock()
	s.surface.Clear()

	log.Println("Frame scheduler stopped")
}

func (s *Scheduler) run(stream capture.Stream, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Re-check the stop flag before doing any work: a stop
			// raced with the tick that just fired.
			select {
			case <-stopCh:
				return
			default:
			}
			s.tick(stream)
		}
	}
}

// tick runs exactly one capture, inference and render cycle.
func (s *Scheduler) tick(stream capture.Stream) {
	frame, err := stream.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return
	}
	defer frame.Close()

	// The source's native playback clock decides whether this is a new
	// frame. An unchanged timestamp means the frame has not advanced:
	// skip inference but still re-render the last known result.
	sourceTS := stream.Timestamp()
	if sourceTS != s.lastSourceTS {
		s.lastSourceTS = sourceTS
		s.detectFrame(frame)
	}

	clone := frame.Clone()
	s.mu.Lock()
	if s.lastFrame != nil {
		s.lastFrame.Close()
	}
	s.lastFrame = &clone
	s.mu.Unlock()

	width, height := stream.Dimensions()
	s.surface.Resize(width, height)
	s.surface.Clear()

	s.mu.Lock()
	result := s.lastResult
	s.mu.Unlock()

	s.surface.Render(result)

	state := s.classifier.ClassifyResult(result)
	s.mu.Lock()
	s.lastState = state
	s.mu.Unlock()
	s.sink.SetHandState(state)
}

// detectFrame runs inference for one new frame. While the detector handle is
// absent (still initializing or degraded) the frame counts as zero hands. A
// failed inference is likewise "no hands this frame", never fatal.
func (s *Scheduler) detectFrame(frame *gocv.Mat) {
	handle := s.lifecycle.Handle()
	if handle == nil {
		s.setResult(nil)
		return
	}

	// Lazy one-way upgrade on the first delivered frame.
	if err := handle.EnsureVideoMode(); err != nil {
		log.Printf("Error switching detector to video mode: %v", err)
		s.setResult(nil)
		return
	}

	hands, err := handle.Detect(frame, s.nextDetectTimestamp())
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		hands = nil
	}
	s.setResult(hands)
}

func (s *Scheduler) setResult(hands []detector.HandLandmarks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = hands
}

// nextDetectTimestamp returns a wall-clock timestamp that is strictly
// greater than any previously issued one, so the capability never sees time
// stand still or move backwards.
func (s *Scheduler) nextDetectTimestamp() int64 {
	ts := s.now()
	if ts <= s.lastDetectTS {
		ts = s.lastDetectTS + 1
	}
	s.lastDetectTS = ts
	return ts
}
