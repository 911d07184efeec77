// Package session owns the capture session lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/rrocketmann/Hanvas/internal/capture"
	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/scheduler"
	"github.com/rrocketmann/Hanvas/internal/status"
)

// State is the session lifecycle state. The media stream handle is held only
// while the session is Active.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateActive     State = "active"
	StateStopped    State = "stopped"
)

var (
	// ErrInsecureContext is returned when a toggle originates from a
	// context that is neither transport-secured nor local loopback.
	ErrInsecureContext = errors.New("capture requires a secure context")

	// ErrEmbeddedFrame is returned when a toggle originates from a nested
	// embedded frame.
	ErrEmbeddedFrame = errors.New("capture is not allowed from an embedded frame")

	// ErrBusy is returned when a toggle arrives while a stream request is
	// already in flight.
	ErrBusy = errors.New("session is already requesting a stream")
)

// Config holds the controller's collaborators.
type Config struct {
	Source      capture.Source
	Scheduler   *scheduler.Scheduler
	Sink        status.Sink
	Constraints capture.Constraints
}

// Controller owns the session state and mediates start/stop. It is the only
// component that acquires or releases the media stream's tracks.
type Controller struct {
	source      capture.Source
	scheduler   *scheduler.Scheduler
	sink        status.Sink
	constraints capture.Constraints

	mu     sync.Mutex
	state  State
	stream capture.Stream
}

// NewController creates a Controller in the Idle state.
func NewController(config Config) *Controller {
	constraints := config.Constraints
	if constraints.Width <= 0 {
		constraints = capture.DefaultConstraints()
		constraints.DeviceID = config.Constraints.DeviceID
	}

	return &Controller{
		source:      config.Source,
		scheduler:   config.Scheduler,
		sink:        config.Sink,
		constraints: constraints,
		state:       StateIdle,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stream returns the owned media stream, or nil while no session is active.
func (c *Controller) Stream() capture.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// Toggle starts the session when idle or stopped and stops it when active.
// Starting validates the environment preconditions before any resource is
// acquired; failures are reported to the status sink and leave the state
// unchanged. A denied stream request reverts the state to Idle.
func (c *Controller) Toggle(ctx context.Context, env Environment) error {
	c.mu.Lock()

	switch c.state {
	case StateActive:
		c.stopLocked()
		c.mu.Unlock()
		return nil
	case StateRequesting:
		c.mu.Unlock()
		return ErrBusy
	}

	if !env.SecureContext() {
		c.mu.Unlock()
		c.sink.Report("Capture blocked: not a secure context")
		return ErrInsecureContext
	}
	if env.EmbeddedFrame() {
		c.mu.Unlock()
		c.sink.Report("Capture blocked: embedded frame")
		return ErrEmbeddedFrame
	}

	c.state = StateRequesting
	c.mu.Unlock()
	c.sink.SetSessionState(string(StateRequesting))

	// The request may block on a permission prompt or device probe; the
	// lock is released so state queries keep working meanwhile.
	stream, err := c.source.RequestStream(ctx, c.constraints)

	c.mu.Lock()
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		c.sink.Report(fmt.Sprintf("Camera unavailable: %v", err))
		c.sink.SetSessionState(string(StateIdle))
		return fmt.Errorf("request stream: %w", err)
	}

	c.stream = stream
	c.state = StateActive
	c.mu.Unlock()
	c.sink.SetSessionState(string(StateActive))

	// The scheduler starts once the stream reports its first decoded
	// frame, so the first tick never sees an empty source.
	select {
	case <-stream.FirstFrame():
	case <-ctx.Done():
		c.mu.Lock()
		c.stopLocked()
		c.mu.Unlock()
		return ctx.Err()
	}

	// A concurrent stop may have released the stream while waiting for the
	// first frame; the check and the start hold the lock together so a stop
	// cannot slip between them.
	c.mu.Lock()
	if c.state == StateActive {
		c.scheduler.Start(stream)
	}
	c.mu.Unlock()
	return nil
}

// stopLocked releases the stream and halts the scheduler. Every track is
// stopped exactly once to release the hardware. Callers hold c.mu.
func (c *Controller) stopLocked() {
	if c.state != StateActive {
		return
	}

	c.state = StateStopped

	for _, track := range c.stream.Tracks() {
		if err := track.Stop(); err != nil {
			log.Printf("Error stopping %s track: %v", track.Kind(), err)
		}
	}
	c.stream = nil

	c.scheduler.Stop()
	c.sink.SetSessionState(string(StateStopped))
	c.sink.SetHandState(gesture.StateNone)
}

// Close stops an active session. Safe to call at shutdown regardless of
// state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}
