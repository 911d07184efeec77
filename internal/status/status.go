// Package status publishes session and hand-state updates to UI surfaces.
package status

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/rrocketmann/Hanvas/internal/gesture"
)

// Sink receives state updates and user-visible status text. Implementations
// must tolerate being called from the detection loop's goroutine.
type Sink interface {
	// SetSessionState reports a session state transition.
	SetSessionState(state string)

	// SetHandState reports the classified hand state for the latest frame.
	SetHandState(state gesture.State)

	// Report surfaces a non-fatal error or status message.
	Report(message string)
}

// Multi fans updates out to several sinks.
type Multi []Sink

func (m Multi) SetSessionState(state string) {
	for _, s := range m {
		s.SetSessionState(state)
	}
}

func (m Multi) SetHandState(state gesture.State) {
	for _, s := range m {
		s.SetHandState(state)
	}
}

func (m Multi) Report(message string) {
	for _, s := range m {
		s.Report(message)
	}
}

// LogSink writes updates to the process log. Hand states are only logged on
// change to keep the loop from flooding the output.
type LogSink struct {
	mu   sync.Mutex
	last gesture.State
}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{last: gesture.StateNone}
}

func (l *LogSink) SetSessionState(state string) {
	log.Printf("Session: %s", state)
}

func (l *LogSink) SetHandState(state gesture.State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state == l.last {
		return
	}
	l.last = state
	log.Printf("Hand state: %s", state)
}

func (l *LogSink) Report(message string) {
	log.Println(message)
}

// Recorder captures updates for tests.
type Recorder struct {
	mu            sync.Mutex
	SessionStates []string
	HandStates    []gesture.State
	Reports       []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetSessionState(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SessionStates = append(r.SessionStates, state)
}

func (r *Recorder) SetHandState(state gesture.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HandStates = append(r.HandStates, state)
}

func (r *Recorder) Report(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, message)
}

// LastHandState returns the most recently published hand state, or StateNone
// when nothing was published yet.
func (r *Recorder) LastHandState() gesture.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.HandStates) == 0 {
		return gesture.StateNone
	}
	return r.HandStates[len(r.HandStates)-1]
}

// LastSessionState returns the most recently published session state.
func (r *Recorder) LastSessionState() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.SessionStates) == 0 {
		return ""
	}
	return r.SessionStates[len(r.SessionStates)-1]
}

// ReportCount returns how many status messages were reported.
func (r *Recorder) ReportCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Reports)
}
