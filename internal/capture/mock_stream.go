package capture

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource is a test implementation of Source.
type MockSource struct {
	mu       sync.Mutex
	Err      error
	Unprimed bool
	requests int
	streams  []*MockStream
}

// NewMockSource creates a MockSource that hands out fresh MockStreams.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// RequestStream returns the configured error or a new MockStream whose first
// frame is already decoded.
func (s *MockSource) RequestStream(ctx context.Context, c Constraints) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	if s.Err != nil {
		return nil, s.Err
	}

	stream := NewMockStream()
	if s.Unprimed {
		stream.primed = false
		stream.firstFrame = make(chan struct{})
	}
	s.streams = append(s.streams, stream)
	return stream, nil
}

// Requests returns how many times RequestStream was invoked.
func (s *MockSource) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Streams returns every stream handed out so far.
func (s *MockSource) Streams() []*MockStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*MockStream, len(s.streams))
	copy(out, s.streams)
	return out
}

// MockStream serves synthetic frames with controllable timestamps.
type MockStream struct {
	mu         sync.Mutex
	ts         int64
	width      int
	height     int
	closed     bool
	primed     bool
	reads      int
	track      *MockTrack
	firstFrame chan struct{}
}

// NewMockStream creates an open MockStream at 640x480 with its first frame
// already decoded.
func NewMockStream() *MockStream {
	s := &MockStream{
		ts:         1,
		width:      DefaultWidth,
		height:     DefaultHeight,
		primed:     true,
		firstFrame: make(chan struct{}),
	}
	s.track = &MockTrack{stream: s}
	close(s.firstFrame)
	return s
}

// SignalFirstFrame marks the first frame as decoded.
func (s *MockStream) SignalFirstFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.primed {
		s.primed = true
		close(s.firstFrame)
	}
}

func (s *MockStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *MockStream) FirstFrame() <-chan struct{} {
	return s.firstFrame
}

// ReadFrame returns a blank frame of the stream's dimensions.
func (s *MockStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStreamClosed
	}

	s.reads++
	mat := gocv.NewMatWithSize(s.height, s.width, gocv.MatTypeCV8UC3)
	return &mat, nil
}

func (s *MockStream) Timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ts
}

func (s *MockStream) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// AdvanceFrame moves the playback clock forward, simulating a new frame.
func (s *MockStream) AdvanceFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ts++
}

// SetTimestamp pins the playback clock to a specific value.
func (s *MockStream) SetTimestamp(ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ts = ts
}

// SetDimensions changes the frame size returned by subsequent reads.
func (s *MockStream) SetDimensions(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

// Reads returns how many frames were read.
func (s *MockStream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Track returns the stream's single video track.
func (s *MockStream) Track() *MockTrack {
	return s.track
}

func (s *MockStream) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if !s.primed {
		s.primed = true
		close(s.firstFrame)
	}
}

// MockTrack records how many times it was stopped.
type MockTrack struct {
	mu     sync.Mutex
	stream *MockStream
	stops  int
}

func (t *MockTrack) Kind() string {
	return "video"
}

// Stop marks the stream closed and counts the call. Unlike a real track it
// does not collapse repeated stops, so tests can assert the exact count.
func (t *MockTrack) Stop() error {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()

	t.stream.stop()
	return nil
}

// Stops returns how many times Stop was called.
func (t *MockTrack) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}
