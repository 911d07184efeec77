package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// CameraSource acquires streams from local video devices via GoCV.
type CameraSource struct{}

// NewCameraSource creates a Source backed by the local camera devices.
func NewCameraSource() *CameraSource {
	return &CameraSource{}
}

// RequestStream opens the camera described by the constraints. Device-open
// failures are reported as ErrPermissionDenied: OpenCV does not distinguish
// a denied device from a missing one.
func (s *CameraSource) RequestStream(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(c.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrPermissionDenied, c.DeviceID, err)
	}

	width := c.Width
	if width <= 0 {
		width = DefaultWidth
	}
	height := c.Height
	if height <= 0 {
		height = DefaultHeight
	}
	fps := c.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	capture.Set(gocv.VideoCaptureFPS, float64(fps))

	cs := &cameraStream{
		capture:    capture,
		width:      width,
		height:     height,
		firstFrame: make(chan struct{}),
	}
	cs.track = &videoTrack{stream: cs}

	// Prime the stream: decode one frame so FirstFrame fires as soon as the
	// device actually delivers, not merely when it opens.
	go cs.prime()

	return cs, nil
}

// cameraStream wraps an open gocv.VideoCapture as a Stream.
type cameraStream struct {
	mu         sync.Mutex
	capture    *gocv.VideoCapture
	track      *videoTrack
	width      int
	height     int
	closed     bool
	primed     bool
	lastTS     int64
	firstFrame chan struct{}
}

func (s *cameraStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *cameraStream) FirstFrame() <-chan struct{} {
	return s.firstFrame
}

func (s *cameraStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *cameraStream) readLocked() (*gocv.Mat, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	// Webcams often report no playback position; fall back to the wall
	// clock so the timestamp still advances frame to frame.
	ts := int64(s.capture.Get(gocv.VideoCapturePosMsec))
	if ts <= 0 {
		ts = time.Now().UnixMilli()
	}
	s.lastTS = ts
	s.width = mat.Cols()
	s.height = mat.Rows()

	if !s.primed {
		s.primed = true
		close(s.firstFrame)
	}

	return &mat, nil
}

func (s *cameraStream) Timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTS
}

func (s *cameraStream) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// prime decodes and discards frames until one succeeds, so FirstFrame fires
// once the device actually delivers. Webcams commonly fail the first few
// reads while warming up; prime keeps retrying until the stream is stopped.
func (s *cameraStream) prime() {
	for {
		s.mu.Lock()
		if s.closed || s.primed {
			s.mu.Unlock()
			return
		}
		mat, err := s.readLocked()
		s.mu.Unlock()

		if err == nil {
			mat.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *cameraStream) stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	// Release anyone still waiting on the first frame; it will never
	// arrive now.
	if !s.primed {
		s.primed = true
		close(s.firstFrame)
	}

	var err error
	if s.capture != nil {
		err = s.capture.Close()
		s.capture = nil
	}
	return err
}

// videoTrack is the single video track of a camera stream.
type videoTrack struct {
	stream *cameraStream
	once   sync.Once
	err    error
}

func (t *videoTrack) Kind() string {
	return "video"
}

func (t *videoTrack) Stop() error {
	t.once.Do(func() {
		t.err = t.stream.stop()
	})
	return t.err
}
