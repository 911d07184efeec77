// Package capture provides webcam stream acquisition using GoCV (OpenCV).
package capture

import (
	"context"
	"errors"

	"gocv.io/x/gocv"
)

// Default stream constraints.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)

var (
	// ErrStreamClosed is returned when reading from a stream whose tracks
	// have been stopped.
	ErrStreamClosed = errors.New("stream is closed")

	// ErrPermissionDenied is returned when the platform refuses access to
	// the capture device.
	ErrPermissionDenied = errors.New("camera access denied")
)

// Constraints describe the requested media stream.
type Constraints struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DefaultConstraints returns Constraints for the default camera at 640x480.
func DefaultConstraints() Constraints {
	return Constraints{
		DeviceID: 0,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
	}
}

// Track is a single stoppable media track. Stopping a track releases the
// underlying hardware; stopping it twice is a no-op.
type Track interface {
	// Kind identifies the track type, e.g. "video".
	Kind() string

	// Stop releases the track's hardware resources.
	Stop() error
}

// Stream is a live video stream owned by whoever acquired it.
type Stream interface {
	// Tracks returns the stream's tracks.
	Tracks() []Track

	// FirstFrame returns a channel that is closed once the first frame has
	// been decoded.
	FirstFrame() <-chan struct{}

	// ReadFrame returns the current frame. The caller is responsible for
	// closing the returned Mat.
	ReadFrame() (*gocv.Mat, error)

	// Timestamp returns the source's native playback clock for the most
	// recently read frame, in milliseconds. Two reads of the same frame
	// report the same value.
	Timestamp() int64

	// Dimensions returns the current frame size.
	Dimensions() (width, height int)
}

// Source acquires streams from the platform.
type Source interface {
	// RequestStream opens a stream matching the constraints. It may fail
	// with a permission or hardware error.
	RequestStream(ctx context.Context, c Constraints) (Stream, error)
}
