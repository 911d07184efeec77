package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/rrocketmann/Hanvas/internal/render"
	"github.com/rrocketmann/Hanvas/internal/scheduler"
)

// StreamHandler serves annotated MJPEG frames: the live camera picture with
// the latest detected skeletons drawn on top. Frames come from the
// scheduler's last processed frame; the handler never reads the capture
// stream, whose frames belong to the tick loop alone.
type StreamHandler struct {
	scheduler *scheduler.Scheduler
	style     render.Style
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(sched *scheduler.Scheduler, style render.Style) *StreamHandler {
	return &StreamHandler{
		scheduler: sched,
		style:     style,
	}
}

// ServeHTTP streams MJPEG frames to connected clients while a session is
// active.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame := h.scheduler.LastFrame()
		if frame == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		render.DrawHands(frame, h.scheduler.LastResult(), h.style)

		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}
