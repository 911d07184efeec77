package render

import (
	"testing"

	"github.com/rrocketmann/Hanvas/internal/detector"
)

func TestConnections_CoverAllLandmarks(t *testing.T) {
	seen := make(map[int]bool)
	for _, conn := range Connections {
		seen[conn[0]] = true
		seen[conn[1]] = true
	}

	for i := 0; i < detector.NumLandmarks; i++ {
		if !seen[i] {
			t.Errorf("landmark %d not covered by any connector", i)
		}
	}
}

func TestOverlay_ResizeBeforeRender(t *testing.T) {
	o := NewOverlay(DefaultStyle())
	defer o.Close()

	// Render before any resize must not panic on the empty canvas.
	o.Render([]detector.HandLandmarks{detector.OpenHandLandmarks()})
	o.Clear()

	o.Resize(320, 240)
	o.Clear()
	o.Render([]detector.HandLandmarks{detector.OpenHandLandmarks()})

	// Shrinking the source resizes the canvas again without error.
	o.Resize(160, 120)
	o.Render([]detector.HandLandmarks{detector.FistLandmarks()})
}

func TestMockSurface_Records(t *testing.T) {
	m := NewMockSurface()

	m.Resize(640, 480)
	m.Clear()
	m.Render(nil)
	m.Render([]detector.HandLandmarks{detector.OpenHandLandmarks()})

	if len(m.Resizes) != 1 {
		t.Errorf("resizes = %d, want 1", len(m.Resizes))
	}
	if m.Clears != 1 {
		t.Errorf("clears = %d, want 1", m.Clears)
	}
	if m.RenderCount() != 2 {
		t.Errorf("renders = %d, want 2", m.RenderCount())
	}
}
