// Package render draws detected hand skeletons onto video frames.
package render

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/rrocketmann/Hanvas/internal/detector"
)

// Connections lists the landmark index pairs joined by skeleton connector
// segments, following the MediaPipe hand topology.
var Connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC},
	{detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP},
	{detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP},
	{detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP},
	{detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP},
	{detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP},
	{detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP},
	{detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP},
	{detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP},
	{detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP},
	{detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Style configures connector and landmark marker appearance.
type Style struct {
	ConnectorColor color.RGBA
	ConnectorWidth int
	LandmarkColor  color.RGBA
	LandmarkRadius int
}

// DefaultStyle returns green connectors and red landmark markers.
func DefaultStyle() Style {
	return Style{
		ConnectorColor: color.RGBA{R: 0, G: 200, B: 0, A: 255},
		ConnectorWidth: 2,
		LandmarkColor:  color.RGBA{R: 220, G: 0, B: 0, A: 255},
		LandmarkRadius: 3,
	}
}

// DrawHands draws connector segments and landmark markers for every hand
// onto frame, mapping normalized coordinates to pixel positions.
func DrawHands(frame *gocv.Mat, hands []detector.HandLandmarks, style Style) {
	if frame == nil || frame.Empty() {
		return
	}

	width := frame.Cols()
	height := frame.Rows()

	for i := range hands {
		hand := &hands[i]

		for _, conn := range Connections {
			a := toPixel(hand.Points[conn[0]], width, height)
			b := toPixel(hand.Points[conn[1]], width, height)
			gocv.Line(frame, a, b, style.ConnectorColor, style.ConnectorWidth)
		}

		for _, p := range hand.Points {
			gocv.Circle(frame, toPixel(p, width, height), style.LandmarkRadius, style.LandmarkColor, -1)
		}
	}
}

func toPixel(p detector.Point3D, width, height int) image.Point {
	return image.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// Surface is a resizable 2D drawing target for skeleton overlays.
type Surface interface {
	// Resize matches the surface to the current source dimensions.
	Resize(width, height int)

	// Clear erases the surface.
	Clear()

	// Render draws every hand in the detection result.
	Render(hands []detector.HandLandmarks)
}

// Overlay is a Surface backed by an owned BGR canvas.
type Overlay struct {
	mu     sync.Mutex
	style  Style
	canvas gocv.Mat
	width  int
	height int
}

// NewOverlay creates an Overlay with the given style. The canvas is sized on
// the first Resize.
func NewOverlay(style Style) *Overlay {
	return &Overlay{
		style:  style,
		canvas: gocv.NewMat(),
	}
}

// Resize recreates the canvas when the source dimensions change.
func (o *Overlay) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if width == o.width && height == o.height && !o.canvas.Empty() {
		return
	}

	o.canvas.Close()
	o.canvas = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	o.width = width
	o.height = height
}

// Clear erases the canvas to black.
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.canvas.Empty() {
		o.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
	}
}

// Render draws the hands onto the canvas.
func (o *Overlay) Render(hands []detector.HandLandmarks) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.canvas.Empty() {
		return
	}
	DrawHands(&o.canvas, hands, o.style)
}

// Style returns the overlay's drawing style.
func (o *Overlay) Style() Style {
	return o.style
}

// Close releases the canvas.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.canvas.Close()
}

// MockSurface records Surface calls for tests.
type MockSurface struct {
	mu       sync.Mutex
	Resizes  []image.Point
	Clears   int
	Rendered [][]detector.HandLandmarks
}

// NewMockSurface creates an empty MockSurface.
func NewMockSurface() *MockSurface {
	return &MockSurface{}
}

func (m *MockSurface) Resize(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resizes = append(m.Resizes, image.Point{X: width, Y: height})
}

func (m *MockSurface) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clears++
}

func (m *MockSurface) Render(hands []detector.HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rendered = append(m.Rendered, hands)
}

// RenderCount returns how many times Render was called.
func (m *MockSurface) RenderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rendered)
}
