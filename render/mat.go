package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/swdee/go-posematch"
	"gocv.io/x/gocv"
)

// TextStyle sets how labels are drawn on a MatSurface
type TextStyle struct {
	Face      gocv.HersheyFont
	Scale     float64
	Thickness int
}

// MatSurface is a Surface backed by a persistent gocv.Mat.  Each Flush
// encodes the Mat as a JPEG which is kept as the latest frame for streaming.
type MatSurface struct {
	mu sync.Mutex
	// canvas is the BGR image drawn onto
	canvas gocv.Mat
	// Text is the label style
	Text TextStyle
	// latest is the JPEG encoding of the last flushed frame
	latest []byte
	// seq increments on every Flush
	seq    uint64
	closed bool
}

// NewMatSurface returns a black MatSurface of the given size
func NewMatSurface(width, height int) *MatSurface {
	return &MatSurface{
		canvas: gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0),
			height, width, gocv.MatTypeCV8UC3),
		Text: TextStyle{Face: gocv.FontHersheySimplex, Scale: 0.8, Thickness: 2},
	}
}

// Clear paints the region black
func (m *MatSurface) Clear(region image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gocv.Rectangle(&m.canvas, region, Black, -1)
}

// FillCircle draws a filled circle
func (m *MatSurface) FillCircle(center posematch.Point, radius float64, c color.RGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gocv.Circle(&m.canvas, toPt(center), int(math.Round(radius)), c, -1)
}

// StrokeLine draws a line segment
func (m *MatSurface) StrokeLine(from, to posematch.Point, c color.RGBA, width float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gocv.Line(&m.canvas, toPt(from), toPt(to), c, thickness(width))
}

// Label draws text with its baseline at the given point
func (m *MatSurface) Label(text string, at posematch.Point, c color.RGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gocv.PutTextWithParams(&m.canvas, text, toPt(at), m.Text.Face, m.Text.Scale,
		c, m.Text.Thickness, gocv.LineAA, false)
}

// Flush encodes the canvas and publishes it as the latest frame
func (m *MatSurface) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("surface is closed")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m.canvas)

	if err != nil {
		return fmt.Errorf("error encoding overlay: %w", err)
	}

	defer buf.Close()

	// copy out of C memory
	data := buf.GetBytes()
	m.latest = append(m.latest[:0:0], data...)
	m.seq++

	return nil
}

// Latest returns the JPEG of the last flushed frame and its sequence number.
// The sequence is zero when nothing has been flushed.
func (m *MatSurface) Latest() ([]byte, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.latest, m.seq
}

// Close frees the canvas
func (m *MatSurface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	return m.canvas.Close()
}

func toPt(p posematch.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

func thickness(w float64) int {
	if w < 1 {
		return 1
	}

	return int(math.Round(w))
}
