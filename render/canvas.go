package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/swdee/go-posematch"
	"golang.org/x/image/font/basicfont"
)

// Canvas is a Surface backed by a persistent transparent RGBA image drawn
// with gg paths.  Each Flush keeps a snapshot of the image and, when a sink
// is set, writes it as a PNG.
type Canvas struct {
	mu       sync.Mutex
	dc       *gg.Context
	sink     io.Writer
	snapshot *image.RGBA
}

// NewCanvas returns a transparent canvas of the given size.  sink may be nil.
func NewCanvas(width, height int, sink io.Writer) *Canvas {

	dc := gg.NewContext(width, height)
	dc.SetFontFace(basicfont.Face7x13)

	return &Canvas{
		dc:   dc,
		sink: sink,
	}
}

// Clear makes the region transparent
func (c *Canvas) Clear(region image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.dc.Image().(*image.RGBA); ok {
		draw.Draw(img, region, image.Transparent, image.Point{}, draw.Src)
	}
}

// FillCircle draws a filled circle
func (c *Canvas) FillCircle(center posematch.Point, radius float64, clr color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dc.NewSubPath()
	c.dc.DrawArc(center.X, center.Y, radius, 0, 2*math.Pi)
	c.dc.ClosePath()
	c.dc.SetColor(clr)
	c.dc.Fill()
}

// StrokeLine draws a line segment
func (c *Canvas) StrokeLine(from, to posematch.Point, clr color.RGBA, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dc.SetColor(clr)
	c.dc.SetLineWidth(width)
	c.dc.MoveTo(from.X, from.Y)
	c.dc.LineTo(to.X, to.Y)
	c.dc.Stroke()
}

// Label draws text with its baseline at the given point
func (c *Canvas) Label(text string, at posematch.Point, clr color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dc.SetColor(clr)
	c.dc.DrawString(text, at.X, at.Y)
}

// Flush snapshots the canvas and writes it to the sink
func (c *Canvas) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.dc.Image()
	snap := image.NewRGBA(src.Bounds())
	draw.Draw(snap, snap.Bounds(), src, src.Bounds().Min, draw.Src)
	c.snapshot = snap

	if c.sink == nil {
		return nil
	}

	if err := c.dc.EncodePNG(c.sink); err != nil {
		return fmt.Errorf("error writing canvas: %w", err)
	}

	return nil
}

// Snapshot returns the image as of the last Flush, nil before the first
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot
}
