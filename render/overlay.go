package render

import (
	"fmt"
	"io"

	"github.com/swdee/go-posematch"
)

// Overlay renders scoring results onto a long lived surface
type Overlay struct {
	// Surface is drawn onto for every result, it is never recreated
	Surface posematch.Surface
	// Skeleton is the limb layout to draw
	Skeleton posematch.SkeletonMap
	// Style controls marker and line appearance
	Style Style
	// ShowScore draws the score label when the surface supports text
	ShowScore bool
	// LabelAt is the baseline position of the score label
	LabelAt posematch.Point
}

// NewOverlay returns an Overlay drawing the default skeleton in the default
// style over a surface of the given size
func NewOverlay(s posematch.Surface, width, height int) *Overlay {
	return &Overlay{
		Surface:   s,
		Skeleton:  posematch.DefaultSkeleton,
		Style:     DefaultStyle(width, height),
		ShowScore: true,
		LabelAt:   posematch.Point{X: 10, Y: 24},
	}
}

// Render draws the cleaned pose of the result and its score
func (o *Overlay) Render(r posematch.Result) error {

	skeleton := o.Skeleton

	if skeleton == nil {
		skeleton = posematch.DefaultSkeleton
	}

	drawSkeleton(o.Surface, r.Cleaned, skeleton, o.Style)

	if o.ShowScore {
		if l, ok := o.Surface.(posematch.Labeler); ok {
			l.Label(ScoreLabel(r), o.LabelAt, GradeColor(r.Grade()))
		}
	}

	if err := o.Surface.Flush(); err != nil {
		return fmt.Errorf("error flushing overlay surface: %w", err)
	}

	return nil
}

// Close releases the surface if it holds resources
func (o *Overlay) Close() error {
	if c, ok := o.Surface.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// ScoreLabel formats a result for display
func ScoreLabel(r posematch.Result) string {
	if !r.OK {
		return "no match"
	}

	return fmt.Sprintf("score %.2f (%s)", r.Score, r.Grade())
}
