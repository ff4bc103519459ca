package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-posematch"
)

// Style defines how a skeleton is drawn
type Style struct {
	// Region is the area cleared before each frame is drawn
	Region image.Rectangle
	// MarkerRadius is the radius of the joint circles in pixels
	MarkerRadius float64
	// LineWidth is the thickness of limb lines in pixels
	LineWidth float64
	// MarkerColor returns the fill color of a joint, nil uses LineColor
	MarkerColor func(posematch.Part) color.RGBA
	// LineColor is the color of limb lines
	LineColor color.RGBA
}

// DefaultStyle returns the style used for a surface of the given size, red
// joints joined by blue limbs
func DefaultStyle(width, height int) Style {
	return Style{
		Region:       image.Rect(0, 0, width, height),
		MarkerRadius: 5,
		LineWidth:    2,
		MarkerColor:  func(posematch.Part) color.RGBA { return Red },
		LineColor:    Blue,
	}
}

// PaletteStyle returns a style coloring joints by body region
func PaletteStyle(width, height int) Style {
	s := DefaultStyle(width, height)
	s.MarkerColor = PartColor
	s.LineColor = White

	return s
}

// Skeleton draws the pose onto the surface.  The region is cleared, a circle
// is drawn at every keypoint, then a line is drawn along every skeleton edge
// whose both ends are in the pose.  Edges to parts missing from the pose are
// skipped.  The surface is flushed once at the end.
func Skeleton(s posematch.Surface, pose posematch.Pose, skeleton posematch.SkeletonMap,
	style Style) error {

	drawSkeleton(s, pose, skeleton, style)
	return s.Flush()
}

// drawSkeleton performs the drawing of Skeleton without flushing
func drawSkeleton(s posematch.Surface, pose posematch.Pose, skeleton posematch.SkeletonMap,
	style Style) {

	s.Clear(style.Region)

	// draw circles at skeleton joints
	for _, kp := range pose.Keypoints {
		c := style.LineColor

		if style.MarkerColor != nil {
			c = style.MarkerColor(kp.Part)
		}

		s.FillCircle(kp.Position, style.MarkerRadius, c)
	}

	// draw limb lines in keypoint order then adjacency order
	for _, kp := range pose.Keypoints {
		for _, to := range skeleton[kp.Part] {
			other, ok := pose.Find(to)

			if !ok {
				continue
			}

			s.StrokeLine(kp.Position, other.Position, style.LineColor, style.LineWidth)
		}
	}
}
