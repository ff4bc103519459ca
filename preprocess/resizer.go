package preprocess

import (
	"image"
	"image/color"

	"github.com/swdee/go-posematch"
	"gocv.io/x/gocv"
)

// Resizer letterbox scales frames to the model input size and maps model
// coordinates back onto the source frame
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image to the needed
// dimensions for input tensor size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2
	r.xPad = (r.destWidth - r.resizeW) / 2
}

// LetterBoxResize resizes the input image to the dimensions needed for the input
// tensor size whilst maintaining image aspect.  Color is that used for letter
// box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// ToSource maps a point in letterboxed model coordinates back to the source
// image, clamped to the source bounds
func (r *Resizer) ToSource(x, y float32) posematch.Point {

	sx := float64((x - float32(r.xPad)) / r.scale)
	sy := float64((y - float32(r.yPad)) / r.scale)

	return posematch.Point{
		X: clampf(sx, 0, float64(r.srcWidth)),
		Y: clampf(sy, 0, float64(r.srcHeight)),
	}
}

// Matches reports whether the resizer was built for a source of this size
func (r *Resizer) Matches(srcWidth, srcHeight int) bool {
	return r.srcWidth == srcWidth && r.srcHeight == srcHeight
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// ScaleToHeight resizes src into dest so its height is height pixels,
// keeping the aspect ratio.  A height of zero or the source height copies
// src unchanged.
func ScaleToHeight(src gocv.Mat, dest *gocv.Mat, height int) {

	if height <= 0 || height == src.Rows() {
		src.CopyTo(dest)
		return
	}

	width := int(float64(src.Cols()) * float64(height) / float64(src.Rows()))

	if width < 1 {
		width = 1
	}

	interp := gocv.InterpolationArea

	if height > src.Rows() {
		interp = gocv.InterpolationLinear
	}

	gocv.Resize(src, dest, image.Pt(width, height), 0, 0, interp)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
