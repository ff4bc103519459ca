// Package source supplies frames from cameras, video files and encoded still
// images using gocv
package source

import (
	"sync"

	"github.com/swdee/go-posematch"
	"gocv.io/x/gocv"
)

// Frame is a BGR image held in a gocv.Mat.  Release closes the Mat and may
// be called more than once.
type Frame struct {
	mat  gocv.Mat
	once sync.Once
	err  error
}

// NewFrame wraps a Mat, the Frame takes ownership of it
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat returns the underlying image, valid until Release
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

// Shape returns the image dimensions
func (f *Frame) Shape() posematch.Shape {
	return posematch.Shape{
		Width:    f.mat.Cols(),
		Height:   f.mat.Rows(),
		Channels: f.mat.Channels(),
	}
}

// Release frees the image memory
func (f *Frame) Release() error {
	f.once.Do(func() {
		f.err = f.mat.Close()
	})

	return f.err
}
