package posematch

import (
	"context"
	"errors"
	"image"
	"image/color"
)

var (
	// ErrNoPose is returned when an image contains no usable pose
	ErrNoPose = errors.New("no pose detected")
	// ErrSourceExhausted is returned by a FrameSource that has no more
	// frames to give, such as the end of a video file
	ErrSourceExhausted = errors.New("frame source exhausted")
	// ErrNoFrameSource is returned when a session is started without a
	// frame source
	ErrNoFrameSource = errors.New("no frame source configured")
	// ErrNoEstimator is returned when a session is started without a pose
	// estimator
	ErrNoEstimator = errors.New("no pose estimator configured")
	// ErrModelNotReady is returned when the pose model has not been loaded
	ErrModelNotReady = errors.New("pose model not ready")
)

// Shape describes the dimensions of a frame
type Shape struct {
	Width    int
	Height   int
	Channels int
}

// Frame is an image buffer handed out by a FrameSource or ImageDecoder.  The
// holder must call Release exactly once when done with it.
type Frame interface {
	Shape() Shape
	Release() error
}

// FrameSource supplies live camera frames
type FrameSource interface {
	// Next returns the next available frame
	Next(ctx context.Context) (Frame, error)
}

// PoseEstimator runs a pose model over frames
type PoseEstimator interface {
	// Estimate returns every pose detected in the frame, possibly none
	Estimate(ctx context.Context, f Frame) ([]Pose, error)
	// EstimateSingle returns the single best pose in the frame or ErrNoPose
	EstimateSingle(ctx context.Context, f Frame) (Pose, error)
}

// Loader is implemented by estimators that need loading before use
type Loader interface {
	Load(ctx context.Context) error
}

// ImageDecoder turns an encoded still image into a Frame scaled to the
// given height, keeping its aspect ratio.  A height of zero keeps the
// original size.
type ImageDecoder interface {
	Decode(data []byte, height int) (Frame, error)
}

// Surface is a long lived 2D drawing target with immediate mode primitives
type Surface interface {
	// Clear erases the given region
	Clear(region image.Rectangle)
	// FillCircle draws a filled circle
	FillCircle(center Point, radius float64, c color.RGBA)
	// StrokeLine draws a line segment
	StrokeLine(from, to Point, c color.RGBA, width float64)
	// Flush presents everything drawn since the last Flush
	Flush() error
}

// Labeler is implemented by surfaces able to draw text
type Labeler interface {
	Label(text string, at Point, c color.RGBA)
}

// Renderer presents a scoring result to the user
type Renderer interface {
	Render(r Result) error
}
