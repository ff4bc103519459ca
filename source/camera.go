package source

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/logger"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// CameraConfig defines the capture device to open
type CameraConfig struct {
	// Device is a camera index, eg: "0", or a video file or stream URL
	Device string
	// Width and Height request the capture texture size, zero keeps the
	// device default
	Width  int
	Height int
	// Loop rewinds a video file when it reaches the end instead of
	// reporting the source exhausted
	Loop bool
}

// Camera is a FrameSource reading from a gocv.VideoCapture
type Camera struct {
	mu  sync.Mutex
	cap *gocv.VideoCapture
	cfg CameraConfig
	log *zap.Logger
	// isFile is set for sources that can reach an end
	isFile bool
}

// OpenCamera opens the capture device
func OpenCamera(cfg CameraConfig, log *zap.Logger) (*Camera, error) {

	if log == nil {
		log = logger.Log()
	}

	var device interface{} = cfg.Device
	isFile := true

	if id, err := strconv.Atoi(cfg.Device); err == nil {
		device = id
		isFile = false
	}

	vc, err := gocv.OpenVideoCapture(device)

	if err != nil {
		return nil, fmt.Errorf("error opening capture device %s: %w", cfg.Device, err)
	}

	if cfg.Width > 0 && cfg.Height > 0 && !isFile {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	c := &Camera{
		cap:    vc,
		cfg:    cfg,
		log:    log.Named("camera"),
		isFile: isFile,
	}

	c.log.Info("capture opened",
		zap.String("device", cfg.Device),
		zap.Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)),
		zap.Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)))

	return c, nil
}

// Next reads the next frame from the device
func (c *Camera) Next(ctx context.Context) (posematch.Frame, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil, posematch.ErrSourceExhausted
	}

	mat := gocv.NewMat()

	if ok := c.cap.Read(&mat); ok && !mat.Empty() {
		return NewFrame(mat), nil
	}

	if !c.isFile {
		mat.Close()
		return nil, fmt.Errorf("no frame available from %s", c.cfg.Device)
	}

	if !c.cfg.Loop {
		mat.Close()
		return nil, posematch.ErrSourceExhausted
	}

	// rewind the file and try once more
	c.cap.Set(gocv.VideoCapturePosFrames, 0)

	if ok := c.cap.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, posematch.ErrSourceExhausted
	}

	return NewFrame(mat), nil
}

// Close releases the capture device
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}

	err := c.cap.Close()
	c.cap = nil

	return err
}
