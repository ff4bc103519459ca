package rknn

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/logger"
	"github.com/swdee/go-posematch/postprocess"
	"github.com/swdee/go-posematch/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// MatFrame is a frame backed by a BGR gocv.Mat
type MatFrame interface {
	posematch.Frame
	Mat() gocv.Mat
}

// EstimatorConfig defines the pose model to load
type EstimatorConfig struct {
	// ModelFile is the RKNN compiled YOLOv8 pose model
	ModelFile string
	// PoolSize is the number of runtimes to load
	PoolSize int
	// Platform is the Rockchip SoC used to pick NPU cores, eg: rk3588
	Platform string
	// Params are the detection post processing parameters
	Params postprocess.YOLOv8PoseParams
	// Parts maps model keypoint indexes to body parts, nil for COCO order
	Parts []posematch.Part
}

// letterboxColor pads model input outside the picture area
var letterboxColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Estimator runs a YOLOv8 pose model on the NPU.  It implements
// posematch.PoseEstimator and posematch.Loader.
type Estimator struct {
	cfg     EstimatorConfig
	decoder *postprocess.YOLOv8Pose
	log     *zap.Logger

	mu   sync.RWMutex
	pool *Pool
}

// NewEstimator returns an Estimator, the model is not loaded until Load
func NewEstimator(cfg EstimatorConfig, log *zap.Logger) (*Estimator, error) {

	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}

	if log == nil {
		log = logger.Log()
	}

	decoder, err := postprocess.NewYOLOv8Pose(cfg.Params, cfg.Parts)

	if err != nil {
		return nil, err
	}

	return &Estimator{
		cfg:     cfg,
		decoder: decoder,
		log:     log.Named("rknn"),
	}, nil
}

// Load loads the model into a pool of runtimes.  Calling Load on a loaded
// estimator does nothing.
func (e *Estimator) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	cores, err := PlatformCores(e.cfg.Platform)

	if err != nil {
		return err
	}

	pool, err := NewPool(e.cfg.PoolSize, e.cfg.ModelFile, cores, func(rt *Runtime) {
		// box outputs stay quantized for the int8 decoder
		rt.SetWantFloat(false)
	})

	if err != nil {
		return fmt.Errorf("error loading pose model: %w", err)
	}

	e.pool = pool

	e.log.Info("pose model loaded",
		zap.String("model", e.cfg.ModelFile),
		zap.Int("pool_size", e.cfg.PoolSize),
		zap.String("platform", e.cfg.Platform))

	return nil
}

// Estimate returns all poses detected in the frame ordered by descending
// score, with keypoints in frame pixel coordinates
func (e *Estimator) Estimate(ctx context.Context, f posematch.Frame) ([]posematch.Pose, error) {

	e.mu.RLock()
	pool := e.pool
	e.mu.RUnlock()

	if pool == nil {
		return nil, posematch.ErrModelNotReady
	}

	mf, ok := f.(MatFrame)

	if !ok {
		return nil, fmt.Errorf("frame type %T does not carry a gocv.Mat", f)
	}

	src := mf.Mat()

	if src.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	rt, err := pool.Get(ctx)

	if err != nil {
		return nil, err
	}

	defer pool.Return(rt)

	inW, inH := rt.InputSize()

	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)

	resizer := preprocess.NewResizer(src.Cols(), src.Rows(), inW, inH)
	defer resizer.Close()

	input := gocv.NewMat()
	defer input.Close()

	resizer.LetterBoxResize(rgb, &input, letterboxColor)

	outputs, err := rt.Inference(input)

	if err != nil {
		return nil, fmt.Errorf("error running inference: %w", err)
	}

	defer func() {
		if err := outputs.Free(); err != nil {
			e.log.Warn("error freeing outputs", zap.Error(err))
		}
	}()

	tensors, err := outputs.PoseTensors()

	if err != nil {
		return nil, err
	}

	return e.decoder.Decode(tensors, resizer)
}

// EstimateSingle returns the highest scoring pose in the frame or
// posematch.ErrNoPose
func (e *Estimator) EstimateSingle(ctx context.Context, f posematch.Frame) (posematch.Pose, error) {

	poses, err := e.Estimate(ctx, f)

	if err != nil {
		return posematch.Pose{}, err
	}

	best, ok := posematch.Best(poses)

	if !ok {
		return posematch.Pose{}, posematch.ErrNoPose
	}

	return best, nil
}

// Query writes the model details of one pooled runtime
func (e *Estimator) Query(ctx context.Context, w io.Writer) error {

	e.mu.RLock()
	pool := e.pool
	e.mu.RUnlock()

	if pool == nil {
		return posematch.ErrModelNotReady
	}

	rt, err := pool.Get(ctx)

	if err != nil {
		return err
	}

	defer pool.Return(rt)

	return rt.Query(w)
}

// Close releases the runtimes
func (e *Estimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}

	return nil
}
