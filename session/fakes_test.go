package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/swdee/go-posematch"
)

type fakeFrame struct {
	released *atomic.Int32
}

func (f fakeFrame) Shape() posematch.Shape {
	return posematch.Shape{Width: 640, Height: 480, Channels: 3}
}

func (f fakeFrame) Release() error {
	f.released.Add(1)
	return nil
}

// fakeSource hands out frames and counts releases across all of them
type fakeSource struct {
	acquired atomic.Int32
	released atomic.Int32
	err      error
}

func (s *fakeSource) Next(ctx context.Context) (posematch.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}

	s.acquired.Add(1)

	return fakeFrame{released: &s.released}, nil
}

// fakeEstimator returns poses from a func
type fakeEstimator struct {
	estimate func() ([]posematch.Pose, error)
	single   func() (posematch.Pose, error)
	loadErr  error
	loaded   atomic.Bool
	onLoad   func()
}

func (e *fakeEstimator) Load(ctx context.Context) error {
	if e.onLoad != nil {
		e.onLoad()
	}

	if e.loadErr != nil {
		return e.loadErr
	}

	e.loaded.Store(true)

	return nil
}

func (e *fakeEstimator) Estimate(ctx context.Context, f posematch.Frame) ([]posematch.Pose, error) {
	return e.estimate()
}

func (e *fakeEstimator) EstimateSingle(ctx context.Context, f posematch.Frame) (posematch.Pose, error) {
	return e.single()
}

func staticPoses(poses ...posematch.Pose) func() ([]posematch.Pose, error) {
	return func() ([]posematch.Pose, error) {
		return poses, nil
	}
}

type fakeRenderer struct {
	mu      sync.Mutex
	results []posematch.Result
	err     error
	closed  atomic.Bool
}

func (r *fakeRenderer) Render(res posematch.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, res)

	return r.err
}

func (r *fakeRenderer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.results)
}

func (r *fakeRenderer) Last() posematch.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.results[len(r.results)-1]
}

func (r *fakeRenderer) Close() error {
	r.closed.Store(true)
	return nil
}

type fakeDecoder struct {
	released atomic.Int32
	err      error
	height   int
}

func (d *fakeDecoder) Decode(data []byte, height int) (posematch.Frame, error) {
	if d.err != nil {
		return nil, d.err
	}

	d.height = height

	return fakeFrame{released: &d.released}, nil
}

var errBoom = errors.New("boom")

func kp(part posematch.Part, x, y, conf float64) posematch.Keypoint {
	return posematch.Keypoint{Part: part, Position: posematch.Point{X: x, Y: y}, Confidence: conf}
}

// standing is a confident upper body pose
func standing() posematch.Pose {
	return posematch.Pose{
		Score: 0.9,
		Keypoints: []posematch.Keypoint{
			kp(posematch.Nose, 320, 80, 0.95),
			kp(posematch.LeftShoulder, 360, 160, 0.9),
			kp(posematch.RightShoulder, 280, 160, 0.9),
			kp(posematch.LeftElbow, 390, 240, 0.8),
			kp(posematch.RightElbow, 250, 240, 0.8),
		},
	}
}
