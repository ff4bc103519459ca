// Package session runs the live pose comparison loop.  A Session pulls
// frames from a source at a fixed rate, estimates poses, scores the best one
// against the captured reference and hands the result to a renderer.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/logger"
	"github.com/swdee/go-posematch/metrics"
	"go.uber.org/zap"
)

var (
	// ErrRunning is returned when Run is called on a session already running
	ErrRunning = errors.New("session already running")
	// ErrClosed is returned when Run is called after Close
	ErrClosed = errors.New("session closed")
)

// Session owns the frame loop and the reference pose
type Session struct {
	source    posematch.FrameSource
	estimator posematch.PoseEstimator
	renderer  posematch.Renderer
	decoder   posematch.ImageDecoder

	scorer      posematch.Scorer
	interval    time.Duration
	refHeight   int
	historySize int
	permission  func(ctx context.Context) error

	log     *zap.Logger
	metrics *metrics.Collector

	state     atomic.Int32
	reference atomic.Pointer[posematch.Pose]

	// mu guards history, subscribers and closed
	mu        sync.Mutex
	history   ringbuffer.RingT[Update]
	lastValid *Update
	subs      map[chan Update]struct{}
	closed    bool

	// runMu guards the running loop handles
	runMu     sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	shutdown  bool
	closeOnce sync.Once
	closeErr  error
}

// New returns a Session reading frames from source and estimating poses
// with estimator
func New(source posematch.FrameSource, estimator posematch.PoseEstimator, opts ...Option) *Session {

	s := &Session{
		source:      source,
		estimator:   estimator,
		scorer:      posematch.NewScorer(),
		interval:    time.Second / DefaultTargetFPS,
		refHeight:   DefaultReferenceHeight,
		historySize: DefaultHistorySize,
		log:         logger.Log(),
		subs:        make(map[chan Update]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.Named("session")
	s.history = ringbuffer.NewRingT[Update](s.historySize)

	return s
}

// State returns the current lifecycle stage
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Interval is the wait between the end of one iteration and the start of
// the next
func (s *Session) Interval() time.Duration {
	return s.interval
}

// Run starts the session and blocks running the frame loop until ctx is
// cancelled, Close is called or the frame source is exhausted.  A missing
// frame source or estimator, a denied permission or a model that fails to
// load is returned before the loop starts.
func (s *Session) Run(ctx context.Context) error {

	if s.source == nil {
		return posematch.ErrNoFrameSource
	}

	if s.estimator == nil {
		return posematch.ErrNoEstimator
	}

	s.runMu.Lock()

	if s.shutdown {
		s.runMu.Unlock()
		return ErrClosed
	}

	if s.done != nil {
		s.runMu.Unlock()
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.runMu.Unlock()

	defer func() {
		cancel()
		s.setState(StateIdle)

		s.runMu.Lock()
		s.cancel = nil
		s.done = nil
		s.runMu.Unlock()

		close(done)
	}()

	if err := s.start(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return err
	}

	return s.loop(ctx)
}

// start walks the startup states, each must succeed before the next
func (s *Session) start(ctx context.Context) error {

	s.setState(StateWaitingForPermission)

	if s.permission != nil {
		if err := s.permission(ctx); err != nil {
			return fmt.Errorf("camera permission not granted: %w", err)
		}
	}

	s.setState(StateWaitingForModel)

	if l, ok := s.estimator.(posematch.Loader); ok {
		if err := l.Load(ctx); err != nil {
			return fmt.Errorf("error loading pose model: %w", err)
		}
	}

	s.setState(StateRunning)

	s.log.Info("frame loop started",
		zap.Duration("interval", s.interval),
		zap.Float64("threshold", s.scorer.Threshold),
		zap.Stringer("space", s.scorer.Space))

	return nil
}

func (s *Session) loop(ctx context.Context) error {

	// the first frame is taken straight away
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("frame loop stopped")
			return nil

		case <-timer.C:
		}

		if err := s.iterate(ctx); err != nil {
			return err
		}

		// the wait is measured from the end of the iteration so a slow
		// estimate never causes iterations to overlap
		timer.Reset(s.interval)
	}
}

// iterate processes one frame.  It only returns an error that should stop
// the loop, all other failures are logged and counted.
func (s *Session) iterate(ctx context.Context) error {

	start := time.Now()
	defer func() {
		s.metrics.ObserveIteration(time.Since(start))
	}()

	frame, err := s.source.Next(ctx)

	if err != nil {
		if errors.Is(err, posematch.ErrSourceExhausted) {
			s.log.Info("frame source exhausted")
			return err
		}

		if ctx.Err() == nil {
			s.log.Warn("no frame available", zap.Error(err))
			s.metrics.FrameSkipped(metrics.SkipNoFrame)
		}

		return nil
	}

	s.metrics.FrameAcquired()

	defer func() {
		if err := frame.Release(); err != nil {
			s.log.Warn("error releasing frame", zap.Error(err))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recovered panic processing frame",
				zap.Any("panic", r), zap.Stack("stack"))
			s.metrics.EstimateFailed()
			s.metrics.FrameSkipped(metrics.SkipEstimate)
			s.setState(StateRunning)
		}
	}()

	s.process(ctx, frame)

	return nil
}

func (s *Session) process(ctx context.Context, frame posematch.Frame) {

	poses, err := s.estimator.Estimate(ctx, frame)

	if err != nil {
		if ctx.Err() != nil {
			return
		}

		s.log.Warn("pose estimation failed", zap.Error(err))
		s.metrics.EstimateFailed()
		s.metrics.FrameSkipped(metrics.SkipEstimate)
		return
	}

	best, ok := posematch.Best(poses)

	if !ok {
		s.metrics.FrameSkipped(metrics.SkipNoPose)
		return
	}

	ref := s.reference.Load()

	if ref == nil {
		s.metrics.FrameSkipped(metrics.SkipNoReference)
		return
	}

	s.setState(StateScoring)
	res := s.scorer.Score(*ref, best)
	s.setState(StateRunning)

	if res.OK {
		s.metrics.ObserveScore(res.Score, res.Matched)
	}

	if s.renderer != nil {
		if err := s.renderer.Render(res); err != nil {
			s.log.Warn("error rendering result", zap.Error(err))
			s.metrics.FrameSkipped(metrics.SkipRender)
		}
	}

	s.publish(newUpdate(res, len(poses)))
}

// Close stops the frame loop, waits for it to exit and releases the
// renderer.  It is safe to call more than once.
func (s *Session) Close() error {

	s.runMu.Lock()
	s.shutdown = true
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.closeOnce.Do(func() {
		s.closeSubscribers()

		if c, ok := s.renderer.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})

	return s.closeErr
}
