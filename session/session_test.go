package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/metrics"
	"go.uber.org/zap/zaptest"
)

func newTestSession(t *testing.T, src posematch.FrameSource, est posematch.PoseEstimator, opts ...Option) *Session {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t)), WithMetrics(metrics.New())}, opts...)

	return New(src, est, opts...)
}

func TestRunPreconditions(t *testing.T) {

	ctx := context.Background()

	s := newTestSession(t, nil, &fakeEstimator{})
	assert.ErrorIs(t, s.Run(ctx), posematch.ErrNoFrameSource)

	src := &fakeSource{}
	s = newTestSession(t, src, nil)
	assert.ErrorIs(t, s.Run(ctx), posematch.ErrNoEstimator)

	assert.Zero(t, src.acquired.Load())
	assert.Equal(t, StateIdle, s.State())
}

func TestFrameReleasedOnEveryPath(t *testing.T) {

	tests := []struct {
		name     string
		estimate func() ([]posematch.Pose, error)
		rendered int
	}{
		{
			name:     "scored",
			estimate: staticPoses(standing()),
			rendered: 1,
		},
		{
			name:     "no poses",
			estimate: staticPoses(),
		},
		{
			name: "estimate error",
			estimate: func() ([]posematch.Pose, error) {
				return nil, errBoom
			},
		},
		{
			name: "estimate panic",
			estimate: func() ([]posematch.Pose, error) {
				panic("model crashed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			src := &fakeSource{}
			r := &fakeRenderer{}
			s := newTestSession(t, src, &fakeEstimator{estimate: tt.estimate}, WithRenderer(r))
			s.SetReference(standing())

			require.NoError(t, s.iterate(context.Background()))

			assert.EqualValues(t, 1, src.acquired.Load())
			assert.EqualValues(t, 1, src.released.Load())
			assert.Equal(t, tt.rendered, r.Count())
		})
	}
}

func TestSkipWithoutReference(t *testing.T) {

	src := &fakeSource{}
	r := &fakeRenderer{}
	s := newTestSession(t, src, &fakeEstimator{estimate: staticPoses(standing())}, WithRenderer(r))

	require.NoError(t, s.iterate(context.Background()))

	assert.Zero(t, r.Count())
	_, ok := s.LastUpdate()
	assert.False(t, ok)
	assert.EqualValues(t, 1, src.released.Load())
}

func TestIdenticalPoseScoresOne(t *testing.T) {

	r := &fakeRenderer{}
	s := newTestSession(t, &fakeSource{}, &fakeEstimator{estimate: staticPoses(standing())}, WithRenderer(r))
	s.SetReference(standing())

	require.NoError(t, s.iterate(context.Background()))

	require.Equal(t, 1, r.Count())
	res := r.Last()
	assert.True(t, res.OK)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, 5, res.Matched)

	u, ok := s.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, "aligned", u.Label)
	assert.Equal(t, 1, u.Poses)
}

func TestHighestScoringPoseIsCompared(t *testing.T) {

	other := posematch.Pose{
		Score: 0.5,
		Keypoints: []posematch.Keypoint{
			kp(posematch.Nose, -320, -80, 0.95),
			kp(posematch.LeftShoulder, -360, -160, 0.9),
		},
	}

	r := &fakeRenderer{}
	s := newTestSession(t, &fakeSource{}, &fakeEstimator{estimate: staticPoses(other, standing())}, WithRenderer(r))
	s.SetReference(standing())

	require.NoError(t, s.iterate(context.Background()))

	assert.InDelta(t, 1.0, r.Last().Score, 1e-9)
}

func TestRunCadenceAndTeardown(t *testing.T) {

	src := &fakeSource{}
	est := &fakeEstimator{estimate: staticPoses(standing())}
	r := &fakeRenderer{}
	s := newTestSession(t, src, est, WithRenderer(r), WithTargetFPS(100))
	s.SetReference(standing())

	errc := make(chan error, 1)

	go func() {
		errc <- s.Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		return r.Count() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, est.loaded.Load())
	assert.ErrorIs(t, s.Run(context.Background()), ErrRunning)

	require.NoError(t, s.Close())

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	n := r.Count()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, n, r.Count(), "loop must not re-arm after Close")
	assert.True(t, r.closed.Load())
	assert.Equal(t, src.acquired.Load(), src.released.Load())
	assert.Equal(t, StateIdle, s.State())
	assert.ErrorIs(t, s.Run(context.Background()), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestIntervalMeasuredFromIterationEnd(t *testing.T) {

	est := &fakeEstimator{estimate: func() ([]posematch.Pose, error) {
		time.Sleep(50 * time.Millisecond)
		return []posematch.Pose{standing()}, nil
	}}

	r := &fakeRenderer{}
	s := newTestSession(t, &fakeSource{}, est, WithRenderer(r), WithTargetFPS(20))
	s.SetReference(standing())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.Run(ctx))

	// each iteration takes 50ms of work plus a 50ms wait
	assert.LessOrEqual(t, r.Count(), 4)
	assert.GreaterOrEqual(t, r.Count(), 1)
}

func TestRunStopsWhenSourceExhausted(t *testing.T) {

	src := &fakeSource{err: posematch.ErrSourceExhausted}
	s := newTestSession(t, src, &fakeEstimator{estimate: staticPoses()})

	assert.ErrorIs(t, s.Run(context.Background()), posematch.ErrSourceExhausted)
	assert.Equal(t, StateIdle, s.State())
}

func TestRunSurvivesMissingFrames(t *testing.T) {

	src := &fakeSource{err: errBoom}
	s := newTestSession(t, src, &fakeEstimator{estimate: staticPoses()}, WithTargetFPS(100))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.Run(ctx))
}

func TestStartupSequence(t *testing.T) {

	t.Run("permission denied", func(t *testing.T) {
		est := &fakeEstimator{estimate: staticPoses()}
		s := newTestSession(t, &fakeSource{}, est, WithPermission(func(ctx context.Context) error {
			return errBoom
		}))

		assert.ErrorIs(t, s.Run(context.Background()), errBoom)
		assert.False(t, est.loaded.Load())
	})

	t.Run("model load fails", func(t *testing.T) {
		src := &fakeSource{}
		est := &fakeEstimator{estimate: staticPoses(), loadErr: errBoom}
		s := newTestSession(t, src, est)

		assert.ErrorIs(t, s.Run(context.Background()), errBoom)
		assert.Zero(t, src.acquired.Load())
	})

	t.Run("states in order", func(t *testing.T) {
		var seen []State

		est := &fakeEstimator{estimate: staticPoses(), loadErr: errBoom}
		s := newTestSession(t, &fakeSource{}, est, WithPermission(func(ctx context.Context) error {
			return nil
		}))

		est.onLoad = func() {
			seen = append(seen, s.State())
		}

		assert.Error(t, s.Run(context.Background()))
		assert.Equal(t, []State{StateWaitingForModel}, seen)
	})
}

func TestLastScoreSurvivesUnscoredFrames(t *testing.T) {

	poses := []posematch.Pose{standing()}
	est := &fakeEstimator{estimate: func() ([]posematch.Pose, error) {
		return poses, nil
	}}

	s := newTestSession(t, &fakeSource{}, est, WithRenderer(&fakeRenderer{}))
	s.SetReference(standing())

	ctx := context.Background()
	require.NoError(t, s.iterate(ctx))

	// only a part the reference does not have
	poses = []posematch.Pose{{Score: 0.8, Keypoints: []posematch.Keypoint{kp(posematch.LeftAnkle, 10, 10, 0.9)}}}
	require.NoError(t, s.iterate(ctx))

	u, ok := s.LastUpdate()
	require.True(t, ok)
	assert.False(t, u.OK)
	assert.Equal(t, "none", u.Label)

	last, ok := s.LastScore()
	require.True(t, ok)
	assert.InDelta(t, 1.0, last.Score, 1e-9)
}

func TestHistoryIsBounded(t *testing.T) {

	tests := []struct {
		name  string
		opts  []Option
		size  int
		iters int
	}{
		{name: "two", opts: []Option{WithHistorySize(2)}, size: 2, iters: 3},
		{name: "three", opts: []Option{WithHistorySize(3)}, size: 3, iters: 7},
		{name: "ten", opts: []Option{WithHistorySize(10)}, size: 10, iters: 25},
		{name: "default", size: DefaultHistorySize, iters: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			var s *Session

			require.NotPanics(t, func() {
				s = newTestSession(t, &fakeSource{}, &fakeEstimator{estimate: staticPoses(standing())}, tt.opts...)
			})

			s.SetReference(standing())

			var last Update

			for i := 0; i < tt.iters; i++ {
				require.NoError(t, s.iterate(context.Background()))
				last, _ = s.LastUpdate()
			}

			history := s.History()
			require.Len(t, history, tt.size)
			assert.Equal(t, last.Time, history[len(history)-1].Time)
		})
	}
}

func TestSubscribe(t *testing.T) {

	s := newTestSession(t, &fakeSource{}, &fakeEstimator{estimate: staticPoses(standing())})
	s.SetReference(standing())

	updates, stop := s.Subscribe(1)
	other, _ := s.Subscribe(4)

	ctx := context.Background()
	require.NoError(t, s.iterate(ctx))
	// subscriber buffer is full, publishing must not block
	require.NoError(t, s.iterate(ctx))

	u := <-updates
	assert.True(t, u.OK)

	stop()
	_, open := <-updates
	assert.False(t, open)

	assert.Len(t, other, 2)
	require.NoError(t, s.Close())

	for range other {
	}

	closed, _ := s.Subscribe(1)
	_, open = <-closed
	assert.False(t, open)
}

func TestClearReference(t *testing.T) {

	s := newTestSession(t, &fakeSource{}, &fakeEstimator{})
	s.SetReference(standing())

	_, ok := s.Reference()
	assert.True(t, ok)

	s.ClearReference()
	_, ok = s.Reference()
	assert.False(t, ok)
}
