package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {

	c := New()

	c.FrameAcquired()
	c.FrameAcquired()
	c.FrameSkipped(SkipNoPose)
	c.EstimateFailed()
	c.ObserveScore(0.93, 11)
	c.ObserveIteration(20 * time.Millisecond)
	c.Captured(nil)
	c.Captured(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesSkipped.WithLabelValues(SkipNoPose)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.estimateErrors))
	assert.Equal(t, 0.93, testutil.ToFloat64(c.score))
	assert.Equal(t, 11.0, testutil.ToFloat64(c.matchedParts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captures.WithLabelValues("error")))
}

func TestNilCollector(t *testing.T) {

	var c *Collector

	assert.NotPanics(t, func() {
		c.FrameAcquired()
		c.FrameSkipped(SkipNoFrame)
		c.EstimateFailed()
		c.ObserveScore(1, 1)
		c.ObserveIteration(time.Second)
		c.Captured(nil)
	})
}

func TestHandler(t *testing.T) {

	c := New()
	c.FrameAcquired()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "posematch_frames_total 1"))
}

func TestWatchProcessStops(t *testing.T) {

	c := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, c.WatchProcess(ctx, 10*time.Millisecond))
	assert.Greater(t, testutil.ToFloat64(c.memUsage), 0.0)
}
