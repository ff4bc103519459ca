package session

import (
	"context"
	"time"

	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/metrics"
	"go.uber.org/zap"
)

// default session settings
const (
	DefaultTargetFPS       = 10
	DefaultReferenceHeight = 500
	DefaultHistorySize     = 64
)

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger, the package logger is used otherwise
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records loop activity on the collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithRenderer presents every scored result.  If the renderer implements
// io.Closer it is closed when the session is closed.
func WithRenderer(r posematch.Renderer) Option {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithDecoder sets the still image decoder used by Capture
func WithDecoder(d posematch.ImageDecoder) Option {
	return func(s *Session) {
		s.decoder = d
	}
}

// WithScorer replaces the scorer, including its threshold and space
func WithScorer(sc posematch.Scorer) Option {
	return func(s *Session) {
		s.scorer = sc
	}
}

// WithThreshold sets the keypoint confidence filter
func WithThreshold(thr float64) Option {
	return func(s *Session) {
		s.scorer.Threshold = thr
	}
}

// WithSpace sets the scoring coordinate space
func WithSpace(sp posematch.Space) Option {
	return func(s *Session) {
		s.scorer.Space = sp
	}
}

// WithTargetFPS sets the frame loop rate, values below one are ignored
func WithTargetFPS(fps int) Option {
	return func(s *Session) {
		if fps > 0 {
			s.interval = time.Second / time.Duration(fps)
		}
	}
}

// WithReferenceHeight sets the pixel height reference stills are scaled to
func WithReferenceHeight(h int) Option {
	return func(s *Session) {
		if h > 0 {
			s.refHeight = h
		}
	}
}

// WithPermission sets a function that must succeed before the loop starts,
// such as a camera access prompt
func WithPermission(fn func(ctx context.Context) error) Option {
	return func(s *Session) {
		s.permission = fn
	}
}

// WithHistorySize sets how many updates are kept
func WithHistorySize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.historySize = n
		}
	}
}
