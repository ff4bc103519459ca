package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/swdee/go-posematch"
	"go.uber.org/zap"
)

// ErrNoDecoder is returned by Capture when no image decoder is configured
var ErrNoDecoder = errors.New("no image decoder configured")

// Reference returns the published reference pose
func (s *Session) Reference() (posematch.Pose, bool) {
	ref := s.reference.Load()

	if ref == nil {
		return posematch.Pose{}, false
	}

	return *ref, true
}

// SetReference publishes a reference pose, replacing any previous one
func (s *Session) SetReference(p posematch.Pose) {
	ref := p.Clone()
	s.reference.Store(&ref)
}

// ClearReference removes the reference, frames are skipped until a new one
// is set
func (s *Session) ClearReference() {
	s.reference.Store(nil)
}

// Capture estimates the pose in an encoded still image and publishes it as
// the reference.  The image is scaled to the reference height first.  On any
// failure the previous reference stays in place.
func (s *Session) Capture(ctx context.Context, still []byte) (pose posematch.Pose, err error) {

	defer func() {
		s.metrics.Captured(err)
	}()

	if s.decoder == nil {
		return posematch.Pose{}, ErrNoDecoder
	}

	if s.estimator == nil {
		return posematch.Pose{}, posematch.ErrNoEstimator
	}

	frame, err := s.decoder.Decode(still, s.refHeight)

	if err != nil {
		return posematch.Pose{}, fmt.Errorf("error decoding reference image: %w", err)
	}

	defer func() {
		if rerr := frame.Release(); rerr != nil {
			s.log.Warn("error releasing reference frame", zap.Error(rerr))
		}
	}()

	pose, err = s.estimator.EstimateSingle(ctx, frame)

	if err != nil {
		return posematch.Pose{}, fmt.Errorf("error estimating reference pose: %w", err)
	}

	kept := posematch.Filter(pose, s.scorer.Threshold)

	if kept.Len() == 0 {
		return posematch.Pose{}, fmt.Errorf("reference has no keypoints above %.2f: %w",
			s.scorer.Threshold, posematch.ErrNoPose)
	}

	s.SetReference(pose)

	s.log.Info("reference captured",
		zap.Float64("score", pose.Score),
		zap.Int("keypoints", kept.Len()))

	return pose, nil
}

// CaptureBase64 is Capture for a base64 image, optionally as a data URL
func (s *Session) CaptureBase64(ctx context.Context, image string) (posematch.Pose, error) {

	data, err := posematch.DecodeImageBase64(image)

	if err != nil {
		s.metrics.Captured(err)
		return posematch.Pose{}, err
	}

	return s.Capture(ctx, data)
}
