package posematch

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/stat"
)

// Space selects the coordinate space keypoint vectors are compared in
type Space int

const (
	// SpacePixel compares raw pixel positions taken as vectors from the
	// image origin.  Scores are sensitive to where the subject stands in
	// the frame.
	SpacePixel Space = iota
	// SpaceCentred subtracts each pose's centroid of matched keypoints
	// before comparing, so scores only depend on the shape of the pose
	SpaceCentred
)

// String returns the configuration name of the space
func (s Space) String() string {
	switch s {
	case SpacePixel:
		return "pixel"
	case SpaceCentred:
		return "centred"
	default:
		return "unknown"
	}
}

// Result is the outcome of comparing a candidate pose to a reference
type Result struct {
	// Score is the mean cosine similarity over matched parts in [-1, 1].
	// It is zero when OK is false.
	Score float64
	// OK is false when no body part could be compared, in which case the
	// score carries no meaning and must not be shown as an alignment value
	OK bool
	// Matched is the number of parts that contributed to Score
	Matched int
	// Cleaned is the candidate pose reduced to the matched keypoints
	Cleaned Pose
}

// Grade returns the alignment band of the result
func (r Result) Grade() Grade {
	return GradeFor(r)
}

// Scorer compares candidate poses against a reference pose
type Scorer struct {
	// Threshold is the keypoint confidence filter applied to both poses
	Threshold float64
	// Space is the coordinate space vectors are compared in
	Space Space
}

// NewScorer returns a Scorer using the default threshold and pixel space
func NewScorer() Scorer {
	return Scorer{Threshold: DefaultThreshold, Space: SpacePixel}
}

// Score compares the candidate against the reference in pixel space.  Both
// poses are filtered by threshold, then every surviving candidate keypoint
// whose part also survived in the reference contributes the cosine of the
// angle between its position vector and the reference's.  The result score
// is the mean over contributing parts.
func Score(reference, candidate Pose, threshold float64) Result {
	return Scorer{Threshold: threshold}.Score(reference, candidate)
}

// Score compares candidate against reference
func (s Scorer) Score(reference, candidate Pose) Result {

	ref := Filter(reference, s.Threshold)
	cand := Filter(candidate, s.Threshold)

	// index reference by part, the first keypoint for a part wins
	refByPart := make(map[Part]Point, len(ref.Keypoints))

	for _, kp := range ref.Keypoints {
		if _, ok := refByPart[kp.Part]; !ok {
			refByPart[kp.Part] = kp.Position
		}
	}

	type pair struct {
		kp  Keypoint
		ref r2.Point
	}

	pairs := make([]pair, 0, len(cand.Keypoints))
	seen := make(map[Part]bool, len(cand.Keypoints))

	for _, kp := range cand.Keypoints {
		pos, ok := refByPart[kp.Part]

		if !ok || seen[kp.Part] {
			continue
		}

		// corrupt coordinates must not reach the centroid or the mean
		if !finitePoint(pos) || !finitePoint(kp.Position) {
			continue
		}

		seen[kp.Part] = true
		pairs = append(pairs, pair{kp: kp, ref: pos.Vec()})
	}

	var refOrigin, candOrigin r2.Point

	if s.Space == SpaceCentred && len(pairs) > 0 {
		rx := make([]float64, len(pairs))
		ry := make([]float64, len(pairs))
		cx := make([]float64, len(pairs))
		cy := make([]float64, len(pairs))

		for i, p := range pairs {
			rx[i], ry[i] = p.ref.X, p.ref.Y
			cx[i], cy[i] = p.kp.Position.X, p.kp.Position.Y
		}

		refOrigin = r2.Point{X: stat.Mean(rx, nil), Y: stat.Mean(ry, nil)}
		candOrigin = r2.Point{X: stat.Mean(cx, nil), Y: stat.Mean(cy, nil)}
	}

	sims := make([]float64, 0, len(pairs))
	matched := make([]Keypoint, 0, len(pairs))

	for _, p := range pairs {
		sim, ok := cosine(p.ref.Sub(refOrigin), p.kp.Position.Vec().Sub(candOrigin))

		if !ok {
			continue
		}

		sims = append(sims, sim)
		matched = append(matched, p.kp)
	}

	res := Result{
		Matched: len(sims),
		Cleaned: Pose{Score: candidate.Score, Keypoints: matched},
	}

	if len(sims) == 0 {
		return res
	}

	res.Score = stat.Mean(sims, nil)
	res.OK = true

	return res
}

// cosine returns the cosine of the angle between a and b.  The bool is false
// when either vector has zero length or a non-finite coordinate and the angle
// is undefined.
func cosine(a, b r2.Point) (float64, bool) {

	na := a.Norm()
	nb := b.Norm()

	if na == 0 || nb == 0 || !finite(na) || !finite(nb) {
		return 0, false
	}

	c := a.Dot(b) / (na * nb)

	if !finite(c) {
		return 0, false
	}

	// rounding can push parallel vectors fractionally outside [-1, 1]
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}

	return c, true
}

func finitePoint(p Point) bool {
	return finite(p.X) && finite(p.Y)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseSpace returns the Space with the given configuration name
func ParseSpace(name string) (Space, error) {
	switch name {
	case "", "pixel":
		return SpacePixel, nil
	case "centred", "centered":
		return SpaceCentred, nil
	default:
		return SpacePixel, fmt.Errorf("unknown coordinate space %q", name)
	}
}
