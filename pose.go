package posematch

import (
	"github.com/golang/geo/r2"
)

// DefaultThreshold is the minimum keypoint confidence a keypoint must exceed
// to take part in scoring and rendering
const DefaultThreshold = 0.32

// Point is a position in image pixel coordinates with the origin at the top
// left of the frame
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec returns the point as a vector from the image origin
func (p Point) Vec() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Keypoint is a single detected body landmark
type Keypoint struct {
	// Part is the body part label
	Part Part `json:"part"`
	// Position is the landmark location in pixels
	Position Point `json:"position"`
	// Confidence is the model's confidence in the landmark from 0 to 1
	Confidence float64 `json:"score"`
}

// Pose is a set of keypoints detected for one person.  Poses are treated as
// values, operations on a Pose return a new Pose and never modify the
// keypoints of the one passed in.
type Pose struct {
	// Score is the overall detection confidence of the pose
	Score float64 `json:"score"`
	// Keypoints in detection order, at most one per Part
	Keypoints []Keypoint `json:"keypoints"`
}

// Find returns the keypoint for the given part
func (p Pose) Find(part Part) (Keypoint, bool) {
	for _, kp := range p.Keypoints {
		if kp.Part == part {
			return kp, true
		}
	}

	return Keypoint{}, false
}

// Has reports whether the pose contains a keypoint for part
func (p Pose) Has(part Part) bool {
	_, ok := p.Find(part)
	return ok
}

// Len returns the number of keypoints in the pose
func (p Pose) Len() int {
	return len(p.Keypoints)
}

// Clone returns a deep copy of the pose
func (p Pose) Clone() Pose {
	kps := make([]Keypoint, len(p.Keypoints))
	copy(kps, p.Keypoints)

	return Pose{Score: p.Score, Keypoints: kps}
}

// Filter returns a new pose holding only the keypoints with a confidence
// strictly greater than threshold.  Keypoint order and the overall pose
// score are preserved.
func Filter(p Pose, threshold float64) Pose {

	kept := make([]Keypoint, 0, len(p.Keypoints))

	for _, kp := range p.Keypoints {
		if kp.Confidence > threshold {
			kept = append(kept, kp)
		}
	}

	return Pose{Score: p.Score, Keypoints: kept}
}

// Best returns the highest scoring pose, the first one wins on ties.  The
// bool is false when poses is empty.
func Best(poses []Pose) (Pose, bool) {

	if len(poses) == 0 {
		return Pose{}, false
	}

	best := 0

	for i := 1; i < len(poses); i++ {
		if poses[i].Score > poses[best].Score {
			best = i
		}
	}

	return poses[best], true
}
