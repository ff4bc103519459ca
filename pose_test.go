package posematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kp(part Part, x, y, conf float64) Keypoint {
	return Keypoint{Part: part, Position: Point{X: x, Y: y}, Confidence: conf}
}

func TestFilter(t *testing.T) {

	tests := []struct {
		name      string
		pose      Pose
		threshold float64
		expected  []Part
	}{
		{
			name: "keeps confidence above threshold",
			pose: Pose{Score: 0.8, Keypoints: []Keypoint{
				kp(Nose, 1, 1, 0.9), kp(LeftEye, 2, 2, 0.2),
			}},
			threshold: 0.5,
			expected:  []Part{Nose},
		},
		{
			name: "equal to threshold is dropped",
			pose: Pose{Score: 0.8, Keypoints: []Keypoint{
				kp(Nose, 1, 1, 0.5), kp(LeftEye, 2, 2, 0.51),
			}},
			threshold: 0.5,
			expected:  []Part{LeftEye},
		},
		{
			name: "preserves order",
			pose: Pose{Score: 0.3, Keypoints: []Keypoint{
				kp(RightAnkle, 1, 1, 0.9), kp(Nose, 2, 2, 0.9), kp(LeftHip, 3, 3, 0.9),
			}},
			threshold: 0.32,
			expected:  []Part{RightAnkle, Nose, LeftHip},
		},
		{
			name:      "empty pose",
			pose:      Pose{Score: 0.1},
			threshold: 0.32,
			expected:  []Part{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Filter(tc.pose, tc.threshold)

			parts := make([]Part, 0, len(got.Keypoints))

			for _, k := range got.Keypoints {
				parts = append(parts, k.Part)
			}

			assert.Equal(t, tc.expected, parts)
			assert.Equal(t, tc.pose.Score, got.Score)
		})
	}
}

func TestFilterDoesNotModifyInput(t *testing.T) {

	in := Pose{Score: 0.5, Keypoints: []Keypoint{
		kp(Nose, 1, 1, 0.1), kp(LeftEye, 2, 2, 0.9),
	}}

	out := Filter(in, 0.32)
	out.Keypoints[0].Position.X = 99

	assert.Len(t, in.Keypoints, 2)
	assert.Equal(t, Nose, in.Keypoints[0].Part)
	assert.Equal(t, 2.0, in.Keypoints[1].Position.X)
}

func TestBest(t *testing.T) {

	_, ok := Best(nil)
	assert.False(t, ok)

	poses := []Pose{{Score: 0.4}, {Score: 0.9, Keypoints: []Keypoint{kp(Nose, 1, 1, 1)}}, {Score: 0.9}}
	best, ok := Best(poses)

	assert.True(t, ok)
	assert.Equal(t, 0.9, best.Score)
	assert.True(t, best.Has(Nose), "first pose wins on a tie")
}
