package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-posematch"
)

// identityMapper leaves model coordinates unchanged
type identityMapper struct{}

func (identityMapper) ToSource(x, y float32) posematch.Point {
	return posematch.Point{X: float64(x), Y: float64(y)}
}

// emptyStride returns a stride tensor where no cell passes the box threshold
func emptyStride(gridH, gridW int) QuantTensor {

	data := make([]int8, 65*gridH*gridW)

	for i := 64 * gridH * gridW; i < len(data); i++ {
		data[i] = -128
	}

	return QuantTensor{Data: data, ZP: 0, Scale: 0.1, GridH: gridH, GridW: gridW}
}

// setClass sets the class logit of a cell
func setClass(s QuantTensor, h, w int, logit int8) {
	s.Data[64*s.GridH*s.GridW+h*s.GridW+w] = logit
}

// testTensors returns outputs for a 32x32 model input with strides 8, 16
// and 32, 21 anchors in total
func testTensors() Tensors {
	return Tensors{
		InputWidth:  32,
		InputHeight: 32,
		Strides:     []QuantTensor{emptyStride(4, 4), emptyStride(2, 2), emptyStride(1, 1)},
		KeyPoints:   make([]float32, 17*3*21),
	}
}

func setKeyPoint(t Tensors, anchor, j int, x, y, score float32) {
	anchors := 21
	t.KeyPoints[j*3*anchors+0*anchors+anchor] = x
	t.KeyPoints[j*3*anchors+1*anchors+anchor] = y
	t.KeyPoints[j*3*anchors+2*anchors+anchor] = score
}

func TestYOLOv8PoseDecode(t *testing.T) {

	yolo, err := NewYOLOv8Pose(YOLOv8PoseCOCOParams(), nil)
	require.NoError(t, err)

	tensors := testTensors()

	// strongest detection at stride 8 cell (1,2), anchor 6
	setClass(tensors.Strides[0], 1, 2, 30)
	// overlapping weaker neighbour at cell (1,1) is suppressed
	setClass(tensors.Strides[0], 1, 1, 20)
	// large box at stride 32, anchor 20
	setClass(tensors.Strides[2], 0, 0, 10)

	for j := 0; j < 17; j++ {
		score := float32(0.9)

		if j == 16 {
			score = 0.1
		}

		setKeyPoint(tensors, 6, j, float32(10+j), 12, score)
		setKeyPoint(tensors, 20, j, 100, 200, 0.5)
	}

	poses, err := yolo.Decode(tensors, identityMapper{})
	require.NoError(t, err)
	require.Len(t, poses, 2)

	assert.InDelta(t, 0.9526, poses[0].Score, 1e-3)
	assert.InDelta(t, 0.7311, poses[1].Score, 1e-3)

	require.Len(t, poses[0].Keypoints, 17)

	nose := poses[0].Keypoints[0]
	assert.Equal(t, posematch.Nose, nose.Part)
	assert.Equal(t, posematch.Point{X: 10, Y: 12}, nose.Position)
	assert.InDelta(t, 0.9, nose.Confidence, 1e-6)

	ankle := poses[0].Keypoints[16]
	assert.Equal(t, posematch.RightAnkle, ankle.Part)
	assert.Equal(t, posematch.Point{X: 26, Y: 12}, ankle.Position)
	assert.InDelta(t, 0.1, ankle.Confidence, 1e-6)

	assert.Equal(t, posematch.Point{X: 100, Y: 200}, poses[1].Keypoints[5].Position)
}

func TestYOLOv8PoseDecodeNothing(t *testing.T) {

	yolo, err := NewYOLOv8Pose(YOLOv8PoseCOCOParams(), nil)
	require.NoError(t, err)

	poses, err := yolo.Decode(testTensors(), identityMapper{})
	require.NoError(t, err)
	assert.NotNil(t, poses)
	assert.Empty(t, poses)
}

func TestYOLOv8PoseDecodeShortTensor(t *testing.T) {

	yolo, err := NewYOLOv8Pose(YOLOv8PoseCOCOParams(), nil)
	require.NoError(t, err)

	tensors := testTensors()
	tensors.KeyPoints = tensors.KeyPoints[:10]

	_, err = yolo.Decode(tensors, identityMapper{})
	assert.Error(t, err)
}

func TestYOLOv8PoseCustomParts(t *testing.T) {

	_, err := NewYOLOv8Pose(YOLOv8PoseCOCOParams(), []posematch.Part{posematch.Nose})
	assert.Error(t, err)

	// a model trained with left and right swapped
	parts := posematch.Parts()
	parts[1], parts[2] = parts[2], parts[1]

	yolo, err := NewYOLOv8Pose(YOLOv8PoseCOCOParams(), parts)
	require.NoError(t, err)

	tensors := testTensors()
	setClass(tensors.Strides[1], 0, 0, 30)
	poses, err := yolo.Decode(tensors, identityMapper{})

	require.NoError(t, err)
	require.Len(t, poses, 1)
	assert.Equal(t, posematch.RightEye, poses[0].Keypoints[1].Part)
}
