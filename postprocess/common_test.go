package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigmoidInverse(t *testing.T) {

	for _, v := range []float32{0.1, 0.25, 0.5, 0.9} {
		assert.InDelta(t, v, sigmoid(unsigmoid(v)), 1e-5)
	}
}

func TestQuantization(t *testing.T) {

	tests := []struct {
		f32   float32
		zp    int32
		scale float32
		qnt   int8
	}{
		{0, 0, 0.1, 0},
		{2, -10, 0.5, -6},
		{100, 0, 0.1, 127},
		{-100, 0, 0.1, -128},
	}

	for _, tc := range tests {
		got := qntF32ToAffine(tc.f32, tc.zp, tc.scale)

		if got != tc.qnt {
			t.Errorf("qntF32ToAffine(%v, %d, %v) expected %d, got %d",
				tc.f32, tc.zp, tc.scale, tc.qnt, got)
		}
	}

	assert.InDelta(t, 2.0, deqntAffineToF32(-6, -10, 0.5), 1e-6)
}

func TestSoftmax(t *testing.T) {

	v := []float32{1, 2, 3, 4}
	softmax(v, len(v))

	var sum float32

	for i, x := range v {
		sum += x

		if i > 0 {
			assert.Greater(t, x, v[i-1])
		}
	}

	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestQuickSortIndiceInverse(t *testing.T) {

	probs := []float32{0.2, 0.9, 0.5, 0.7}
	idx := []int{0, 1, 2, 3}

	quickSortIndiceInverse(probs, 0, len(probs)-1, idx)

	assert.Equal(t, []float32{0.9, 0.7, 0.5, 0.2}, probs)
	assert.Equal(t, []int{1, 3, 2, 0}, idx)
}

func TestNMS(t *testing.T) {

	// x, y, w, h, anchor
	boxes := []float32{
		0, 0, 100, 100, 0,
		5, 5, 100, 100, 1,
		300, 300, 50, 50, 2,
		0, 0, 100, 100, 3,
	}
	classes := []int{0, 0, 0, 1}
	order := []int{0, 1, 2, 3}

	nms(4, boxes, classes, order, 0, 0.4, boxStride)

	assert.Equal(t, []int{0, -1, 2, 3}, order)
}

func TestCalculateOverlap(t *testing.T) {

	assert.InDelta(t, 1.0, calculateOverlap(0, 0, 10, 10, 0, 0, 10, 10), 1e-6)
	assert.InDelta(t, 0.0, calculateOverlap(0, 0, 10, 10, 50, 50, 60, 60), 1e-6)
}
