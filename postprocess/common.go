package postprocess

import (
	"github.com/chewxy/math32"
)

// deqntAffineToF32 converts a quantized int8 value back to a float32 using
// the provided zero point and scale
func deqntAffineToF32(qnt int8, zp int32, scale float32) float32 {
	return (float32(qnt) - float32(zp)) * scale
}

// qntF32ToAffine converts a float32 value to an int8 using quantization
// parameters: zero point and scale
func qntF32ToAffine(f32 float32, zp int32, scale float32) int8 {

	dstVal := (f32 / scale) + float32(zp)
	res := clip(dstVal, -128, 127)

	return int8(res)
}

// clip restricts the value x to be within the range min and max and converts
// the result to int
func clip(val, min, max float32) int {

	if val <= min {
		return int(min)
	}

	if val >= max {
		return int(max)
	}

	return int(val)
}

// sigmoid is the logistic function
func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// unsigmoid is the inverse of sigmoid
func unsigmoid(y float32) float32 {
	return -math32.Log(1/y - 1)
}

// softmax normalises the first size values of input in place
func softmax(input []float32, size int) {

	maxVal := input[0]

	for i := 1; i < size; i++ {
		if input[i] > maxVal {
			maxVal = input[i]
		}
	}

	var sum float32

	for i := 0; i < size; i++ {
		input[i] = math32.Exp(input[i] - maxVal)
		sum += input[i]
	}

	for i := 0; i < size; i++ {
		input[i] /= sum
	}
}

// quickSortIndiceInverse is a quick sort algorithm that sorts the objProbs
// vector in descending order and synchronously updates the indices vector to
// track the reordering of elements
func quickSortIndiceInverse(input []float32, left int, right int, indices []int) int {

	var key float32
	var keyIndex int

	low := left
	high := right

	if left < right {
		keyIndex = indices[left]
		key = input[left]

		for low < high {
			for low < high && input[high] <= key {
				high--
			}

			input[low] = input[high]
			indices[low] = indices[high]

			for low < high && input[low] >= key {
				low++
			}

			input[high] = input[low]
			indices[high] = indices[low]
		}

		input[low] = key
		indices[low] = keyIndex

		quickSortIndiceInverse(input, left, low-1, indices)
		quickSortIndiceInverse(input, low+1, right, indices)
	}

	return low
}

// nms implements Non-Maximum Suppression over boxes of the given class.
// Boxes are stored in outputLocations as boxStride values per box starting
// with x, y, w, h.  Suppressed entries of order are set to -1.
func nms(validCount int, outputLocations []float32, classIds, order []int,
	filterId int, threshold float32, boxStride int) {

	for i := 0; i < validCount; i++ {

		n := order[i]

		if n == -1 || classIds[n] != filterId {
			continue
		}

		for j := i + 1; j < validCount; j++ {
			m := order[j]

			if m == -1 || classIds[m] != filterId {
				continue
			}

			xmin0 := outputLocations[n*boxStride+0]
			ymin0 := outputLocations[n*boxStride+1]
			xmax0 := xmin0 + outputLocations[n*boxStride+2]
			ymax0 := ymin0 + outputLocations[n*boxStride+3]

			xmin1 := outputLocations[m*boxStride+0]
			ymin1 := outputLocations[m*boxStride+1]
			xmax1 := xmin1 + outputLocations[m*boxStride+2]
			ymax1 := ymin1 + outputLocations[m*boxStride+3]

			iou := calculateOverlap(xmin0, ymin0, xmax0, ymax0, xmin1, ymin1, xmax1, ymax1)

			if iou > threshold {
				order[j] = -1
			}
		}
	}
}

// calculateOverlap works out the Intersection of Union (IoU) value of two
// boxes dimensions
func calculateOverlap(xmin0, ymin0, xmax0, ymax0, xmin1, ymin1,
	xmax1, ymax1 float32) float32 {

	w := math32.Max(0, math32.Min(xmax0, xmax1)-math32.Max(xmin0, xmin1)+1)
	h := math32.Max(0, math32.Min(ymax0, ymax1)-math32.Max(ymin0, ymin1)+1)
	intersection := w * h

	// area of both rectangles with added 1.0 for inclusive pixel calculation
	area0 := (xmax0 - xmin0 + 1) * (ymax0 - ymin0 + 1)
	area1 := (xmax1 - xmin1 + 1) * (ymax1 - ymin1 + 1)

	union := area0 + area1 - intersection

	if union <= 0 {
		return 0.0
	}

	return intersection / union
}
