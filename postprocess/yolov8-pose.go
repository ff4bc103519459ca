package postprocess

import (
	"fmt"

	"github.com/swdee/go-posematch"
)

// YOLOv8Pose decodes the outputs of a YOLOv8 pose model into poses
type YOLOv8Pose struct {
	// Params are the Model configuration parameters
	Params YOLOv8PoseParams
	// parts maps the keypoint index of the model output to a body part
	parts []posematch.Part
}

// YOLOv8PoseParams defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8PoseParams struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// KeyPointsNumber is the number of COCO keypoints representing different parts
	// of the body the pose model is trained on
	KeyPointsNumber int
}

// YOLOv8PoseCOCOParams returns an instance of YOLOv8PoseParams configured with
// default values for a Model trained on the COCO dataset featuring:
// - Object Classes: 1
// - Box Threshold: 0.5
// - NMS Threshold: 0.4
// - Maximum Object Number: 64
// - KeyPoints Number: 17
func YOLOv8PoseCOCOParams() YOLOv8PoseParams {
	return YOLOv8PoseParams{
		BoxThreshold:    0.5,
		NMSThreshold:    0.4,
		ObjectClassNum:  1,
		MaxObjectNumber: 64,
		KeyPointsNumber: posematch.PartCount,
	}
}

// NewYOLOv8Pose returns an instance of the YOLOv8Pose post processor.  parts
// maps each model keypoint index to a body part, nil uses COCO order.
func NewYOLOv8Pose(p YOLOv8PoseParams, parts []posematch.Part) (*YOLOv8Pose, error) {

	if parts == nil {
		parts = posematch.Parts()
	}

	if len(parts) != p.KeyPointsNumber {
		return nil, fmt.Errorf("model has %d keypoints but %d part labels given",
			p.KeyPointsNumber, len(parts))
	}

	return &YOLOv8Pose{
		Params: p,
		parts:  parts,
	}, nil
}

// QuantTensor is an int8 affine quantized output tensor of one detection
// stride, laid out as channels x gridH x gridW
type QuantTensor struct {
	Data  []int8
	ZP    int32
	Scale float32
	GridH int
	GridW int
}

// Tensors holds the model outputs needed to decode poses
type Tensors struct {
	// InputWidth and InputHeight are the model input dimensions
	InputWidth  int
	InputHeight int
	// Strides are the box and class outputs from the largest grid to the
	// smallest
	Strides []QuantTensor
	// KeyPoints is the keypoint output laid out as keypoints x 3 x anchors
	// where the 3 values are x, y and score
	KeyPoints []float32
}

// anchors returns the total number of grid cells across all strides
func (t Tensors) anchors() int {
	n := 0

	for _, s := range t.Strides {
		n += s.GridH * s.GridW
	}

	return n
}

// PointMapper maps model input coordinates back to the source frame
type PointMapper interface {
	ToSource(x, y float32) posematch.Point
}

// strideData holds the candidate detections gathered across strides
type strideData struct {
	// filterBoxes holds x, y, w, h and the anchor index per detection
	filterBoxes []float32
	// objProbs is the confidence of each detection
	objProbs []float32
	// classID is the class of each detection
	classID []int
}

// boxStride is the number of filterBoxes values per detection
const boxStride = 5

// Decode returns the poses found in the model outputs ordered by descending
// detection score.  Keypoint positions are mapped through m onto the source
// frame.
func (y *YOLOv8Pose) Decode(t Tensors, m PointMapper) ([]posematch.Pose, error) {

	anchors := t.anchors()
	want := y.Params.KeyPointsNumber * 3 * anchors

	if len(t.KeyPoints) < want {
		return nil, fmt.Errorf("keypoint tensor has %d values, expected %d",
			len(t.KeyPoints), want)
	}

	data := &strideData{}
	validCount := 0
	index := 0

	for _, s := range t.Strides {
		if s.GridH == 0 {
			continue
		}

		stride := t.InputHeight / s.GridH

		validCount += y.processStride(s, stride, data, index)
		index += s.GridH * s.GridW
	}

	if validCount <= 0 {
		return []posematch.Pose{}, nil
	}

	// indexArray tracks detections through sorting and suppression
	indexArray := make([]int, validCount)

	for i := range indexArray {
		indexArray[i] = i
	}

	quickSortIndiceInverse(data.objProbs, 0, validCount-1, indexArray)

	classSet := make(map[int]bool)

	for _, id := range data.classID {
		classSet[id] = true
	}

	for c := range classSet {
		nms(validCount, data.filterBoxes, data.classID, indexArray, c,
			y.Params.NMSThreshold, boxStride)
	}

	poses := make([]posematch.Pose, 0)

	for i := 0; i < validCount; i++ {
		if indexArray[i] == -1 || len(poses) >= y.Params.MaxObjectNumber {
			continue
		}

		n := indexArray[i]
		anchor := int(data.filterBoxes[n*boxStride+4])

		kps := make([]posematch.Keypoint, 0, y.Params.KeyPointsNumber)

		for j := 0; j < y.Params.KeyPointsNumber; j++ {
			kpX := t.KeyPoints[j*3*anchors+0*anchors+anchor]
			kpY := t.KeyPoints[j*3*anchors+1*anchors+anchor]
			kpScore := t.KeyPoints[j*3*anchors+2*anchors+anchor]

			kps = append(kps, posematch.Keypoint{
				Part:       y.parts[j],
				Position:   m.ToSource(kpX, kpY),
				Confidence: float64(clampUnit(kpScore)),
			})
		}

		poses = append(poses, posematch.Pose{
			Score:     float64(data.objProbs[i]),
			Keypoints: kps,
		})
	}

	return poses, nil
}

// processStride gathers detections above the box threshold from one stride
func (y *YOLOv8Pose) processStride(s QuantTensor, stride int, data *strideData,
	index int) int {

	inputLocLen := 64
	validCount := 0
	gridH, gridW := s.GridH, s.GridW

	thresI8 := qntF32ToAffine(unsigmoid(y.Params.BoxThreshold), s.ZP, s.Scale)

	loc := make([]float32, inputLocLen)

	for h := 0; h < gridH; h++ {
		for w := 0; w < gridW; w++ {
			for a := 0; a < y.Params.ObjectClassNum; a++ {

				offset := (inputLocLen+a)*gridW*gridH + h*gridW + w

				if s.Data[offset] < thresI8 {
					continue
				}

				boxConfF32 := sigmoid(deqntAffineToF32(s.Data[offset], s.ZP, s.Scale))

				for i := 0; i < inputLocLen; i++ {
					loc[i] = deqntAffineToF32(s.Data[i*gridW*gridH+h*gridW+w], s.ZP, s.Scale)
				}

				// distribution focal loss, 16 bins per box side
				for i := 0; i < inputLocLen/16; i++ {
					softmax(loc[i*16:(i+1)*16], 16)
				}

				var xywh_ [4]float32
				var xywh [4]float32

				for dfl := 0; dfl < 16; dfl++ {
					xywh_[0] += loc[dfl] * float32(dfl)
					xywh_[1] += loc[1*16+dfl] * float32(dfl)
					xywh_[2] += loc[2*16+dfl] * float32(dfl)
					xywh_[3] += loc[3*16+dfl] * float32(dfl)
				}

				xywh_[0] = (float32(w) + 0.5) - xywh_[0]
				xywh_[1] = (float32(h) + 0.5) - xywh_[1]
				xywh_[2] = (float32(w) + 0.5) + xywh_[2]
				xywh_[3] = (float32(h) + 0.5) + xywh_[3]

				xywh[0] = ((xywh_[0] + xywh_[2]) / 2) * float32(stride)
				xywh[1] = ((xywh_[1] + xywh_[3]) / 2) * float32(stride)
				xywh[2] = (xywh_[2] - xywh_[0]) * float32(stride)
				xywh[3] = (xywh_[3] - xywh_[1]) * float32(stride)

				xywh[0] = xywh[0] - xywh[2]/2
				xywh[1] = xywh[1] - xywh[3]/2

				data.filterBoxes = append(data.filterBoxes, xywh[0], xywh[1], xywh[2], xywh[3],
					float32(index+(h*gridW)+w))
				data.objProbs = append(data.objProbs, boxConfF32)
				data.classID = append(data.classID, a)

				validCount++
			}
		}
	}

	return validCount
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
