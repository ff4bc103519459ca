package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"strings"
	"unsafe"
)

// TensorFormat wraps C.rknn_tensor_format
type TensorFormat int

const (
	TensorNCHW      TensorFormat = C.RKNN_TENSOR_NCHW
	TensorNHWC      TensorFormat = C.RKNN_TENSOR_NHWC
	TensorNC1HWC2   TensorFormat = C.RKNN_TENSOR_NC1HWC2
	TensorUndefined TensorFormat = C.RKNN_TENSOR_UNDEFINED
)

// TensorType wraps C.rknn_tensor_type
type TensorType int

const (
	TensorFloat32 TensorType = C.RKNN_TENSOR_FLOAT32
	TensorFloat16 TensorType = C.RKNN_TENSOR_FLOAT16
	TensorInt8    TensorType = C.RKNN_TENSOR_INT8
	TensorUint8   TensorType = C.RKNN_TENSOR_UINT8
)

// maxDims is the maximum number of dimensions of a tensor
const maxDims = C.RKNN_MAX_DIMS

// TensorAttr holds the attributes of a model tensor needed for input and
// output handling
type TensorAttr struct {
	Index  uint32
	NDims  uint32
	Dims   [maxDims]uint32
	Name   string
	NElems uint32
	Size   uint32
	Fmt    TensorFormat
	Type   TensorType
	// ZP and Scale are the affine quantization parameters
	ZP    int32
	Scale float32
}

// IONumber is the number of model input and output tensors
type IONumber struct {
	NumberInput  uint32
	NumberOutput uint32
}

// QueryModelIONumber queries the number of Input and Output tensors of the model
func (r *Runtime) QueryModelIONumber() (IONumber, error) {

	var cIONum C.rknn_input_output_num

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_IN_OUT_NUM, unsafe.Pointer(&cIONum),
		C.uint(C.sizeof_rknn_input_output_num))

	if err := check("C.rknn_query RKNN_QUERY_IN_OUT_NUM", ret); err != nil {
		return IONumber{}, err
	}

	return IONumber{
		NumberInput:  uint32(cIONum.n_input),
		NumberOutput: uint32(cIONum.n_output),
	}, nil
}

// queryTensors returns the attributes of count tensors of the given query
// kind, either RKNN_QUERY_INPUT_ATTR or RKNN_QUERY_OUTPUT_ATTR
func (r *Runtime) queryTensors(kind C.rknn_query_cmd, count uint32) ([]TensorAttr, error) {

	attrs := make([]TensorAttr, count)

	for i := uint32(0); i < count; i++ {
		var cAttr C.rknn_tensor_attr
		cAttr.index = C.uint32_t(i)

		ret := C.rknn_query(r.ctx, kind, unsafe.Pointer(&cAttr), C.uint(unsafe.Sizeof(cAttr)))

		if err := check(fmt.Sprintf("C.rknn_query tensor %d", i), ret); err != nil {
			return nil, err
		}

		attrs[i] = convertTensorAttr(&cAttr)
	}

	return attrs, nil
}

// convertTensorAttr converts a C.rknn_tensor_attr to a Go TensorAttr
func convertTensorAttr(cAttr *C.rknn_tensor_attr) TensorAttr {

	name := C.GoStringN(&cAttr.name[0], C.RKNN_MAX_NAME_LEN)

	if i := strings.IndexByte(name, 0); i != -1 {
		name = name[:i]
	}

	return TensorAttr{
		Index:  uint32(cAttr.index),
		NDims:  uint32(cAttr.n_dims),
		Dims:   *(*[maxDims]uint32)(unsafe.Pointer(&cAttr.dims)),
		Name:   name,
		NElems: uint32(cAttr.n_elems),
		Size:   uint32(cAttr.size),
		Fmt:    TensorFormat(cAttr.fmt),
		Type:   TensorType(cAttr._type),
		ZP:     int32(cAttr.zp),
		Scale:  float32(cAttr.scale),
	}
}

// String returns the TensorAttr's attributes formatted as a string
func (a TensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, n_dims=%d, dims=%v, n_elems=%d, "+
		"size=%d, fmt=%s, type=%s, zp=%d, scale=%f",
		a.Index, a.Name, a.NDims, a.Dims[:a.NDims], a.NElems, a.Size,
		a.Fmt, a.Type, a.ZP, a.Scale)
}

// String returns a readable description of the TensorType
func (t TensorType) String() string {
	switch t {
	case TensorFloat32:
		return "FP32"
	case TensorFloat16:
		return "FP16"
	case TensorInt8:
		return "INT8"
	case TensorUint8:
		return "UINT8"
	default:
		return fmt.Sprintf("TYPE(%d)", int(t))
	}
}

// String returns a readable description of the TensorFormat
func (t TensorFormat) String() string {
	switch t {
	case TensorNCHW:
		return "NCHW"
	case TensorNHWC:
		return "NHWC"
	case TensorNC1HWC2:
		return "NC1HWC2"
	default:
		return "UNDEFINED"
	}
}
