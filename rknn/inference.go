package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/swdee/go-posematch/postprocess"
	"github.com/x448/float16"
	"gocv.io/x/gocv"
)

// f16LookupTable converts every float16 bit pattern to float32
var f16LookupTable [65536]float32

func init() {
	for i := range f16LookupTable {
		f16LookupTable[i] = float16.Frombits(uint16(i)).Float32()
	}
}

// Inference runs the model on a single RGB uint8 image sized to the model
// input
func (r *Runtime) Inference(img gocv.Mat) (*Outputs, error) {

	if !img.IsContinuous() {
		img = img.Clone()
		defer img.Close()
	}

	data, err := img.DataPtrUint8()

	if err != nil {
		return nil, fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("inference input is empty")
	}

	var input C.rknn_input
	input.index = 0
	input.buf = unsafe.Pointer(&data[0])
	input.size = C.uint32_t(len(data))
	input.pass_through = 0
	input._type = C.RKNN_TENSOR_UINT8
	input.fmt = C.RKNN_TENSOR_NHWC

	ret := C.rknn_inputs_set(r.ctx, 1, &input)

	if err := check("C.rknn_inputs_set", ret); err != nil {
		return nil, err
	}

	ret = C.rknn_run(r.ctx, nil)

	if err := check("C.rknn_run", ret); err != nil {
		return nil, err
	}

	return r.getOutputs()
}

// Output is one model output tensor.  Buffers may point to C memory and are
// only valid until the owning Outputs is freed.
type Output struct {
	// Index is the output index
	Index uint32
	// BufFloat holds float32 data, set for float and float16 outputs
	BufFloat []float32
	// BufInt holds quantized int8 data
	BufInt []int8
	// Size is the size of the C buffer in bytes
	Size uint32
}

// Outputs holds the results of one inference
type Outputs struct {
	Output   []Output
	cOutputs []C.rknn_output
	// freed records whether the C outputs have been released
	freed bool
	sync.Mutex
	rt *Runtime
}

// getOutputs wraps C.rknn_outputs_get
func (r *Runtime) getOutputs() (*Outputs, error) {

	n := r.ioNum.NumberOutput

	outputs := &Outputs{
		Output:   make([]Output, n),
		cOutputs: make([]C.rknn_output, n),
		rt:       r,
	}

	wantFloat := C.uint8_t(0)

	if r.wantFloat {
		wantFloat = 1
	}

	for idx := range outputs.cOutputs {
		outputs.cOutputs[idx].index = C.uint32_t(idx)
		outputs.cOutputs[idx].want_float = wantFloat
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(n),
		(*C.rknn_output)(unsafe.Pointer(&outputs.cOutputs[0])), nil)

	if err := check("C.rknn_outputs_get", ret); err != nil {
		return nil, err
	}

	for i, cOutput := range outputs.cOutputs {
		out := Output{
			Index: uint32(cOutput.index),
			Size:  uint32(cOutput.size),
		}

		switch {
		case cOutput.want_float == 1:
			out.BufFloat = unsafe.Slice((*float32)(cOutput.buf), cOutput.size/4)

		case r.outputAttrs[i].Type == TensorFloat16:
			// yolov8-pose keypoints are float16 even on quantized models
			f16 := unsafe.Slice((*uint16)(cOutput.buf), cOutput.size/2)
			out.BufFloat = make([]float32, len(f16))

			for j, bits := range f16 {
				out.BufFloat[j] = f16LookupTable[bits]
			}

		default:
			out.BufInt = unsafe.Slice((*int8)(cOutput.buf), cOutput.size)
		}

		outputs.Output[i] = out
	}

	return outputs, nil
}

// Free releases the C memory holding the outputs.  It is safe to call more
// than once.
func (o *Outputs) Free() error {
	o.Lock()
	defer o.Unlock()

	if o.freed {
		return nil
	}

	o.freed = true

	ret := C.rknn_outputs_release(o.rt.ctx, C.uint32_t(len(o.cOutputs)),
		(*C.rknn_output)(unsafe.Pointer(&o.cOutputs[0])))

	return check("C.rknn_outputs_release", ret)
}

// PoseTensors returns the outputs in the layout of a YOLOv8 pose model, three
// quantized box strides followed by the keypoint tensor
func (o *Outputs) PoseTensors() (postprocess.Tensors, error) {

	if len(o.Output) < 2 {
		return postprocess.Tensors{}, fmt.Errorf("pose model needs at least 2 outputs, got %d",
			len(o.Output))
	}

	width, height := o.rt.InputSize()

	t := postprocess.Tensors{
		InputWidth:  width,
		InputHeight: height,
	}

	last := len(o.Output) - 1

	for i := 0; i < last; i++ {
		attr := o.rt.outputAttrs[i]

		if o.Output[i].BufInt == nil {
			return postprocess.Tensors{}, fmt.Errorf("pose output %d is not quantized int8", i)
		}

		t.Strides = append(t.Strides, postprocess.QuantTensor{
			Data:  o.Output[i].BufInt,
			ZP:    attr.ZP,
			Scale: attr.Scale,
			GridH: int(attr.Dims[2]),
			GridW: int(attr.Dims[3]),
		})
	}

	t.KeyPoints = o.Output[last].BufFloat

	return t, nil
}
