package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"os"
	"strings"
	"unsafe"
)

// CoreMask wraps C.rknn_core_mask
type CoreMask int

// rknn_core_mask values used to target which cores on the NPU the model is
// run on.  Auto picks an idle core, the others pin the model to specific or
// combined cores.
const (
	NPUCoreAuto    CoreMask = C.RKNN_NPU_CORE_AUTO
	NPUCore0       CoreMask = C.RKNN_NPU_CORE_0
	NPUCore1       CoreMask = C.RKNN_NPU_CORE_1
	NPUCore2       CoreMask = C.RKNN_NPU_CORE_2
	NPUCore01      CoreMask = C.RKNN_NPU_CORE_0_1
	NPUCore012     CoreMask = C.RKNN_NPU_CORE_0_1_2
	NPUSkipSetCore CoreMask = 9999
)

// platformCores lists the NPU cores of each Rockchip SoC.  Platforms whose
// driver does not support core masks use NPUSkipSetCore.
var platformCores = map[string][]CoreMask{
	"rk3588": {NPUCore0, NPUCore1, NPUCore2},
	"rk3582": {NPUCore0, NPUCore1, NPUCore2},
	"rk3576": {NPUCore0, NPUCore1},
	"rk3568": {NPUSkipSetCore},
	"rk3566": {NPUSkipSetCore},
	"rk3562": {NPUSkipSetCore},
}

// PlatformCores returns the NPU core masks to spread a runtime pool over on
// the given platform, eg: rk3588
func PlatformCores(platform string) ([]CoreMask, error) {

	cores, ok := platformCores[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	return cores, nil
}

// ErrorCodes are the return codes of the C API
type ErrorCodes int

const (
	Success              ErrorCodes = C.RKNN_SUCC
	ErrFail              ErrorCodes = C.RKNN_ERR_FAIL
	ErrTimeout           ErrorCodes = C.RKNN_ERR_TIMEOUT
	ErrDeviceUnavailable ErrorCodes = C.RKNN_ERR_DEVICE_UNAVAILABLE
	ErrMallocFail        ErrorCodes = C.RKNN_ERR_MALLOC_FAIL
	ErrParamInvalid      ErrorCodes = C.RKNN_ERR_PARAM_INVALID
	ErrModelInvalid      ErrorCodes = C.RKNN_ERR_MODEL_INVALID
	ErrCtxInvalid        ErrorCodes = C.RKNN_ERR_CTX_INVALID
	ErrInputInvalid      ErrorCodes = C.RKNN_ERR_INPUT_INVALID
	ErrOutputInvalid     ErrorCodes = C.RKNN_ERR_OUTPUT_INVALID
	ErrDeviceMismatch    ErrorCodes = C.RKNN_ERR_DEVICE_UNMATCH
	ErrPlatformMismatch  ErrorCodes = C.RKNN_ERR_TARGET_PLATFORM_UNMATCH
)

// String returns a readable description of the error code
func (e ErrorCodes) String() string {
	switch e {
	case Success:
		return "execution successful"
	case ErrFail:
		return "execution failed"
	case ErrTimeout:
		return "execution timed out"
	case ErrDeviceUnavailable:
		return "device is unavailable"
	case ErrMallocFail:
		return "C memory allocation failed"
	case ErrParamInvalid:
		return "parameter is invalid"
	case ErrModelInvalid:
		return "model file is invalid"
	case ErrCtxInvalid:
		return "context is invalid"
	case ErrInputInvalid:
		return "input is invalid"
	case ErrOutputInvalid:
		return "output is invalid"
	case ErrDeviceMismatch:
		return "device mismatch, please update rknn sdk and npu driver/firmware"
	case ErrPlatformMismatch:
		return "the RKNN model target platform is not compatible with the current platform"
	default:
		return fmt.Sprintf("unknown error code %d", int(e))
	}
}

// Error is returned when a C API call fails
type Error struct {
	// Op is the C function that failed
	Op   string
	Code ErrorCodes
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed with code %d, error: %s", e.Op, int(e.Code), e.Code)
}

// check returns an *Error when ret is a failure code
func check(op string, ret C.int) error {
	if ret < 0 {
		return &Error{Op: op, Code: ErrorCodes(ret)}
	}

	return nil
}

// Runtime is a pose model loaded into an RKNN context
type Runtime struct {
	// ctx is the C runtime context
	ctx C.rknn_context
	// ioNum caches the number of model input and output tensors
	ioNum IONumber
	// inputAttrs caches the input tensor attributes of the model
	inputAttrs []TensorAttr
	// outputAttrs caches the output tensor attributes of the model
	outputAttrs []TensorAttr
	// wantFloat requests outputs converted to float32 by the runtime rather
	// than left as quantized int8
	wantFloat bool
}

// NewRuntime loads the RKNN compiled model file onto the given NPU core
func NewRuntime(modelFile string, core CoreMask) (*Runtime, error) {

	r := &Runtime{
		wantFloat: true,
	}

	err := r.init(modelFile)

	if err != nil {
		return nil, err
	}

	// core masks are only supported on multi core NPUs
	if core != NPUSkipSetCore {
		err = r.setCoreMask(core)

		if err != nil {
			r.Close()
			return nil, err
		}
	}

	r.ioNum, err = r.QueryModelIONumber()

	if err != nil {
		r.Close()
		return nil, err
	}

	r.inputAttrs, err = r.queryTensors(C.RKNN_QUERY_INPUT_ATTR, r.ioNum.NumberInput)

	if err != nil {
		r.Close()
		return nil, err
	}

	r.outputAttrs, err = r.queryTensors(C.RKNN_QUERY_OUTPUT_ATTR, r.ioNum.NumberOutput)

	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// init wraps C.rknn_init
func (r *Runtime) init(modelFile string) error {

	info, err := os.Stat(modelFile)

	if err != nil {
		return fmt.Errorf("model file does not exist at %s, error: %w",
			modelFile, err)
	}

	if info.IsDir() {
		return fmt.Errorf("model file %s is a directory", modelFile)
	}

	cModelFile := C.CString(modelFile)
	defer C.free(unsafe.Pointer(cModelFile))

	ret := C.rknn_init(&r.ctx, unsafe.Pointer(cModelFile), 0, 0, nil)

	return check("C.rknn_init", ret)
}

// setCoreMask wraps C.rknn_set_core_mask
func (r *Runtime) setCoreMask(mask CoreMask) error {

	ret := C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(mask))

	return check("C.rknn_set_core_mask", ret)
}

// Close unloads the model and releases the C context
func (r *Runtime) Close() error {

	ret := C.rknn_destroy(r.ctx)

	return check("C.rknn_destroy", ret)
}

// SetWantFloat defines if output tensors are converted to float32 by the
// runtime or left as quantized int8
func (r *Runtime) SetWantFloat(val bool) {
	r.wantFloat = val
}

// SDKVersion holds the RKNN API and driver versions
type SDKVersion struct {
	DriverVersion string
	APIVersion    string
}

// SDKVersion returns the RKNN API and Driver versions
func (r *Runtime) SDKVersion() (SDKVersion, error) {

	var cSdkVer C.rknn_sdk_version

	ret := C.rknn_query(
		r.ctx,
		C.RKNN_QUERY_SDK_VERSION,
		unsafe.Pointer(&cSdkVer),
		C.uint(C.sizeof_rknn_sdk_version),
	)

	if err := check("C.rknn_query RKNN_QUERY_SDK_VERSION", ret); err != nil {
		return SDKVersion{}, err
	}

	return SDKVersion{
		DriverVersion: C.GoString(&(cSdkVer.drv_version[0])),
		APIVersion:    C.GoString(&(cSdkVer.api_version[0])),
	}, nil
}

// InputAttrs returns the loaded model's input tensor attributes
func (r *Runtime) InputAttrs() []TensorAttr {
	return r.inputAttrs
}

// OutputAttrs returns the loaded model's output tensor attributes
func (r *Runtime) OutputAttrs() []TensorAttr {
	return r.outputAttrs
}

// InputSize returns the width and height of the model's image input
func (r *Runtime) InputSize() (width, height int) {

	attr := r.inputAttrs[0]

	if attr.Fmt == TensorNHWC {
		return int(attr.Dims[2]), int(attr.Dims[1])
	}

	// NCHW
	return int(attr.Dims[3]), int(attr.Dims[2])
}
