// Package rknn runs pose models on the Rockchip NPU through the RKNN Toolkit2
// C runtime
package rknn

/*
#cgo CFLAGS: -I/usr/include
#cgo LDFLAGS: -lrknnrt
*/
import "C"
