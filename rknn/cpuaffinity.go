package rknn

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"
)

// CoreType specifies the CPU core type
type CoreType int

const (
	FastCores CoreType = 0
	SlowCores CoreType = 1
	AllCores  CoreType = 2
)

// cpuMasks are the CPU affinity masks of each platform's core clusters.
// Platforms with a single cluster use the same mask for every core type.
var cpuMasks = map[string]map[CoreType]uintptr{
	"rk3588": {FastCores: 0b11110000, SlowCores: 0b00001111, AllCores: 0b11111111},
	"rk3582": {FastCores: 0b00110000, SlowCores: 0b00001111, AllCores: 0b00111111},
	"rk3576": {FastCores: 0b11110000, SlowCores: 0b00001111, AllCores: 0b11111111},
	"rk3568": {FastCores: 0b00001111, SlowCores: 0b00001111, AllCores: 0b00001111},
	"rk3566": {FastCores: 0b00001111, SlowCores: 0b00001111, AllCores: 0b00001111},
	"rk3562": {FastCores: 0b00001111, SlowCores: 0b00001111, AllCores: 0b00001111},
}

// SetCPUAffinity sets the CPU Affinity mask of the program
func SetCPUAffinity(mask uintptr) error {

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}

// CPUCoreMask calculates the core mask by passing in the CPU core numbers as a
// slice, eg: []int{4,5,6,7}
func CPUCoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// SetCPUAffinityByPlatform pins the program to the given core type of the
// platform, one of rk3562|rk3566|rk3568|rk3576|rk3582|rk3588
func SetCPUAffinityByPlatform(platform string, ct CoreType) error {

	masks, ok := cpuMasks[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return fmt.Errorf("unknown platform: %s", platform)
	}

	mask, ok := masks[ct]

	if !ok {
		return fmt.Errorf("unknown core type %d", ct)
	}

	return SetCPUAffinity(mask)
}
