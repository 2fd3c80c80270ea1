//go:build linux

package threadpool

import (
	"golang.org/x/sys/unix"
)

// PinToCPU restricts the calling thread to the given CPU. The caller
// should hold runtime.LockOSThread for the pin to mean anything.
func PinToCPU(cpu int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
