//go:build !linux

package threadpool

// PinToCPU is a no-op off Linux; sched_setaffinity has no portable
// equivalent.
func PinToCPU(cpu int) error { return nil }
