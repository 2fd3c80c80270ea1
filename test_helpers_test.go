package threadpool_test

import (
	"crypto/sha256"
	"runtime"
	"testing"
	"time"
)

type workload struct {
	name string
	fn   func()
}

var shaData = []byte("some deterministic payloadsome deterministic payloadsome deterministic payloadsome deterministic payload")

var (
	emptyWork = func() {}

	cpuWork = func() {
		x := 0
		for i := range 1000 {
			x += i * i
		}
		_ = x
	}

	ioWork = func() {
		time.Sleep(5 * time.Microsecond)
	}

	shaWork = func() {
		_ = sha256.Sum256(shaData)
	}
)

var workloads = []workload{
	{"empty ", emptyWork},
	{"sha256", shaWork},
	{"cpu   ", cpuWork},
	{"io    ", ioWork},
}

func waitUntilB(b *testing.B, timeout time.Duration, cond func() bool) {
	b.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	b.Fatal("condition not satisfied before timeout")
}
