package engine

import (
	"image/png"
	"runtime"
	"time"
)

// poolSize picks the render worker count for one job. Low-memory mode pins
// it down so decoded variants plus in-flight canvases stay bounded.
func poolSize(n int, lowMemory bool) int {
	if lowMemory {
		return capWorkers(2)
	}
	switch {
	case n <= 50:
		return capWorkers(2)
	case n <= 500:
		return capWorkers(4)
	default:
		return capWorkers(8)
	}
}

func capWorkers(n int) int {
	if procs := runtime.GOMAXPROCS(0); n > procs {
		return procs
	}
	return n
}

// compressionLevel trades encode time against size: small collections afford
// stronger compression, large ones favour throughput.
func compressionLevel(n int, lowMemory bool) png.CompressionLevel {
	if lowMemory {
		return png.BestSpeed
	}
	switch {
	case n <= 100:
		return png.BestCompression
	case n <= 1000:
		return png.DefaultCompression
	default:
		return png.BestSpeed
	}
}

// jobTimeout is the overall deadline: max(base, perItem*N + slack).
func jobTimeout(n int, base, perItem, slack time.Duration) time.Duration {
	scaled := time.Duration(n)*perItem + slack
	if scaled < base {
		return base
	}
	return scaled
}

// progressStride is how many produced items separate progress samples.
func progressStride(n int) int {
	if stride := n / 200; stride > 1 {
		return stride
	}
	return 1
}

// retentionFor scales how long a finished job's working tree is kept: larger
// collections get longer to download, bounded by the configured maximum.
func retentionFor(n int, base, max time.Duration) time.Duration {
	blocks := time.Duration((n + 999) / 1000)
	if blocks < 1 {
		blocks = 1
	}
	retention := base * blocks
	if retention > max {
		return max
	}
	return retention
}
