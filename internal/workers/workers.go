package workers

import (
	"runtime"
	"sync/atomic"
)

// override holds an operator-supplied worker count; 0 means automatic.
var override atomic.Int64

// SetOverride fixes the worker count returned by Count (still capped by the
// caller's limit). Pass 0 to return to automatic sizing. Startup calls this
// with the THUMBNAIL_WORKERS setting.
func SetOverride(n int) {
	if n < 0 {
		n = 0
	}
	override.Store(int64(n))
}

// Override returns the current override, or 0 when sizing is automatic.
func Override() int {
	return int(override.Load())
}

// Count returns a worker count for a task type, respecting container CPU
// limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks (thumbnail resizing)
//   - 2.0 for I/O-bound tasks (asset tree walks)
//   - 1.5 for mixed tasks (cache warming)
//
// limit caps the result; 0 means no cap.
func Count(multiplier float64, limit int) int {
	if n := Override(); n > 0 {
		return capAt(n, limit)
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}

	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns the worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns the worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns the worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
