package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strings"

	"github.com/dustin/go-humanize"

	"spc-catalog/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for libvips, decoder buffers and goroutine stacks.
const DefaultMemoryRatio = 0.85

// LimitResult describes what Configure did.
type LimitResult struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit uint64
	GoMemLimit     int64
	Ratio          float64
}

// Configure sets GOMEMLIMIT from a container limit. containerLimit accepts
// raw bytes ("536870912") or a humanized size ("512MiB", "1.5 GB"). An
// explicit GOMEMLIMIT in the environment always wins. Ratios outside (0,1]
// fall back to DefaultMemoryRatio.
//
// Call it early in main, before large allocations.
func Configure(containerLimit string, ratio float64) LimitResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := LimitResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	containerLimit = strings.TrimSpace(containerLimit)
	if containerLimit == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return LimitResult{Source: "none"}
	}

	limit, err := humanize.ParseBytes(containerLimit)
	if err != nil || limit == 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", containerLimit, err)
		return LimitResult{Source: "none"}
	}

	if ratio <= 0 || ratio > 1 {
		if ratio != 0 {
			logging.Warn("MEMORY_RATIO %.2f out of range (0.0-1.0), using default %.2f", ratio, DefaultMemoryRatio)
		}
		ratio = DefaultMemoryRatio
	}

	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		humanize.IBytes(uint64(goMemLimit)),
		ratio*100,
		humanize.IBytes(limit),
	)

	return LimitResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}
