package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"photo-ingest/internal/logging"
)

// DefaultHeapRatio is the fraction of the container memory limit given
// to the Go heap. The remainder is headroom for libvips pixel buffers
// and in-flight upload bodies, which live outside the heap.
const DefaultHeapRatio = 0.80

// Result reports what ConfigureFromEnv decided.
type Result struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit.
// Call it early in main, before large allocations.
//
// An explicit GOMEMLIMIT always wins. Otherwise MEMORY_LIMIT (bytes,
// typically injected via the Kubernetes Downward API) is scaled by
// MEMORY_RATIO (default 0.80) and applied.
func ConfigureFromEnv() Result {
	res := Result{Source: "none"}

	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			res.Configured = true
			res.Source = "GOMEMLIMIT"
			res.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return res
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unconfigured")
		return res
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("ignoring unparseable MEMORY_LIMIT %q", raw)
		return res
	}
	res.ContainerLimit = containerLimit

	ratio := DefaultHeapRatio
	if rawRatio := os.Getenv("MEMORY_RATIO"); rawRatio != "" {
		parsed, err := strconv.ParseFloat(rawRatio, 64)
		if err == nil && parsed > 0 && parsed <= 1.0 {
			ratio = parsed
		} else {
			logging.Warn("MEMORY_RATIO %q invalid, using default %.2f", rawRatio, DefaultHeapRatio)
		}
	}
	res.Ratio = ratio

	limit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(limit)

	res.Configured = true
	res.Source = "MEMORY_LIMIT"
	res.GoMemLimit = limit

	logging.Info("GOMEMLIMIT set to %s (%.0f%% of %s container limit)",
		formatBytes(limit), ratio*100, formatBytes(containerLimit))
	return res
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
