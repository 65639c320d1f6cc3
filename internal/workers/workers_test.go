package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"CPU bound", 1.0, 0, available},
		{"IO bound doubles", 2.0, 0, available * 2},
		{"Limit caps", 2.0, 1, 1},
		{"Tiny multiplier floors at one", 0.0001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("INGEST_WORKERS", "3")
	if got := ForCPU(0); got != 3 {
		t.Errorf("Count with override = %d, want 3", got)
	}
	if got := ForIO(2); got != 2 {
		t.Errorf("Count with override above limit = %d, want capped 2", got)
	}

	t.Setenv("INGEST_WORKERS", "garbage")
	if got := ForCPU(0); got != runtime.GOMAXPROCS(0) {
		t.Errorf("Count with bad override = %d, want computed %d", got, runtime.GOMAXPROCS(0))
	}
}
