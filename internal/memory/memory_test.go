package memory

import (
	"runtime/debug"
	"testing"
)

func TestConfigureFromEnvUnset(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")

	res := ConfigureFromEnv()
	if res.Configured {
		t.Error("Nothing set, nothing should be configured")
	}
	if res.Source != "none" {
		t.Errorf("Source = %q, want none", res.Source)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(prev)

	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1073741824") // 1 GiB
	t.Setenv("MEMORY_RATIO", "")

	res := ConfigureFromEnv()
	if !res.Configured {
		t.Fatal("MEMORY_LIMIT should configure the limit")
	}
	if res.Source != "MEMORY_LIMIT" {
		t.Errorf("Source = %q, want MEMORY_LIMIT", res.Source)
	}
	limit := int64(1073741824)
	want := int64(float64(limit) * DefaultHeapRatio)
	if res.GoMemLimit != want {
		t.Errorf("GoMemLimit = %d, want %d", res.GoMemLimit, want)
	}
}

func TestConfigureFromEnvCustomRatio(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	defer debug.SetMemoryLimit(prev)

	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1000000")
	t.Setenv("MEMORY_RATIO", "0.5")

	res := ConfigureFromEnv()
	if res.GoMemLimit != 500000 {
		t.Errorf("GoMemLimit = %d, want 500000", res.GoMemLimit)
	}
	if res.Ratio != 0.5 {
		t.Errorf("Ratio = %g, want 0.5", res.Ratio)
	}
}

func TestConfigureFromEnvBadValues(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "lots")

	res := ConfigureFromEnv()
	if res.Configured {
		t.Error("Unparseable MEMORY_LIMIT should not configure anything")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
