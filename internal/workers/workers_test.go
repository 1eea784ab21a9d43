package workers

import (
	"runtime"
	"testing"
)

func withOverride(t *testing.T, n int) {
	t.Helper()
	original := Override()
	SetOverride(n)
	t.Cleanup(func() { SetOverride(original) })
}

func TestCount(t *testing.T) {
	withOverride(t, 0)

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"CPU-bound", 1.0, 0, availableCPU},
		{"I/O-bound", 2.0, 0, availableCPU * 2},
		{"mixed", 1.5, 0, int(float64(availableCPU) * 1.5)},
		{"limit below calculated", 2.0, 1, 1},
		{"tiny multiplier floors at one", 0.0001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	tests := []struct {
		name     string
		override int
		limit    int
		want     int
	}{
		{"override used", 3, 0, 3},
		{"override capped by limit", 10, 4, 4},
		{"override below limit", 2, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withOverride(t, tt.override)
			if got := ForCPU(tt.limit); got != tt.want {
				t.Errorf("ForCPU(%d) with override %d = %d, want %d", tt.limit, tt.override, got, tt.want)
			}
			if got := ForIO(tt.limit); got != tt.want {
				t.Errorf("ForIO(%d) with override %d = %d, want %d", tt.limit, tt.override, got, tt.want)
			}
		})
	}
}

func TestSetOverrideNegativeResets(t *testing.T) {
	withOverride(t, 5)
	SetOverride(-1)

	if got := Override(); got != 0 {
		t.Errorf("Override() = %d, want 0", got)
	}
}

func TestHelpersAlwaysPositive(t *testing.T) {
	withOverride(t, 0)

	for name, fn := range map[string]func(int) int{
		"ForCPU":   ForCPU,
		"ForIO":    ForIO,
		"ForMixed": ForMixed,
	} {
		if got := fn(0); got < 1 {
			t.Errorf("%s(0) = %d, want >= 1", name, got)
		}
	}
}

func BenchmarkForCPU(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ForCPU(8)
	}
}
