package cli

import (
	"testing"

	"github.com/dmelnik/buildgate/internal/models"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   string
	}{
		{"empty", nil, ""},
		{"all zero", []int{0, 0, 0}, "▁▁▁"},
		{"ramp", []int{0, 7, 14}, "▁▄█"},
		{"single", []int{5}, "█"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.values); got != tt.want {
				t.Errorf("sparkline(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestSortedTargetNames(t *testing.T) {
	byTarget := map[string]*models.TargetTrend{
		"worker-app": {Name: "worker-app"},
		"nginx":      {Name: "nginx"},
		"web":        {Name: "web"},
	}

	got := sortedTargetNames(byTarget)
	want := []string{"nginx", "web", "worker-app"}

	if len(got) != len(want) {
		t.Fatalf("got %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
