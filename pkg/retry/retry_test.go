package retry

import (
	"testing"
	"time"

	"github.com/skyfleet/orchestrator/pkg/profile"
)

func TestActive(t *testing.T) {
	submittedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		r    profile.Retry
		now  time.Time
		want bool
	}{
		{
			name: "disabled",
			r:    profile.Retry{Enabled: false},
			now:  submittedAt.Add(time.Minute),
			want: false,
		},
		{
			name: "enabled, within default window",
			r:    profile.Retry{Enabled: true},
			now:  submittedAt.Add(30 * time.Minute),
			want: true,
		},
		{
			name: "enabled, past default window",
			r:    profile.Retry{Enabled: true},
			now:  submittedAt.Add(2 * time.Hour),
			want: false,
		},
		{
			name: "enabled, explicit window, just before boundary",
			r:    profile.Retry{Enabled: true, Window: 10 * time.Minute},
			now:  submittedAt.Add(9*time.Minute + 59*time.Second),
			want: true,
		},
		{
			name: "enabled, explicit window, at boundary",
			r:    profile.Retry{Enabled: true, Window: 10 * time.Minute},
			now:  submittedAt.Add(10 * time.Minute),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Active(tt.r, submittedAt, tt.now); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	submittedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("holds within window", func(t *testing.T) {
		r := profile.Retry{Enabled: true, Window: time.Hour}
		got := Evaluate(r, submittedAt, submittedAt.Add(30*time.Minute))
		if got != DecisionHold {
			t.Errorf("Evaluate() = %v, want DecisionHold", got)
		}
	})

	t.Run("fails once window elapses", func(t *testing.T) {
		r := profile.Retry{Enabled: true, Window: time.Hour}
		got := Evaluate(r, submittedAt, submittedAt.Add(2*time.Hour))
		if got != DecisionFail {
			t.Errorf("Evaluate() = %v, want DecisionFail", got)
		}
	})

	t.Run("fails immediately when retry disabled", func(t *testing.T) {
		r := profile.Retry{Enabled: false}
		got := Evaluate(r, submittedAt, submittedAt.Add(time.Second))
		if got != DecisionFail {
			t.Errorf("Evaluate() = %v, want DecisionFail", got)
		}
	})
}
