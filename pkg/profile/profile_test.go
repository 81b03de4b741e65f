package profile

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalized_FillsDefaults(t *testing.T) {
	got := Profile{}.Normalized()
	if got.SpotPolicy != SpotPolicyOnDemand {
		t.Errorf("SpotPolicy = %s, want %s", got.SpotPolicy, SpotPolicyOnDemand)
	}
	if got.CreationPolicy != CreationPolicyReuseOrCreate {
		t.Errorf("CreationPolicy = %s, want %s", got.CreationPolicy, CreationPolicyReuseOrCreate)
	}
	if got.TerminationPolicy != TerminationPolicyDestroyAfterIdle {
		t.Errorf("TerminationPolicy = %s, want %s", got.TerminationPolicy, TerminationPolicyDestroyAfterIdle)
	}
	if got.TerminationIdleTime != DefaultTerminationIdleTime {
		t.Errorf("TerminationIdleTime = %s, want %s", got.TerminationIdleTime, DefaultTerminationIdleTime)
	}
	if got.PoolName != DefaultPoolName {
		t.Errorf("PoolName = %s, want %s", got.PoolName, DefaultPoolName)
	}
}

func TestNormalized_PreservesExplicitValues(t *testing.T) {
	p := Profile{
		SpotPolicy:          SpotPolicySpot,
		CreationPolicy:      CreationPolicyReuse,
		TerminationPolicy:   TerminationPolicyDontDestroy,
		TerminationIdleTime: 5,
		PoolName:            "gpu-pool",
	}
	got := p.Normalized()
	if !reflect.DeepEqual(got, p) {
		t.Errorf("Normalized() = %+v, want unchanged %+v", got, p)
	}
}

func TestRetry_EffectiveWindow(t *testing.T) {
	tests := []struct {
		name string
		r    Retry
		want time.Duration
	}{
		{"zero window uses default", Retry{Enabled: true}, DefaultRetryWindow},
		{"explicit window kept", Retry{Enabled: true, Window: 30 * time.Minute}, 30 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.EffectiveWindow(); got != tt.want {
				t.Errorf("EffectiveWindow() = %s, want %s", got, tt.want)
			}
		})
	}
}
