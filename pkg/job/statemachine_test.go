package job

import "testing"

func TestTransition_Legal(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusSubmitted, StatusProvisioning},
		{StatusSubmitted, StatusPending},
		{StatusPending, StatusSubmitted},
		{StatusProvisioning, StatusPulling},
		{StatusProvisioning, StatusPending},
		{StatusPulling, StatusRunning},
		{StatusRunning, StatusDone},
		{StatusRunning, StatusAborted},
		{StatusRunning, StatusTerminating},
		{StatusTerminating, StatusTerminated},
	}
	for _, tt := range tests {
		j := &Job{Status: tt.from}
		if err := j.Transition(tt.to); err != nil {
			t.Errorf("Transition(%s -> %s) returned %v, want nil", tt.from, tt.to, err)
		}
		if j.Status != tt.to {
			t.Errorf("after Transition, Status = %s, want %s", j.Status, tt.to)
		}
	}
}

func TestTransition_Illegal(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusSubmitted, StatusRunning},
		{StatusDone, StatusRunning},
		{StatusTerminated, StatusSubmitted},
		{StatusPulling, StatusSubmitted},
	}
	for _, tt := range tests {
		j := &Job{Status: tt.from}
		err := j.Transition(tt.to)
		var illegal *IllegalTransitionError
		if err == nil {
			t.Errorf("Transition(%s -> %s) = nil, want *IllegalTransitionError", tt.from, tt.to)
			continue
		}
		if ok := asIllegalTransitionError(err, &illegal); !ok {
			t.Errorf("Transition(%s -> %s) error = %T, want *IllegalTransitionError", tt.from, tt.to, err)
		}
	}
}

func asIllegalTransitionError(err error, target **IllegalTransitionError) bool {
	e, ok := err.(*IllegalTransitionError)
	if ok {
		*target = e
	}
	return ok
}

func TestCanOwnInstance(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusRunning, true},
		{StatusProvisioning, true},
		{StatusDone, false},
		{StatusFailed, false},
		{StatusAborted, false},
		{StatusTerminated, false},
	}
	for _, tt := range tests {
		if got := tt.status.CanOwnInstance(); got != tt.want {
			t.Errorf("%s.CanOwnInstance() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
