package instance

import "testing"

func TestTransition_Legal(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusPending, StatusCreating},
		{StatusCreating, StatusStarting},
		{StatusStarting, StatusReady},
		{StatusReady, StatusBusy},
		{StatusBusy, StatusIdle},
		{StatusIdle, StatusBusy},
		{StatusBusy, StatusTerminating},
		{StatusIdle, StatusTerminating},
		{StatusReady, StatusTerminating},
		{StatusTerminating, StatusTerminated},
	}
	for _, tt := range tests {
		i := &Instance{Status: tt.from}
		if err := i.Transition(tt.to); err != nil {
			t.Errorf("Transition(%s -> %s) returned %v, want nil", tt.from, tt.to, err)
		}
		if i.Status != tt.to {
			t.Errorf("after Transition, Status = %s, want %s", i.Status, tt.to)
		}
	}
}

func TestTransition_Illegal(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{StatusReady, StatusIdle},    // first claim must go through BUSY
		{StatusCreating, StatusReady}, // can't skip STARTING
		{StatusTerminated, StatusPending},
		{StatusIdle, StatusCreating},
	}
	for _, tt := range tests {
		i := &Instance{Status: tt.from}
		if err := i.Transition(tt.to); err == nil {
			t.Errorf("Transition(%s -> %s) = nil, want error", tt.from, tt.to)
		}
	}
}

func TestClaimable(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusReady, true},
		{StatusIdle, true},
		{StatusPending, false},
		{StatusCreating, false},
		{StatusStarting, false},
		{StatusBusy, false},
		{StatusTerminating, false},
		{StatusTerminated, false},
	}
	for _, tt := range tests {
		if got := tt.status.Claimable(); got != tt.want {
			t.Errorf("%s.Claimable() = %v, want %v", tt.status, got, tt.want)
		}
		inst := Instance{Status: tt.status}
		if got := inst.Available(); got != tt.want {
			t.Errorf("Instance{Status: %s}.Available() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !StatusTerminated.Terminal() {
		t.Error("StatusTerminated.Terminal() = false, want true")
	}
	for _, s := range []Status{StatusPending, StatusCreating, StatusStarting, StatusReady, StatusBusy, StatusIdle, StatusTerminating} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}
