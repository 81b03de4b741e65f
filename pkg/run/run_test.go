package run

import (
	"testing"

	"github.com/skyfleet/orchestrator/pkg/job"
)

func TestDeriveStatus_Empty(t *testing.T) {
	if got := DeriveStatus(nil); got != Status(job.StatusSubmitted) {
		t.Errorf("DeriveStatus(nil) = %s, want %s", got, job.StatusSubmitted)
	}
}

func TestDeriveStatus_AllTerminal(t *testing.T) {
	jobs := []job.Job{
		{JobNum: 0, Status: job.StatusDone},
		{JobNum: 1, Status: job.StatusFailed},
	}
	if got := DeriveStatus(jobs); got != Status(job.StatusFailed) {
		t.Errorf("DeriveStatus() = %s, want last job's status %s", got, job.StatusFailed)
	}
}

func TestDeriveStatus_FirstNonTerminalWins(t *testing.T) {
	jobs := []job.Job{
		{JobNum: 0, Status: job.StatusRunning},
		{JobNum: 1, Status: job.StatusProvisioning},
	}
	if got := DeriveStatus(jobs); got != Status(job.StatusRunning) {
		t.Errorf("DeriveStatus() = %s, want first non-terminal job's status %s", got, job.StatusRunning)
	}
}

func TestDeriveStatus_SkipsLeadingTerminal(t *testing.T) {
	jobs := []job.Job{
		{JobNum: 0, Status: job.StatusDone},
		{JobNum: 1, Status: job.StatusPulling},
	}
	if got := DeriveStatus(jobs); got != Status(job.StatusPulling) {
		t.Errorf("DeriveStatus() = %s, want %s (first non-terminal, skipping the terminal job_num 0)", got, job.StatusPulling)
	}
}

func TestDeriveStatus_SingleJob(t *testing.T) {
	jobs := []job.Job{{JobNum: 0, Status: job.StatusSubmitted}}
	if got := DeriveStatus(jobs); got != Status(job.StatusSubmitted) {
		t.Errorf("DeriveStatus() = %s, want %s", got, job.StatusSubmitted)
	}
}
