package run

import (
	"testing"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/pkg/job"
)

func TestJobCount(t *testing.T) {
	tests := []struct {
		name string
		cfg  Configuration
		want int
	}{
		{"dev-environment always one", DevEnvironmentConfiguration{}, 1},
		{"task default one", TaskConfiguration{Commands: []string{"echo"}}, 1},
		{"task multi-node", TaskConfiguration{Commands: []string{"echo"}, Nodes: 4}, 4},
		{"task nodes=1 explicit", TaskConfiguration{Commands: []string{"echo"}, Nodes: 1}, 1},
		{"service default one", ServiceConfiguration{Commands: []string{"serve"}}, 1},
		{"service multi-replica", ServiceConfiguration{Commands: []string{"serve"}, Replicas: 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jobCount(tt.cfg); got != tt.want {
				t.Errorf("jobCount(%+v) = %d, want %d", tt.cfg, got, tt.want)
			}
		})
	}
}

func TestJobSpecFor_Task(t *testing.T) {
	spec := Spec{RunName: "my-run", Configuration: TaskConfiguration{Commands: []string{"python", "train.py"}}}
	js := jobSpecFor(spec, 1)
	if js.JobName != "my-run-1" {
		t.Errorf("JobName = %q, want %q", js.JobName, "my-run-1")
	}
	if len(js.Commands) != 2 || js.Commands[0] != "python" {
		t.Errorf("Commands = %v, want the task's commands", js.Commands)
	}
	if js.Gateway != nil {
		t.Error("Gateway should be nil for a task")
	}
}

func TestJobSpecFor_ServiceWithPort(t *testing.T) {
	spec := Spec{RunName: "svc", Configuration: ServiceConfiguration{Commands: []string{"serve"}, Port: 8080}}
	js := jobSpecFor(spec, 0)
	if len(js.Ports) != 1 || js.Ports[0].ContainerPort != 8080 {
		t.Errorf("Ports = %v, want [{ContainerPort: 8080}]", js.Ports)
	}
	if js.Gateway == nil {
		t.Error("Gateway should be set when a port is configured")
	}
}

func TestJobSpecFor_ServiceWithoutPort(t *testing.T) {
	spec := Spec{RunName: "svc", Configuration: ServiceConfiguration{Commands: []string{"serve"}}}
	js := jobSpecFor(spec, 0)
	if js.Ports != nil || js.Gateway != nil {
		t.Errorf("expected no ports/gateway without a configured port, got %+v / %+v", js.Ports, js.Gateway)
	}
}

func TestJobSpecFor_DevEnvironment(t *testing.T) {
	spec := Spec{RunName: "dev", Configuration: DevEnvironmentConfiguration{IDE: "vscode"}}
	js := jobSpecFor(spec, 0)
	if js.Commands != nil {
		t.Errorf("Commands = %v, want nil for a dev environment", js.Commands)
	}
}

func TestLatestSubmissionPerJobNum(t *testing.T) {
	id0a, id0b, id1 := uuid.New(), uuid.New(), uuid.New()
	jobs := []job.Job{
		{ID: id0a, JobNum: 0, SubmissionNum: 0, Status: job.StatusFailed},
		{ID: id0b, JobNum: 0, SubmissionNum: 1, Status: job.StatusRunning},
		{ID: id1, JobNum: 1, SubmissionNum: 0, Status: job.StatusRunning},
	}
	latest := latestSubmissionPerJobNum(jobs)
	if len(latest) != 2 {
		t.Fatalf("latestSubmissionPerJobNum() returned %d jobs, want 2 (one per job_num)", len(latest))
	}
	byNum := map[int]job.Job{}
	for _, j := range latest {
		byNum[j.JobNum] = j
	}
	if byNum[0].ID != id0b {
		t.Errorf("job_num 0 = %s, want the latest resubmission %s", byNum[0].ID, id0b)
	}
	if byNum[1].ID != id1 {
		t.Errorf("job_num 1 = %s, want %s", byNum[1].ID, id1)
	}
}
