// Package run implements the Run entity: a user-submitted unit of work
// identified by (project, run_name), holding an immutable RunSpec and
// owning one or more Jobs.
package run

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/internal/jsonstrict"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// Status mirrors the status of the run's first job's latest submission
// (spec.md §3, §4.4).
type Status = job.Status

// RepoRef points at the repository a run's code was pulled from. Out of
// scope to resolve (that's the CLI/artifact-upload collaborator's job) —
// the core only stores and round-trips it.
type RepoRef struct {
	RepoID string `json:"repo_id,omitempty"`
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// Spec is the immutable configuration of a Run: the discriminated
// configuration union, policy profile, and optional repo reference.
type Spec struct {
	RunName       string             `json:"run_name"`
	Configuration Configuration      `json:"configuration"`
	Profile       profile.Profile    `json:"profile"`
	Repo          *RepoRef           `json:"repo,omitempty"`
}

// specWire is Spec's on-the-wire shape: Configuration is stored as raw JSON
// so it can be resolved through UnmarshalConfiguration/MarshalConfiguration.
type specWire struct {
	RunName       string          `json:"run_name"`
	Configuration json.RawMessage `json:"configuration"`
	Profile       profile.Profile `json:"profile"`
	Repo          *RepoRef        `json:"repo,omitempty"`
}

// MarshalJSON implements json.Marshaler, tagging Configuration with its
// variant type so it round-trips through UnmarshalJSON.
func (s Spec) MarshalJSON() ([]byte, error) {
	cfgRaw, err := MarshalConfiguration(s.Configuration)
	if err != nil {
		return nil, fmt.Errorf("marshaling run spec configuration: %w", err)
	}
	return json.Marshal(specWire{
		RunName:       s.RunName,
		Configuration: cfgRaw,
		Profile:       s.Profile,
		Repo:          s.Repo,
	})
}

// UnmarshalJSON implements json.Unmarshaler, resolving the Configuration
// union from its "type" tag and rejecting unknown fields everywhere else.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var wire specWire
	if err := jsonstrict.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding run spec: %w", err)
	}
	cfg, err := UnmarshalConfiguration(wire.Configuration)
	if err != nil {
		return err
	}
	s.RunName = wire.RunName
	s.Configuration = cfg
	s.Profile = wire.Profile
	s.Repo = wire.Repo
	return nil
}

// Run is a user-submitted unit of work.
type Run struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	RunName     string
	Spec        Spec
	Status      Status
	Deleted     bool
	SubmittedAt time.Time
}

// DeriveStatus implements spec.md §4.4's "Run status is the status of the
// first job's latest submission; multi-job runs aggregate by 'first
// non-terminal, else last'". latestPerJobNum must contain exactly one Job
// per job_num (the highest submission_num for that job_num).
func DeriveStatus(latestPerJobNum []job.Job) Status {
	if len(latestPerJobNum) == 0 {
		return job.StatusSubmitted
	}
	for _, j := range latestPerJobNum {
		if !j.Status.Terminal() {
			return j.Status
		}
	}
	return latestPerJobNum[len(latestPerJobNum)-1].Status
}
