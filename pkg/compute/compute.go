// Package compute defines the Compute capability (C7): the collaborator
// interface backend adapters implement to list offers and launch/terminate
// instances. Concrete backend adapters (AWS, GCP, Azure, ...) are out of
// scope (spec.md §11 Non-goals); this package and pkg/compute/fake give the
// scheduler something real to drive in tests.
package compute

import (
	"context"
	"fmt"

	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// LaunchRequest carries everything a backend needs to launch one instance
// for the winning Offer chosen by the Provisioner (C3).
type LaunchRequest struct {
	ProjectID    string
	InstanceName string
	Offer        offer.Offer
	Requirements offer.Requirements
	SSHPublicKey string
}

// BackendError wraps a backend failure with whether retrying the same (or
// next) offer is worthwhile, per spec.md §8's error taxonomy.
type BackendError struct {
	Retriable bool
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (retriable=%v): %v", e.Retriable, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Compute is implemented once per backend (aws, gcp, azure, ...) and is the
// sole abstraction the Provisioner (C3) and Offer Aggregator (C1) use to
// reach cloud capacity.
type Compute interface {
	// Type identifies which BackendType this implementation serves.
	Type() offer.BackendType

	// ListOffers returns every offer this backend currently has available
	// that could satisfy req, before profile/pool filtering is applied.
	ListOffers(ctx context.Context, req offer.Requirements, p profile.Profile) ([]offer.Offer, error)

	// Launch provisions an instance for req.Offer, returning the backend's
	// provisioning data once the instance is reachable. Launch may block for
	// the backend's typical launch latency; callers apply their own timeout.
	Launch(ctx context.Context, req LaunchRequest) (job.ProvisioningData, error)

	// Terminate releases a previously launched instance. Idempotent: calling
	// Terminate on an already-terminated instance is not an error.
	Terminate(ctx context.Context, pdata job.ProvisioningData) error

	// PollRuntime asks the on-host agent for a launched job's current
	// runtime status, over SSH/HTTP per spec.md §4.5's process_running_jobs
	// description. The agent protocol itself is out of scope (spec.md §11
	// Non-goals); backend adapters own reaching it.
	PollRuntime(ctx context.Context, pdata job.ProvisioningData) (RuntimeStatus, error)

	// StopRuntime asks the on-host agent to stop the job gracefully, for
	// process_terminating_jobs's graceful-shutdown step.
	StopRuntime(ctx context.Context, pdata job.ProvisioningData) error
}

// RuntimeStatus is what the on-host agent reports back for a launched job.
type RuntimeStatus struct {
	Running     bool
	Done        bool
	Failed      bool
	ExitCode    *int
	Unreachable bool // the instance itself appears gone (spot reclaim, crash)
}

// Registry resolves a Compute implementation by BackendType, grounded on the
// teacher's provider-registry pattern (pkg/messaging/registry.go) — the
// registry shape is kept even though the concrete messaging providers it
// held were dropped as out of scope.
type Registry struct {
	backends map[offer.BackendType]Compute
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[offer.BackendType]Compute)}
}

// Register adds a backend implementation, keyed by its own Type().
func (r *Registry) Register(c Compute) {
	r.backends[c.Type()] = c
}

// Get returns the Compute implementation for backend, or false if none is
// registered (a project enabled a backend with no adapter wired in).
func (r *Registry) Get(backend offer.BackendType) (Compute, bool) {
	c, ok := r.backends[backend]
	return c, ok
}

// All returns every registered backend, in no particular order, for the
// Offer Aggregator's (C1) fan-out.
func (r *Registry) All() []Compute {
	out := make([]Compute, 0, len(r.backends))
	for _, c := range r.backends {
		out = append(out, c)
	}
	return out
}
