// Package fake provides an in-memory Compute implementation for exercising
// the scheduler's control loops and the Provisioner (C3) in tests, without a
// real backend adapter (spec.md §11 Non-goals excludes those).
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/skyfleet/orchestrator/pkg/compute"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// Compute is a fully in-memory compute.Compute. Offers is consulted as-is
// by ListOffers; LaunchErr/TerminateErr let tests inject backend failures.
type Compute struct {
	BackendType  offer.BackendType
	Offers       []offer.Offer
	LaunchErr    error
	TerminateErr error
	// RuntimeStatuses lets tests script what PollRuntime reports for a given
	// instance ID, defaulting to {Running: true} when absent.
	RuntimeStatuses map[string]compute.RuntimeStatus

	mu        sync.Mutex
	launched  map[string]job.ProvisioningData
	launchSeq int
}

// New builds a fake Compute for the given backend.
func New(backend offer.BackendType) *Compute {
	return &Compute{BackendType: backend, launched: make(map[string]job.ProvisioningData)}
}

func (c *Compute) Type() offer.BackendType { return c.BackendType }

func (c *Compute) ListOffers(ctx context.Context, req offer.Requirements, p profile.Profile) ([]offer.Offer, error) {
	return offer.Filter(c.Offers, req, p), nil
}

func (c *Compute) Launch(ctx context.Context, req compute.LaunchRequest) (job.ProvisioningData, error) {
	if c.LaunchErr != nil {
		return job.ProvisioningData{}, c.LaunchErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launchSeq++
	id := fmt.Sprintf("%s-instance-%d", c.BackendType, c.launchSeq)
	pdata := job.ProvisioningData{
		Backend:      c.BackendType,
		InstanceType: req.Offer.InstanceType.Name,
		InstanceID:   id,
		Region:       req.Offer.Region,
		Price:        req.Offer.Price,
		Dockerized:   true,
	}
	c.launched[id] = pdata
	return pdata, nil
}

func (c *Compute) Terminate(ctx context.Context, pdata job.ProvisioningData) error {
	if c.TerminateErr != nil {
		return c.TerminateErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.launched, pdata.InstanceID)
	return nil
}

func (c *Compute) PollRuntime(ctx context.Context, pdata job.ProvisioningData) (compute.RuntimeStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status, ok := c.RuntimeStatuses[pdata.InstanceID]; ok {
		return status, nil
	}
	return compute.RuntimeStatus{Running: true}, nil
}

func (c *Compute) StopRuntime(ctx context.Context, pdata job.ProvisioningData) error {
	return nil
}

// Launched returns a snapshot of currently-launched instance IDs, for test
// assertions.
func (c *Compute) Launched() map[string]job.ProvisioningData {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]job.ProvisioningData, len(c.launched))
	for k, v := range c.launched {
		out[k] = v
	}
	return out
}
