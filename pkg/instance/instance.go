// Package instance implements the Instance entity: a backend-provisioned
// compute resource, either leased to a single job or held idle in a Pool
// for reuse.
package instance

import (
	"time"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
)

// Status is an Instance's position in its state machine (spec.md §4.4).
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusCreating    Status = "CREATING"
	StatusStarting    Status = "STARTING"
	StatusReady       Status = "READY"
	StatusIdle        Status = "IDLE"
	StatusBusy        Status = "BUSY"
	StatusTerminating Status = "TERMINATING"
	StatusTerminated  Status = "TERMINATED"
)

// Terminal reports whether an Instance in this status will never transition
// again and holds no backend resource.
func (s Status) Terminal() bool {
	return s == StatusTerminated
}

// Claimable reports whether the Pool Manager (C2) may claim this instance
// for a job: READY is the first-ever claim (the instance was just
// provisioned and its agent confirmed reachable), IDLE is a reclaim after a
// prior job released it (spec.md §4.2, §4.4).
func (s Status) Claimable() bool {
	return s == StatusReady || s == StatusIdle
}

// Instance is a backend-provisioned compute resource.
type Instance struct {
	ID               uuid.UUID
	PoolID           uuid.UUID
	ProjectID        uuid.UUID
	Offer            offer.Offer
	ProvisioningData *job.ProvisioningData
	Status           Status
	JobID            *uuid.UUID
	IdleSince         *time.Time
	CreatedAt        time.Time
}

// Available reports whether the instance can be claimed by the Pool Manager
// for a new job (spec.md §4.2): agent reachable (READY or IDLE) and not
// mid-termination.
func (i Instance) Available() bool {
	return i.Status.Claimable()
}
