package pool

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// Manager implements the Pool Manager (C2): matching a job's requirements
// against a pool's idle instances before the Provisioner (C3) is asked to
// launch a new one, and reclaiming instances once their owning job ends.
type Manager struct {
	pools     *Store
	instances *instance.Store
}

// NewManager builds a Manager over the given stores.
func NewManager(pools *Store, instances *instance.Store) *Manager {
	return &Manager{pools: pools, instances: instances}
}

// ClaimIdle finds the cheapest idle instance in the project's pool (named by
// p.PoolName, auto-created if absent) satisfying req and p, atomically
// claims it for jobID, and returns it. found is false if no idle instance
// matched, in which case the caller falls through to the Provisioner.
//
// Claiming uses instance.Store.TryClaim's conditional UPDATE so concurrent
// control-loop goroutines racing on the same pool never double-assign the
// same instance (spec.md §8 scenario 6).
func (m *Manager) ClaimIdle(ctx context.Context, projectID uuid.UUID, jobID uuid.UUID, req offer.Requirements, p profile.Profile) (inst instance.Instance, found bool, err error) {
	pl, err := m.pools.EnsureDefault(ctx, projectID, p.PoolName)
	if err != nil {
		return instance.Instance{}, false, fmt.Errorf("resolving pool: %w", err)
	}
	claimable, err := m.instances.ListClaimableInPool(ctx, pl.ID)
	if err != nil {
		return instance.Instance{}, false, fmt.Errorf("listing claimable instances: %w", err)
	}

	candidates := lo.Filter(claimable, func(i instance.Instance, _ int) bool {
		return i.Offer.Available && i.Offer.MatchesProfile(p) && i.Offer.InstanceType.Satisfies(req)
	})
	if len(candidates) == 0 {
		return instance.Instance{}, false, nil
	}
	sorted := sortClaimable(candidates)

	// Tie-break rule (spec.md §8 scenario 6): walk candidates cheapest-first,
	// taking the first whose conditional claim actually succeeds, since a
	// sibling control-loop tick may win the cheapest one first.
	for _, cand := range sorted {
		ok, err := m.instances.TryClaim(ctx, cand.ID, jobID)
		if err != nil {
			return instance.Instance{}, false, fmt.Errorf("claiming instance %s: %w", cand.ID, err)
		}
		if ok {
			cand.Status = instance.StatusBusy
			j := jobID
			cand.JobID = &j
			return cand, true, nil
		}
	}
	return instance.Instance{}, false, nil
}

// Release returns an instance to the idle pool once its owning job ends.
func (m *Manager) Release(ctx context.Context, instanceID uuid.UUID) error {
	return m.instances.Release(ctx, instanceID)
}

// sortClaimable orders idle instance candidates by the Pool Manager's own
// tie-break (spec.md §4.2): lowest price first, then lexicographic instance
// type name. This is deliberately its own rule rather than a reuse of
// offer.Sort, which tie-breaks fresh C1 offers by backend/region/instance
// type for list_offers — claiming an already-provisioned instance has no
// "prefer this backend" concern, only "prefer the cheaper, then the more
// predictable, already-idle machine".
func sortClaimable(instances []instance.Instance) []instance.Instance {
	out := make([]instance.Instance, len(instances))
	copy(out, instances)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Offer, out[j].Offer
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.InstanceType.Name < b.InstanceType.Name
	})
	return out
}
