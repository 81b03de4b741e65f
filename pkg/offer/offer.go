// Package offer models a priced, concrete opportunity to launch an instance
// type in a region on a backend (an Offer), the resource Requirements a job
// asks to be matched against, and the filtering/sorting rules shared by the
// offer aggregator (C1) and the pool manager (C2) — both apply the exact
// same profile filter to a list of offers, one fetched live from backends,
// the other frozen on an already-provisioned Instance.
package offer

import (
	"sort"

	"github.com/samber/lo"

	"github.com/skyfleet/orchestrator/pkg/profile"
)

// BackendType identifies a cloud backend adapter (aws, gcp, azure, ...).
// The core never special-cases a concrete backend; it only compares type
// strings against profile.Backends.
type BackendType string

// GPUSpec describes the GPU portion of a Requirements or an Offer's
// instance type.
type GPUSpec struct {
	Count             int     `json:"count"`
	Name              string  `json:"name,omitempty"`
	MemoryMiB         int     `json:"memory_mib,omitempty"`
	TotalMemoryMiB    int     `json:"total_memory_mib,omitempty"`
	ComputeCapability string  `json:"compute_capability,omitempty"`
}

// Requirements is the scheduler's matching input: what a job needs.
type Requirements struct {
	CPUs       float64  `json:"cpus"`
	MemoryMiB  int      `json:"memory_mib"`
	GPU        *GPUSpec `json:"gpus,omitempty"`
	ShmSizeMiB int      `json:"shm_size_mib,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	Spot       *bool    `json:"spot,omitempty"`
}

// InstanceResources is the resource shape of a concrete instance type, as
// reported by a backend's offer. It is compared against Requirements by
// Satisfies.
type InstanceResources struct {
	Name      string   `json:"name"`
	CPUs      float64  `json:"cpus"`
	MemoryMiB int      `json:"memory_mib"`
	GPU       *GPUSpec `json:"gpus,omitempty"`
}

// Satisfies reports whether instance resources r meet requirements req.
func (r InstanceResources) Satisfies(req Requirements) bool {
	if r.CPUs < req.CPUs {
		return false
	}
	if r.MemoryMiB < req.MemoryMiB {
		return false
	}
	if req.GPU == nil || req.GPU.Count == 0 {
		return true
	}
	if r.GPU == nil || r.GPU.Count < req.GPU.Count {
		return false
	}
	if req.GPU.Name != "" && r.GPU.Name != req.GPU.Name {
		return false
	}
	if req.GPU.MemoryMiB > 0 && r.GPU.MemoryMiB < req.GPU.MemoryMiB {
		return false
	}
	if req.GPU.TotalMemoryMiB > 0 && r.GPU.TotalMemoryMiB < req.GPU.TotalMemoryMiB {
		return false
	}
	if req.GPU.ComputeCapability != "" && r.GPU.ComputeCapability != req.GPU.ComputeCapability {
		return false
	}
	return true
}

// Offer is a priced, concrete opportunity to launch InstanceType on Backend
// in Region, optionally as spot. Offers are ephemeral — they're never
// persisted except as the frozen offer of an Instance.
type Offer struct {
	Backend      BackendType       `json:"backend"`
	Region       string            `json:"region"`
	InstanceType InstanceResources `json:"instance_type"`
	Spot         bool              `json:"spot"`
	Price        float64           `json:"price"`
	Available    bool              `json:"available"`
}

// MatchesProfile applies the filters §4.1 specifies for list_offers: backend
// allow-list, region allow-list, instance-type allow-list, max price, and
// spot policy. The pool manager applies this exact function to a frozen
// offer so "is this pooled instance usable for this job" and "is this fresh
// backend offer usable" share one rule.
func (o Offer) MatchesProfile(p profile.Profile) bool {
	if len(p.Backends) > 0 && !lo.Contains(p.Backends, string(o.Backend)) {
		return false
	}
	if len(p.Regions) > 0 && !lo.Contains(p.Regions, o.Region) {
		return false
	}
	if len(p.InstanceTypes) > 0 && !lo.Contains(p.InstanceTypes, o.InstanceType.Name) {
		return false
	}
	if p.MaxPrice != nil && o.Price > *p.MaxPrice {
		return false
	}
	switch p.SpotPolicy {
	case profile.SpotPolicySpot:
		if !o.Spot {
			return false
		}
	case profile.SpotPolicyOnDemand:
		if o.Spot {
			return false
		}
	}
	return true
}

// Filter narrows offers to those matching both req and p, per §4.1/§4.2.
func Filter(offers []Offer, req Requirements, p profile.Profile) []Offer {
	return lo.Filter(offers, func(o Offer, _ int) bool {
		return o.InstanceType.Satisfies(req) && o.MatchesProfile(p)
	})
}

// Sort orders offers deterministically: price ascending, spot-first when
// the policy is "auto", then backend name, region, instance type — the
// stable ordering spec.md §4.1 calls out as a testable property (I4).
func Sort(offers []Offer, p profile.Profile) []Offer {
	out := make([]Offer, len(offers))
	copy(out, offers)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if p.SpotPolicy == profile.SpotPolicyAuto && a.Spot != b.Spot {
			return a.Spot
		}
		if a.Backend != b.Backend {
			return a.Backend < b.Backend
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return a.InstanceType.Name < b.InstanceType.Name
	})
	return out
}
