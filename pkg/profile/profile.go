// Package profile holds the tunable policy block attached to a run: which
// backends/regions/instance types it's willing to use, its spot preference,
// retry window, and instance creation/termination policy. It has no
// dependency on the run/job/instance packages so every component that needs
// to read a policy decision (offer aggregation, pool matching, provisioning,
// retry) can import it without a cycle.
package profile

import "time"

// SpotPolicy controls whether a run accepts spot, on-demand, or either.
type SpotPolicy string

const (
	SpotPolicyOnDemand SpotPolicy = "on-demand"
	SpotPolicySpot     SpotPolicy = "spot"
	SpotPolicyAuto     SpotPolicy = "auto"
)

// CreationPolicy controls whether the scheduler may provision a new instance
// when no pooled instance satisfies a job's requirements.
type CreationPolicy string

const (
	// CreationPolicyReuse never provisions; a miss in the pool is a failure.
	CreationPolicyReuse CreationPolicy = "reuse"
	// CreationPolicyReuseOrCreate provisions a new instance on a pool miss.
	CreationPolicyReuseOrCreate CreationPolicy = "reuse-or-create"
)

// TerminationPolicy controls what happens to an instance once it goes idle.
type TerminationPolicy string

const (
	TerminationPolicyDestroyAfterIdle TerminationPolicy = "destroy-after-idle"
	TerminationPolicyDontDestroy      TerminationPolicy = "dont-destroy"
)

// DefaultTerminationIdleTime is applied when a profile doesn't set one.
const DefaultTerminationIdleTime = 3 * 24 * time.Hour

// DefaultPoolName is the pool every project gets on first use.
const DefaultPoolName = "default"

// Retry encodes profile.retry: false, true (default window), or an explicit
// duration. The zero value is "no retry".
type Retry struct {
	Enabled bool
	// Window is the duration retry stays active for, measured from the
	// run's submission time. Ignored when Enabled is false. Zero means
	// "use DefaultRetryWindow".
	Window time.Duration
}

// DefaultRetryWindow is used when Retry.Enabled is true but Window is zero
// (the `profile.retry: true` shorthand, with no explicit duration).
const DefaultRetryWindow = 1 * time.Hour

// EffectiveWindow returns the duration retry stays active for.
func (r Retry) EffectiveWindow() time.Duration {
	if r.Window > 0 {
		return r.Window
	}
	return DefaultRetryWindow
}

// Profile is the policy block attached to a RunSpec.
type Profile struct {
	Backends             []string          `json:"backends,omitempty"`
	Regions              []string          `json:"regions,omitempty"`
	InstanceTypes        []string          `json:"instance_types,omitempty"`
	SpotPolicy           SpotPolicy        `json:"spot_policy,omitempty"`
	Retry                Retry             `json:"retry,omitempty"`
	CreationPolicy       CreationPolicy    `json:"creation_policy,omitempty"`
	TerminationPolicy    TerminationPolicy `json:"termination_policy,omitempty"`
	TerminationIdleTime  time.Duration     `json:"termination_idle_time,omitempty"`
	PoolName             string            `json:"pool_name,omitempty"`
	MaxPrice             *float64          `json:"max_price,omitempty"`
}

// Normalized returns a copy of p with every zero-valued policy field set to
// its documented default. Call this once when a RunSpec is parsed so every
// downstream component can read fields directly without re-deriving
// defaults.
func (p Profile) Normalized() Profile {
	if p.SpotPolicy == "" {
		p.SpotPolicy = SpotPolicyOnDemand
	}
	if p.CreationPolicy == "" {
		p.CreationPolicy = CreationPolicyReuseOrCreate
	}
	if p.TerminationPolicy == "" {
		p.TerminationPolicy = TerminationPolicyDestroyAfterIdle
	}
	if p.TerminationIdleTime == 0 {
		p.TerminationIdleTime = DefaultTerminationIdleTime
	}
	if p.PoolName == "" {
		p.PoolName = DefaultPoolName
	}
	return p
}
