// Package provisioning implements the Provisioner (C3): given a job that
// found no reusable instance in its pool, walk live backend offers
// cheapest-first and launch the first one that succeeds. Grounded on
// original_source's process_submitted_jobs.py `_run_job`.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/skyfleet/orchestrator/pkg/compute"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

// offerCacheTTL bounds how long a fetched offer set is reused across jobs
// asking the same (requirements, profile, backend set) within one tick,
// grounded on karpenter-core's pretty.ChangeMonitor / aws's
// UnavailableOfferings cache.New(ttl, cleanupInterval) shape (patrickmn/go-cache).
// Offers are still ephemeral per spec.md §3 — this only spares the backends
// a redundant ListOffers call when several jobs in the same batch want the
// same shape of instance.
const offerCacheTTL = 5 * time.Second

// launchAttempts is how many times Provision retries a single offer's
// Launch call before falling through to the next offer, per DESIGN.md's
// C3 grounding on original_source's per-offer retry behavior.
const launchAttempts = 2

// Result is what Provision returns on a successful launch.
type Result struct {
	ProvisioningData job.ProvisioningData
	Offer            offer.Offer
}

// Provisioner launches new instances by walking live backend offers.
type Provisioner struct {
	registry   *compute.Registry
	offerCache *cache.Cache
}

// New builds a Provisioner over the given backend registry.
func New(registry *compute.Registry) *Provisioner {
	return &Provisioner{
		registry:   registry,
		offerCache: cache.New(offerCacheTTL, 2*offerCacheTTL),
	}
}

// offerCacheKey hashes the inputs that fully determine an Offers() call's
// result set, so two jobs with identical requirements/profile/backend set
// within offerCacheTTL share one backend round trip.
func offerCacheKey(req offer.Requirements, prof profile.Profile, backends []offer.BackendType) (string, error) {
	hv, err := hashstructure.Hash(struct {
		Req      offer.Requirements
		Prof     profile.Profile
		Backends []offer.BackendType
	}{req, prof, backends}, hashstructure.FormatV2, &hashstructure.HashOptions{SlicesAsSets: true})
	if err != nil {
		return "", fmt.Errorf("hashing offer request: %w", err)
	}
	return fmt.Sprintf("%x", hv), nil
}

// Offers fans out ListOffers across every registered backend allowed by p's
// backend allow-list, with per-backend partial failure tolerated (a
// backend's offer fetch erroring doesn't fail the whole call) — grounded on
// backends_services.get_instance_offers's per-backend try/except, expressed
// here as a bounded concurrent fan-out (errgroup) instead of the original's
// sequential await loop. Each backend's ListOffers call is bounded by a 10 s
// timeout. Results are cached for offerCacheTTL, keyed by a content hash of
// (req, prof, backends).
func (p *Provisioner) Offers(ctx context.Context, req offer.Requirements, prof profile.Profile) ([]offer.Offer, error) {
	backends := p.registry.All()
	types := make([]offer.BackendType, len(backends))
	for i, b := range backends {
		types[i] = b.Type()
	}

	key, err := offerCacheKey(req, prof, types)
	if err == nil {
		if cached, ok := p.offerCache.Get(key); ok {
			return cached.([]offer.Offer), nil
		}
	}

	results := make([][]offer.Offer, len(backends))
	errs := make([]error, len(backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		i, b := i, b
		if len(prof.Backends) > 0 && !contains(prof.Backends, string(b.Type())) {
			continue
		}
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(gctx, 10*time.Second)
			defer cancel()
			offers, err := b.ListOffers(bctx, req, prof)
			if err != nil {
				errs[i] = fmt.Errorf("backend %s: %w", b.Type(), err)
				return nil // partial failure: don't cancel siblings
			}
			results[i] = offers
			return nil
		})
	}
	_ = g.Wait()

	var combinedErr error
	for _, e := range errs {
		if e != nil {
			combinedErr = multierr.Append(combinedErr, e)
		}
	}

	var all []offer.Offer
	for _, r := range results {
		all = append(all, r...)
	}
	if len(all) == 0 && combinedErr != nil {
		return nil, combinedErr
	}

	filtered := offer.Filter(all, req, prof)
	if key != "" {
		p.offerCache.SetDefault(key, filtered)
	}
	return filtered, nil
}

// Provision walks offers, sorted cheapest-first (offer.Sort), launching the
// first one whose backend accepts, per spec.md §4.3. Each offer gets up to
// launchAttempts tries (avast/retry-go) before being given up on: a
// retriable backend error is worth retrying once in place (the capacity
// blip may already be gone), but after that falls through to the next
// offer; a non-retriable error aborts the whole walk immediately, matching
// `_run_job`'s early-return-on-non-BackendError behavior (there, any
// non-BackendError exception propagates uncaught).
func (p *Provisioner) Provision(ctx context.Context, jobID uuid.UUID, poolID uuid.UUID, offers []offer.Offer, req offer.Requirements, prof profile.Profile, launchName string, sshPublicKey string) (*Result, error) {
	sorted := offer.Sort(offers, prof)
	for _, o := range sorted {
		backend, ok := p.registry.Get(o.Backend)
		if !ok {
			continue
		}

		var pdata job.ProvisioningData
		var aborted error
		err := retry.Do(
			func() error {
				var launchErr error
				pdata, launchErr = backend.Launch(ctx, compute.LaunchRequest{
					InstanceName: launchName,
					Offer:        o,
					Requirements: req,
					SSHPublicKey: sshPublicKey,
				})
				return launchErr
			},
			retry.Attempts(launchAttempts),
			retry.Delay(200*time.Millisecond),
			retry.RetryIf(func(err error) bool {
				var berr *compute.BackendError
				if isBackendError(err, &berr) {
					if !berr.Retriable {
						aborted = err
					}
					return berr.Retriable
				}
				aborted = err
				return false
			}),
			retry.LastErrorOnly(true),
		)
		if aborted != nil {
			return nil, aborted
		}
		if err != nil {
			continue
		}
		pdata.PoolID = poolID
		return &Result{ProvisioningData: pdata, Offer: o}, nil
	}
	return nil, nil
}

func isBackendError(err error, target **compute.BackendError) bool {
	return errors.As(err, target)
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
