package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/pkg/compute"
	"github.com/skyfleet/orchestrator/pkg/compute/fake"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/profile"
)

func TestOffers_PartialFailure(t *testing.T) {
	reg := compute.NewRegistry()
	good := fake.New("aws")
	good.Offers = []offer.Offer{{Backend: "aws", InstanceType: offer.InstanceResources{Name: "g5.xlarge", CPUs: 4, MemoryMiB: 16384}, Price: 0.5}}
	reg.Register(good)
	reg.Register(badOffersBackend{fake.New("gcp")})

	p := New(reg)
	offers, err := p.Offers(context.Background(), offer.Requirements{CPUs: 2, MemoryMiB: 8192}, profile.Profile{})
	if err != nil {
		t.Fatalf("Offers() error = %v, want nil (partial failure tolerated)", err)
	}
	if len(offers) != 1 || offers[0].Backend != "aws" {
		t.Errorf("Offers() = %+v, want just the aws offer", offers)
	}
}

func TestOffers_AllFail(t *testing.T) {
	reg := compute.NewRegistry()
	reg.Register(badOffersBackend{fake.New("aws")})
	reg.Register(badOffersBackend{fake.New("gcp")})

	p := New(reg)
	_, err := p.Offers(context.Background(), offer.Requirements{CPUs: 2, MemoryMiB: 8192}, profile.Profile{})
	if err == nil {
		t.Error("Offers() error = nil, want an error when every backend fails")
	}
}

func TestOffers_Cached(t *testing.T) {
	reg := compute.NewRegistry()
	c := fake.New("aws")
	c.Offers = []offer.Offer{{Backend: "aws", InstanceType: offer.InstanceResources{Name: "g5.xlarge", CPUs: 4, MemoryMiB: 16384}, Price: 0.5}}
	reg.Register(c)

	p := New(reg)
	req := offer.Requirements{CPUs: 2, MemoryMiB: 8192}
	first, err := p.Offers(context.Background(), req, profile.Profile{})
	if err != nil {
		t.Fatalf("Offers() error = %v", err)
	}

	// Mutate the backend's live offers; a cached second call should not see
	// the change within offerCacheTTL.
	c.Offers = nil
	second, err := p.Offers(context.Background(), req, profile.Profile{})
	if err != nil {
		t.Fatalf("Offers() error = %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("Offers() second call = %+v, want cached result %+v", second, first)
	}
}

func TestProvision_FallsThroughOnRetriableError(t *testing.T) {
	reg := compute.NewRegistry()
	flaky := fake.New("aws")
	flaky.LaunchErr = &compute.BackendError{Retriable: true, Err: errors.New("capacity blip")}
	reliable := fake.New("gcp")
	reg.Register(flaky)
	reg.Register(reliable)

	offers := []offer.Offer{
		{Backend: "aws", InstanceType: offer.InstanceResources{Name: "g5.xlarge"}, Price: 0.3},
		{Backend: "gcp", InstanceType: offer.InstanceResources{Name: "n1"}, Price: 0.5},
	}

	p := New(reg)
	result, err := p.Provision(context.Background(), uuid.New(), uuid.New(), offers, offer.Requirements{}, profile.Profile{}, "test-instance", "")
	if err != nil {
		t.Fatalf("Provision() error = %v, want nil (falls through to the working offer)", err)
	}
	if result == nil || result.Offer.Backend != "gcp" {
		t.Errorf("Provision() = %+v, want a result launched on gcp", result)
	}
}

func TestProvision_AbortsOnNonRetriableError(t *testing.T) {
	reg := compute.NewRegistry()
	broken := fake.New("aws")
	broken.LaunchErr = &compute.BackendError{Retriable: false, Err: errors.New("quota exceeded")}
	reliable := fake.New("gcp")
	reg.Register(broken)
	reg.Register(reliable)

	offers := []offer.Offer{
		{Backend: "aws", InstanceType: offer.InstanceResources{Name: "g5.xlarge"}, Price: 0.3},
		{Backend: "gcp", InstanceType: offer.InstanceResources{Name: "n1"}, Price: 0.5},
	}

	p := New(reg)
	result, err := p.Provision(context.Background(), uuid.New(), uuid.New(), offers, offer.Requirements{}, profile.Profile{}, "test-instance", "")
	if err == nil {
		t.Fatal("Provision() error = nil, want the non-retriable backend error")
	}
	if result != nil {
		t.Errorf("Provision() result = %+v, want nil on abort", result)
	}
}

func TestProvision_NoOffersExhausted(t *testing.T) {
	reg := compute.NewRegistry()
	p := New(reg)
	result, err := p.Provision(context.Background(), uuid.New(), uuid.New(), nil, offer.Requirements{}, profile.Profile{}, "test-instance", "")
	if err != nil {
		t.Fatalf("Provision() error = %v, want nil", err)
	}
	if result != nil {
		t.Errorf("Provision() = %+v, want nil when there are no offers", result)
	}
}

// badOffersBackend wraps a fake.Compute to force ListOffers to fail, since
// fake.Compute itself has no knob for that (it's driven by LaunchErr for
// Launch failures only).
type badOffersBackend struct {
	*fake.Compute
}

func (b badOffersBackend) ListOffers(ctx context.Context, req offer.Requirements, p profile.Profile) ([]offer.Offer, error) {
	return nil, errors.New("backend unreachable")
}
