package offer

import (
	"testing"

	"github.com/skyfleet/orchestrator/pkg/profile"
)

func TestInstanceResources_Satisfies(t *testing.T) {
	tests := []struct {
		name string
		res  InstanceResources
		req  Requirements
		want bool
	}{
		{
			name: "meets cpu and memory",
			res:  InstanceResources{CPUs: 4, MemoryMiB: 16384},
			req:  Requirements{CPUs: 2, MemoryMiB: 8192},
			want: true,
		},
		{
			name: "insufficient cpu",
			res:  InstanceResources{CPUs: 1, MemoryMiB: 16384},
			req:  Requirements{CPUs: 2, MemoryMiB: 8192},
			want: false,
		},
		{
			name: "insufficient memory",
			res:  InstanceResources{CPUs: 4, MemoryMiB: 4096},
			req:  Requirements{CPUs: 2, MemoryMiB: 8192},
			want: false,
		},
		{
			name: "gpu required but absent",
			res:  InstanceResources{CPUs: 4, MemoryMiB: 16384},
			req:  Requirements{CPUs: 2, MemoryMiB: 8192, GPU: &GPUSpec{Count: 1}},
			want: false,
		},
		{
			name: "gpu count satisfied, name mismatch",
			res:  InstanceResources{CPUs: 4, MemoryMiB: 16384, GPU: &GPUSpec{Count: 1, Name: "A10G"}},
			req:  Requirements{CPUs: 2, MemoryMiB: 8192, GPU: &GPUSpec{Count: 1, Name: "H100"}},
			want: false,
		},
		{
			name: "gpu fully satisfied",
			res:  InstanceResources{CPUs: 4, MemoryMiB: 16384, GPU: &GPUSpec{Count: 1, Name: "A10G", MemoryMiB: 24576}},
			req:  Requirements{CPUs: 2, MemoryMiB: 8192, GPU: &GPUSpec{Count: 1, Name: "A10G", MemoryMiB: 16384}},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Satisfies(tt.req); got != tt.want {
				t.Errorf("Satisfies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOffer_MatchesProfile(t *testing.T) {
	o := Offer{Backend: "aws", Region: "us-east-1", InstanceType: InstanceResources{Name: "g5.xlarge"}, Spot: true, Price: 0.5}

	tests := []struct {
		name string
		p    profile.Profile
		want bool
	}{
		{"no filters", profile.Profile{}, true},
		{"backend allow-list hit", profile.Profile{Backends: []string{"aws", "gcp"}}, true},
		{"backend allow-list miss", profile.Profile{Backends: []string{"gcp"}}, false},
		{"region allow-list miss", profile.Profile{Regions: []string{"eu-west-1"}}, false},
		{"instance type allow-list miss", profile.Profile{InstanceTypes: []string{"g5.2xlarge"}}, false},
		{"max price exceeded", profile.Profile{MaxPrice: floatPtr(0.1)}, false},
		{"max price within budget", profile.Profile{MaxPrice: floatPtr(1.0)}, true},
		{"spot policy on-demand rejects spot offer", profile.Profile{SpotPolicy: profile.SpotPolicyOnDemand}, false},
		{"spot policy spot accepts spot offer", profile.Profile{SpotPolicy: profile.SpotPolicySpot}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.MatchesProfile(tt.p); got != tt.want {
				t.Errorf("MatchesProfile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func floatPtr(f float64) *float64 { return &f }

// TestSort_Deterministic exercises I4: repeated sorts of the same input (in
// different starting orders) always produce the same output order.
func TestSort_Deterministic(t *testing.T) {
	offers := []Offer{
		{Backend: "gcp", Region: "us-central1", InstanceType: InstanceResources{Name: "n1"}, Price: 0.5},
		{Backend: "aws", Region: "us-east-1", InstanceType: InstanceResources{Name: "g5.xlarge"}, Price: 0.5},
		{Backend: "aws", Region: "us-east-1", InstanceType: InstanceResources{Name: "g5.2xlarge"}, Price: 0.3},
		{Backend: "azure", Region: "eastus", InstanceType: InstanceResources{Name: "nc6"}, Price: 0.5, Spot: true},
	}
	p := profile.Profile{SpotPolicy: profile.SpotPolicyAuto}

	want := Sort(offers, p)

	reversed := make([]Offer, len(offers))
	for i, o := range offers {
		reversed[len(offers)-1-i] = o
	}
	got := Sort(reversed, p)

	if len(got) != len(want) {
		t.Fatalf("Sort() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sort()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSort_PriceThenSpotThenBackendThenRegionThenInstanceType(t *testing.T) {
	offers := []Offer{
		{Backend: "gcp", Region: "us-central1", InstanceType: InstanceResources{Name: "n1"}, Price: 1.0},
		{Backend: "aws", Region: "us-east-1", InstanceType: InstanceResources{Name: "g5.xlarge"}, Price: 0.5, Spot: false},
		{Backend: "aws", Region: "us-east-1", InstanceType: InstanceResources{Name: "g5.xlarge"}, Price: 0.5, Spot: true},
	}
	sorted := Sort(offers, profile.Profile{SpotPolicy: profile.SpotPolicyAuto})

	if sorted[0].Price != 0.5 || !sorted[0].Spot {
		t.Errorf("expected cheapest+spot offer first, got %+v", sorted[0])
	}
	if sorted[2].Backend != "gcp" {
		t.Errorf("expected most expensive offer last, got %+v", sorted[2])
	}
}

func TestFilter(t *testing.T) {
	offers := []Offer{
		{Backend: "aws", InstanceType: InstanceResources{Name: "small", CPUs: 1, MemoryMiB: 2048}, Price: 0.1},
		{Backend: "aws", InstanceType: InstanceResources{Name: "big", CPUs: 8, MemoryMiB: 32768}, Price: 1.5},
	}
	req := Requirements{CPUs: 4, MemoryMiB: 16384}

	got := Filter(offers, req, profile.Profile{})
	if len(got) != 1 || got[0].InstanceType.Name != "big" {
		t.Errorf("Filter() = %+v, want only the big offer", got)
	}
}
