package pool

import (
	"testing"

	"github.com/google/uuid"

	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/offer"
)

// TestSortClaimable_PriceThenInstanceName exercises the Pool Manager's own
// tie-break (spec.md §4.2): lowest price, then lexicographic instance type
// name — distinct from C1's offer.Sort backend/region tie-break.
func TestSortClaimable_PriceThenInstanceName(t *testing.T) {
	cheap1 := instance.Instance{ID: uuid.New(), Offer: offer.Offer{Backend: "gcp", InstanceType: offer.InstanceResources{Name: "zeta"}, Price: 0.5}}
	cheap2 := instance.Instance{ID: uuid.New(), Offer: offer.Offer{Backend: "aws", InstanceType: offer.InstanceResources{Name: "alpha"}, Price: 0.5}}
	expensive := instance.Instance{ID: uuid.New(), Offer: offer.Offer{Backend: "aws", InstanceType: offer.InstanceResources{Name: "aaa"}, Price: 1.0}}

	got := sortClaimable([]instance.Instance{expensive, cheap1, cheap2})

	if got[0].ID != cheap2.ID {
		t.Errorf("sortClaimable()[0] = instance with type %q, want %q (cheapest, lexicographically first among ties)", got[0].Offer.InstanceType.Name, cheap2.Offer.InstanceType.Name)
	}
	if got[1].ID != cheap1.ID {
		t.Errorf("sortClaimable()[1] = instance with type %q, want %q", got[1].Offer.InstanceType.Name, cheap1.Offer.InstanceType.Name)
	}
	if got[2].ID != expensive.ID {
		t.Errorf("sortClaimable()[2] = instance with type %q, want %q (most expensive last)", got[2].Offer.InstanceType.Name, expensive.Offer.InstanceType.Name)
	}
}

func TestSortClaimable_DoesNotMutateInput(t *testing.T) {
	in := []instance.Instance{
		{ID: uuid.New(), Offer: offer.Offer{Price: 1.0, InstanceType: offer.InstanceResources{Name: "b"}}},
		{ID: uuid.New(), Offer: offer.Offer{Price: 0.5, InstanceType: offer.InstanceResources{Name: "a"}}},
	}
	firstID := in[0].ID
	_ = sortClaimable(in)
	if in[0].ID != firstID {
		t.Error("sortClaimable() mutated its input slice")
	}
}
