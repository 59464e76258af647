package extension

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type badgeExtension struct{ attrs map[string]string }

func (b badgeExtension) Name() string { return "badges" }

func (b badgeExtension) OnTicketAssignmentMetadata(ctx context.Context, t domain.Ticket, pc domain.PurchaseContext) (*domain.TicketMetadata, error) {
	return &domain.TicketMetadata{Attributes: b.attrs}, nil
}

type failingExtension struct{}

func (failingExtension) Name() string { return "crm" }

func (failingExtension) OnReservationConfirmed(ctx context.Context, r domain.Reservation, billing domain.BillingDetails, pc domain.PurchaseContext) error {
	return errors.New("crm unavailable")
}

func TestRegistry_TicketMetadataMergedInOrder(t *testing.T) {
	r := NewRegistry(
		badgeExtension{attrs: map[string]string{"badge": "blue", "room": "A"}},
		failingExtension{},
		badgeExtension{attrs: map[string]string{"badge": "gold"}},
	)
	md, err := r.OnTicketAssignmentMetadata(context.Background(), domain.Ticket{}, domain.Event{})
	if err != nil {
		t.Fatal(err)
	}
	if md == nil {
		t.Fatal("expected metadata")
	}
	if md.Attributes["badge"] != "gold" || md.Attributes["room"] != "A" {
		t.Errorf("unexpected attributes %v", md.Attributes)
	}
}

func TestRegistry_NoProviderReturnsNil(t *testing.T) {
	r := NewRegistry(failingExtension{})
	md, err := r.OnTicketAssignmentMetadata(context.Background(), domain.Ticket{}, domain.Event{})
	if err != nil || md != nil {
		t.Errorf("expected nil, nil; got %v, %v", md, err)
	}
	smd, err := r.OnSubscriptionAssignmentMetadata(context.Background(), domain.Subscription{}, domain.SubscriptionDescriptor{}, domain.SubscriptionMetadata{})
	if err != nil || smd != nil {
		t.Errorf("expected nil, nil; got %v, %v", smd, err)
	}
}

func TestRegistry_HookErrorPropagates(t *testing.T) {
	r := NewRegistry(badgeExtension{}, failingExtension{})
	err := r.OnReservationConfirmed(context.Background(), domain.Reservation{}, domain.BillingDetails{}, domain.Event{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "crm: reservation confirmed hook: crm unavailable" {
		t.Errorf("unexpected error %q", got)
	}
}
