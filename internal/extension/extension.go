// Package extension dispatches finalization events to registered extensions.
//
// An extension implements any subset of the capability interfaces below. Hooks
// run synchronously, in registration order, and their errors are returned to
// the caller unchanged apart from the extension name.
package extension

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type Hooks interface {
	OnReservationConfirmed(ctx context.Context, r domain.Reservation, billing domain.BillingDetails, pc domain.PurchaseContext) error
	OnTicketAssignment(ctx context.Context, t domain.Ticket, c domain.TicketCategory, pc domain.PurchaseContext) error
	OnTicketAssignmentMetadata(ctx context.Context, t domain.Ticket, pc domain.PurchaseContext) (*domain.TicketMetadata, error)
	OnSubscriptionAssignmentMetadata(ctx context.Context, s domain.Subscription, d domain.SubscriptionDescriptor, current domain.SubscriptionMetadata) (*domain.SubscriptionMetadata, error)
}

type ReservationConfirmedHandler interface {
	OnReservationConfirmed(ctx context.Context, r domain.Reservation, billing domain.BillingDetails, pc domain.PurchaseContext) error
}

type TicketAssignmentHandler interface {
	OnTicketAssignment(ctx context.Context, t domain.Ticket, c domain.TicketCategory, pc domain.PurchaseContext) error
}

type TicketMetadataProvider interface {
	OnTicketAssignmentMetadata(ctx context.Context, t domain.Ticket, pc domain.PurchaseContext) (*domain.TicketMetadata, error)
}

type SubscriptionMetadataProvider interface {
	OnSubscriptionAssignmentMetadata(ctx context.Context, s domain.Subscription, d domain.SubscriptionDescriptor, current domain.SubscriptionMetadata) (*domain.SubscriptionMetadata, error)
}

type Named interface {
	Name() string
}

type Registry struct {
	extensions []interface{}
}

func NewRegistry(extensions ...interface{}) *Registry {
	return &Registry{extensions: extensions}
}

func (r *Registry) Register(ext interface{}) {
	r.extensions = append(r.extensions, ext)
}

func nameOf(ext interface{}, i int) string {
	if n, ok := ext.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("extension#%d", i)
}

func (r *Registry) OnReservationConfirmed(ctx context.Context, res domain.Reservation, billing domain.BillingDetails, pc domain.PurchaseContext) error {
	for i, ext := range r.extensions {
		h, ok := ext.(ReservationConfirmedHandler)
		if !ok {
			continue
		}
		if err := h.OnReservationConfirmed(ctx, res, billing, pc); err != nil {
			return errors.Wrapf(err, "%s: reservation confirmed hook", nameOf(ext, i))
		}
	}
	return nil
}

func (r *Registry) OnTicketAssignment(ctx context.Context, t domain.Ticket, c domain.TicketCategory, pc domain.PurchaseContext) error {
	for i, ext := range r.extensions {
		h, ok := ext.(TicketAssignmentHandler)
		if !ok {
			continue
		}
		if err := h.OnTicketAssignment(ctx, t, c, pc); err != nil {
			return errors.Wrapf(err, "%s: ticket assignment hook", nameOf(ext, i))
		}
	}
	return nil
}

// OnTicketAssignmentMetadata merges the attributes returned by every provider,
// later providers overwriting earlier ones. It returns nil when no provider answered.
func (r *Registry) OnTicketAssignmentMetadata(ctx context.Context, t domain.Ticket, pc domain.PurchaseContext) (*domain.TicketMetadata, error) {
	var merged *domain.TicketMetadata
	for i, ext := range r.extensions {
		p, ok := ext.(TicketMetadataProvider)
		if !ok {
			continue
		}
		md, err := p.OnTicketAssignmentMetadata(ctx, t, pc)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: ticket metadata hook", nameOf(ext, i))
		}
		if md == nil {
			continue
		}
		if merged == nil {
			merged = &domain.TicketMetadata{Attributes: map[string]string{}}
		}
		for k, v := range md.Attributes {
			merged.Attributes[k] = v
		}
	}
	return merged, nil
}

func (r *Registry) OnSubscriptionAssignmentMetadata(ctx context.Context, s domain.Subscription, d domain.SubscriptionDescriptor, current domain.SubscriptionMetadata) (*domain.SubscriptionMetadata, error) {
	var merged *domain.SubscriptionMetadata
	for i, ext := range r.extensions {
		p, ok := ext.(SubscriptionMetadataProvider)
		if !ok {
			continue
		}
		md, err := p.OnSubscriptionAssignmentMetadata(ctx, s, d, current)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: subscription metadata hook", nameOf(ext, i))
		}
		if md == nil {
			continue
		}
		if merged == nil {
			merged = &domain.SubscriptionMetadata{Properties: map[string]string{}}
		}
		for k, v := range md.Properties {
			merged.Properties[k] = v
		}
	}
	return merged, nil
}
