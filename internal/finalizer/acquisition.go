package finalizer

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/audit"
	"github.com/robertarktes/reservation-finalizer/internal/checkin"
	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/extension"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

// Buyer is the identity written on the reservation when it completes.
type Buyer struct {
	Email             string
	Name              domain.CustomerName
	UserLanguage      string
	BillingAddress    string
	CustomerReference string
}

// Acquisition moves the items of a reservation to their paid state and
// completes the reservation.
type Acquisition struct {
	config   domain.ConfigurationResolver
	hooks    extension.Hooks
	notifier *Notifier
	clock    clock.Clock
	log      observability.Logger
}

func NewAcquisition(config domain.ConfigurationResolver, hooks extension.Hooks, notifier *Notifier, clk clock.Clock, log observability.Logger) *Acquisition {
	return &Acquisition{config: config, hooks: hooks, notifier: notifier, clock: clk, log: log}
}

// Acquire returns the tickets of the reservation after completion.
func (a *Acquisition) Acquire(ctx context.Context, s domain.Stores, pm domain.PaymentProxy, reservationID string, buyer Buyer, pc domain.PurchaseContext, deliverTickets bool) ([]domain.Ticket, error) {
	rec := audit.NewRecorder(s.Audit, a.clock)
	switch ctxt := pc.(type) {
	case domain.Event:
		if err := a.acquireTickets(ctx, s, rec, pm, reservationID, ctxt); err != nil {
			return nil, err
		}
	case domain.SubscriptionDescriptor:
		if err := a.acquireSubscription(ctx, s, rec, pm, reservationID, ctxt, buyer); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Mark(errors.Newf("purchase context %T", pc), domain.ErrUnsupportedPurchaseContext)
	}

	if _, err := s.SpecialPrices.MarkTakenForReservations(ctx, []string{reservationID}); err != nil {
		return nil, errors.Wrap(err, "mark special prices taken")
	}
	updated, err := s.Reservations.Complete(ctx, reservationID, domain.ReservationCompletion{
		Email:             buyer.Email,
		Name:              buyer.Name,
		UserLanguage:      buyer.UserLanguage,
		BillingAddress:    buyer.BillingAddress,
		CustomerReference: buyer.CustomerReference,
		PaymentMethod:     pm,
		Timestamp:         a.clock.Now(pc.Location()),
	})
	if err != nil {
		return nil, errors.Wrap(err, "complete reservation")
	}
	if err := domain.ExpectRows("reservation", 1, updated); err != nil {
		return nil, err
	}
	if err := a.notifier.ReservationConfirmed(ctx, s, pc, reservationID); err != nil {
		return nil, err
	}

	tickets, err := s.Tickets.FindInReservation(ctx, reservationID)
	if err != nil {
		return nil, errors.Wrap(err, "load tickets")
	}
	if err := a.deliver(ctx, s, pm, pc, tickets, deliverTickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (a *Acquisition) acquireTickets(ctx context.Context, s domain.Stores, rec *audit.Recorder, pm domain.PaymentProxy, reservationID string, ev domain.Event) error {
	before, err := s.Tickets.FindInReservation(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "load tickets")
	}
	beforeByID := make(map[int64]domain.Ticket, len(before))
	ids := make([]int64, 0, len(before))
	for _, t := range before {
		beforeByID[t.ID] = t
		ids = append(ids, t.ID)
	}

	updatedTickets, err := s.Tickets.UpdateStatusForReservation(ctx, reservationID, domain.TicketStatusFor(pm))
	if err != nil {
		return errors.Wrap(err, "update ticket status")
	}
	updatedItems, err := s.AdditionalItems.UpdateStatusForReservation(ctx, reservationID, domain.AdditionalItemStatusFor(pm))
	if err != nil {
		return errors.Wrap(err, "update additional item status")
	}
	if updatedTickets+updatedItems == 0 {
		return domain.ConsistencyViolation("no items have been updated for reservation %s", reservationID)
	}

	cfg, err := a.config.GetFor(ctx, []domain.ConfigurationKey{domain.EnableTicketTransfer}, ev.ConfigurationLevel())
	if err != nil {
		return errors.Wrap(err, "load transfer configuration")
	}
	if !cfg.Get(domain.EnableTicketTransfer).AsBoolOrDefault() {
		locked, err := s.Tickets.ForbidReassignment(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "lock ticket assignment")
		}
		if locked != updatedTickets {
			return domain.ConsistencyViolation("expected to lock %d tickets, locked %d", updatedTickets, locked)
		}
	}

	after, err := s.Tickets.FindInReservation(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "reload tickets")
	}
	for _, t := range after {
		md, err := a.hooks.OnTicketAssignmentMetadata(ctx, t, ev)
		if err != nil {
			return err
		}
		if md != nil {
			merged := domain.MergeGeneral(t.Metadata, md.Attributes)
			if err := s.Tickets.UpdateMetadata(ctx, t.ID, merged); err != nil {
				return errors.Wrapf(err, "update metadata of ticket %d", t.ID)
			}
			if err := rec.RecordMetadataUpdate(ctx, reservationID, t.ID, ev, merged, t.Metadata); err != nil {
				return err
			}
		}
		if err := rec.RecordTicketUpdate(ctx, beforeByID[t.ID], nil, t, nil, ev); err != nil {
			return err
		}
	}
	return nil
}

func (a *Acquisition) acquireSubscription(ctx context.Context, s domain.Stores, rec *audit.Recorder, pm domain.PaymentProxy, reservationID string, d domain.SubscriptionDescriptor, buyer Buyer) error {
	confirmedAt := a.clock.Now(d.Location())
	from, to := d.ValidityWindow(confirmedAt)

	subs, err := s.Subscriptions.FindByReservationID(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "load subscription")
	}
	if len(subs) == 0 {
		return domain.ConsistencyViolation("no subscription found for reservation %s", reservationID)
	}
	sub := subs[0]
	updated, err := s.Subscriptions.Confirm(ctx, reservationID, domain.SubscriptionConfirmation{
		Status:         domain.AllocationStatusFor(pm),
		FirstName:      firstNonEmpty(sub.FirstName, buyer.Name.FirstName),
		LastName:       firstNonEmpty(sub.LastName, buyer.Name.LastName),
		Email:          firstNonEmpty(sub.Email, buyer.Email),
		MaxEntries:     d.MaxEntries,
		ValidityFrom:   from,
		ValidityTo:     to,
		ConfirmationTS: confirmedAt,
		TimeZone:       d.TimeZone,
	})
	if err != nil {
		return errors.Wrap(err, "confirm subscription")
	}
	if updated < 1 {
		return domain.ConsistencyViolation("must have updated at least one subscription for reservation %s", reservationID)
	}

	// one subscription per reservation
	subs, err = s.Subscriptions.FindByReservationID(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "reload subscription")
	}
	sub = subs[0]
	err = rec.Record(ctx, audit.Entry{
		ReservationID: reservationID,
		Context:       d,
		EventType:     domain.AuditSubscriptionAcquired,
		EntityType:    domain.EntitySubscription,
		EntityID:      sub.ID,
	})
	if err != nil {
		return err
	}

	current, err := s.Subscriptions.Metadata(ctx, sub.ID)
	if err != nil {
		return errors.Wrap(err, "load subscription metadata")
	}
	md, err := a.hooks.OnSubscriptionAssignmentMetadata(ctx, sub, d, current)
	if err != nil {
		return err
	}
	if md != nil {
		if err := s.Subscriptions.SetMetadata(ctx, sub.ID, *md); err != nil {
			return errors.Wrap(err, "store subscription metadata")
		}
	}
	return nil
}

func (a *Acquisition) deliver(ctx context.Context, s domain.Stores, pm domain.PaymentProxy, pc domain.PurchaseContext, tickets []domain.Ticket, deliverTickets bool) error {
	var sendAutomatically, loaded bool
	for _, t := range tickets {
		if !t.Assigned() {
			continue
		}
		if !loaded {
			cfg, err := a.config.GetFor(ctx, []domain.ConfigurationKey{domain.SendTicketsAutomatically}, pc.ConfigurationLevel())
			if err != nil {
				return errors.Wrap(err, "load ticket delivery configuration")
			}
			sendAutomatically = cfg.Get(domain.SendTicketsAutomatically).AsBoolOrDefault()
			loaded = true
		}
		if (pm != domain.PaymentAdmin || deliverTickets) && sendAutomatically {
			attendee := attendeeName(t)
			if err := a.notifier.SendTicket(ctx, s, pc, t, attendee, checkin.Normalize(attendee)); err != nil {
				return err
			}
		}
		category, err := s.Tickets.FindCategory(ctx, t.CategoryID)
		if err != nil {
			return errors.Wrapf(err, "load category of ticket %d", t.ID)
		}
		if err := a.hooks.OnTicketAssignment(ctx, t, category, pc); err != nil {
			return err
		}
	}
	return nil
}

func attendeeName(t domain.Ticket) string {
	if name := strings.TrimSpace(t.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
