package finalizer

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
	"golang.org/x/text/language"
)

// Notifier decides which emails a finalization produces. Messages are written
// to the outbox of the running unit of work and leave the process only after commit.
type Notifier struct {
	config domain.ConfigurationResolver
	log    observability.Logger
}

func NewNotifier(config domain.ConfigurationResolver, log observability.Logger) *Notifier {
	return &Notifier{config: config, log: log}
}

// MaybeSendConfirmation sends the buyer confirmation unless a single free ticket
// already went to the same address.
func (n *Notifier) MaybeSendConfirmation(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, r domain.Reservation, tickets []domain.Ticket, locale, username string) error {
	if pc.Type() == domain.PurchaseContextEvent {
		cfg, err := n.config.GetFor(ctx, []domain.ConfigurationKey{
			domain.SendReservationEmailIfNecessary,
			domain.SendTicketsAutomatically,
		}, pc.ConfigurationLevel())
		if err != nil {
			return errors.Wrap(err, "load email configuration")
		}
		redundant := r.SrcPriceCts <= 0 &&
			len(tickets) == 1 &&
			tickets[0].Email == r.Email &&
			cfg.Get(domain.SendReservationEmailIfNecessary).AsBoolOrDefault() &&
			cfg.Get(domain.SendTicketsAutomatically).AsBoolOrDefault()
		if redundant {
			n.log.WithField("reservation_id", r.ID).Debug("ticket email already sent to buyer, skipping reservation email")
			return nil
		}
	}
	return n.SendConfirmation(ctx, s, pc, r, locale, username)
}

func (n *Notifier) SendConfirmation(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, r domain.Reservation, locale, username string) error {
	return n.enqueue(ctx, s, domain.Notification{
		Kind:                domain.NotifyReservationConfirmation,
		ReservationID:       r.ID,
		PurchaseContextType: pc.Type(),
		PurchaseContextID:   pc.ID(),
		ReservationStatus:   r.Status,
		Recipient:           r.Email,
		Locale:              locale,
		Username:            username,
	})
}

// SendOrganizerCompletion is never suppressed.
func (n *Notifier) SendOrganizerCompletion(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, r domain.Reservation, locale, username string) error {
	return n.enqueue(ctx, s, domain.Notification{
		Kind:                domain.NotifyOrganizerReservationComplete,
		ReservationID:       r.ID,
		PurchaseContextType: pc.Type(),
		PurchaseContextID:   pc.ID(),
		ReservationStatus:   r.Status,
		Locale:              locale,
		Username:            username,
	})
}

func (n *Notifier) SendTicket(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, t domain.Ticket, attendee, searchKey string) error {
	return n.enqueue(ctx, s, domain.Notification{
		Kind:                domain.NotifyTicket,
		ReservationID:       t.ReservationID,
		PurchaseContextType: pc.Type(),
		PurchaseContextID:   pc.ID(),
		Recipient:           t.Email,
		Locale:              LocaleTag(t.UserLanguage),
		TicketUUID:          t.UUID,
		AttendeeName:        attendee,
		AttendeeSearchKey:   searchKey,
	})
}

// ReservationConfirmed signals the waiting queue that seats of the reservation are final.
func (n *Notifier) ReservationConfirmed(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, reservationID string) error {
	return n.enqueue(ctx, s, domain.Notification{
		Kind:                domain.NotifyWaitingQueueConfirmed,
		ReservationID:       reservationID,
		PurchaseContextType: pc.Type(),
		PurchaseContextID:   pc.ID(),
	})
}

func (n *Notifier) enqueue(ctx context.Context, s domain.Stores, msg domain.Notification) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "encode %s", msg.Kind)
	}
	err = s.Outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "reservation",
		AggregateID:   msg.ReservationID,
		EventType:     string(msg.Kind),
		Payload:       payload,
		DedupeKey:     msg.DedupeKey(),
	})
	if err != nil {
		return errors.Wrapf(err, "enqueue %s", msg.Kind)
	}
	observability.NotificationsEnqueued.WithLabelValues(string(msg.Kind)).Inc()
	return nil
}

// LocaleTag canonicalizes a stored language tag, falling back to English.
func LocaleTag(s string) string {
	tag, err := language.Parse(s)
	if err != nil || tag == language.Und {
		return language.English.String()
	}
	return tag.String()
}

func languageOf(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
