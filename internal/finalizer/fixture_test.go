package finalizer

import (
	"context"
	"testing"
	"time"

	"github.com/robertarktes/reservation-finalizer/internal/adapters/memory"
	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/fees"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

var (
	now = time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

	testEvent = domain.Event{
		EventID:      "ev-1",
		ShortName:    "gophercon",
		DisplayName:  "GopherCon",
		OrgID:        1,
		CurrencyCode: "EUR",
		TimeZone:     "Europe/Zurich",
		TermsURL:     "https://example.org/terms",
		PrivacyURL:   "https://example.org/privacy",
	}
)

type recordingHooks struct {
	confirmed  []string
	assigned   []int64
	ticketMD   map[string]string
	subMD      map[string]string
	confirmErr error
}

func (h *recordingHooks) OnReservationConfirmed(ctx context.Context, r domain.Reservation, billing domain.BillingDetails, pc domain.PurchaseContext) error {
	if h.confirmErr != nil {
		return h.confirmErr
	}
	h.confirmed = append(h.confirmed, r.ID)
	return nil
}

func (h *recordingHooks) OnTicketAssignment(ctx context.Context, t domain.Ticket, c domain.TicketCategory, pc domain.PurchaseContext) error {
	h.assigned = append(h.assigned, t.ID)
	return nil
}

func (h *recordingHooks) OnTicketAssignmentMetadata(ctx context.Context, t domain.Ticket, pc domain.PurchaseContext) (*domain.TicketMetadata, error) {
	if h.ticketMD == nil {
		return nil, nil
	}
	return &domain.TicketMetadata{Attributes: h.ticketMD}, nil
}

func (h *recordingHooks) OnSubscriptionAssignmentMetadata(ctx context.Context, s domain.Subscription, d domain.SubscriptionDescriptor, current domain.SubscriptionMetadata) (*domain.SubscriptionMetadata, error) {
	if h.subMD == nil {
		return nil, nil
	}
	return &domain.SubscriptionMetadata{Properties: h.subMD}, nil
}

type fixture struct {
	store   *memory.Store
	config  *memory.Configuration
	billing *memory.BillingDocuments
	hooks   *recordingHooks
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewStore(),
		config:  memory.NewConfiguration(),
		billing: memory.NewBillingDocuments(),
		hooks:   &recordingHooks{},
	}
	f.orch = f.orchestrator(f.store)
	f.store.PutCategory(domain.TicketCategory{ID: 10, EventID: testEvent.EventID, Name: "Regular"})
	return f
}

func (f *fixture) orchestrator(uow domain.UnitOfWork) *Orchestrator {
	return New(Dependencies{
		UnitOfWork:    uow,
		Configuration: f.config,
		Fees:          fees.NewCalculator(f.config),
		Hooks:         f.hooks,
		Billing:       f.billing,
		Clock:         clock.Fixed{At: now},
		Logger:        observability.NewLogger(),
	})
}

func (f *fixture) seedPending(id string, pm domain.PaymentProxy, status domain.ReservationStatus, tickets ...domain.Ticket) {
	owner := int64(42)
	f.store.PutReservation(domain.Reservation{
		ID:            id,
		Status:        status,
		PaymentMethod: pm,
		FullName:      "Grace Hopper",
		Email:         "buyer@example.org",
		UserLanguage:  "en",
		SrcPriceCts:   10000,
		FinalPriceCts: 10000,
		VatCts:        770,
		Currency:      "EUR",
		OwnerID:       &owner,
	})
	for _, tk := range tickets {
		f.store.PutTicket(tk)
	}
}

func ticket(id int64, reservationID, email string) domain.Ticket {
	return domain.Ticket{
		ID:            id,
		UUID:          "ticket-" + reservationID + "-" + string(rune('a'+id)),
		CategoryID:    10,
		EventID:       testEvent.EventID,
		ReservationID: reservationID,
		Status:        domain.TicketPending,
		FullName:      "Ada Lovelace",
		Email:         email,
		UserLanguage:  "en",
	}
}

func command(id string, pm domain.PaymentProxy) domain.FinalizeReservation {
	return domain.FinalizeReservation{
		PaymentSpecification: domain.PaymentSpecification{
			ReservationID:   id,
			PurchaseContext: testEvent,
			Email:           "buyer@example.org",
			CustomerName:    domain.CustomerName{FullName: "Grace Hopper", FirstName: "Grace", LastName: "Hopper"},
			BillingAddress:  "1 Infinite Loop",
			Locale:          "en",
		},
		PaymentProxy:                     pm,
		SendReservationConfirmationEmail: true,
		SendTickets:                      true,
	}
}

func countKinds(msgs []domain.OutboxMessage) map[string]int {
	out := map[string]int{}
	for _, m := range msgs {
		out[m.EventType]++
	}
	return out
}

func countAudit(events []domain.AuditEvent) map[domain.AuditEventType]int {
	out := map[domain.AuditEventType]int{}
	for _, e := range events {
		out[e.EventType]++
	}
	return out
}
