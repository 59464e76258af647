package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/reservation-finalizer/internal/adapters/memory"
	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/fees"
	"github.com/robertarktes/reservation-finalizer/internal/finalizer"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

var testEvent = domain.Event{EventID: "ev-1", OrgID: 1, CurrencyCode: "EUR", TimeZone: "Europe/Zurich"}

type settlement struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (s *settlement) Ack(tag uint64, multiple bool) error {
	s.acked = true
	return nil
}

func (s *settlement) Nack(tag uint64, multiple, requeue bool) error {
	s.nacked = true
	s.requeued = requeue
	return nil
}

func (s *settlement) Reject(tag uint64, requeue bool) error {
	return s.Nack(tag, false, requeue)
}

type scriptedFinalizer struct {
	errs  []error
	calls int
}

func (f *scriptedFinalizer) Finalize(ctx context.Context, cmd domain.FinalizeReservation) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func finalizeCommand(id string) domain.FinalizeReservation {
	return domain.FinalizeReservation{
		PaymentSpecification: domain.PaymentSpecification{
			ReservationID:   id,
			PurchaseContext: testEvent,
			Email:           "buyer@example.org",
			CustomerName:    domain.CustomerName{FullName: "Grace Hopper", FirstName: "Grace", LastName: "Hopper"},
			Locale:          "de-CH",
			TermsAccepted:   true,
		},
		PaymentProxy:                     domain.PaymentStripe,
		SendReservationConfirmationEmail: true,
		SendTickets:                      true,
	}
}

func delivery(t *testing.T, cmd domain.FinalizeReservation, redelivered bool) (amqp.Delivery, *settlement) {
	t.Helper()
	body, err := Encode(cmd)
	if err != nil {
		t.Fatal(err)
	}
	s := &settlement{}
	return amqp.Delivery{Acknowledger: s, DeliveryTag: 1, Body: body, Redelivered: redelivered}, s
}

func newHandler(f Finalizer) *Handler {
	h := NewHandler(memory.NewCatalog(testEvent), f, 3, observability.NewLogger())
	h.interval = time.Millisecond
	return h
}

func TestCodec_CarriesPurchaseContextReference(t *testing.T) {
	body, err := Encode(finalizeCommand("R1"))
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(body)
	if err != nil {
		t.Fatal(err)
	}
	if msg.PurchaseContextType != domain.PurchaseContextEvent || msg.PurchaseContextID != "ev-1" {
		t.Errorf("unexpected reference %s/%s", msg.PurchaseContextType, msg.PurchaseContextID)
	}
	cmd := msg.Command(testEvent)
	if cmd.PaymentSpecification.CustomerName.LastName != "Hopper" || !cmd.PaymentSpecification.TermsAccepted || !cmd.SendTickets {
		t.Errorf("command not rebuilt: %+v", cmd)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed":       `{`,
		"no reservation":  `{"purchase_context_type":"event","purchase_context_id":"ev-1","payment_proxy":"STRIPE"}`,
		"no context":      `{"reservation_id":"R1","payment_proxy":"STRIPE"}`,
		"unknown payment": `{"reservation_id":"R1","purchase_context_type":"event","purchase_context_id":"ev-1","payment_proxy":"BITCOIN"}`,
	}
	for name, body := range cases {
		if _, err := Decode([]byte(body)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected invalid input, got %v", name, err)
		}
	}
}

func TestEnqueueFinalize_EachRequestIsQueued(t *testing.T) {
	store := memory.NewStore()
	for i := 0; i < 2; i++ {
		err := store.RunIndependent(context.Background(), func(ctx context.Context, s domain.Stores) error {
			return EnqueueFinalize(ctx, s.Outbox, finalizeCommand("R1"))
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	out := store.Outbox()
	if len(out) != 2 {
		t.Fatalf("expected both commands queued, got %d", len(out))
	}
	for _, m := range out {
		if m.EventType != RoutingKey || m.AggregateID != "R1" || !strings.HasPrefix(m.DedupeKey, "finalize:R1:") {
			t.Errorf("unexpected outbox message %+v", m)
		}
	}
	if out[0].DedupeKey == out[1].DedupeKey {
		t.Errorf("commands share dedupe key %s", out[0].DedupeKey)
	}
}

func TestHandler_FinalizesAndAcks(t *testing.T) {
	store := memory.NewStore()
	config := memory.NewConfiguration()
	owner := int64(42)
	store.PutReservation(domain.Reservation{ID: "R1", Status: domain.ReservationInPayment, PaymentMethod: domain.PaymentStripe,
		Email: "buyer@example.org", SrcPriceCts: 5000, FinalPriceCts: 5000, Currency: "EUR", OwnerID: &owner})
	store.PutCategory(domain.TicketCategory{ID: 10, EventID: "ev-1", Name: "Regular"})
	store.PutTicket(domain.Ticket{ID: 1, UUID: "t-1", CategoryID: 10, EventID: "ev-1", ReservationID: "R1", Status: domain.TicketPending})
	orch := finalizer.New(finalizer.Dependencies{
		UnitOfWork:    store,
		Configuration: config,
		Fees:          fees.NewCalculator(config),
		Clock:         clock.Fixed{At: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		Logger:        observability.NewLogger(),
	})

	d, s := delivery(t, finalizeCommand("R1"), false)
	newHandler(orch).Handle(context.Background(), d)

	if !s.acked {
		t.Fatalf("expected ack, got %+v", s)
	}
	r, _ := store.Reservation("R1")
	if r.Status != domain.ReservationComplete || r.UserLanguage != "de" {
		t.Errorf("unexpected reservation %+v", r)
	}

	d, s = delivery(t, finalizeCommand("R1"), true)
	newHandler(orch).Handle(context.Background(), d)
	if !s.acked {
		t.Errorf("a redelivered command for a complete reservation should be acked, got %+v", s)
	}
}

func TestHandler_RetriesSerializationFailures(t *testing.T) {
	serialization := errors.Mark(errors.New("restart transaction"), domain.ErrSerializationFailure)
	f := &scriptedFinalizer{errs: []error{serialization, serialization}}
	d, s := delivery(t, finalizeCommand("R1"), false)
	newHandler(f).Handle(context.Background(), d)

	if f.calls != 3 || !s.acked {
		t.Errorf("expected success on the third attempt, got %d calls %+v", f.calls, s)
	}

	f = &scriptedFinalizer{errs: []error{serialization, serialization, serialization, serialization}}
	d, s = delivery(t, finalizeCommand("R1"), false)
	newHandler(f).Handle(context.Background(), d)
	if f.calls != 4 || !s.nacked || s.requeued {
		t.Errorf("expected dead-letter after retries, got %d calls %+v", f.calls, s)
	}
}

func TestHandler_Settlement(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		redelivered bool
		requeued    bool
	}{
		{"consistency", domain.ConsistencyViolation("expected exactly 1 updated reservation, got 0"), false, false},
		{"precondition", domain.PreconditionFailed("not pending"), false, false},
		{"not found", errors.Mark(errors.New("reservation R1"), domain.ErrNotFound), false, false},
		{"transient", errors.New("connection reset"), false, true},
		{"transient redelivered", errors.New("connection reset"), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &scriptedFinalizer{errs: []error{tc.err}}
			d, s := delivery(t, finalizeCommand("R1"), tc.redelivered)
			newHandler(f).Handle(context.Background(), d)
			if f.calls != 1 {
				t.Errorf("expected a single attempt, got %d", f.calls)
			}
			if s.acked || !s.nacked || s.requeued != tc.requeued {
				t.Errorf("unexpected settlement %+v", s)
			}
		})
	}
}

func TestHandler_UnknownPurchaseContextIsDeadLettered(t *testing.T) {
	cmd := finalizeCommand("R1")
	cmd.PaymentSpecification.PurchaseContext = domain.Event{EventID: "ev-404"}
	f := &scriptedFinalizer{}
	d, s := delivery(t, cmd, false)
	newHandler(f).Handle(context.Background(), d)
	if f.calls != 0 || !s.nacked || s.requeued {
		t.Errorf("expected dead-letter without finalizing, got %d calls %+v", f.calls, s)
	}
}
