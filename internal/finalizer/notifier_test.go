package finalizer

import (
	"context"
	"testing"

	"github.com/robertarktes/reservation-finalizer/internal/adapters/memory"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

func TestFinalize_SingleFreeTicketSuppressesBuyerEmail(t *testing.T) {
	f := newFixture(t)
	f.seedPending("R1", domain.PaymentNone, domain.ReservationPending, ticket(1, "R1", "buyer@example.org"))
	f.store.PutReservation(func() domain.Reservation {
		r, _ := f.store.Reservation("R1")
		r.SrcPriceCts = 0
		return r
	}())

	if err := f.orch.Finalize(context.Background(), command("R1", domain.PaymentNone)); err != nil {
		t.Fatal(err)
	}
	kinds := countKinds(f.store.Outbox())
	if kinds[string(domain.NotifyReservationConfirmation)] != 0 {
		t.Errorf("buyer email should be suppressed, got %v", kinds)
	}
	if kinds[string(domain.NotifyOrganizerReservationComplete)] != 1 {
		t.Errorf("organizer email is always sent, got %v", kinds)
	}
}

func TestMaybeSendConfirmation(t *testing.T) {
	base := func() (domain.Reservation, []domain.Ticket) {
		return domain.Reservation{ID: "R1", Email: "buyer@example.org"},
			[]domain.Ticket{ticket(1, "R1", "buyer@example.org")}
	}
	cases := []struct {
		name   string
		pc     domain.PurchaseContext
		mutate func(r *domain.Reservation, tickets *[]domain.Ticket, c *memory.Configuration)
		sent   bool
	}{
		{"all conditions hold", testEvent, nil, false},
		{"price surcharge", testEvent, func(r *domain.Reservation, _ *[]domain.Ticket, _ *memory.Configuration) {
			r.SrcPriceCts = 500
		}, true},
		{"two tickets", testEvent, func(_ *domain.Reservation, ts *[]domain.Ticket, _ *memory.Configuration) {
			*ts = append(*ts, ticket(2, "R1", "buyer@example.org"))
		}, true},
		{"no tickets", testEvent, func(_ *domain.Reservation, ts *[]domain.Ticket, _ *memory.Configuration) {
			*ts = nil
		}, true},
		{"different email", testEvent, func(_ *domain.Reservation, ts *[]domain.Ticket, _ *memory.Configuration) {
			(*ts)[0].Email = "friend@example.org"
		}, true},
		{"send if necessary disabled", testEvent, func(_ *domain.Reservation, _ *[]domain.Ticket, c *memory.Configuration) {
			c.SetSystem(domain.SendReservationEmailIfNecessary, "false")
		}, true},
		{"automatic tickets disabled", testEvent, func(_ *domain.Reservation, _ *[]domain.Ticket, c *memory.Configuration) {
			c.SetSystem(domain.SendTicketsAutomatically, "false")
		}, true},
		{"subscription", domain.SubscriptionDescriptor{DescriptorID: "sd-1"}, nil, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := memory.NewStore()
			config := memory.NewConfiguration()
			r, tickets := base()
			if c.mutate != nil {
				c.mutate(&r, &tickets, config)
			}
			n := NewNotifier(config, observability.NewLogger())
			err := store.RunIndependent(context.Background(), func(ctx context.Context, s domain.Stores) error {
				return n.MaybeSendConfirmation(ctx, s, c.pc, r, tickets, "en", "")
			})
			if err != nil {
				t.Fatal(err)
			}
			got := countKinds(store.Outbox())[string(domain.NotifyReservationConfirmation)] == 1
			if got != c.sent {
				t.Errorf("sent = %v, want %v", got, c.sent)
			}
		})
	}
}

func TestLocaleTag(t *testing.T) {
	cases := map[string]string{"": "en", "de": "de", "pt-br": "pt-BR", "not a tag": "en"}
	for in, want := range cases {
		if got := LocaleTag(in); got != want {
			t.Errorf("LocaleTag(%q) = %q, want %q", in, got, want)
		}
	}
}
