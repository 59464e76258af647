package finalizer

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

func TestFinalize_SubscriptionValidityFromDuration(t *testing.T) {
	f := newFixture(t)
	units := 30
	descriptor := domain.SubscriptionDescriptor{
		DescriptorID:     "sd-1",
		Title:            "Season pass",
		OrgID:            1,
		CurrencyCode:     "CHF",
		TimeZone:         "Europe/Zurich",
		MaxEntries:       10,
		ValidityUnits:    &units,
		ValidityTimeUnit: domain.UnitDays,
	}
	f.store.PutReservation(domain.Reservation{ID: "S1", Status: domain.ReservationInPayment, Email: "buyer@example.org"})
	f.store.PutSubscription(domain.Subscription{ID: "sub-1", DescriptorID: "sd-1", ReservationID: "S1", Status: domain.AllocationPending, FirstName: "Linus"}, domain.SubscriptionMetadata{})
	f.hooks.subMD = map[string]string{"tier": "gold"}

	cmd := command("S1", domain.PaymentStripe)
	cmd.PaymentSpecification.PurchaseContext = descriptor
	if err := f.orch.Finalize(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}

	sub, md := f.store.Subscription("sub-1")
	if sub.Status != domain.AllocationAcquired {
		t.Errorf("expected ACQUIRED, got %s", sub.Status)
	}
	if sub.ValidityFrom == nil || !sub.ValidityFrom.Equal(now) {
		t.Errorf("expected validity from %v, got %v", now, sub.ValidityFrom)
	}
	zurich, _ := time.LoadLocation("Europe/Zurich")
	wantTo := time.Date(2024, 3, 31, 23, 59, 59, 0, zurich)
	if sub.ValidityTo == nil || !sub.ValidityTo.Equal(wantTo) {
		t.Errorf("expected validity to %v, got %v", wantTo, sub.ValidityTo)
	}
	if sub.FirstName != "Linus" || sub.LastName != "Hopper" || sub.Email != "buyer@example.org" {
		t.Errorf("expected stored names to win over buyer identity, got %+v", sub)
	}
	if sub.MaxEntries != 10 || sub.TimeZone != "Europe/Zurich" {
		t.Errorf("descriptor settings not applied: %+v", sub)
	}
	if md.Properties["tier"] != "gold" {
		t.Errorf("subscription metadata not stored: %v", md)
	}
	var acquired int
	for _, e := range f.store.AuditEvents("S1") {
		if e.EventType == domain.AuditSubscriptionAcquired && e.EntityID == "sub-1" {
			acquired++
		}
	}
	if acquired != 1 {
		t.Errorf("expected one subscription audit, got %d", acquired)
	}
	if got := countKinds(f.store.Outbox())[string(domain.NotifyReservationConfirmation)]; got != 1 {
		t.Errorf("subscriptions always get the confirmation email, got %d", got)
	}
}

func TestFinalize_SubscriptionFixedValidity(t *testing.T) {
	f := newFixture(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	descriptor := domain.SubscriptionDescriptor{DescriptorID: "sd-1", TimeZone: "UTC", ValidityFrom: &from, ValidityTo: &to}
	f.store.PutReservation(domain.Reservation{ID: "S1", Status: domain.ReservationInPayment})
	f.store.PutSubscription(domain.Subscription{ID: "sub-1", ReservationID: "S1"}, domain.SubscriptionMetadata{})

	cmd := command("S1", domain.PaymentOnSite)
	cmd.PaymentSpecification.PurchaseContext = descriptor
	if err := f.orch.Finalize(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}
	sub, _ := f.store.Subscription("sub-1")
	if !sub.ValidityFrom.Equal(from) || !sub.ValidityTo.Equal(to) {
		t.Errorf("expected fixed validity, got %v - %v", sub.ValidityFrom, sub.ValidityTo)
	}
	if sub.Status != domain.AllocationToBePaid {
		t.Errorf("desk payment should leave the subscription TO_BE_PAID, got %s", sub.Status)
	}
}

func TestFinalize_MissingSubscriptionIsConsistencyViolation(t *testing.T) {
	f := newFixture(t)
	f.store.PutReservation(domain.Reservation{ID: "S1", Status: domain.ReservationInPayment})
	cmd := command("S1", domain.PaymentStripe)
	cmd.PaymentSpecification.PurchaseContext = domain.SubscriptionDescriptor{DescriptorID: "sd-1"}

	err := f.orch.Finalize(context.Background(), cmd)
	if !errors.Is(err, domain.ErrConsistencyViolation) {
		t.Fatalf("expected consistency violation, got %v", err)
	}
}

type otherContext struct{ domain.Event }

func (otherContext) Type() domain.PurchaseContextType { return "voucher" }

func TestFinalize_UnsupportedPurchaseContext(t *testing.T) {
	f := newFixture(t)
	f.seedPending("R1", domain.PaymentStripe, domain.ReservationInPayment, ticket(1, "R1", "a@example.org"))
	cmd := command("R1", domain.PaymentStripe)
	cmd.PaymentSpecification.PurchaseContext = otherContext{testEvent}

	err := f.orch.Finalize(context.Background(), cmd)
	if !errors.Is(err, domain.ErrUnsupportedPurchaseContext) {
		t.Fatalf("expected unsupported purchase context, got %v", err)
	}
}

func TestFinalize_TicketMetadataMergedAndAudited(t *testing.T) {
	f := newFixture(t)
	tk := ticket(1, "R1", "a@example.org")
	tk.Metadata = domain.MetadataContainer{
		domain.GeneralMetadataKey: {Attributes: map[string]string{"badge": "blue", "seat": "12"}},
	}
	f.seedPending("R1", domain.PaymentStripe, domain.ReservationInPayment, tk)
	f.hooks.ticketMD = map[string]string{"badge": "gold"}

	if err := f.orch.Finalize(context.Background(), command("R1", domain.PaymentStripe)); err != nil {
		t.Fatal(err)
	}
	attrs := f.store.Tickets("R1")[0].Metadata[domain.GeneralMetadataKey].Attributes
	if attrs["badge"] != "gold" || attrs["seat"] != "12" {
		t.Errorf("unexpected merged metadata %v", attrs)
	}
	if got := countAudit(f.store.AuditEvents("R1"))[domain.AuditUpdateTicketMetadata]; got != 1 {
		t.Errorf("expected one metadata audit, got %d", got)
	}
}

func TestFinalize_AdminWithoutSendTickets(t *testing.T) {
	f := newFixture(t)
	f.seedPending("R1", domain.PaymentAdmin, domain.ReservationPending, ticket(1, "R1", "a@example.org"))
	cmd := command("R1", domain.PaymentAdmin)
	cmd.SendTickets = false

	if err := f.orch.Finalize(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}
	if got := countKinds(f.store.Outbox())[string(domain.NotifyTicket)]; got != 0 {
		t.Errorf("expected no ticket email, got %d", got)
	}
	if len(f.hooks.assigned) != 1 {
		t.Errorf("assignment hook must still run, got %v", f.hooks.assigned)
	}
}

func TestFinalize_OnSiteLeavesItemsToBePaid(t *testing.T) {
	f := newFixture(t)
	f.seedPending("R1", domain.PaymentOnSite, domain.ReservationPending, ticket(1, "R1", "a@example.org"))
	f.store.PutAdditionalItem(domain.AdditionalServiceItem{ID: 5, ReservationID: "R1", Status: domain.AdditionalItemPending})
	f.store.PutSpecialPrice("CODE1", "R1", "PENDING")

	if err := f.orch.Finalize(context.Background(), command("R1", domain.PaymentOnSite)); err != nil {
		t.Fatal(err)
	}
	if got := f.store.Tickets("R1")[0].Status; got != domain.TicketToBePaid {
		t.Errorf("expected TO_BE_PAID ticket, got %s", got)
	}
	if got := f.store.AdditionalItems("R1")[0].Status; got != domain.AdditionalItemToBePaid {
		t.Errorf("expected TO_BE_PAID item, got %s", got)
	}
	if got := f.store.SpecialPriceStatus("CODE1"); got != "TAKEN" {
		t.Errorf("expected special price TAKEN, got %s", got)
	}
}

func TestFinalize_UnassignedTicketsAreNotDelivered(t *testing.T) {
	f := newFixture(t)
	tk := ticket(1, "R1", "")
	tk.FullName = ""
	f.seedPending("R1", domain.PaymentStripe, domain.ReservationInPayment, tk)

	if err := f.orch.Finalize(context.Background(), command("R1", domain.PaymentStripe)); err != nil {
		t.Fatal(err)
	}
	if got := countKinds(f.store.Outbox())[string(domain.NotifyTicket)]; got != 0 {
		t.Errorf("expected no ticket email, got %d", got)
	}
	if len(f.hooks.assigned) != 0 {
		t.Errorf("expected no assignment hook, got %v", f.hooks.assigned)
	}
}
