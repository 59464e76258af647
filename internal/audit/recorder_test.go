package audit

import (
	"context"
	"testing"
	"time"

	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type captureStore struct {
	events []domain.AuditEvent
}

func (c *captureStore) Insert(ctx context.Context, e domain.AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestRecordTicketUpdate_StatusAndLock(t *testing.T) {
	store := &captureStore{}
	rec := NewRecorder(store, clock.Fixed{At: now})
	before := domain.Ticket{ID: 7, ReservationID: "R1", Status: domain.TicketPending, Email: "a@b.c"}
	after := before
	after.Status = domain.TicketAcquired
	after.LockedAssignment = true

	if err := rec.RecordTicketUpdate(context.Background(), before, nil, after, nil, domain.Event{EventID: "ev-1"}); err != nil {
		t.Fatal(err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	ev := store.events[0]
	if ev.EventType != domain.AuditUpdateTicket || ev.EntityID != "7" || ev.ReservationID != "R1" || ev.PurchaseContextID != "ev-1" {
		t.Errorf("unexpected event %+v", ev)
	}
	if !ev.Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, ev.Timestamp)
	}
	if len(ev.Modifications) != 2 {
		t.Fatalf("expected 2 modifications, got %v", ev.Modifications)
	}
	if ev.Modifications[0]["path"] != "/lockedAssignment" || ev.Modifications[1]["path"] != "/status" {
		t.Errorf("unexpected modification order %v", ev.Modifications)
	}
	if ev.Modifications[1]["value"] != string(domain.TicketAcquired) {
		t.Errorf("unexpected status value %v", ev.Modifications[1]["value"])
	}
}

func TestRecordTicketUpdate_EmptyDiffStillRecorded(t *testing.T) {
	store := &captureStore{}
	rec := NewRecorder(store, clock.Fixed{At: now})
	tk := domain.Ticket{ID: 1, ReservationID: "R1", Status: domain.TicketAcquired}
	if err := rec.RecordTicketUpdate(context.Background(), tk, nil, tk, nil, domain.Event{}); err != nil {
		t.Fatal(err)
	}
	if len(store.events) != 1 || len(store.events[0].Modifications) != 0 {
		t.Errorf("expected one event with no modifications, got %+v", store.events)
	}
}

func TestRecordMetadataUpdate(t *testing.T) {
	store := &captureStore{}
	rec := NewRecorder(store, clock.Fixed{At: now})
	previous := domain.MetadataContainer{
		domain.GeneralMetadataKey: {Attributes: map[string]string{"badge": "blue", "seat": "12"}},
	}
	updated := domain.MergeGeneral(previous, map[string]string{"badge": "gold", "room": "A"})

	if err := rec.RecordMetadataUpdate(context.Background(), "R1", 3, domain.Event{}, updated, previous); err != nil {
		t.Fatal(err)
	}
	mods := store.events[0].Modifications
	if len(mods) != 2 {
		t.Fatalf("expected 2 modifications, got %v", mods)
	}
	if mods[0]["op"] != "replace" || mods[0]["path"] != "/general/badge" {
		t.Errorf("unexpected first modification %v", mods[0])
	}
	if mods[1]["op"] != "add" || mods[1]["path"] != "/general/room" {
		t.Errorf("unexpected second modification %v", mods[1])
	}
	if store.events[0].EventType != domain.AuditUpdateTicketMetadata {
		t.Errorf("unexpected event type %s", store.events[0].EventType)
	}
}

func TestDiff_Remove(t *testing.T) {
	ops := Diff(map[string]interface{}{"a": 1}, map[string]interface{}{})
	if len(ops) != 1 || ops[0]["op"] != "remove" {
		t.Errorf("unexpected ops %v", ops)
	}
}
