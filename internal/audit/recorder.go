// Package audit appends immutable audit events for reservation mutations.
package audit

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

// Recorder never mutates domain entities; it only appends to the store it is bound to.
type Recorder struct {
	store domain.AuditStore
	clock clock.Clock
}

func NewRecorder(store domain.AuditStore, clk clock.Clock) *Recorder {
	return &Recorder{store: store, clock: clk}
}

type Entry struct {
	ReservationID string
	UserID        *int64
	Context       domain.PurchaseContext
	EventType     domain.AuditEventType
	EntityType    domain.AuditEntityType
	EntityID      string
	Modifications []map[string]interface{}
}

func (r *Recorder) Record(ctx context.Context, e Entry) error {
	ev := domain.AuditEvent{
		ID:            uuid.NewString(),
		ReservationID: e.ReservationID,
		UserID:        e.UserID,
		EventType:     e.EventType,
		Timestamp:     r.clock.Now(nil),
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		Modifications: e.Modifications,
	}
	if e.Context != nil {
		ev.PurchaseContextType = e.Context.Type()
		ev.PurchaseContextID = e.Context.ID()
	}
	if err := r.store.Insert(ctx, ev); err != nil {
		return errors.Wrapf(err, "audit %s for %s %s", e.EventType, e.EntityType, e.EntityID)
	}
	return nil
}

// RecordTicketUpdate stores the diff between two ticket states, additional
// attendee fields included. An empty diff is still recorded.
func (r *Recorder) RecordTicketUpdate(ctx context.Context, before domain.Ticket, fieldsBefore map[string]string, after domain.Ticket, fieldsAfter map[string]string, pc domain.PurchaseContext) error {
	return r.Record(ctx, Entry{
		ReservationID: after.ReservationID,
		Context:       pc,
		EventType:     domain.AuditUpdateTicket,
		EntityType:    domain.EntityTicket,
		EntityID:      strconv.FormatInt(after.ID, 10),
		Modifications: Diff(ticketState(before, fieldsBefore), ticketState(after, fieldsAfter)),
	})
}

func (r *Recorder) RecordMetadataUpdate(ctx context.Context, reservationID string, ticketID int64, pc domain.PurchaseContext, updated, previous domain.MetadataContainer) error {
	return r.Record(ctx, Entry{
		ReservationID: reservationID,
		Context:       pc,
		EventType:     domain.AuditUpdateTicketMetadata,
		EntityType:    domain.EntityTicket,
		EntityID:      strconv.FormatInt(ticketID, 10),
		Modifications: Diff(metadataState(previous), metadataState(updated)),
	})
}

func ticketState(t domain.Ticket, fields map[string]string) map[string]interface{} {
	if t.ID == 0 && t.UUID == "" {
		return map[string]interface{}{}
	}
	s := map[string]interface{}{
		"status":           string(t.Status),
		"categoryId":       t.CategoryID,
		"fullName":         t.FullName,
		"firstName":        t.FirstName,
		"lastName":         t.LastName,
		"email":            t.Email,
		"userLanguage":     t.UserLanguage,
		"lockedAssignment": t.LockedAssignment,
	}
	for k, v := range fields {
		s["additional/"+k] = v
	}
	return s
}

func metadataState(c domain.MetadataContainer) map[string]interface{} {
	s := map[string]interface{}{}
	for ns, md := range c {
		for k, v := range md.Attributes {
			s[ns+"/"+k] = v
		}
		if md.LinkURL != "" {
			s[ns+"/$link"] = md.LinkURL
		}
	}
	return s
}

// Diff returns JSON-patch style operations turning before into after, ordered by path.
func Diff(before, after map[string]interface{}) []map[string]interface{} {
	keys := make([]string, 0, len(before)+len(after))
	seen := make(map[string]struct{}, len(before)+len(after))
	for _, m := range []map[string]interface{}{before, after} {
		for k := range m {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	ops := make([]map[string]interface{}, 0)
	for _, k := range keys {
		oldV, hadOld := before[k]
		newV, hasNew := after[k]
		path := "/" + k
		switch {
		case hadOld && !hasNew:
			ops = append(ops, map[string]interface{}{"op": "remove", "path": path})
		case !hadOld && hasNew:
			ops = append(ops, map[string]interface{}{"op": "add", "path": path, "value": newV})
		case !reflect.DeepEqual(oldV, newV):
			ops = append(ops, map[string]interface{}{"op": "replace", "path": path, "value": newV, "from": fmt.Sprint(oldV)})
		}
	}
	return ops
}
