package crdb

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type auditing struct {
	tx pgx.Tx
}

func (a auditing) Insert(ctx context.Context, e domain.AuditEvent) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		id = uuid.New()
	}
	var modifications []byte
	if e.Modifications != nil {
		if modifications, err = json.Marshal(e.Modifications); err != nil {
			return errors.Wrap(err, "encode audit modifications")
		}
	}
	_, err = a.tx.Exec(ctx, `
		INSERT INTO auditing (id, reservation_id, user_id, purchase_context_type, purchase_context_id,
		                      event_type, event_time, entity_type, entity_id, modifications)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, id, e.ReservationID, e.UserID, string(e.PurchaseContextType), e.PurchaseContextID,
		string(e.EventType), e.Timestamp, string(e.EntityType), e.EntityID, modifications)
	return errors.Wrapf(err, "insert audit event %s", e.EventType)
}

// AuditEvents lists the trail of a reservation in insertion time order.
func (r *Repository) AuditEvents(ctx context.Context, reservationID string) ([]domain.AuditEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, reservation_id, user_id, purchase_context_type, purchase_context_id,
		       event_type, event_time, entity_type, entity_id, modifications
		FROM auditing WHERE reservation_id = $1 ORDER BY event_time, id
	`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var id uuid.UUID
		var pcType, pcID *string
		var eventType, entityType string
		var modifications []byte
		err := rows.Scan(&id, &e.ReservationID, &e.UserID, &pcType, &pcID,
			&eventType, &e.Timestamp, &entityType, &e.EntityID, &modifications)
		if err != nil {
			return nil, err
		}
		e.ID = id.String()
		if pcType != nil {
			e.PurchaseContextType = domain.PurchaseContextType(*pcType)
		}
		if pcID != nil {
			e.PurchaseContextID = *pcID
		}
		e.EventType = domain.AuditEventType(eventType)
		e.EntityType = domain.AuditEntityType(entityType)
		if modifications != nil {
			if err := json.Unmarshal(modifications, &e.Modifications); err != nil {
				return nil, errors.Wrap(err, "decode audit modifications")
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
