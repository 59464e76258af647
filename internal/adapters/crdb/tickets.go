package crdb

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type tickets struct {
	tx pgx.Tx
}

func (t tickets) FindInReservation(ctx context.Context, reservationID string) ([]domain.Ticket, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, uuid, category_id, event_id, tickets_reservation_id, status, full_name, first_name,
		       last_name, email_address, user_language, locked_assignment, metadata
		FROM ticket WHERE tickets_reservation_id = $1 ORDER BY id
	`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var tk domain.Ticket
		var status string
		var metadata []byte
		err := rows.Scan(&tk.ID, &tk.UUID, &tk.CategoryID, &tk.EventID, &tk.ReservationID, &status, &tk.FullName, &tk.FirstName,
			&tk.LastName, &tk.Email, &tk.UserLanguage, &tk.LockedAssignment, &metadata)
		if err != nil {
			return nil, err
		}
		tk.Status = domain.TicketStatus(status)
		if err := json.Unmarshal(metadata, &tk.Metadata); err != nil {
			return nil, errors.Wrapf(err, "decode metadata of ticket %d", tk.ID)
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

func (t tickets) CountInReservation(ctx context.Context, reservationID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM ticket WHERE tickets_reservation_id = $1`, reservationID).Scan(&n)
	return n, err
}

func (t tickets) UpdateStatusForReservation(ctx context.Context, reservationID string, status domain.TicketStatus) (int64, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE ticket SET status = $2 WHERE tickets_reservation_id = $1
	`, reservationID, string(status))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t tickets) ForbidReassignment(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx, `UPDATE ticket SET locked_assignment = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t tickets) UpdateMetadata(ctx context.Context, id int64, c domain.MetadataContainer) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return errors.Wrapf(err, "encode metadata of ticket %d", id)
	}
	tag, err := t.tx.Exec(ctx, `UPDATE ticket SET metadata = $2 WHERE id = $1`, id, payload)
	if err != nil {
		return err
	}
	return domain.ExpectRows("ticket", 1, tag.RowsAffected())
}

func (t tickets) FindCategory(ctx context.Context, id int64) (domain.TicketCategory, error) {
	var c domain.TicketCategory
	err := t.tx.QueryRow(ctx, `SELECT id, event_id, name FROM ticket_category WHERE id = $1`, id).Scan(&c.ID, &c.EventID, &c.Name)
	if err != nil {
		return domain.TicketCategory{}, notFound(err, "ticket category %d", id)
	}
	return c, nil
}

type additionalItems struct {
	tx pgx.Tx
}

func (a additionalItems) UpdateStatusForReservation(ctx context.Context, reservationID string, status domain.AdditionalServiceItemStatus) (int64, error) {
	tag, err := a.tx.Exec(ctx, `
		UPDATE additional_service_item SET status = $2 WHERE tickets_reservation_id = $1
	`, reservationID, string(status))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type specialPrices struct {
	tx pgx.Tx
}

func (s specialPrices) MarkTakenForReservations(ctx context.Context, reservationIDs []string) (int64, error) {
	tag, err := s.tx.Exec(ctx, `
		UPDATE special_price SET status = 'TAKEN' WHERE reservation_id = ANY($1)
	`, reservationIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
