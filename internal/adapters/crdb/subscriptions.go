package crdb

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type subscriptions struct {
	tx pgx.Tx
}

func (s subscriptions) FindByReservationID(ctx context.Context, reservationID string) ([]domain.Subscription, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT id, subscription_descriptor_id, reservation_id, status, first_name, last_name, email_address,
		       max_entries, validity_from, validity_to, confirmation_ts, time_zone
		FROM subscription WHERE reservation_id = $1 ORDER BY id
	`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		var status string
		err := rows.Scan(&sub.ID, &sub.DescriptorID, &sub.ReservationID, &status, &sub.FirstName, &sub.LastName, &sub.Email,
			&sub.MaxEntries, &sub.ValidityFrom, &sub.ValidityTo, &sub.ConfirmationTS, &sub.TimeZone)
		if err != nil {
			return nil, err
		}
		sub.Status = domain.AllocationStatus(status)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s subscriptions) Confirm(ctx context.Context, reservationID string, c domain.SubscriptionConfirmation) (int64, error) {
	tag, err := s.tx.Exec(ctx, `
		UPDATE subscription
		SET status = $2, first_name = $3, last_name = $4, email_address = $5, max_entries = $6,
		    validity_from = $7, validity_to = $8, confirmation_ts = $9, time_zone = $10
		WHERE reservation_id = $1
	`, reservationID, string(c.Status), c.FirstName, c.LastName, c.Email, c.MaxEntries,
		c.ValidityFrom, c.ValidityTo, c.ConfirmationTS, c.TimeZone)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s subscriptions) Metadata(ctx context.Context, id string) (domain.SubscriptionMetadata, error) {
	var raw []byte
	if err := s.tx.QueryRow(ctx, `SELECT metadata FROM subscription WHERE id = $1`, id).Scan(&raw); err != nil {
		return domain.SubscriptionMetadata{}, notFound(err, "subscription %s", id)
	}
	var md domain.SubscriptionMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return domain.SubscriptionMetadata{}, errors.Wrapf(err, "decode metadata of subscription %s", id)
	}
	return md, nil
}

func (s subscriptions) SetMetadata(ctx context.Context, id string, md domain.SubscriptionMetadata) error {
	payload, err := json.Marshal(md)
	if err != nil {
		return errors.Wrapf(err, "encode metadata of subscription %s", id)
	}
	tag, err := s.tx.Exec(ctx, `UPDATE subscription SET metadata = $2 WHERE id = $1`, id, payload)
	if err != nil {
		return err
	}
	return domain.ExpectRows("subscription", 1, tag.RowsAffected())
}
