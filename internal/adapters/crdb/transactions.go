package crdb

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type transactions struct {
	tx pgx.Tx
}

func (t transactions) FindByReservationID(ctx context.Context, reservationID string) (*domain.Transaction, error) {
	var tr domain.Transaction
	var paymentID *string
	var status string
	var metadata []byte
	err := t.tx.QueryRow(ctx, `
		SELECT id, gtw_tx_id, gtw_payment_id, reservation_id, t_timestamp, price_cts, currency,
		       description, payment_proxy, plat_fee, gtw_fee, status, metadata
		FROM b_transaction WHERE reservation_id = $1
	`, reservationID).Scan(&tr.ID, &tr.TransactionID, &paymentID, &tr.ReservationID, &tr.Timestamp, &tr.PriceCts, &tr.Currency,
		&tr.Description, &tr.PaymentProxy, &tr.PlatformFee, &tr.GatewayFee, &status, &metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if paymentID != nil {
		tr.PaymentID = *paymentID
	}
	tr.Status = domain.TransactionStatus(status)
	if err := json.Unmarshal(metadata, &tr.Metadata); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of transaction %d", tr.ID)
	}
	return &tr, nil
}

func (t transactions) Insert(ctx context.Context, tr domain.Transaction) error {
	metadata, err := json.Marshal(tr.Metadata)
	if err != nil {
		return errors.Wrap(err, "encode transaction metadata")
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO b_transaction (gtw_tx_id, gtw_payment_id, reservation_id, t_timestamp, price_cts, currency,
		                           description, payment_proxy, plat_fee, gtw_fee, status, metadata)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, tr.TransactionID, tr.PaymentID, tr.ReservationID, tr.Timestamp, tr.PriceCts, tr.Currency,
		tr.Description, tr.PaymentProxy, tr.PlatformFee, tr.GatewayFee, string(tr.Status), metadata)
	return classify(err)
}

func (t transactions) Update(ctx context.Context, id int64, u domain.TransactionUpdate) (int64, error) {
	metadata, err := json.Marshal(u.Metadata)
	if err != nil {
		return 0, errors.Wrap(err, "encode transaction metadata")
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE b_transaction
		SET gtw_tx_id = $2, gtw_payment_id = NULLIF($3, ''), t_timestamp = $4, plat_fee = $5, gtw_fee = $6,
		    status = $7, metadata = $8
		WHERE id = $1
	`, id, u.TransactionID, u.PaymentID, u.Timestamp, u.PlatformFee, u.GatewayFee, string(u.Status), metadata)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
