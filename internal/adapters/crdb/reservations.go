package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
)

type reservations struct {
	tx pgx.Tx
}

func (r reservations) FindByID(ctx context.Context, id string) (domain.Reservation, error) {
	var res domain.Reservation
	var status, pm string
	err := r.tx.QueryRow(ctx, `
		SELECT id, status, COALESCE(payment_method, ''), COALESCE(full_name, ''), COALESCE(first_name, ''),
		       COALESCE(last_name, ''), COALESCE(email_address, ''), COALESCE(billing_address, ''),
		       COALESCE(customer_reference, ''), COALESCE(user_language, ''), src_price_cts, final_price_cts,
		       vat_cts, COALESCE(currency_code, ''), confirmation_ts, registration_ts, owner_id
		FROM tickets_reservation WHERE id = $1
	`, id).Scan(&res.ID, &status, &pm, &res.FullName, &res.FirstName,
		&res.LastName, &res.Email, &res.BillingAddress,
		&res.CustomerReference, &res.UserLanguage, &res.SrcPriceCts, &res.FinalPriceCts,
		&res.VatCts, &res.Currency, &res.ConfirmationTimestamp, &res.RegistrationTimestamp, &res.OwnerID)
	if err != nil {
		return domain.Reservation{}, notFound(err, "reservation %s", id)
	}
	res.Status = domain.ReservationStatus(status)
	res.PaymentMethod = domain.PaymentProxy(pm)
	return res, nil
}

func (r reservations) LockForUpdate(ctx context.Context, id string) error {
	var locked string
	err := r.tx.QueryRow(ctx, `SELECT id FROM tickets_reservation WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	return notFound(err, "lock reservation %s", id)
}

func (r reservations) FindOwner(ctx context.Context, id string) (*int64, error) {
	var owner *int64
	err := r.tx.QueryRow(ctx, `SELECT owner_id FROM tickets_reservation WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		return nil, notFound(err, "owner of reservation %s", id)
	}
	return owner, nil
}

func (r reservations) BillingDetails(ctx context.Context, id string) (domain.BillingDetails, error) {
	var b domain.BillingDetails
	err := r.tx.QueryRow(ctx, `
		SELECT COALESCE(billing_company, ''), COALESCE(billing_address_line1, ''), COALESCE(billing_address_line2, ''),
		       COALESCE(billing_zip, ''), COALESCE(billing_city, ''), COALESCE(billing_state, ''),
		       COALESCE(billing_country, ''), COALESCE(vat_nr, ''), invoice_requested
		FROM tickets_reservation WHERE id = $1
	`, id).Scan(&b.Company, &b.AddressLine1, &b.AddressLine2, &b.Zip, &b.City, &b.State,
		&b.Country, &b.VatNumber, &b.InvoiceRequested)
	if err != nil {
		return domain.BillingDetails{}, notFound(err, "billing details of reservation %s", id)
	}
	return b, nil
}

func (r reservations) Complete(ctx context.Context, id string, c domain.ReservationCompletion) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE tickets_reservation
		SET status = $2, email_address = $3, full_name = $4, first_name = $5, last_name = $6,
		    user_language = $7, billing_address = $8, confirmation_ts = $9, payment_method = $10,
		    customer_reference = $11
		WHERE id = $1
	`, id, string(domain.ReservationComplete), c.Email, c.Name.FullName, c.Name.FirstName, c.Name.LastName,
		c.UserLanguage, c.BillingAddress, c.Timestamp, string(c.PaymentMethod), c.CustomerReference)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r reservations) ConfirmOfflinePayment(ctx context.Context, id string, status domain.ReservationStatus, at time.Time) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE tickets_reservation SET status = $2, confirmation_ts = $3 WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r reservations) UpdateRegistrationTimestamp(ctx context.Context, id string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE tickets_reservation SET registration_ts = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return domain.ExpectRows("reservation", 1, tag.RowsAffected())
}

type users struct {
	tx pgx.Tx
}

func (u users) FindIDByUsername(ctx context.Context, username string) (*int64, error) {
	if username == "" {
		return nil, nil
	}
	var id int64
	err := u.tx.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
