package finalizer

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/reservation-finalizer/internal/clock"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

type FeeCalculator interface {
	PlatformFee(ctx context.Context, pc domain.PurchaseContext, itemCount int, priceCts int64) (int64, error)
}

// Ledger keeps at most one transaction row per reservation.
type Ledger struct {
	fees  FeeCalculator
	clock clock.Clock
	log   observability.Logger
}

func NewLedger(fees FeeCalculator, clk clock.Clock, log observability.Logger) *Ledger {
	return &Ledger{fees: fees, clock: clk, log: log}
}

// RegisterTransaction records the settlement of a reservation. An existing row is
// only rewritten for offline payments; other methods leave it untouched.
func (l *Ledger) RegisterTransaction(ctx context.Context, s domain.Stores, pc domain.PurchaseContext, reservationID string, pm domain.PaymentProxy) error {
	res, err := s.Reservations.FindByID(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "load reservation")
	}
	total := res.TotalPrice()
	currency := total.Currency
	if currency == "" {
		currency = pc.Currency()
	}
	count, err := s.Tickets.CountInReservation(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "count tickets")
	}
	fee, err := l.fees.PlatformFee(ctx, pc, count, total.PriceWithVATCts)
	if err != nil {
		return errors.Wrap(err, "compute platform fee")
	}

	existing, err := s.Transactions.FindByReservationID(ctx, reservationID)
	if err != nil {
		return errors.Wrap(err, "load transaction")
	}
	now := l.clock.Now(pc.Location())
	transactionID := pm.Key() + "-" + strconv.FormatInt(now.UnixMilli(), 10)

	switch {
	case existing == nil:
		err = s.Transactions.Insert(ctx, domain.Transaction{
			TransactionID: transactionID,
			ReservationID: reservationID,
			Timestamp:     now,
			PriceCts:      total.PriceWithVATCts,
			Currency:      currency,
			Description:   "Offline payment confirmed for " + reservationID,
			PaymentProxy:  pm.Key(),
			PlatformFee:   fee,
			GatewayFee:    0,
			Status:        domain.TransactionComplete,
			Metadata:      map[string]string{},
		})
		if err != nil {
			return errors.Wrap(err, "insert transaction")
		}
		observability.LedgerRegistrations.WithLabelValues("inserted").Inc()
	case pm == domain.PaymentOffline:
		updated, err := s.Transactions.Update(ctx, existing.ID, domain.TransactionUpdate{
			TransactionID: transactionID,
			Timestamp:     now,
			PlatformFee:   fee,
			GatewayFee:    0,
			Status:        domain.TransactionComplete,
			Metadata:      map[string]string{},
		})
		if err != nil {
			return errors.Wrap(err, "update transaction")
		}
		if err := domain.ExpectRows("transaction", 1, updated); err != nil {
			return err
		}
		observability.LedgerRegistrations.WithLabelValues("updated").Inc()
	default:
		l.log.WithField("reservation_id", reservationID).
			WithField("payment_method", string(pm)).
			Warn("transaction already registered, ignoring registration")
		observability.LedgerRegistrations.WithLabelValues("skipped").Inc()
	}
	return nil
}
