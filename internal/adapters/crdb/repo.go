package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertarktes/reservation-finalizer/internal/domain"
	"github.com/robertarktes/reservation-finalizer/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	timer := prometheus.NewTimer(observability.DBTxDuration)
	defer timer.ObserveDuration()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return classify(err)
	}

	if err := fn(tx); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

// RunIndependent always opens a fresh transaction on its own connection, so
// the work is never part of a transaction the caller may hold.
func (r *Repository) RunIndependent(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, Stores(tx))
	})
}

// Stores binds every persistence port to tx.
func Stores(tx pgx.Tx) domain.Stores {
	return domain.Stores{
		Reservations:    reservations{tx},
		Tickets:         tickets{tx},
		AdditionalItems: additionalItems{tx},
		Subscriptions:   subscriptions{tx},
		Transactions:    transactions{tx},
		Audit:           auditing{tx},
		SpecialPrices:   specialPrices{tx},
		Users:           users{tx},
		Outbox:          outbox{tx},
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case SerializationFailureCode:
			return errors.Mark(err, domain.ErrSerializationFailure)
		case UniqueViolationCode:
			return errors.Mark(err, domain.ErrConflict)
		}
	}
	return err
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(domain.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
