package domain

import (
	"context"
	"time"
)

type ReservationStore interface {
	FindByID(ctx context.Context, id string) (Reservation, error)
	LockForUpdate(ctx context.Context, id string) error
	FindOwner(ctx context.Context, id string) (*int64, error)
	BillingDetails(ctx context.Context, id string) (BillingDetails, error)
	Complete(ctx context.Context, id string, c ReservationCompletion) (int64, error)
	ConfirmOfflinePayment(ctx context.Context, id string, status ReservationStatus, at time.Time) (int64, error)
	UpdateRegistrationTimestamp(ctx context.Context, id string, at time.Time) error
}

type TicketStore interface {
	FindInReservation(ctx context.Context, reservationID string) ([]Ticket, error)
	CountInReservation(ctx context.Context, reservationID string) (int, error)
	UpdateStatusForReservation(ctx context.Context, reservationID string, status TicketStatus) (int64, error)
	ForbidReassignment(ctx context.Context, ids []int64) (int64, error)
	UpdateMetadata(ctx context.Context, id int64, c MetadataContainer) error
	FindCategory(ctx context.Context, id int64) (TicketCategory, error)
}

type AdditionalServiceItemStore interface {
	UpdateStatusForReservation(ctx context.Context, reservationID string, status AdditionalServiceItemStatus) (int64, error)
}

type SubscriptionStore interface {
	FindByReservationID(ctx context.Context, reservationID string) ([]Subscription, error)
	Confirm(ctx context.Context, reservationID string, c SubscriptionConfirmation) (int64, error)
	Metadata(ctx context.Context, id string) (SubscriptionMetadata, error)
	SetMetadata(ctx context.Context, id string, md SubscriptionMetadata) error
}

type TransactionStore interface {
	// FindByReservationID returns nil, nil when the reservation has no ledger row.
	FindByReservationID(ctx context.Context, reservationID string) (*Transaction, error)
	Insert(ctx context.Context, t Transaction) error
	Update(ctx context.Context, id int64, u TransactionUpdate) (int64, error)
}

type AuditStore interface {
	Insert(ctx context.Context, e AuditEvent) error
}

type SpecialPriceStore interface {
	MarkTakenForReservations(ctx context.Context, reservationIDs []string) (int64, error)
}

type UserStore interface {
	FindIDByUsername(ctx context.Context, username string) (*int64, error)
}

type Outbox interface {
	Enqueue(ctx context.Context, msg OutboxMessage) error
}

// Stores is the persistence gateway bound to one unit of work.
type Stores struct {
	Reservations    ReservationStore
	Tickets         TicketStore
	AdditionalItems AdditionalServiceItemStore
	Subscriptions   SubscriptionStore
	Transactions    TransactionStore
	Audit           AuditStore
	SpecialPrices   SpecialPriceStore
	Users           UserStore
	Outbox          Outbox
}

// UnitOfWork runs fn in a brand-new transaction that is neither nested in nor
// rolled back by any transaction carried by ctx.
type UnitOfWork interface {
	RunIndependent(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type ConfigurationResolver interface {
	GetFor(ctx context.Context, keys []ConfigurationKey, level ConfigurationLevel) (ConfigurationValues, error)
}

type PurchaseContextCatalog interface {
	PurchaseContext(ctx context.Context, t PurchaseContextType, id string) (PurchaseContext, error)
}

type BillingDocumentStore interface {
	Save(ctx context.Context, doc BillingDocument) error
}
