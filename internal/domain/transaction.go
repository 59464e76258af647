package domain

import "time"

type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionComplete TransactionStatus = "COMPLETE"
	TransactionFailed   TransactionStatus = "FAILED"
)

// Transaction is the ledger row of a reservation. There is at most one per reservation.
type Transaction struct {
	ID            int64
	TransactionID string
	PaymentID     string
	ReservationID string
	Timestamp     time.Time
	PriceCts      int64
	Currency      string
	Description   string
	PaymentProxy  string
	PlatformFee   int64
	GatewayFee    int64
	Status        TransactionStatus
	Metadata      map[string]string
}

type TransactionUpdate struct {
	TransactionID string
	PaymentID     string
	Timestamp     time.Time
	PlatformFee   int64
	GatewayFee    int64
	Status        TransactionStatus
	Metadata      map[string]string
}
