package domain

import "time"

type AllocationStatus string

const (
	AllocationPending  AllocationStatus = "PENDING"
	AllocationToBePaid AllocationStatus = "TO_BE_PAID"
	AllocationAcquired AllocationStatus = "ACQUIRED"
)

func AllocationStatusFor(p PaymentProxy) AllocationStatus {
	if p.DeskPaymentRequired() {
		return AllocationToBePaid
	}
	return AllocationAcquired
}

type Subscription struct {
	ID             string
	DescriptorID   string
	ReservationID  string
	Status         AllocationStatus
	FirstName      string
	LastName       string
	Email          string
	MaxEntries     int
	ValidityFrom   *time.Time
	ValidityTo     *time.Time
	ConfirmationTS *time.Time
	TimeZone       string
}

type SubscriptionConfirmation struct {
	Status         AllocationStatus
	FirstName      string
	LastName       string
	Email          string
	MaxEntries     int
	ValidityFrom   *time.Time
	ValidityTo     *time.Time
	ConfirmationTS time.Time
	TimeZone       string
}
