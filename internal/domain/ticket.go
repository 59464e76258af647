package domain

import "strings"

type TicketStatus string

const (
	TicketFree       TicketStatus = "FREE"
	TicketPending    TicketStatus = "PENDING"
	TicketToBePaid   TicketStatus = "TO_BE_PAID"
	TicketAcquired   TicketStatus = "ACQUIRED"
	TicketCheckedIn  TicketStatus = "CHECKED_IN"
	TicketCancelled  TicketStatus = "CANCELLED"
	TicketReleased   TicketStatus = "RELEASED"
	TicketExpired    TicketStatus = "EXPIRED"
	TicketInvalidate TicketStatus = "INVALIDATED"
)

type Ticket struct {
	ID               int64
	UUID             string
	CategoryID       int64
	EventID          string
	ReservationID    string
	Status           TicketStatus
	FullName         string
	FirstName        string
	LastName         string
	Email            string
	UserLanguage     string
	LockedAssignment bool
	Metadata         MetadataContainer
}

// Assigned reports whether an attendee has been named on the ticket.
func (t Ticket) Assigned() bool {
	return strings.TrimSpace(t.FullName) != "" ||
		strings.TrimSpace(t.FirstName) != "" ||
		strings.TrimSpace(t.Email) != ""
}

type TicketCategory struct {
	ID      int64
	EventID string
	Name    string
}

type AdditionalServiceItemStatus string

const (
	AdditionalItemPending  AdditionalServiceItemStatus = "PENDING"
	AdditionalItemToBePaid AdditionalServiceItemStatus = "TO_BE_PAID"
	AdditionalItemAcquired AdditionalServiceItemStatus = "ACQUIRED"
)

type AdditionalServiceItem struct {
	ID            int64
	UUID          string
	ReservationID string
	Status        AdditionalServiceItemStatus
}

func TicketStatusFor(p PaymentProxy) TicketStatus {
	if p.DeskPaymentRequired() {
		return TicketToBePaid
	}
	return TicketAcquired
}

func AdditionalItemStatusFor(p PaymentProxy) AdditionalServiceItemStatus {
	if p.DeskPaymentRequired() {
		return AdditionalItemToBePaid
	}
	return AdditionalItemAcquired
}
