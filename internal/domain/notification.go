package domain

type NotificationKind string

const (
	NotifyReservationConfirmation      NotificationKind = "notification.reservation.confirmation"
	NotifyOrganizerReservationComplete NotificationKind = "notification.reservation.organizer"
	NotifyTicket                       NotificationKind = "notification.ticket"
	NotifyWaitingQueueConfirmed        NotificationKind = "waitingqueue.reservation.confirmed"
)

type Notification struct {
	Kind                NotificationKind    `json:"kind"`
	ReservationID       string              `json:"reservation_id"`
	PurchaseContextType PurchaseContextType `json:"purchase_context_type"`
	PurchaseContextID   string              `json:"purchase_context_id"`
	ReservationStatus   ReservationStatus   `json:"reservation_status,omitempty"`
	Recipient           string              `json:"recipient,omitempty"`
	Locale              string              `json:"locale,omitempty"`
	Username            string              `json:"username,omitempty"`
	TicketUUID          string              `json:"ticket_uuid,omitempty"`
	AttendeeName        string              `json:"attendee_name,omitempty"`
	AttendeeSearchKey   string              `json:"attendee_search_key,omitempty"`
}

// DedupeKey is stable across retries of the same finalization. The reservation
// status tells the pending-payment email apart from the one sent once an
// offline payment is confirmed.
func (n Notification) DedupeKey() string {
	key := string(n.Kind) + ":" + n.ReservationID
	if n.ReservationStatus != "" {
		key += ":" + string(n.ReservationStatus)
	}
	if n.TicketUUID != "" {
		key += ":" + n.TicketUUID
	}
	return key
}

type OutboxMessage struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	DedupeKey     string
}
