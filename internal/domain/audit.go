package domain

import "time"

type AuditEventType string

const (
	AuditReservationComplete                AuditEventType = "RESERVATION_COMPLETE"
	AuditTermsConditionAccepted             AuditEventType = "TERMS_CONDITION_ACCEPTED"
	AuditPrivacyPolicyAccepted              AuditEventType = "PRIVACY_POLICY_ACCEPTED"
	AuditReservationOfflinePaymentConfirmed AuditEventType = "RESERVATION_OFFLINE_PAYMENT_CONFIRMED"
	AuditSubscriptionAcquired               AuditEventType = "SUBSCRIPTION_ACQUIRED"
	AuditUpdateTicket                       AuditEventType = "UPDATE_TICKET"
	AuditUpdateTicketMetadata               AuditEventType = "UPDATE_TICKET_METADATA"
)

type AuditEntityType string

const (
	EntityReservation  AuditEntityType = "RESERVATION"
	EntityTicket       AuditEntityType = "TICKET"
	EntitySubscription AuditEntityType = "SUBSCRIPTION"
)

// AuditEvent is append-only.
type AuditEvent struct {
	ID                  string
	ReservationID       string
	UserID              *int64
	PurchaseContextType PurchaseContextType
	PurchaseContextID   string
	EventType           AuditEventType
	Timestamp           time.Time
	EntityType          AuditEntityType
	EntityID            string
	Modifications       []map[string]interface{}
}
