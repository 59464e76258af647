package domain

import "time"

// BillingDocument is the persisted summary of a settled reservation.
// There is one per reservation; regenerating it replaces the previous one.
type BillingDocument struct {
	ReservationID       string              `bson:"_id" json:"reservation_id"`
	PurchaseContextType PurchaseContextType `bson:"purchase_context_type" json:"purchase_context_type"`
	PurchaseContextID   string              `bson:"purchase_context_id" json:"purchase_context_id"`
	OrganizationID      int64               `bson:"organization_id" json:"organization_id"`
	CustomerName        string              `bson:"customer_name" json:"customer_name"`
	Email               string              `bson:"email" json:"email"`
	BillingAddress      string              `bson:"billing_address,omitempty" json:"billing_address,omitempty"`
	CustomerReference   string              `bson:"customer_reference,omitempty" json:"customer_reference,omitempty"`
	Billing             BillingDetails      `bson:"billing" json:"billing"`
	PriceWithVATCts     int64               `bson:"price_with_vat_cts" json:"price_with_vat_cts"`
	VatCts              int64               `bson:"vat_cts" json:"vat_cts"`
	Currency            string              `bson:"currency" json:"currency"`
	TicketCount         int                 `bson:"ticket_count" json:"ticket_count"`
	PaymentMethod       PaymentProxy        `bson:"payment_method" json:"payment_method"`
	CreatedBy           string              `bson:"created_by,omitempty" json:"created_by,omitempty"`
	GeneratedAt         time.Time           `bson:"generated_at" json:"generated_at"`
}
