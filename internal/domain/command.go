package domain

// PaymentSpecification describes an authorized payment for a reservation.
type PaymentSpecification struct {
	ReservationID     string
	PurchaseContext   PurchaseContext
	Email             string
	CustomerName      CustomerName
	BillingAddress    string
	CustomerReference string
	Locale            string
	TermsAccepted     bool
	PrivacyAccepted   bool
}

// FinalizeReservation is published by the payment workflow once its own
// transaction has committed. An empty Username resolves to the reservation owner.
type FinalizeReservation struct {
	PaymentSpecification             PaymentSpecification
	PaymentProxy                     PaymentProxy
	SendReservationConfirmationEmail bool
	SendTickets                      bool
	Username                         string
}
