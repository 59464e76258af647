package domain

import "time"

type ReservationStatus string

const (
	ReservationPending                     ReservationStatus = "PENDING"
	ReservationInPayment                   ReservationStatus = "IN_PAYMENT"
	ReservationExternalProcessingPayment   ReservationStatus = "EXTERNAL_PROCESSING_PAYMENT"
	ReservationWaitingExternalConfirmation ReservationStatus = "WAITING_EXTERNAL_CONFIRMATION"
	ReservationOfflinePayment              ReservationStatus = "OFFLINE_PAYMENT"
	ReservationDeferredOfflinePayment      ReservationStatus = "DEFERRED_OFFLINE_PAYMENT"
	ReservationComplete                    ReservationStatus = "COMPLETE"
	ReservationStuck                       ReservationStatus = "STUCK"
	ReservationCancelled                   ReservationStatus = "CANCELLED"
)

type CustomerName struct {
	FullName  string
	FirstName string
	LastName  string
}

type Reservation struct {
	ID                    string
	Status                ReservationStatus
	PaymentMethod         PaymentProxy
	FullName              string
	FirstName             string
	LastName              string
	Email                 string
	BillingAddress        string
	CustomerReference     string
	UserLanguage          string
	SrcPriceCts           int64
	FinalPriceCts         int64
	VatCts                int64
	Currency              string
	ConfirmationTimestamp *time.Time
	RegistrationTimestamp *time.Time
	OwnerID               *int64
}

func (r Reservation) CustomerName() CustomerName {
	return CustomerName{FullName: r.FullName, FirstName: r.FirstName, LastName: r.LastName}
}

func (r Reservation) PendingOfflinePayment() bool {
	return r.Status == ReservationOfflinePayment || r.Status == ReservationDeferredOfflinePayment
}

type BillingDetails struct {
	Company          string
	AddressLine1     string
	AddressLine2     string
	Zip              string
	City             string
	State            string
	Country          string
	VatNumber        string
	InvoiceRequested bool
}

// ReservationCompletion is the final buyer identity written when a reservation reaches COMPLETE.
type ReservationCompletion struct {
	Email             string
	Name              CustomerName
	UserLanguage      string
	BillingAddress    string
	CustomerReference string
	PaymentMethod     PaymentProxy
	Timestamp         time.Time
}

type TotalPrice struct {
	PriceWithVATCts int64
	VatCts          int64
	Currency        string
}

func (r Reservation) TotalPrice() TotalPrice {
	return TotalPrice{PriceWithVATCts: r.FinalPriceCts, VatCts: r.VatCts, Currency: r.Currency}
}
