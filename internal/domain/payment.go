package domain

type PaymentProxy string

const (
	PaymentStripe  PaymentProxy = "STRIPE"
	PaymentPayPal  PaymentProxy = "PAYPAL"
	PaymentMollie  PaymentProxy = "MOLLIE"
	PaymentOffline PaymentProxy = "OFFLINE"
	PaymentOnSite  PaymentProxy = "ON_SITE"
	PaymentAdmin   PaymentProxy = "ADMIN"
	PaymentNone    PaymentProxy = "NONE"
)

var paymentKeys = map[PaymentProxy]string{
	PaymentStripe:  "stripe.com",
	PaymentPayPal:  "paypal",
	PaymentMollie:  "mollie",
	PaymentOffline: "offline",
	PaymentOnSite:  "on-site",
	PaymentAdmin:   "admin",
	PaymentNone:    "n/a",
}

// Key is the identifier stored on ledger rows.
func (p PaymentProxy) Key() string {
	if k, ok := paymentKeys[p]; ok {
		return k
	}
	return string(p)
}

// DeskPaymentRequired reports whether the buyer settles at the venue.
func (p PaymentProxy) DeskPaymentRequired() bool {
	return p == PaymentOnSite
}

func (p PaymentProxy) Valid() bool {
	_, ok := paymentKeys[p]
	return ok
}
