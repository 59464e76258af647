package domain

import (
	"strings"
	"time"
)

type PurchaseContextType string

const (
	PurchaseContextEvent        PurchaseContextType = "event"
	PurchaseContextSubscription PurchaseContextType = "subscription"
)

// PurchaseContext is the sellable entity a reservation belongs to.
type PurchaseContext interface {
	Type() PurchaseContextType
	ID() string
	OrganizationID() int64
	ConfigurationLevel() ConfigurationLevel
	Location() *time.Location
	Currency() string
	TermsAndConditionsURL() string
	PrivacyPolicyURL() string
}

func HasPrivacyPolicy(pc PurchaseContext) bool {
	return strings.TrimSpace(pc.PrivacyPolicyURL()) != ""
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Event struct {
	EventID      string
	ShortName    string
	DisplayName  string
	OrgID        int64
	CurrencyCode string
	TimeZone     string
	TermsURL     string
	PrivacyURL   string
}

func (e Event) Type() PurchaseContextType { return PurchaseContextEvent }
func (e Event) ID() string { return e.EventID }
func (e Event) OrganizationID() int64 { return e.OrgID }
func (e Event) Location() *time.Location { return loadLocation(e.TimeZone) }
func (e Event) Currency() string { return e.CurrencyCode }
func (e Event) TermsAndConditionsURL() string { return e.TermsURL }
func (e Event) PrivacyPolicyURL() string { return e.PrivacyURL }

func (e Event) ConfigurationLevel() ConfigurationLevel {
	return ConfigurationLevel{Scope: ScopePurchaseContext, OrganizationID: e.OrgID, PurchaseContextID: e.EventID}
}

type SubscriptionTimeUnit string

const (
	UnitDays   SubscriptionTimeUnit = "DAYS"
	UnitMonths SubscriptionTimeUnit = "MONTHS"
	UnitYears  SubscriptionTimeUnit = "YEARS"
)

type SubscriptionDescriptor struct {
	DescriptorID     string
	Title            string
	OrgID            int64
	CurrencyCode     string
	TimeZone         string
	TermsURL         string
	PrivacyURL       string
	MaxEntries       int
	ValidityFrom     *time.Time
	ValidityTo       *time.Time
	ValidityUnits    *int
	ValidityTimeUnit SubscriptionTimeUnit
}

func (d SubscriptionDescriptor) Type() PurchaseContextType { return PurchaseContextSubscription }
func (d SubscriptionDescriptor) ID() string { return d.DescriptorID }
func (d SubscriptionDescriptor) OrganizationID() int64 { return d.OrgID }
func (d SubscriptionDescriptor) Location() *time.Location { return loadLocation(d.TimeZone) }
func (d SubscriptionDescriptor) Currency() string { return d.CurrencyCode }
func (d SubscriptionDescriptor) TermsAndConditionsURL() string { return d.TermsURL }
func (d SubscriptionDescriptor) PrivacyPolicyURL() string { return d.PrivacyURL }

func (d SubscriptionDescriptor) ConfigurationLevel() ConfigurationLevel {
	return ConfigurationLevel{Scope: ScopePurchaseContext, OrganizationID: d.OrgID, PurchaseContextID: d.DescriptorID}
}

// ValidityWindow resolves the subscription validity for a confirmation at confirmedAt.
// A fixed range wins; otherwise the duration is anchored at confirmedAt and the end
// is moved to 23:59:59 in the descriptor's zone. Both are nil when neither is configured.
func (d SubscriptionDescriptor) ValidityWindow(confirmedAt time.Time) (from, to *time.Time) {
	if d.ValidityFrom != nil {
		return d.ValidityFrom, d.ValidityTo
	}
	if d.ValidityUnits == nil {
		return nil, nil
	}
	start := confirmedAt.In(d.Location())
	n := *d.ValidityUnits
	var end time.Time
	switch d.ValidityTimeUnit {
	case UnitMonths:
		end = start.AddDate(0, n, 0)
	case UnitYears:
		end = start.AddDate(n, 0, 0)
	default:
		end = start.AddDate(0, 0, n)
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, end.Location())
	return &start, &end
}
