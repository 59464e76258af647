package domain

import (
	"strconv"
	"strings"
)

type ConfigurationKey string

const (
	SendReservationEmailIfNecessary           ConfigurationKey = "SEND_RESERVATION_EMAIL_IF_NECESSARY"
	SendTicketsAutomatically                  ConfigurationKey = "SEND_TICKETS_AUTOMATICALLY"
	EnableTicketTransfer                      ConfigurationKey = "ENABLE_TICKET_TRANSFER"
	DeferredBankTransferEnabled               ConfigurationKey = "DEFERRED_BANK_TRANSFER_ENABLED"
	DeferredBankTransferSendConfirmationEmail ConfigurationKey = "DEFERRED_BANK_TRANSFER_SEND_CONFIRMATION_EMAIL"
	PlatformModeEnabled                       ConfigurationKey = "PLATFORM_MODE_ENABLED"
	PlatformFixedFee                          ConfigurationKey = "PLATFORM_FIXED_FEE"
	PlatformPercentageFee                     ConfigurationKey = "PLATFORM_PERCENTAGE_FEE"
	PlatformMinimumFee                        ConfigurationKey = "PLATFORM_MINIMUM_FEE"
)

var configurationDefaults = map[ConfigurationKey]string{
	SendReservationEmailIfNecessary:           "true",
	SendTicketsAutomatically:                  "true",
	EnableTicketTransfer:                      "true",
	DeferredBankTransferEnabled:               "false",
	DeferredBankTransferSendConfirmationEmail: "true",
	PlatformModeEnabled:                       "false",
	PlatformFixedFee:                          "0",
	PlatformPercentageFee:                     "0",
	PlatformMinimumFee:                        "0",
}

func (k ConfigurationKey) Default() string {
	return configurationDefaults[k]
}

type ConfigurationScope string

const (
	ScopeSystem          ConfigurationScope = "SYSTEM"
	ScopeOrganization    ConfigurationScope = "ORGANIZATION"
	ScopePurchaseContext ConfigurationScope = "PURCHASE_CONTEXT"
)

// Priority orders scopes from least to most specific.
func (s ConfigurationScope) Priority() int {
	switch s {
	case ScopeOrganization:
		return 1
	case ScopePurchaseContext:
		return 2
	default:
		return 0
	}
}

type ConfigurationLevel struct {
	Scope             ConfigurationScope
	OrganizationID    int64
	PurchaseContextID string
}

// Covers reports whether a value stored at l applies to a lookup at target.
func (l ConfigurationLevel) Covers(target ConfigurationLevel) bool {
	switch l.Scope {
	case ScopeOrganization:
		return target.Scope != ScopeSystem && l.OrganizationID == target.OrganizationID
	case ScopePurchaseContext:
		return target.Scope == ScopePurchaseContext &&
			l.OrganizationID == target.OrganizationID &&
			l.PurchaseContextID == target.PurchaseContextID
	default:
		return true
	}
}

type ConfigurationValue struct {
	Key     ConfigurationKey
	Value   string
	Present bool
}

func (v ConfigurationValue) raw() string {
	if v.Present {
		return strings.TrimSpace(v.Value)
	}
	return v.Key.Default()
}

func (v ConfigurationValue) AsBoolOrDefault() bool {
	b, err := strconv.ParseBool(v.raw())
	if err != nil {
		b, _ = strconv.ParseBool(v.Key.Default())
	}
	return b
}

func (v ConfigurationValue) AsStringOrDefault() string {
	return v.raw()
}

// ConfigurationValues always answers: missing keys fall back to their defaults.
type ConfigurationValues map[ConfigurationKey]ConfigurationValue

func (c ConfigurationValues) Get(k ConfigurationKey) ConfigurationValue {
	if v, ok := c[k]; ok {
		return v
	}
	return ConfigurationValue{Key: k}
}
