package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING" // created at checkout, awaiting confirmation
	PaymentStatusPaid    PaymentStatus = "PAID"    // terminal, written once by the ledger CAS
	PaymentStatusExpired PaymentStatus = "EXPIRED" // swept after the pending TTL; still payable by a verified webhook
)

// PurchaseKind is derived from the payment row, never stored.
type PurchaseKind string

const (
	PurchaseSubscription PurchaseKind = "subscription"
	PurchaseOption       PurchaseKind = "option"
	PurchaseTopUp        PurchaseKind = "topup"
)

const optionRefPrefix = "option:"

// Payment records one checkout. It is created PENDING outside this service
// and transitions to PAID at most once.
type Payment struct {
	ID              string
	OrderID         string // externally visible correlation key
	UserID          string
	TariffID        *string
	Description     string // carries "option:<id>" for option purchases
	Amount          decimal.Decimal
	Currency        string
	Status          PaymentStatus
	PaymentSystemID string // provider-assigned id, used for polling
	Provider        string
	PromoCodeID     *string
	AccountID       *string // target panel account, nil means "resolve"
	CreateNewConfig bool
	MessageID       int // outbound checkout message to clean up, 0 if none
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
}

// OptionDescription encodes an option reference into the description field.
func OptionDescription(optionID string) string {
	return optionRefPrefix + optionID
}

// OptionID extracts the option reference from the description.
func (p *Payment) OptionID() (string, bool) {
	d := strings.TrimSpace(p.Description)
	if !strings.HasPrefix(d, optionRefPrefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(d, optionRefPrefix))
	if f := strings.Fields(id); len(f) > 0 {
		id = f[0]
	}
	return id, id != ""
}

func (p *Payment) Kind() PurchaseKind {
	if p.TariffID != nil && *p.TariffID != "" {
		return PurchaseSubscription
	}
	if _, ok := p.OptionID(); ok {
		return PurchaseOption
	}
	return PurchaseTopUp
}

func (p *Payment) IsPaid() bool { return p.Status == PaymentStatusPaid }

// Payable reports whether a verified signal may still transition the payment.
func (p *Payment) Payable() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusExpired
}
