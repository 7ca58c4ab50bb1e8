package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the buyer. Balance is held in the reference currency.
type User struct {
	ID              string
	TelegramID      int64
	Username        string
	Balance         decimal.Decimal
	ReferrerID      *string
	ReferralPercent decimal.NullDecimal // personal commission override for users this one referred
	CreatedAt       time.Time
}

func NewUser(id string, telegramID int64, username string) (*User, error) {
	if telegramID <= 0 {
		return nil, errors.New("invalid telegram id")
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &User{
		ID:         id,
		TelegramID: telegramID,
		Username:   username,
		Balance:    decimal.Zero,
		CreatedAt:  time.Now(),
	}, nil
}

type ReferralMode string

const (
	ReferralPercent ReferralMode = "PERCENT"
	ReferralDays    ReferralMode = "DAYS"
)

func ParseReferralMode(s string) ReferralMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ReferralDays)) {
		return ReferralDays
	}
	return ReferralPercent
}

// ReferralSettings are injected from configuration.
type ReferralSettings struct {
	Mode           ReferralMode
	DefaultPercent decimal.Decimal
}

// PercentFor returns the referrer's personal percent, or the default.
func (s ReferralSettings) PercentFor(referrer *User) decimal.Decimal {
	if referrer != nil && referrer.ReferralPercent.Valid {
		return referrer.ReferralPercent.Decimal
	}
	return s.DefaultPercent
}

type PromoCode struct {
	ID        string
	Code      string
	UsesLeft  int
	CreatedAt time.Time
}
