package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GiB is the byte multiplier for traffic options sold in GB.
const GiB int64 = 1 << 30

// Tariff is a purchasable plan.
type Tariff struct {
	ID                string
	Name              string
	DurationDays      int
	BonusDays         int
	TrafficLimitBytes int64 // 0 = unlimited, leave the account cap alone
	DeviceLimit       int   // 0 = leave the account cap alone
	Groups            []string
	Price             decimal.Decimal
	Currency          string
	CreatedAt         time.Time
}

func (t *Tariff) Validate() error {
	if t.DurationDays < 0 || t.BonusDays < 0 {
		return errors.New("tariff days must be non-negative")
	}
	if t.TrafficLimitBytes < 0 || t.DeviceLimit < 0 {
		return errors.New("tariff caps must be non-negative")
	}
	return nil
}

type OptionType string

const (
	OptionTraffic OptionType = "traffic"
	OptionDevices OptionType = "devices"
	OptionGroup   OptionType = "group"
)

// Option is an incremental add-on. Value is GB for traffic, a count for
// devices and a group id for group.
type Option struct {
	ID        string
	Name      string
	Type      OptionType
	Value     string
	Price     decimal.Decimal
	Currency  string
	CreatedAt time.Time
}

func (o *Option) TrafficBytes() (int64, error) {
	if o.Type != OptionTraffic {
		return 0, fmt.Errorf("option %s is %s, not traffic", o.ID, o.Type)
	}
	gb, err := strconv.ParseInt(strings.TrimSpace(o.Value), 10, 64)
	if err != nil || gb <= 0 {
		return 0, fmt.Errorf("option %s: bad traffic value %q", o.ID, o.Value)
	}
	return gb * GiB, nil
}

func (o *Option) Devices() (int, error) {
	if o.Type != OptionDevices {
		return 0, fmt.Errorf("option %s is %s, not devices", o.ID, o.Type)
	}
	n, err := strconv.Atoi(strings.TrimSpace(o.Value))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("option %s: bad device value %q", o.ID, o.Value)
	}
	return n, nil
}

func (o *Option) Group() (string, error) {
	if o.Type != OptionGroup {
		return "", fmt.Errorf("option %s is %s, not group", o.ID, o.Type)
	}
	g := strings.TrimSpace(o.Value)
	if g == "" {
		return "", fmt.Errorf("option %s: empty group", o.ID)
	}
	return g, nil
}
