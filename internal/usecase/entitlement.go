// File: internal/usecase/entitlement.go
package usecase

import (
	"fmt"
	"strconv"
	"time"

	"vpn-billing/internal/domain/model"
)

// SubscriptionPatch extends the account from max(now, current expiry) and
// applies the tariff caps. Zero caps and an empty group list leave the panel
// values untouched.
func SubscriptionPatch(t *model.Tariff, cur *model.Entitlement, now time.Time) model.AccountPatch {
	start := now
	if cur != nil && cur.ExpireAt.After(now) {
		start = cur.ExpireAt
	}
	exp := start.AddDate(0, 0, t.DurationDays+t.BonusDays)
	patch := model.AccountPatch{ExpireAt: &exp}
	if len(t.Groups) > 0 {
		patch.Groups = append([]string(nil), t.Groups...)
	}
	if t.TrafficLimitBytes > 0 {
		v := t.TrafficLimitBytes
		patch.TrafficLimitBytes = &v
	}
	if t.DeviceLimit > 0 {
		v := t.DeviceLimit
		patch.DeviceLimit = &v
	}
	return patch
}

// OptionPatch adds the option on top of the current snapshot. An unlimited
// cap stays unlimited and an already present group is not duplicated, so the
// patch may be empty.
func OptionPatch(o *model.Option, cur *model.Entitlement) (model.AccountPatch, error) {
	var patch model.AccountPatch
	switch o.Type {
	case model.OptionTraffic:
		add, err := o.TrafficBytes()
		if err != nil {
			return patch, err
		}
		if cur.TrafficLimitBytes > 0 {
			v := cur.TrafficLimitBytes + add
			patch.TrafficLimitBytes = &v
		}
	case model.OptionDevices:
		add, err := o.Devices()
		if err != nil {
			return patch, err
		}
		if cur.DeviceLimit > 0 {
			v := cur.DeviceLimit + add
			patch.DeviceLimit = &v
		}
	case model.OptionGroup:
		g, err := o.Group()
		if err != nil {
			return patch, err
		}
		if !cur.HasGroup(g) {
			patch.Groups = append(append([]string(nil), cur.Groups...), g)
		}
	default:
		return patch, fmt.Errorf("option %s: unknown type %q", o.ID, o.Type)
	}
	return patch, nil
}

// NextIdentity returns u<telegramID>, suffixed _2, _3, ... until it is not
// among the taken identities.
func NextIdentity(telegramID int64, accounts []*model.Account) string {
	taken := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		taken[a.Identity] = struct{}{}
	}
	base := "u" + strconv.FormatInt(telegramID, 10)
	if _, ok := taken[base]; !ok {
		return base
	}
	for i := 2; ; i++ {
		id := base + "_" + strconv.Itoa(i)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}
