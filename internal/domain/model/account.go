package model

import (
	"sort"
	"time"
)

// Account binds one panel account to a user. A user may own several; at most one is primary.
type Account struct {
	ID                 string // panel account id
	UserID             string
	Identity           string // panel username
	IsPrimary          bool
	ProvisionedByOrder string // order that created the account, empty for imported accounts
	CreatedAt          time.Time
}

// Entitlement is the panel-side snapshot of an account.
type Entitlement struct {
	AccountID         string
	ExpireAt          time.Time // zero when the account never had an expiry
	Groups            []string
	TrafficLimitBytes int64 // 0 = unlimited
	DeviceLimit       int   // 0 = unlimited
}

func (e *Entitlement) HasGroup(id string) bool {
	for _, g := range e.Groups {
		if g == id {
			return true
		}
	}
	return false
}

// AccountPatch is an absolute-value update. Nil fields are left untouched on the panel.
type AccountPatch struct {
	ExpireAt          *time.Time
	Groups            []string
	TrafficLimitBytes *int64
	DeviceLimit       *int
}

func (p AccountPatch) IsEmpty() bool {
	return p.ExpireAt == nil && p.Groups == nil && p.TrafficLimitBytes == nil && p.DeviceLimit == nil
}

// SelectTarget picks the account a payment affects: the explicit one when it
// is owned by the user, else the primary, else the earliest created.
func SelectTarget(accounts []*Account, explicit *string) *Account {
	if len(accounts) == 0 {
		return nil
	}
	if explicit != nil && *explicit != "" {
		for _, a := range accounts {
			if a.ID == *explicit {
				return a
			}
		}
		return nil
	}
	for _, a := range accounts {
		if a.IsPrimary {
			return a
		}
	}
	sorted := make([]*Account, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	return sorted[0]
}
