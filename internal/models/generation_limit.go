package models

import "time"

const (
	// AnonymousDailyLimit applies to callers without an allowlist entry.
	AnonymousDailyLimit = 1
	// FriendDailyLimit applies to allowlist entries without an explicit quota.
	FriendDailyLimit = 10
	// UnlimitedSentinel is reported as remaining/limit for administrators.
	UnlimitedSentinel = 999999
)

// DateLayout is the calendar-date format used as part of the usage key.
const DateLayout = "2006-01-02"

// GenerationLimit is the usage counter for one fingerprint on one UTC date.
type GenerationLimit struct {
	ID          string
	Fingerprint string
	Date        string
	Count       int
	IsFriend    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LimitStatus is the result of a limit evaluation.
type LimitStatus struct {
	Allowed     bool   `json:"allowed"`
	Remaining   int    `json:"remaining"`
	DailyLimit  int    `json:"dailyLimit"`
	IsFriend    bool   `json:"isFriend"`
	IsAdmin     bool   `json:"isAdmin"`
	Fingerprint string `json:"fingerprint"`
}

// TLCFriend is an allowlist entry with an elevated daily quota.
type TLCFriend struct {
	ID         string
	Email      string
	Name       string
	DailyLimit *int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveLimit returns the friend's quota, falling back to FriendDailyLimit.
func (f *TLCFriend) EffectiveLimit() int {
	if f.DailyLimit == nil || *f.DailyLimit <= 0 {
		return FriendDailyLimit
	}
	return *f.DailyLimit
}
