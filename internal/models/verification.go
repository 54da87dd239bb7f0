package models

import "time"

// Verification is a one-time password issued to a user.
type Verification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	OTP       string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	Verified  bool      `json:"verified"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}

func (v *Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
