package domain

import "time"

// Session records an issued token pair so that it can be revoked independently
// of the tokens' own expiry. Invalidation flips IsActive instead of deleting;
// rows past ExpiresAt are simply ignored by reads.
type Session struct {
	ID            string     `json:"id"`
	UserID        int64      `json:"userId"`
	AccessToken   string     `json:"-"`
	RefreshToken  string     `json:"-"`
	IsActive      bool       `json:"isActive"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	InvalidatedAt *time.Time `json:"invalidatedAt,omitempty"`
}
