package domain

import "time"

// Token is a signed bearer credential. It is stateless: the server keeps no
// record of issued tokens.
type Token struct {
	Raw           string    `json:"token"`
	SubjectUserID string    `json:"-"`
	Email         string    `json:"-"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// TokenClaims is what a verified token tells us about its bearer.
type TokenClaims struct {
	SubjectUserID string
	Email         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}
