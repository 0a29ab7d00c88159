package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is advisory. The client cannot verify signatures, so nothing in
// here is used to grant or deny access; presence of a token is the gate.
type TokenInfo struct {
	IsJWT     bool
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an exp claim in the past.
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// Inspect reads JWT claims without verifying them. Opaque tokens (DRF
// authtoken, for instance) return a zero TokenInfo.
func Inspect(token string) TokenInfo {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{IsJWT: true, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info
}
