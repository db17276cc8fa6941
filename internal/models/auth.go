package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims mirrors the access token issued by the hosted auth provider.
// Subject carries the user id.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller, if any.
type Identity struct {
	UserID string
	Email  string
}

// IdentityFromClaims converts validated claims into an Identity.
func IdentityFromClaims(claims *TokenClaims) *Identity {
	if claims == nil || claims.Subject == "" {
		return nil
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}
}
