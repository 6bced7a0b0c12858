package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the claim set the backend encodes into access tokens.
// The user's email travels in the registered "sub" claim.
type Claims struct {
	Role   string `json:"role"`
	UserID int    `json:"id"`
	jwt.RegisteredClaims
}

// Email returns the subject claim, which the backend populates with the
// user's email address.
func (c *Claims) Email() string {
	return c.Subject
}
