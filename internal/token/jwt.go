package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service verifies access tokens issued by the backend. The gateway shares
// the backend's HS256 signing secret; it can also mint tokens for local
// development and seeding (the backend is the production issuer).
type Service struct {
	secretKey []byte
	issuer    string
	tokenTTL  time.Duration
}

// NewService creates a new token service
func NewService(secretKey, issuer string, tokenTTL time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		tokenTTL:  tokenTTL,
	}
}

// Verify checks a token's signature, structure and expiry and returns its claims
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// Issue mints a token with the shared secret. Used by the devtoken tool
// and test fixtures.
func (s *Service) Issue(email, userRole string, userID int) (string, time.Time, error) {
	return s.IssueWithTTL(email, userRole, userID, s.tokenTTL)
}

// IssueWithTTL mints a token with an explicit lifetime. A negative TTL
// produces an already-expired token.
func (s *Service) IssueWithTTL(email, userRole string, userID int, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(ttl)

	claims := Claims{
		Role:   userRole,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   email,
			ID:        uuid.New().String(), // JTI for revocation
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiry, nil
}
