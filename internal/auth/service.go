package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soutenance/gateway/internal/token"
)

// RateLimiter throttles login attempts per email/IP pair.
type RateLimiter interface {
	CheckLoginAttempt(ctx context.Context, email, ipAddress string) (allowed bool, remaining int, lockoutRemaining time.Duration, err error)
	RecordFailedAttempt(ctx context.Context, email, ipAddress string) error
	RecordSuccessfulAttempt(ctx context.Context, email, ipAddress string) error
}

// AuditLog records authentication events.
type AuditLog interface {
	RecordLoginAttempt(ctx context.Context, email, ipAddress string, success bool) error
}

// Revoker marks token IDs as revoked.
type Revoker interface {
	Add(ctx context.Context, tokenID string, expiry time.Time) error
}

// ErrRateLimited is returned when an email/IP pair is locked out.
var ErrRateLimited = errors.New("too many failed login attempts")

// Service coordinates the login exchange, session issuance checks, rate
// limiting and the audit trail. limiter, audit and revoker may be nil.
type Service struct {
	backend *BackendClient
	tokens  *token.Service
	limiter RateLimiter
	audit   AuditLog
	revoker Revoker
	logger  *zap.Logger
}

// NewService creates an authentication service.
func NewService(
	backend *BackendClient,
	tokens *token.Service,
	limiter RateLimiter,
	audit AuditLog,
	revoker Revoker,
	logger *zap.Logger,
) *Service {
	return &Service{
		backend: backend,
		tokens:  tokens,
		limiter: limiter,
		audit:   audit,
		revoker: revoker,
		logger:  logger,
	}
}

// Login runs the full login flow: throttle check, backend exchange, local
// verification of the issued token. Returns the raw credential and its
// verified claims.
func (s *Service) Login(ctx context.Context, email, password, ipAddress string) (string, *token.Claims, error) {
	email = SanitizeEmail(email)

	if s.limiter != nil {
		allowed, _, lockoutRemaining, err := s.limiter.CheckLoginAttempt(ctx, email, ipAddress)
		if err != nil {
			// Throttle state unknown; let the attempt through rather
			// than locking everyone out with Redis.
			s.logger.Warn("rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return "", nil, fmt.Errorf("%w: locked out for %v", ErrRateLimited, lockoutRemaining.Round(time.Second))
		}
	}

	tokenString, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.recordAttempt(ctx, email, ipAddress, false)
		return "", nil, err
	}

	// The backend signs with the shared secret; a token the gateway
	// cannot verify is a deployment fault, not a user error.
	claims, verr := s.tokens.Verify(tokenString)
	if verr != nil {
		s.recordAttempt(ctx, email, ipAddress, false)
		return "", nil, fmt.Errorf("backend issued an unverifiable token: %w", verr)
	}

	s.recordAttempt(ctx, email, ipAddress, true)
	return tokenString, claims, nil
}

// Logout revokes the credential's JTI until its natural expiry. An invalid
// or absent token is already unusable, so logout succeeds silently.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return nil
	}

	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil
	}

	if s.revoker != nil && claims.ExpiresAt != nil {
		if err := s.revoker.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}

	return nil
}

func (s *Service) recordAttempt(ctx context.Context, email, ipAddress string, success bool) {
	if s.audit != nil {
		if err := s.audit.RecordLoginAttempt(ctx, email, ipAddress, success); err != nil {
			s.logger.Warn("failed to record login attempt", zap.Error(err))
		}
	}
	if s.limiter != nil {
		var err error
		if success {
			err = s.limiter.RecordSuccessfulAttempt(ctx, email, ipAddress)
		} else {
			err = s.limiter.RecordFailedAttempt(ctx, email, ipAddress)
		}
		if err != nil {
			s.logger.Warn("failed to update rate limiter", zap.Error(err))
		}
	}
}
