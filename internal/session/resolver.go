package session

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/soutenance/gateway/internal/role"
	"github.com/soutenance/gateway/internal/token"
)

// ResolvedUser is the validated identity derived from the session token.
// It is a projection recomputed on every request, never a source of truth.
type ResolvedUser struct {
	Email string    `json:"email"`
	Role  role.Role `json:"role"`
	ID    int       `json:"id"`
}

// Revocations reports whether a token ID has been revoked.
type Revocations interface {
	IsBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// Resolver produces the current user, or nil, from the persisted session.
// All validity failures are resolved here: a malformed, expired or revoked
// credential clears the store and degrades silently to the unauthenticated
// state. Callers never see an error.
type Resolver struct {
	tokens      *token.Service
	store       *Store
	revocations Revocations
}

// NewResolver creates a session resolver. revocations may be nil, in which
// case revocation checks are skipped.
func NewResolver(tokens *token.Service, store *Store, revocations Revocations) *Resolver {
	return &Resolver{
		tokens:      tokens,
		store:       store,
		revocations: revocations,
	}
}

// Resolve reads the session from the request and returns the current user,
// or nil when there is no valid session.
func (r *Resolver) Resolve(c *gin.Context) *ResolvedUser {
	tokenString, ok := r.store.Token(c)
	if !ok {
		return nil
	}

	claims, err := r.tokens.Verify(tokenString)
	if err != nil {
		// Malformed and expired credentials are treated identically:
		// evict the session and fall through to unauthenticated.
		r.store.Clear(c)
		return nil
	}

	if r.revocations != nil {
		revoked, err := r.revocations.IsBlacklisted(c.Request.Context(), claims.ID)
		if err != nil {
			// Revocation state unknown; deny without evicting the
			// session so a transient outage doesn't log users out.
			return nil
		}
		if revoked {
			r.store.Clear(c)
			return nil
		}
	}

	user := &ResolvedUser{
		Email: claims.Email(),
		Role:  role.Role(claims.Role),
		ID:    claims.UserID,
	}

	// Identity and role come from the verified claims only. The user
	// snapshot cookie is a display hint for the web app and, like any
	// cookie, arrives attacker-controlled; it never feeds resolution.
	// When it disagrees with the claims it gets rewritten.
	if snapshot, ok := r.store.User(c); !ok || snapshot.Email != user.Email || snapshot.Role != string(user.Role) {
		r.store.RefreshUser(c, UserSnapshot{Email: user.Email, Role: string(user.Role)})
	}

	return user
}
