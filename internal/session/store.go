package session

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cookie names. The session is persisted as two independent entries: the raw
// bearer credential and a denormalized user snapshot readable without a
// token decode.
const (
	TokenCookie = "token"
	UserCookie  = "user"
)

// UserSnapshot is the denormalized identity stored alongside the token.
type UserSnapshot struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Store persists the session token and user snapshot in browser cookies.
// Save overwrites unconditionally and Clear is idempotent; there are no
// merge semantics. Concurrent tabs share the cookie jar, so a logout in one
// tab is only observed by others on their next request.
type Store struct {
	maxAge int
	domain string
	secure bool
}

// NewStore creates a cookie-backed session store. ttlSeconds bounds the
// cookie lifetime; the token's own expiry is enforced by the Resolver.
func NewStore(ttlSeconds int, domain string, secure bool) *Store {
	return &Store{
		maxAge: ttlSeconds,
		domain: domain,
		secure: secure,
	}
}

// Save overwrites any existing token/user pair.
func (s *Store) Save(c *gin.Context, tokenString string, snapshot UserSnapshot) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, tokenString, s.maxAge, "/", s.domain, s.secure, true)
	s.RefreshUser(c, snapshot)
}

// RefreshUser rewrites the snapshot entry without touching the credential.
// The Resolver uses it to overwrite a snapshot that drifted from, or was
// tampered out of agreement with, the verified claims.
func (s *Store) RefreshUser(c *gin.Context, snapshot UserSnapshot) {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		// UserSnapshot is two strings; marshaling cannot fail in practice.
		encoded = []byte("{}")
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(UserCookie, string(encoded), s.maxAge, "/", s.domain, s.secure, true)
}

// Token reads the persisted credential.
func (s *Store) Token(c *gin.Context) (string, bool) {
	value, err := c.Cookie(TokenCookie)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// User reads the denormalized snapshot. A missing or unparseable snapshot is
// reported as absent; the caller falls back to the token claims.
func (s *Store) User(c *gin.Context) (*UserSnapshot, bool) {
	value, err := c.Cookie(UserCookie)
	if err != nil || value == "" {
		return nil, false
	}

	var snapshot UserSnapshot
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		return nil, false
	}
	return &snapshot, true
}

// Clear removes both entries. Safe to call with no session present.
func (s *Store) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, "", -1, "/", s.domain, s.secure, true)
	c.SetCookie(UserCookie, "", -1, "/", s.domain, s.secure, true)
}
