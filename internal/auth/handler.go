package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soutenance/gateway/internal/middleware"
	"github.com/soutenance/gateway/internal/role"
	"github.com/soutenance/gateway/internal/session"
	"github.com/soutenance/gateway/pkg/response"
)

// Handler owns the gateway's own auth endpoints: the login/logout flow that
// manages the browser session, and the session introspection endpoint.
//
// Login errors use the backend's {"detail": ...} shape so the web app reads
// gateway rejections exactly like backend ones.
type Handler struct {
	service *Service
	store   *session.Store
}

// NewHandler creates a new authentication handler.
func NewHandler(service *Service, store *session.Store) *Handler {
	return &Handler{service: service, store: store}
}

// LoginRequest is the browser login form.
type LoginRequest struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Redirect string `form:"redirect"`
}

// Login handles the browser login form.
// POST /login
func (h *Handler) Login(c *gin.Context) {
	start := time.Now()

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email and password are required."})
		return
	}
	if !IsValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email format is invalid."})
		return
	}

	tokenString, claims, err := h.service.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.loginError(c, err, time.Since(start))
		return
	}

	h.store.Save(c, tokenString, session.UserSnapshot{
		Email: claims.Email(),
		Role:  claims.Role,
	})

	middleware.RecordLoginAttempt("success", time.Since(start))

	userRole := role.Role(claims.Role)
	c.Redirect(http.StatusSeeOther, safeRedirectPath(req.Redirect, userRole.LandingPath()))
}

func (h *Handler) loginError(c *gin.Context, err error, duration time.Duration) {
	var exchange *ExchangeError
	switch {
	case errors.As(err, &exchange):
		middleware.RecordLoginAttempt("failure", duration)
		c.JSON(exchange.Status, gin.H{"detail": exchange.Detail})
	case errors.Is(err, ErrRateLimited):
		middleware.RecordLoginAttempt("blocked", duration)
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too many failed attempts. Please try again later."})
	default:
		middleware.RecordLoginAttempt("error", duration)
		c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": GenericLoginMessage})
	}
}

// Logout clears the session and revokes its credential. Idempotent: with no
// session it still clears and redirects.
// POST /logout
func (h *Handler) Logout(c *gin.Context) {
	if tokenString, ok := h.store.Token(c); ok {
		if err := h.service.Logout(c.Request.Context(), tokenString); err != nil {
			// Revocation is best effort; the cookies are cleared regardless.
			c.Error(err)
		}
	}

	h.store.Clear(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// Session returns the resolved user for the current session.
// GET /session (behind APIAuth)
func (h *Handler) Session(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Not authenticated",
			},
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// safeRedirectPath accepts only same-site relative paths; anything else
// (absolute URLs, protocol-relative //host forms) falls back.
func safeRedirectPath(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return fallback
	}
	return raw
}
