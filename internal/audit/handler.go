package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soutenance/gateway/pkg/response"
)

// Handler exposes the audit trail to managers.
type Handler struct {
	repo *Repository
}

// NewHandler creates a new audit handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListLoginAttempts returns recent login attempts, optionally filtered by email.
// GET /admin/login-attempts?email=&limit= (behind the manager guard)
func (h *Handler) ListLoginAttempts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	attempts, err := h.repo.RecentAttempts(c.Request.Context(), c.Query("email"), limit)
	if err != nil {
		c.Error(err)
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}
