package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/soutenance/gateway/internal/role"
	"github.com/soutenance/gateway/internal/session"
)

// ContextUserKey is the gin context key under which guards store the
// resolved user.
const ContextUserKey = "user"

// Guard protects a browser route tree with an exact role requirement.
// Unauthenticated visitors are sent to the login page with the originally
// requested path preserved; authenticated users of any other role are sent
// to their own landing route. The wrapped handlers never run for either, so
// no proxied request or side effect fires before authorization is settled.
func Guard(resolver *session.Resolver, required role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := resolver.Resolve(c)
		if user == nil {
			RecordGuardRedirect("unauthenticated")
			c.Redirect(http.StatusFound, "/login?redirect="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}

		if user.Role != required {
			RecordGuardRedirect("role_mismatch")
			c.Redirect(http.StatusFound, user.Role.LandingPath())
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// APIAuth protects JSON endpoints: same resolution as Guard but failures
// answer with a 401 envelope instead of a redirect.
func APIAuth(resolver *session.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := resolver.Resolve(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Not authenticated",
				},
			})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireRole layers a minimum-rank check on top of APIAuth for JSON
// endpoints that are role-scoped, answering 403 below the required rank.
// Page trees stay exact-match in Guard; the gateway's own admin endpoints
// are open to the required rank and above.
func RequireRole(required role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.Role.AtLeast(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Not enough permissions",
				},
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the resolved user a guard stored in the context.
func CurrentUser(c *gin.Context) (*session.ResolvedUser, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*session.ResolvedUser)
	return user, ok
}
