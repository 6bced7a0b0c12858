package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soutenance/gateway/internal/session"
)

// Upstream forwards requests to one of the platform's upstreams (the web
// app for page trees, the backend for API calls). Guards run before these
// handlers, so nothing is forwarded for an unauthorized visitor.
type Upstream struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// New creates a reverse proxy for the given upstream base URL.
func New(target string, logger *zap.Logger) (*Upstream, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", target, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must be absolute", target)
	}

	rp := httputil.NewSingleHostReverseProxy(parsed)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream unreachable",
			zap.String("upstream", parsed.Host),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail": "Upstream service unavailable."}`))
	}

	return &Upstream{target: parsed, proxy: rp}, nil
}

// Handler forwards the request unchanged. Used for public and guarded page
// trees served by the web app.
func (u *Upstream) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u.proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// WithBearer forwards the request with the session credential injected as a
// bearer Authorization header, but only once the credential resolves: an
// expired, malformed or revoked token is dropped at the gateway instead of
// being replayed against the backend. Requests without a usable session are
// still forwarded bare so the backend's public routes (login, register)
// keep working; its protected routes reject them on their own.
func (u *Upstream) WithBearer(resolver *session.Resolver, store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := resolver.Resolve(c); user != nil {
			if tokenString, ok := store.Token(c); ok {
				c.Request.Header.Set("Authorization", "Bearer "+tokenString)
			}
		}
		stripSessionCookies(c.Request)
		u.proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// stripSessionCookies rebuilds the Cookie header without the gateway's own
// session entries.
func stripSessionCookies(r *http.Request) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, cookie := range cookies {
		if cookie.Name == session.TokenCookie || cookie.Name == session.UserCookie {
			continue
		}
		r.AddCookie(cookie)
	}
}
