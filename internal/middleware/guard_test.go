package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soutenance/gateway/internal/role"
	"github.com/soutenance/gateway/internal/session"
	"github.com/soutenance/gateway/internal/token"
)

func newGuardedRouter(t *testing.T) (*gin.Engine, *token.Service, *bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewService("test-secret-key-minimum-32-chars", "soutenance-backend", time.Hour)
	resolver := session.NewResolver(tokens, session.NewStore(3600, "", false), nil)

	reached := false
	router := gin.New()
	router.GET("/dashboard", Guard(resolver, role.Manager), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})
	router.GET("/student", Guard(resolver, role.Student), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	return router, tokens, &reached
}

func requestWithSession(t *testing.T, tokens *token.Service, target, email, roleName string, id int) *http.Request {
	t.Helper()
	signed, _, err := tokens.Issue(email, roleName, id)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	snapshot, _ := json.Marshal(session.UserSnapshot{Email: email, Role: roleName})
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: signed})
	req.AddCookie(&http.Cookie{Name: session.UserCookie, Value: url.QueryEscape(string(snapshot))})
	return req
}

func TestGuard_UnauthenticatedRedirectsToLogin(t *testing.T) {
	router, _, reached := newGuardedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/login?redirect=%2Fdashboard" {
		t.Errorf("Location = %q, want %q", got, "/login?redirect=%2Fdashboard")
	}
	if *reached {
		t.Error("guarded handler must not run for unauthenticated visitor")
	}
}

func TestGuard_RoleMismatchRedirectsToOwnLanding(t *testing.T) {
	router, tokens, reached := newGuardedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestWithSession(t, tokens, "/dashboard", "a@x.com", "student", 1))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/student" {
		t.Errorf("Location = %q, want %q", got, "/student")
	}
	if *reached {
		t.Error("guarded handler must not run on role mismatch")
	}
}

func TestGuard_ExactMatchAllows(t *testing.T) {
	router, tokens, reached := newGuardedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestWithSession(t, tokens, "/dashboard", "m@x.com", "manager", 2))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !*reached {
		t.Error("guarded handler should run for the exact role")
	}
}

// A manager visiting a student tree is redirected to the manager landing
// route: the policy is exact-match, not minimum-rank.
func TestGuard_HigherRankIsNotAllowed(t *testing.T) {
	router, tokens, reached := newGuardedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestWithSession(t, tokens, "/student", "m@x.com", "manager", 2))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/dashboard" {
		t.Errorf("Location = %q, want %q", got, "/dashboard")
	}
	if *reached {
		t.Error("guarded handler must not run for a higher-ranked role")
	}
}

// The snapshot cookie is attacker-controlled; inflating its role must not
// open a higher-privileged tree when the signed token says otherwise.
func TestGuard_TamperedSnapshotCannotEscalate(t *testing.T) {
	router, tokens, reached := newGuardedRouter(t)

	signed, _, err := tokens.Issue("a@x.com", "student", 1)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	forged, _ := json.Marshal(session.UserSnapshot{Email: "a@x.com", Role: "manager"})
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: signed})
	req.AddCookie(&http.Cookie{Name: session.UserCookie, Value: url.QueryEscape(string(forged))})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if *reached {
		t.Fatal("manager handler ran for a student token with a forged snapshot")
	}
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/student" {
		t.Errorf("Location = %q, want %q", got, "/student")
	}
}

func TestGuard_ExpiredSessionRedirectsAndClears(t *testing.T) {
	router, tokens, _ := newGuardedRouter(t)

	signed, _, err := tokens.IssueWithTTL("a@x.com", "manager", 2, -10*time.Second)
	if err != nil {
		t.Fatalf("IssueWithTTL() failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: signed})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/login?redirect=%2Fdashboard" {
		t.Errorf("Location = %q, want %q", got, "/login?redirect=%2Fdashboard")
	}

	res := http.Response{Header: w.Header()}
	evicted := false
	for _, cookie := range res.Cookies() {
		if cookie.Name == session.TokenCookie && cookie.MaxAge < 0 {
			evicted = true
		}
	}
	if !evicted {
		t.Error("expired session must be evicted")
	}
}

func TestGuard_PreservesQueryInRedirect(t *testing.T) {
	router, _, _ := newGuardedRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard?tab=defenses", nil))

	want := "/login?redirect=" + url.QueryEscape("/dashboard?tab=defenses")
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestAPIAuth_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := token.NewService("test-secret-key-minimum-32-chars", "soutenance-backend", time.Hour)
	resolver := session.NewResolver(tokens, session.NewStore(3600, "", false), nil)

	router := gin.New()
	router.GET("/session", APIAuth(resolver), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, user)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := token.NewService("test-secret-key-minimum-32-chars", "soutenance-backend", time.Hour)
	resolver := session.NewResolver(tokens, session.NewStore(3600, "", false), nil)

	router := gin.New()
	router.GET("/admin/login-attempts", APIAuth(resolver), RequireRole(role.Manager), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Minimum-rank policy: everything below manager is rejected.
	cases := []struct {
		roleName string
		want     int
	}{
		{"student", http.StatusForbidden},
		{"professor", http.StatusForbidden},
		{"manager", http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, requestWithSession(t, tokens, "/admin/login-attempts", "u@x.com", tc.roleName, 1))
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.roleName, w.Code, tc.want)
		}
	}
}
