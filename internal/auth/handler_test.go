package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soutenance/gateway/internal/middleware"
	"github.com/soutenance/gateway/internal/session"
	"github.com/soutenance/gateway/internal/token"
)

const testSecret = "test-secret-key-minimum-32-chars"

// fakeBackend issues real tokens signed with the shared secret, the way the
// production backend does.
func fakeBackend(t *testing.T, tokens *token.Service) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		email := r.PostForm.Get("username")
		password := r.PostForm.Get("password")

		w.Header().Set("Content-Type", "application/json")
		switch {
		case email == "a@x.com" && password == "secret":
			signed, _, err := tokens.Issue(email, "student", 1)
			if err != nil {
				t.Fatalf("issue token: %v", err)
			}
			json.NewEncoder(w).Encode(gin.H{"access_token": signed, "token_type": "bearer"})
		case email == "a@x.com":
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(gin.H{"detail": "Incorrect password."})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(gin.H{"detail": "Account not found. Please register first."})
		}
	}))
}

func newAuthRouter(t *testing.T) (*gin.Engine, *token.Service, *session.Store, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewService(testSecret, "soutenance-backend", time.Hour)
	backend := fakeBackend(t, tokens)

	store := session.NewStore(3600, "", false)
	service := NewService(NewBackendClient(backend.URL, 5*time.Second), tokens, nil, nil, nil, zap.NewNop())
	handler := NewHandler(service, store)
	resolver := session.NewResolver(tokens, store, nil)

	router := gin.New()
	router.POST("/login", handler.Login)
	router.POST("/logout", handler.Logout)
	router.GET("/session", middleware.APIAuth(resolver), handler.Session)
	router.GET("/health", handler.Health)

	return router, tokens, store, backend.Close
}

func postLogin(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLogin_SuccessSetsSessionAndRedirects(t *testing.T) {
	router, _, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	w := postLogin(router, url.Values{"email": {"a@x.com"}, "password": {"secret"}})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != "/student" {
		t.Errorf("Location = %q, want %q", got, "/student")
	}

	res := http.Response{Header: w.Header()}
	var tokenValue, userValue string
	for _, cookie := range res.Cookies() {
		switch cookie.Name {
		case session.TokenCookie:
			tokenValue = cookie.Value
		case session.UserCookie:
			userValue = cookie.Value
		}
	}
	if tokenValue == "" {
		t.Fatal("token cookie not set")
	}

	decoded, err := url.QueryUnescape(userValue)
	if err != nil {
		t.Fatalf("user cookie: %v", err)
	}
	var snapshot session.UserSnapshot
	if err := json.Unmarshal([]byte(decoded), &snapshot); err != nil {
		t.Fatalf("user cookie: %v", err)
	}
	if snapshot.Email != "a@x.com" || snapshot.Role != "student" {
		t.Errorf("snapshot = %+v", snapshot)
	}

	// An immediate session read with the issued cookies resolves the same
	// identity that was encoded into the token.
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	for _, cookie := range res.Cookies() {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("session status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var envelope struct {
		Data struct {
			User struct {
				Email string `json:"email"`
				Role  string `json:"role"`
				ID    int    `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if envelope.Data.User.Email != "a@x.com" || envelope.Data.User.Role != "student" || envelope.Data.User.ID != 1 {
		t.Errorf("session user = %+v", envelope.Data.User)
	}
}

func TestLogin_HonorsSafeRedirect(t *testing.T) {
	router, _, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	w := postLogin(router, url.Values{
		"email":    {"a@x.com"},
		"password": {"secret"},
		"redirect": {"/student?tab=history"},
	})
	if got := w.Header().Get("Location"); got != "/student?tab=history" {
		t.Errorf("Location = %q, want the requested path back", got)
	}
}

func TestLogin_RejectsUnsafeRedirect(t *testing.T) {
	router, _, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	for _, target := range []string{"https://evil.example", "//evil.example", "/\\evil"} {
		w := postLogin(router, url.Values{
			"email":    {"a@x.com"},
			"password": {"secret"},
			"redirect": {target},
		})
		if got := w.Header().Get("Location"); got != "/student" {
			t.Errorf("redirect %q: Location = %q, want landing path", target, got)
		}
	}
}

func TestLogin_BackendDetailSurfacedVerbatim(t *testing.T) {
	router, _, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	tests := []struct {
		name   string
		email  string
		detail string
	}{
		{"wrong password", "a@x.com", "Incorrect password."},
		{"unknown account", "nobody@x.com", "Account not found. Please register first."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postLogin(router, url.Values{"email": {tt.email}, "password": {"wrong"}})
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			var body struct {
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Detail != tt.detail {
				t.Errorf("detail = %q, want %q", body.Detail, tt.detail)
			}
		})
	}
}

func TestLogin_ValidatesForm(t *testing.T) {
	router, _, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	if w := postLogin(router, url.Values{"email": {"a@x.com"}}); w.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d, want 400", w.Code)
	}
	if w := postLogin(router, url.Values{"email": {"not-an-email"}, "password": {"x"}}); w.Code != http.StatusBadRequest {
		t.Errorf("bad email: status = %d, want 400", w.Code)
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	router, _, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	// No session at all: must not error, must leave the store cleared.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if got := w.Header().Get("Location"); got != "/login" {
		t.Errorf("Location = %q, want %q", got, "/login")
	}

	res := http.Response{Header: w.Header()}
	cleared := 0
	for _, cookie := range res.Cookies() {
		if cookie.MaxAge < 0 {
			cleared++
		}
	}
	if cleared < 2 {
		t.Errorf("logout cleared %d cookies, want both session entries", cleared)
	}
}

func TestLogout_ClearsExistingSession(t *testing.T) {
	router, tokens, _, closeBackend := newAuthRouter(t)
	defer closeBackend()

	signed, _, err := tokens.Issue("a@x.com", "student", 1)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: signed})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}

	// The cleared cookies must win over the old session on a followup request.
	res := http.Response{Header: w.Header()}
	for _, cookie := range res.Cookies() {
		if cookie.Name == session.TokenCookie && cookie.MaxAge >= 0 {
			t.Error("token cookie survived logout")
		}
	}
}
