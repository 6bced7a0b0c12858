package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GenericLoginMessage is shown when the backend rejects a login without a
// usable detail message.
const GenericLoginMessage = "Login failed. Please try again."

// ExchangeError is a login rejection from the backend. Detail carries the
// backend's human-readable message verbatim.
type ExchangeError struct {
	Status int
	Detail string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("login exchange rejected (%d): %s", e.Status, e.Detail)
}

// BackendClient performs the login exchange against the external backend.
// The backend owns credential verification; the gateway only consumes its
// OAuth2-style token endpoint.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

// NewBackendClient creates a client for the backend's auth endpoints.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for an access token. The backend expects a
// form-encoded body with OAuth2 field names (username carries the email).
// A rejection surfaces the backend's detail message; anything else (network
// failure, unparseable body) is a plain error.
func (b *BackendClient) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		b.baseURL+"/api/v1/auth/login",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login exchange failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var rejection struct {
			Detail string `json:"detail"`
		}
		detail := GenericLoginMessage
		if json.Unmarshal(body, &rejection) == nil && rejection.Detail != "" {
			detail = rejection.Detail
		}
		return "", &ExchangeError{Status: resp.StatusCode, Detail: detail}
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("backend returned no access token")
	}

	return out.AccessToken, nil
}
