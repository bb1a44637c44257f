package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"svnglobal/pkg/domain"
)

// Client calls the hosted auth service (GoTrue-compatible REST API).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError represents an auth service error response.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Session is the token pair returned by sign-up and sign-in.
type Session struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// NewClient constructs an auth service client. apiKey is the project key
// sent in the apikey header on every call.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// SignUp registers an email/password account. When the project requires
// email confirmation the returned session has no access token.
func (c *Client) SignUp(ctx context.Context, email, password string) (Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/signup", "", payload, &resp); err != nil {
		return Session{}, err
	}
	return resp.session(), nil
}

// SignIn exchanges credentials for a session (password grant).
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/token?grant_type=password", "", payload, &resp); err != nil {
		return Session{}, err
	}
	return resp.session(), nil
}

// User resolves the account behind an access token.
func (c *Client) User(ctx context.Context, token string) (domain.User, error) {
	var user userResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user", token, nil, &user); err != nil {
		return domain.User{}, err
	}
	return user.toDomain(), nil
}

// SignOut revokes the session behind an access token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", token, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
			Msg              string `json:"msg"`
			Message          string `json:"message"`
			ErrorCode        string `json:"error_code"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp)
		msg := firstNonEmpty(errResp.ErrorDescription, errResp.Msg, errResp.Message, errResp.Error, resp.Status)
		code := firstNonEmpty(errResp.ErrorCode, errResp.Error)
		return &APIError{Status: resp.StatusCode, Message: msg, Code: strings.TrimSpace(code)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u userResponse) toDomain() domain.User {
	return domain.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// sessionResponse covers both shapes: a full session, or a bare user when
// sign-up awaits email confirmation.
type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
	userResponse
}

func (r sessionResponse) session() Session {
	user := r.userResponse
	if r.User != nil {
		user = *r.User
	}
	s := Session{
		User:         user.toDomain(),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		s.ExpiresAt = time.Now().UTC().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return s
}
