// Package authclient talks to the hosted auth platform: the request-otp and
// verify-otp edge functions and the user endpoint used to validate sessions.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stwalsh4118/michraz/internal/config"
)

// Error codes returned by the edge functions.
const (
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInvalidPhone      = "invalid_phone"
	CodeInvalidCode       = "invalid_code"
	CodeExpiredCode       = "expired_code"
)

const (
	requestOTPPath = "/functions/v1/request-otp"
	verifyOTPPath  = "/functions/v1/verify-otp"
	userPath       = "/auth/v1/user"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// ErrTransport marks failures to reach the auth platform or to read its
// success body.
var ErrTransport = errors.New("auth service unreachable")

// APIError is a non-success response from the auth platform.
type APIError struct {
	Code   string
	Status int
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("auth service returned status %d", e.Status)
	}
	return fmt.Sprintf("auth service returned status %d: %s", e.Status, e.Code)
}

// CodeRequest is the body of a request-otp call. It carries the signup
// profile alongside the phone number.
type CodeRequest struct {
	Phone       string `json:"phone"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	IsReservist bool   `json:"isReservist"`
	HasProperty bool   `json:"hasProperty"`
	IsCombat    bool   `json:"isCombat"`
}

// Tokens is the session credential issued by verify-otp.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// User is the subset of the auth user record this service needs.
type User struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

// Client calls the auth platform over HTTP. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
}

// New creates a Client for the given configuration.
func New(cfg config.AuthConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
	}
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
)

// Shared returns the process-wide Client, constructing it on first use.
// The configuration passed on later calls is ignored.
func Shared(cfg config.AuthConfig) *Client {
	sharedOnce.Do(func() {
		sharedClient = New(cfg)
	})
	return sharedClient
}

// RequestCode asks the platform to text a one-time code to req.Phone.
// The success body is ignored.
func (c *Client) RequestCode(ctx context.Context, req CodeRequest) error {
	return c.postJSON(ctx, requestOTPPath, req, nil)
}

// VerifyCode exchanges a phone/code pair for session tokens.
func (c *Client) VerifyCode(ctx context.Context, phone, code string) (*Tokens, error) {
	body := struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}{Phone: phone, Code: code}

	var tokens Tokens
	if err := c.postJSON(ctx, verifyOTPPath, body, &tokens); err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("verify response missing access token: %w", &APIError{Status: http.StatusBadGateway})
	}
	return &tokens, nil
}

// GetUser validates an access token and returns the user it belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.anonKey)

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.anonKey)

	return c.do(req, out)
}

// do sends req, maps non-2xx responses to *APIError and decodes a success
// body into out when out is non-nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(raw, &body)
		return &APIError{Status: resp.StatusCode, Code: body.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrTransport, req.URL.Path, err)
	}
	return nil
}

// ErrorCode extracts the platform error code from err, or "".
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
