package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout bounds every upstream call. A timed-out call fails that one
// request; there is no retry at this layer.
const defaultTimeout = 3 * time.Second

// maxResponseBody caps how much of an upstream response is read.
const maxResponseBody = 1 << 20

// Config holds the base URLs of the three upstream services.
type Config struct {
	// AuthURL is the base URL of the authentication service,
	// e.g. "http://rentstate.antarticdonkeys.com:8092/auth/api/".
	AuthURL string

	// UsersURL is the base URL of the user-profile service.
	UsersURL string

	// PropertiesURL is the base URL of the property service.
	PropertiesURL string

	// Timeout bounds each request. Zero means the default of 3 seconds.
	Timeout time.Duration
}

// Client talks to the upstream RentState services.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates an upstream client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// AuthResult is the successful response of the authentication service.
type AuthResult struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
}

// Profile is the extended user record served by the user-profile service.
type Profile struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// Property is one upstream property record.
type Property struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Price       float64 `json:"price"`
}

// Login authenticates against the upstream auth service.
//
// Error classification: ErrRejected when the service answers with a non-2xx
// status, ErrUnreachable when it cannot be contacted, ErrInvalidResponse when
// the body lacks the token or userId.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("marshalling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.cfg.AuthURL, "login"), bytes.NewReader(body))
	if err != nil {
		return AuthResult{}, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AuthResult{}, fmt.Errorf("%w: auth service returned %d", ErrRejected, resp.StatusCode)
	}

	var auth AuthResult
	if err := decodeBody(resp.Body, &auth); err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if auth.Token == "" || auth.UserID == 0 {
		return AuthResult{}, fmt.Errorf("%w: missing token or userId", ErrInvalidResponse)
	}
	return auth, nil
}

// GetProfile fetches the extended user record by user ID.
func (c *Client) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		joinURL(c.cfg.UsersURL, fmt.Sprintf("%d", userID)), nil)
	if err != nil {
		return Profile{}, fmt.Errorf("building profile request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: user service returned %d", ErrUnreachable, resp.StatusCode)
	}

	var profile Profile
	if err := decodeBody(resp.Body, &profile); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return profile, nil
}

// ListProperties fetches the properties owned by the given user.
func (c *Client) ListProperties(ctx context.Context, userID int64) ([]Property, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		joinURL(c.cfg.PropertiesURL, fmt.Sprintf("user/%d", userID)), nil)
	if err != nil {
		return nil, fmt.Errorf("building properties request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: property service returned %d", ErrUnreachable, resp.StatusCode)
	}

	var properties []Property
	if err := decodeBody(resp.Body, &properties); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return properties, nil
}

// decodeBody decodes a JSON response body with a size cap.
func decodeBody(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, maxResponseBody)).Decode(v)
}

// joinURL appends a path to a base URL, tolerating a missing trailing slash.
func joinURL(base, path string) string {
	if strings.HasSuffix(base, "/") {
		return base + path
	}
	return base + "/" + path
}
