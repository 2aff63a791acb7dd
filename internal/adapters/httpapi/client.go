// Package httpapi talks to the account backend: email validation, login and
// registration. Every call is bounded by the client timeout and fails closed.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Error carries the backend's user-facing message for a non-2xx response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ValidateEmail reports whether the backend knows the address. Transport
// failures are returned as errors, never treated as "exists".
func (c *Client) ValidateEmail(ctx context.Context, email string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.post(ctx, "/users/validate", map[string]string{"email": email}, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) Login(ctx context.Context, userID, password string) error {
	body := map[string]string{
		"user_id":  userID,
		"password": password,
	}
	return c.post(ctx, "/login", body, nil)
}

func (c *Client) Register(ctx context.Context, firstname, userID, password string) error {
	body := map[string]string{
		"firstname": firstname,
		"user_id":   userID,
		"password":  password,
	}
	return c.post(ctx, "/register", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("module", "httpapi").Str("path", path).Msg("request failed")
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = fmt.Sprintf("request to %s failed with status %d", path, resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: e.Message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
