package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Record is one log entry as the server returns it
type Record struct {
	ID      int64  `json:"id"`
	Created string `json:"created"`
	Content string `json:"content"`
}

// Status mirrors GET /{id}/status
type Status struct {
	Exists            bool `json:"exists"`
	IsOwner           bool `json:"isOwner"`
	CanGenerateBearer bool `json:"canGenerateBearer"`
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a droplog server over HTTP
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context, id, token string) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/"+id+"/status", token, "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Claim asks for a bearer; only works while the namespace has no log
func (c *Client) Claim(ctx context.Context, id string) (string, error) {
	var out struct {
		Bearer string `json:"bearer"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+id+"/bearer", "", "", nil, &out); err != nil {
		return "", err
	}
	return out.Bearer, nil
}

// Post appends content. A failed post may still have been stored.
func (c *Client) Post(ctx context.Context, id, token, contentType string, body io.Reader) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, "/"+id, token, contentType, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) List(ctx context.Context, id string) ([]Record, error) {
	var out struct {
		Content []Record `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, "/"+id+"/content", "", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Content, nil
}

func (c *Client) Delete(ctx context.Context, id, token string) error {
	return c.do(ctx, http.MethodDelete, "/"+id, token, "", nil, nil)
}
