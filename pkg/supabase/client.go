// Package supabase is a thin client for the hosted backend: PostgREST tables,
// GoTrue auth, and public storage URLs.
//
// Calls return (*Response, error). A non-nil error is either a transport failure or
// an *APIError carrying the status and PostgREST/GoTrue error body; callers must
// check it before touching Response.Data.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNoRows          = errors.New("supabase: no rows")
	ErrNoSession       = errors.New("supabase: no active session")
	ErrUnfilteredWrite = errors.New("supabase: update/delete requires a filter")
)

// Client talks to one Supabase project.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase: URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase: API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Response is a successful API response.
type Response struct {
	StatusCode int
	Data       json.RawMessage
	Headers    http.Header
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return ErrNoRows
	}
	return json.Unmarshal(r.Data, v)
}

// APIError is the error half of a failed call.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, msg)
}

// Is maps PostgREST's "no rows for single object" and GoTrue's auth rejections onto
// the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNoRows:
		return e.Code == "PGRST116"
	case ErrNoSession:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var raw struct {
		Code             any    `json:"code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Details          any    `json:"details"`
		Hint             string `json:"hint"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	if raw.Code != nil {
		apiErr.Code = fmt.Sprint(raw.Code)
	}
	for _, m := range []string{raw.Message, raw.Msg, raw.ErrorDescription, raw.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if raw.Details != nil {
		apiErr.Details = fmt.Sprint(raw.Details)
	}
	apiErr.Hint = raw.Hint
	return apiErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, bearer string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Data:       body,
		Headers:    resp.Header,
	}, nil
}
