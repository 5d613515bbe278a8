// Package gemini is the stateless client for the cloud completion API, used
// as the always-available fallback backend. The user-supplied credential is
// passed per call and only ever transmitted as the provider's own auth header.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModelID identifies the cloud fallback in model selection. It is the
// universal default when no local model is usable.
const ModelID = "gemini-1.5-flash"

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1/models/" + ModelID + ":generateContent"
	defaultTimeout  = 60 * time.Second
	checkTimeout    = 10 * time.Second
)

// CheckResult is the three-way classification of a credential test. Callers
// branch on this, never on raw transport errors, so the user is told to fix
// the credential rather than retry blindly (and vice versa).
type CheckResult int

const (
	CheckOK CheckResult = iota
	CheckInvalidCredential
	CheckNetworkError
)

func (r CheckResult) String() string {
	switch r {
	case CheckOK:
		return "ok"
	case CheckInvalidCredential:
		return "invalid_credential"
	default:
		return "network_error"
	}
}

// Config holds client tunables.
type Config struct {
	// Endpoint overrides the provider URL, for tests.
	Endpoint string
	Timeout  time.Duration
}

// Client is a stateless request/response wrapper. Construct once and inject.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

// New constructs a Client, applying defaults for unset fields.
func New(cfg Config) *Client {
	c := &Client{endpoint: cfg.Endpoint, timeout: cfg.Timeout, http: &http.Client{}}
	if c.endpoint == "" {
		c.endpoint = defaultEndpoint
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

type chatPart struct {
	Text string `json:"text"`
}

type chatContent struct {
	Parts []chatPart `json:"parts"`
	Role  string     `json:"role"`
}

type chatRequest struct {
	Contents []chatContent `json:"contents"`
}

type chatCandidate struct {
	Content chatContent `json:"content"`
}

type chatResponse struct {
	Candidates []chatCandidate `json:"candidates"`
}

// Generate requests a completion with the given credential.
func (c *Client) Generate(ctx context.Context, apiKey, prompt string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("cloud credential is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := chatRequest{Contents: []chatContent{{Parts: []chatPart{{Text: prompt}}, Role: "user"}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloud request failed: %w", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cloud API error %d: %s", res.StatusCode, string(resBody))
	}
	var cr chatResponse
	if err := json.Unmarshal(resBody, &cr); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(cr.Candidates) == 0 || len(cr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("cloud API returned no candidates")
	}
	return cr.Candidates[0].Content.Parts[0].Text, nil
}

// TestConnection performs a lightweight capability call and classifies the
// outcome. Auth rejections (400/401/403) read as invalid credential; any
// transport failure or other non-2xx reads as a network/service error.
func (c *Client) TestConnection(ctx context.Context, apiKey string) CheckResult {
	if apiKey == "" {
		return CheckInvalidCredential
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	payload := chatRequest{Contents: []chatContent{{Parts: []chatPart{{Text: "ping"}}, Role: "user"}}}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return CheckNetworkError
	}
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return CheckNetworkError
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return CheckOK
	case res.StatusCode == http.StatusBadRequest,
		res.StatusCode == http.StatusUnauthorized,
		res.StatusCode == http.StatusForbidden:
		return CheckInvalidCredential
	default:
		return CheckNetworkError
	}
}
