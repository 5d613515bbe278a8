// Package inferctl implements the control CLI for a running daemon. Every
// command is a thin HTTP call against the daemon's API; the CLI holds no
// state of its own.
package inferctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inferd/internal/session"
	"inferd/pkg/types"
)

// DefaultBaseURL matches the daemon's default listen address.
const DefaultBaseURL = "http://127.0.0.1:8090"

// Client talks to one daemon instance.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a Client for the daemon at base. Empty uses the default.
func NewClient(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var e types.ErrorResponse
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s (%d)", e.Error, e.Code)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(b, out)
}

// Status fetches the daemon's full status projection.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.get(ctx, "/status", &out)
	return out, err
}

// Models fetches the annotated catalog.
func (c *Client) Models(ctx context.Context) (types.ModelsResponse, error) {
	var out types.ModelsResponse
	err := c.get(ctx, "/models", &out)
	return out, err
}

// Pull starts a model download.
func (c *Client) Pull(ctx context.Context, name string) (types.PullAccepted, error) {
	var out types.PullAccepted
	err := c.post(ctx, "/models/"+name+"/pull", nil, &out)
	return out, err
}

// Progress fetches in-flight download progress for name.
func (c *Client) Progress(ctx context.Context, name string) (types.DownloadProgress, error) {
	var out types.DownloadProgress
	err := c.get(ctx, "/models/"+name+"/pull", &out)
	return out, err
}

// Select sets the preferred model.
func (c *Client) Select(ctx context.Context, model string) error {
	return c.post(ctx, "/select", types.SelectRequest{Model: model}, nil)
}

// Generate requests a completion.
func (c *Client) Generate(ctx context.Context, model, prompt string) (types.GenerateResponse, error) {
	var out types.GenerateResponse
	err := c.post(ctx, "/generate", types.GenerateRequest{Model: model, Prompt: prompt}, &out)
	return out, err
}

// StartBackend asks the daemon to launch the local inference service.
func (c *Client) StartBackend(ctx context.Context) (types.BackendStatus, error) {
	var out types.BackendStatus
	err := c.post(ctx, "/backend/start", nil, &out)
	return out, err
}

// SaveCredential stores the cloud API key on the daemon host.
func (c *Client) SaveCredential(ctx context.Context, key string) (types.BackendStatus, error) {
	var out types.BackendStatus
	err := c.post(ctx, "/credential", types.CredentialRequest{APIKey: key}, &out)
	return out, err
}

// TestCredential classifies a candidate key without storing it.
func (c *Client) TestCredential(ctx context.Context, key string) (types.CredentialCheckResponse, error) {
	var out types.CredentialCheckResponse
	err := c.post(ctx, "/credential/test", types.CredentialRequest{APIKey: key}, &out)
	return out, err
}

// Messages fetches the session log.
func (c *Client) Messages(ctx context.Context) ([]session.Message, error) {
	var out struct {
		Messages []session.Message `json:"messages"`
	}
	err := c.get(ctx, "/session/messages", &out)
	return out.Messages, err
}

// Append adds a message to the session log.
func (c *Client) Append(ctx context.Context, role, content string) (session.Message, error) {
	var out session.Message
	err := c.post(ctx, "/session/messages", types.AppendMessageRequest{Role: role, Content: content}, &out)
	return out, err
}
