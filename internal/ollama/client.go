// Package ollama is the client for the local inference daemon. The daemon is
// an external collaborator: every operation here is an RPC against its fixed
// local HTTP endpoint, and any failure to reach it is reported uniformly as
// "not running" regardless of whether it is stopped, missing or unsupported.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	"inferd/internal/common/fsutil"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultBaseURL         = "http://localhost:11434"
	defaultProbeTimeout    = 5 * time.Second
	defaultListTimeout     = 10 * time.Second
	defaultGenerateTimeout = 120 * time.Second
	defaultSettleDelay     = 3 * time.Second
	defaultPullTick        = 2 * time.Second
)

// Config holds client tunables. Timeouts and intervals are explicit so tests
// can run them at accelerated time.
type Config struct {
	BaseURL string
	// Optional path to a bundled daemon binary, tried before the one on PATH.
	BinaryPath      string
	ProbeTimeout    time.Duration
	ListTimeout     time.Duration
	GenerateTimeout time.Duration
	// Wait after spawning the daemon before re-probing, to avoid hammering a
	// service mid-boot.
	SettleDelay time.Duration
	// Interval between synthesized pull progress ticks.
	PullTick time.Duration
}

// Client talks to one local daemon endpoint. Construct once per process and
// inject; there is no package-level singleton.
type Client struct {
	base            string
	bin             string
	http            *http.Client
	probeTimeout    time.Duration
	listTimeout     time.Duration
	generateTimeout time.Duration
	settleDelay     time.Duration
	pullTick        time.Duration
}

// New constructs a Client, applying defaults for unset fields.
func New(cfg Config) *Client {
	c := &Client{
		base:            cfg.BaseURL,
		bin:             cfg.BinaryPath,
		http:            &http.Client{},
		probeTimeout:    cfg.ProbeTimeout,
		listTimeout:     cfg.ListTimeout,
		generateTimeout: cfg.GenerateTimeout,
		settleDelay:     cfg.SettleDelay,
		pullTick:        cfg.PullTick,
	}
	if c.base == "" {
		c.base = DefaultBaseURL
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = defaultProbeTimeout
	}
	if c.listTimeout <= 0 {
		c.listTimeout = defaultListTimeout
	}
	if c.generateTimeout <= 0 {
		c.generateTimeout = defaultGenerateTimeout
	}
	if c.settleDelay <= 0 {
		c.settleDelay = defaultSettleDelay
	}
	if c.pullTick <= 0 {
		c.pullTick = defaultPullTick
	}
	return c
}

// CheckStatus is a cheap liveness probe. Timeout, connection refused and
// malformed responses all read as "not running"; callers must not distinguish
// them since the remediation (fall back to cloud) is identical.
func (c *Client) CheckStatus(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/tags", nil)
	if err != nil {
		return false
	}
	res, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	return res.StatusCode >= 200 && res.StatusCode < 300
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListInstalled queries the daemon's installed model names. The result is
// always a complete set; callers replace their cached view wholesale so
// out-of-band installs and removals cannot drift.
func (c *Client) ListInstalled(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: status %d", res.StatusCode)
	}
	var tags tagsResponse
	if err := json.NewDecoder(res.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("parse models list: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Start spawns the daemon (bundled binary first, then PATH), waits a fixed
// settle delay and re-probes. Already-running is success. Never called
// automatically; user action only.
func (c *Client) Start(ctx context.Context) error {
	if c.CheckStatus(ctx) {
		return nil
	}

	var lastErr error
	for _, bin := range c.startCandidates() {
		cmd := exec.Command(bin, "serve")
		cmd.Stdout = nil
		cmd.Stderr = nil
		if err := cmd.Start(); err != nil {
			lastErr = fmt.Errorf("spawn %s: %w", bin, err)
			continue
		}
		// Detach; the daemon outlives us and the next probe is the source of truth.
		go cmd.Wait()

		select {
		case <-time.After(c.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if c.CheckStatus(ctx) {
			return nil
		}
		lastErr = fmt.Errorf("%s started but service is not responding", bin)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no daemon binary available")
	}
	return fmt.Errorf("start local service: %w", lastErr)
}

func (c *Client) startCandidates() []string {
	var out []string
	if c.bin != "" {
		if p, err := fsutil.ExpandHome(c.bin); err == nil && fsutil.PathExists(p) {
			out = append(out, p)
		}
	}
	return append(out, "ollama")
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate requests a non-streaming completion from the daemon.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate: status %d: %s", res.StatusCode, string(resBody))
	}
	var gr generateResponse
	if err := json.Unmarshal(resBody, &gr); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return gr.Response, nil
}
