package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inferd/pkg/types"
)

// ProgressFunc observes synthesized pull progress. Values are monotonically
// non-decreasing and reach 100 only on success.
type ProgressFunc func(types.DownloadProgress)

// synthesized progress advances in fixed steps and parks below 100 until the
// pull actually settles, so a slow transfer never reports false completion.
const (
	pullStepPercent = 5
	pullParkPercent = 95
)

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
}

// Pull downloads a model through the daemon. The daemon exposes no verifiable
// progress stream, so progress is synthesized on a ticker: the only contract
// callers may rely on is monotonic 0..100 reaching 100 on success. On failure
// reporting stops without reaching 100. Cancelling ctx stops reporting; the
// daemon may keep transferring, and the next ListInstalled is the source of
// truth either way.
func (c *Client) Pull(ctx context.Context, name string, onProgress ProgressFunc) error {
	if name == "" {
		return fmt.Errorf("pull: empty model name")
	}
	emit := func(p types.DownloadProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	emit(types.DownloadProgress{Model: name, Percent: 0})

	done := make(chan error, 1)
	go func() { done <- c.pullBlocking(ctx, name) }()

	pct := 0
	ticker := time.NewTicker(c.pullTick)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				emit(types.DownloadProgress{Model: name, Percent: pct, Error: err.Error()})
				return err
			}
			emit(types.DownloadProgress{Model: name, Percent: 100, Done: true})
			return nil
		case <-ticker.C:
			if pct < pullParkPercent {
				pct += pullStepPercent
				emit(types.DownloadProgress{Model: name, Percent: pct})
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pullBlocking issues the daemon's pull RPC and waits for it to settle.
func (c *Client) pullBlocking(ctx context.Context, name string) error {
	body, err := json.Marshal(pullRequest{Name: name})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pull %s: %w", name, err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("pull %s: status %d: %s", name, res.StatusCode, string(resBody))
	}
	// The daemon reports a terminal status line; anything else is suspect but
	// not fatal, since the authoritative check is re-listing installed models.
	var pr pullResponse
	if err := json.Unmarshal(bytes.TrimSpace(lastLine(resBody)), &pr); err == nil && pr.Status != "" && pr.Status != "success" {
		return fmt.Errorf("pull %s: daemon reported %q", name, pr.Status)
	}
	return nil
}

// lastLine returns the final non-empty line of b. The daemon may emit several
// JSON lines even in non-streaming mode.
func lastLine(b []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(bytes.TrimSpace(lines[i])) > 0 {
			return lines[i]
		}
	}
	return b
}
