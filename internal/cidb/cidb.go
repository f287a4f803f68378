// Package cidb probes the CI metrics database over its HTTP interface.
// The workflow can run without metrics persistence, so an unreachable
// database is reported but never blocks configuration on its own.
package cidb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Probe checks reachability of a ClickHouse-compatible endpoint.
type Probe struct {
	httpc *http.Client
}

func New() *Probe {
	return &Probe{httpc: &http.Client{Timeout: 30 * time.Second}}
}

// Check runs a trivial query and reports whether the database answered.
// The diagnostic string is human-facing and carried into the check Result.
func (p *Probe) Check(ctx context.Context, url, password string) (bool, string) {
	if url == "" {
		return false, "CI DB URL is empty"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/?query=SELECT%201", nil)
	if err != nil {
		return false, fmt.Sprintf("building CI DB request: %v", err)
	}
	if password != "" {
		req.Header.Set("X-ClickHouse-Key", password)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return false, fmt.Sprintf("CI DB unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	answer := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || answer != "1" {
		return false, fmt.Sprintf("CI DB check failed: status %d, body %q", resp.StatusCode, answer)
	}
	return true, ""
}
