// Package ghstatus publishes the merge-readiness decision as a commit
// status check.
package ghstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/conveyorci/conveyor/internal/result"
)

// Client posts commit statuses to the GitHub statuses API.
type Client struct {
	APIURL string // e.g. https://api.github.com
	Repo   string // owner/name
	Token  string

	httpc *http.Client
}

func New(apiURL, repo, token string) *Client {
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	return &Client{APIURL: apiURL, Repo: repo, Token: token, httpc: http.DefaultClient}
}

type statusBody struct {
	State       string `json:"state"`
	Context     string `json:"context"`
	Description string `json:"description"`
	TargetURL   string `json:"target_url,omitempty"`
}

// PostCommitStatus publishes one named status for the given commit.
func (c *Client) PostCommitStatus(ctx context.Context, sha, name string, status result.Status, description, targetURL string) error {
	body, err := json.Marshal(statusBody{
		State:       state(status),
		Context:     name,
		Description: truncate(description, 140),
		TargetURL:   targetURL,
	})
	if err != nil {
		return fmt.Errorf("marshal status body: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/statuses/%s", c.APIURL, c.Repo, sha)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting commit status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("posting commit status: HTTP %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// state maps the internal status vocabulary onto the four GitHub states.
func state(s result.Status) string {
	switch s {
	case result.StatusSuccess, result.StatusSkipped:
		return "success"
	case result.StatusError:
		return "error"
	default:
		return "failure"
	}
}

// GitHub rejects descriptions over 140 characters.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
