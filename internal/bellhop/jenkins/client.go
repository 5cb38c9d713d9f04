// Package jenkins provides a best-effort HTTP client for the Jenkins REST
// surface the bot needs: list jobs, trigger a build, read the last build.
//
// Every method converts transport failures and non-success responses into a
// typed empty or failure value. Callers never see an error cross this
// boundary; failures are logged here and the dialogue engine matches on the
// returned value instead.
package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Build result tags reported by JobStatus beyond the Jenkins terminal result
// codes (SUCCESS, FAILURE, ABORTED, UNSTABLE, ...).
const (
	// StatusInProgress is reported when the last build has not concluded.
	StatusInProgress = "IN_PROGRESS"
	// StatusError is reported when the status could not be retrieved at all.
	// Callers cannot distinguish this from a build that genuinely failed to
	// report; see the dialogue engine's trigger flow.
	StatusError = "ERROR"
)

// Config holds the Jenkins endpoint and credentials.
type Config struct {
	// BaseURL is the Jenkins root, e.g. "https://ci.example.com".
	BaseURL string
	// Username and APIToken authenticate every request via basic auth.
	Username string
	APIToken string
	// Timeout bounds each remote call. Defaults to 5s when zero.
	Timeout time.Duration
}

// Client is a Jenkins REST client for a single controller.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Jenkins client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// listResponse is the subset of GET /api/json the client reads.
type listResponse struct {
	Jobs []struct {
		Name string `json:"name"`
	} `json:"jobs"`
}

// lastBuildResponse is the subset of GET /job/{name}/lastBuild/api/json the
// client reads. Result is null while the build is still running.
type lastBuildResponse struct {
	Number int     `json:"number"`
	Result *string `json:"result"`
}

// ListJobs returns the names of all jobs in server order, or an empty slice
// on any failure.
func (c *Client) ListJobs(ctx context.Context) []string {
	var resp listResponse
	if !c.get(ctx, "/api/json", &resp) {
		return nil
	}

	names := make([]string, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		names = append(names, job.Name)
	}
	return names
}

// ListJobsByPrefix returns the subsequence of ListJobs whose names start
// with prefix, compared case-insensitively.
func (c *Client) ListJobsByPrefix(ctx context.Context, prefix string) []string {
	lower := strings.ToLower(prefix)
	var matched []string
	for _, name := range c.ListJobs(ctx) {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matched = append(matched, name)
		}
	}
	return matched
}

// TriggerBuild requests a new build of the named job. It reports success iff
// the remote accepted the trigger request.
func (c *Client) TriggerBuild(ctx context.Context, name string) bool {
	u := c.cfg.BaseURL + "/job/" + url.PathEscape(name) + "/build"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		slog.Error("jenkins: failed to build trigger request", "job", name, "err", err)
		return false
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("jenkins: failed to trigger build", "job", name, "err", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Jenkins answers 201 Created with a queue item Location; some proxies
	// rewrite it to 200.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		slog.Error("jenkins: trigger rejected", "job", name, "status", resp.StatusCode)
		return false
	}

	slog.Info("jenkins: triggered build", "job", name)
	return true
}

// LatestBuildNumber returns the number of the job's last build. The boolean
// is false when no build exists yet or the lookup failed.
func (c *Client) LatestBuildNumber(ctx context.Context, name string) (int, bool) {
	var resp lastBuildResponse
	if !c.get(ctx, "/job/"+url.PathEscape(name)+"/lastBuild/api/json", &resp) {
		return 0, false
	}
	if resp.Number == 0 {
		return 0, false
	}
	return resp.Number, true
}

// JobStatus returns the result of the job's last build: a Jenkins terminal
// result code, StatusInProgress while the build is running, or StatusError
// when the status could not be retrieved.
func (c *Client) JobStatus(ctx context.Context, name string) string {
	var resp lastBuildResponse
	if !c.get(ctx, "/job/"+url.PathEscape(name)+"/lastBuild/api/json", &resp) {
		return StatusError
	}
	if resp.Result == nil || *resp.Result == "" {
		return StatusInProgress
	}
	return *resp.Result
}

// get performs an authenticated GET and decodes the JSON body into out.
// It returns false on any transport failure, non-200 status or decode error.
func (c *Client) get(ctx context.Context, path string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		slog.Error("jenkins: failed to build request", "path", path, "err", err)
		return false
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("jenkins: request failed", "path", path, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		slog.Error("jenkins: unexpected status", "path", path, "status", resp.StatusCode)
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("jenkins: failed to decode response", "path", path, "err", err)
		return false
	}
	return true
}

// String implements fmt.Stringer for log output without leaking the token.
func (c Config) String() string {
	return fmt.Sprintf("jenkins{url: %s, user: %s}", c.BaseURL, c.Username)
}
