// Package source fetches the process list and resource summary from the
// process API. When the API is unreachable or answers with garbage, it
// substitutes synthetic data and tags the result accordingly.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dicklesworthstone/procpulse/internal/model"
)

const (
	processesPath = "/processes"
	resourcesPath = "/system-resources"

	defaultTimeout   = 5 * time.Second
	maxResponseBytes = 8 << 20
)

// Origin tags where a result came from.
type Origin int

const (
	// OriginRemote means the payload was decoded from the API.
	OriginRemote Origin = iota
	// OriginSynthetic means the payload was generated locally.
	OriginSynthetic
)

func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginSynthetic:
		return "synthetic"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// ProcessResult is a fetched or synthesized process list.
type ProcessResult struct {
	Processes []model.Process
	Origin    Origin
	// Cause is the failure that triggered synthetic fallback.
	Cause error
}

// ResourceResult is a fetched or synthesized resource summary.
type ResourceResult struct {
	Resources model.Resources
	Origin    Origin
	Cause     error
}

// StatusError is a non-2xx answer from the process API.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Client talks to the process API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	gen        *Generator
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithGenerator sets the synthetic data generator.
func WithGenerator(g *Generator) Option { return func(c *Client) { c.gen = g } }

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient returns a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gen == nil {
		c.gen = NewGenerator(0)
	}
	return c
}

// FetchProcesses returns the API's process list, or a synthetic list when
// the call fails. The error is non-nil only when ctx itself is done.
func (c *Client) FetchProcesses(ctx context.Context) (ProcessResult, error) {
	var procs []model.Process
	err := c.getJSON(ctx, processesPath, &procs)
	if err == nil {
		if procs == nil {
			procs = []model.Process{}
		}
		return ProcessResult{Processes: procs, Origin: OriginRemote}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ProcessResult{}, ctxErr
	}

	c.logger.Warn("process API unavailable, using synthetic processes", "error", err)
	return ProcessResult{
		Processes: c.gen.Processes(),
		Origin:    OriginSynthetic,
		Cause:     err,
	}, nil
}

// FetchResources returns the API's resource summary, or a synthetic one when
// the call fails. The error is non-nil only when ctx itself is done.
func (c *Client) FetchResources(ctx context.Context) (ResourceResult, error) {
	var res model.Resources
	err := c.getJSON(ctx, resourcesPath, &res)
	if err == nil {
		return ResourceResult{Resources: res, Origin: OriginRemote}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ResourceResult{}, ctxErr
	}

	c.logger.Warn("resource API unavailable, using synthetic resources", "error", err)
	return ResourceResult{
		Resources: c.gen.Resources(),
		Origin:    OriginSynthetic,
		Cause:     err,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
