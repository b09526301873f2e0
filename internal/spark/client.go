// Package spark provides the REST client for the Spark History Server
// api/v1 surface. The client itself is a thin GET wrapper; which wire
// the requests travel over is decided by the RequestExecutor it was
// constructed with.
package spark

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
)

// Client is the handle returned by client resolution. It owns its
// executor (and therefore any authenticated session credentials) for
// its whole lifetime; handles are only dropped at process shutdown.
type Client struct {
	baseURL  string
	executor RequestExecutor
}

// NewClient builds a client for a plain Spark History Server.
func NewClient(cfg config.ServerConfig) *Client {
	return &Client{
		baseURL:  cfg.URL,
		executor: NewRestyExecutor(cfg),
	}
}

// NewClientWithExecutor builds a client around a custom executor.
func NewClientWithExecutor(baseURL string, executor RequestExecutor) *Client {
	return &Client{baseURL: baseURL, executor: executor}
}

// BaseURL returns the resolved base URL of the backing server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPError is returned when the history server answers with an error
// status.
type HTTPError struct {
	Status int
	Path   string
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("spark api %s returned HTTP %d: %s", e.Path, e.Status, e.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	resp, err := c.executor.Do(ctx, path, params)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	if resp.IsError() {
		body := string(resp.Body)
		if len(body) > 512 {
			body = body[:512]
		}
		return &HTTPError{Status: resp.Status, Path: path, Body: body}
	}
	return resp.DecodeJSON(out)
}

// ListApplicationsOptions filters the applications listing.
type ListApplicationsOptions struct {
	Status []string
	Limit  int
}

// ListApplications returns applications known to the history server.
func (c *Client) ListApplications(ctx context.Context, opts ListApplicationsOptions) ([]models.ApplicationInfo, error) {
	params := url.Values{}
	for _, s := range opts.Status {
		params.Add("status", s)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var apps []models.ApplicationInfo
	if err := c.getJSON(ctx, "api/v1/applications", params, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApplication returns a single application by id.
func (c *Client) GetApplication(ctx context.Context, appID string) (*models.ApplicationInfo, error) {
	var app models.ApplicationInfo
	if err := c.getJSON(ctx, "api/v1/applications/"+appID, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListJobs returns the jobs of an application, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, appID string, status []string) ([]models.Job, error) {
	params := url.Values{}
	for _, s := range status {
		params.Add("status", s)
	}

	var jobs []models.Job
	if err := c.getJSON(ctx, fmt.Sprintf("api/v1/applications/%s/jobs", appID), params, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListStages returns the stages of an application.
func (c *Client) ListStages(ctx context.Context, appID string, status []string) ([]models.Stage, error) {
	params := url.Values{}
	for _, s := range status {
		params.Add("status", s)
	}

	var stages []models.Stage
	if err := c.getJSON(ctx, fmt.Sprintf("api/v1/applications/%s/stages", appID), params, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// ListExecutors returns executors of an application. When includeInactive
// is set, the allexecutors endpoint is used.
func (c *Client) ListExecutors(ctx context.Context, appID string, includeInactive bool) ([]models.ExecutorSummary, error) {
	endpoint := "executors"
	if includeInactive {
		endpoint = "allexecutors"
	}

	var executors []models.ExecutorSummary
	if err := c.getJSON(ctx, fmt.Sprintf("api/v1/applications/%s/%s", appID, endpoint), nil, &executors); err != nil {
		return nil, err
	}
	return executors, nil
}

// GetEnvironment returns the Spark environment of an application.
func (c *Client) GetEnvironment(ctx context.Context, appID string) (*models.ApplicationEnvironment, error) {
	var env models.ApplicationEnvironment
	if err := c.getJSON(ctx, fmt.Sprintf("api/v1/applications/%s/environment", appID), nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
