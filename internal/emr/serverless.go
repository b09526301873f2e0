package emr

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/emrserverless"
	slstypes "github.com/aws/aws-sdk-go-v2/service/emrserverless/types"
	"github.com/go-resty/resty/v2"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
)

const (
	// jobRunPageSize bounds the job-run listing used for both URL
	// acquisition and response synthesis.
	jobRunPageSize = 50

	proxyPathMarker = "/proxy/"
)

// ServerlessHybridClient accesses EMR Serverless Spark data through two
// routes: the managed Spark UI dashboard when one is reachable, and a
// synthesized Spark-REST-compatible view of the job-run records when it
// is not. The synthetic route guarantees the tool layer always gets an
// answer for the application list and lookup endpoints.
//
// It satisfies the spark request-executor interface, so a spark.Client
// can be constructed directly on top of it.
type ServerlessHybridClient struct {
	api    ServerlessAPI
	appID  string
	region string

	mu            sync.Mutex
	jobRuns       []slstypes.JobRunSummary
	jobRunsLoaded bool
	uiTried       bool
	ui            *resty.Client
	uiBaseURL     string

	httpTimeout time.Duration
}

// NewServerlessHybridClient builds a hybrid client for one application.
func NewServerlessHybridClient(cfg aws.Config, appID string, timeoutSeconds int) *ServerlessHybridClient {
	return NewServerlessHybridClientWithAPI(emrserverless.NewFromConfig(cfg), appID, cfg.Region, timeoutSeconds)
}

// NewServerlessHybridClientWithAPI builds a hybrid client over an
// explicit API, used by tests.
func NewServerlessHybridClientWithAPI(api ServerlessAPI, appID, region string, timeoutSeconds int) *ServerlessHybridClient {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	if region == "" {
		region = "us-east-1"
	}
	return &ServerlessHybridClient{
		api:         api,
		appID:       appID,
		region:      region,
		httpTimeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

// BaseURL reports the acquired UI base URL, or a scheme marking the
// synthetic mode when no UI was reachable.
func (c *ServerlessHybridClient) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uiBaseURL != "" {
		return c.uiBaseURL
	}
	return "emr-serverless-api://" + c.appID
}

// getJobRuns fetches and caches the most recent job runs.
func (c *ServerlessHybridClient) getJobRuns(ctx context.Context) ([]slstypes.JobRunSummary, error) {
	c.mu.Lock()
	if c.jobRunsLoaded {
		runs := c.jobRuns
		c.mu.Unlock()
		return runs, nil
	}
	c.mu.Unlock()

	out, err := c.api.ListJobRuns(ctx, &emrserverless.ListJobRunsInput{
		ApplicationId: aws.String(c.appID),
		MaxResults:    aws.Int32(jobRunPageSize),
	})
	if err != nil {
		return nil, &BackendError{Op: "ListJobRuns", Err: err}
	}

	c.mu.Lock()
	c.jobRuns = out.JobRuns
	c.jobRunsLoaded = true
	c.mu.Unlock()
	return out.JobRuns, nil
}

// isTerminalState reports whether a job run can no longer transition.
func isTerminalState(state slstypes.JobRunState) bool {
	switch state {
	case slstypes.JobRunStateSuccess, slstypes.JobRunStateFailed, slstypes.JobRunStateCancelled:
		return true
	}
	return false
}

// latestTerminalRun picks the most recent run in a terminal state. The
// listing is most-recent-first.
func latestTerminalRun(runs []slstypes.JobRunSummary) *slstypes.JobRunSummary {
	for i := range runs {
		if isTerminalState(runs[i].State) {
			return &runs[i]
		}
	}
	return nil
}

// formatSparkTime renders an AWS timestamp the way the Spark REST API
// does.
func formatSparkTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "Z"
}

// Convert maps one EMR Serverless job run onto the Spark REST
// application shape. Duration is updatedAt minus createdAt in
// milliseconds; missing timestamps yield a null duration. The completed
// flag reflects whether the run reached a terminal state.
func (c *ServerlessHybridClient) Convert(run slstypes.JobRunSummary) models.ApplicationInfo {
	id := aws.ToString(run.Id)

	name := aws.ToString(run.Name)
	if name == "" {
		name = "EMR Serverless Job " + id
	}

	sparkVersion := aws.ToString(run.ReleaseLabel)
	if sparkVersion == "" {
		sparkVersion = "unknown"
	}

	var startTime, endTime *string
	if run.CreatedAt != nil {
		s := formatSparkTime(*run.CreatedAt)
		startTime = &s
	}
	if run.UpdatedAt != nil {
		s := formatSparkTime(*run.UpdatedAt)
		endTime = &s
	}

	var duration *int64
	if run.CreatedAt != nil && run.UpdatedAt != nil {
		d := run.UpdatedAt.Sub(*run.CreatedAt).Milliseconds()
		duration = &d
	}

	return models.ApplicationInfo{
		ID:   id,
		Name: name,
		Attempts: []models.ApplicationAttempt{{
			AttemptID:       nil,
			StartTime:       startTime,
			EndTime:         endTime,
			LastUpdated:     endTime,
			Duration:        duration,
			SparkUser:       "emr-serverless",
			AppSparkVersion: sparkVersion,
			Completed:       isTerminalState(run.State),
		}},
	}
}

// acquireUI attempts, once per client, to reach the managed Spark UI:
// it finds the latest terminal job run, asks for its dashboard URL and
// rewrites the proxy path to the history server base path. Failure is
// not fatal; the client degrades to the synthetic route.
func (c *ServerlessHybridClient) acquireUI(ctx context.Context) *resty.Client {
	c.mu.Lock()
	if c.uiTried {
		ui := c.ui
		c.mu.Unlock()
		return ui
	}
	c.uiTried = true
	c.mu.Unlock()

	base, err := c.historyServerURL(ctx)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"application_id": c.appID,
			"error":          err.Error(),
		}).Warn("EMR Serverless UI unavailable, degrading to synthesized responses")
		return nil
	}

	ui := resty.New().
		SetBaseURL(base).
		SetTimeout(c.httpTimeout).
		SetHeader("Accept", "application/json")

	c.mu.Lock()
	c.ui = ui
	c.uiBaseURL = base
	c.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"application_id": c.appID,
		"base_url":       base,
	}).Info("EMR Serverless Spark UI acquired")
	return ui
}

// historyServerURL negotiates a history-server base URL for the most
// recent terminal job run.
func (c *ServerlessHybridClient) historyServerURL(ctx context.Context) (string, error) {
	app, err := c.api.GetApplication(ctx, &emrserverless.GetApplicationInput{
		ApplicationId: aws.String(c.appID),
	})
	if err != nil {
		return "", &BackendError{Op: "GetApplication", Err: err}
	}
	logger.WithFields(map[string]interface{}{
		"application_id": c.appID,
		"state":          string(app.Application.State),
	}).Debug("EMR Serverless application state")

	runs, err := c.getJobRuns(ctx)
	if err != nil {
		return "", err
	}
	run := latestTerminalRun(runs)
	if run == nil {
		return "", fmt.Errorf("no terminal job run found for application %s", c.appID)
	}
	jobRunID := aws.ToString(run.Id)

	dashboard, err := c.api.GetDashboardForJobRun(ctx, &emrserverless.GetDashboardForJobRunInput{
		ApplicationId: aws.String(c.appID),
		JobRunId:      aws.String(jobRunID),
	})
	if err != nil {
		// A signing failure degrades to the well-known UI host rather
		// than failing the call outright.
		logger.WithFields(map[string]interface{}{
			"application_id": c.appID,
			"job_run_id":     jobRunID,
			"error":          err.Error(),
		}).Warn("Dashboard URL signing failed, falling back to unsigned UI host")
		return fmt.Sprintf("https://p-%s-%s.emrappui-prod.%s.amazonaws.com/shs", jobRunID, c.appID, c.region), nil
	}

	dashboardURL := aws.ToString(dashboard.Url)
	if idx := strings.Index(dashboardURL, proxyPathMarker); idx >= 0 {
		return dashboardURL[:idx] + "/shs", nil
	}
	return "", fmt.Errorf("dashboard URL %q has no proxy path to rewrite", dashboardURL)
}

// Do implements the spark request-executor contract. The managed UI is
// preferred; when it is unreachable the two load-bearing endpoints
// (application list and lookup) are synthesized from job-run records and
// every other path gets a structured 404.
func (c *ServerlessHybridClient) Do(ctx context.Context, path string, params url.Values) (*models.Response, error) {
	if ui := c.acquireUI(ctx); ui != nil {
		resp, err := c.doUI(ctx, ui, path, params)
		if err == nil {
			return resp, nil
		}
		logger.WithFields(map[string]interface{}{
			"application_id": c.appID,
			"path":           path,
			"error":          err.Error(),
		}).Warn("EMR Serverless UI request failed, synthesizing response")
	}
	return c.synthesize(ctx, path)
}

func (c *ServerlessHybridClient) doUI(ctx context.Context, ui *resty.Client, path string, params url.Values) (*models.Response, error) {
	req := ui.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}
	return &models.Response{
		Status:  resp.StatusCode(),
		Headers: resp.Header(),
		Body:    resp.Body(),
	}, nil
}

// synthesize answers the request from EMR Serverless job-run records.
func (c *ServerlessHybridClient) synthesize(ctx context.Context, path string) (*models.Response, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	// api/v1/applications
	if len(parts) == 3 && parts[0] == "api" && parts[1] == "v1" && parts[2] == "applications" {
		runs, err := c.getJobRuns(ctx)
		if err != nil {
			return nil, err
		}
		apps := make([]models.ApplicationInfo, 0, len(runs))
		for _, run := range runs {
			apps = append(apps, c.Convert(run))
		}
		return models.NewJSONResponse(200, apps)
	}

	// api/v1/applications/<id>
	if len(parts) == 4 && parts[0] == "api" && parts[1] == "v1" && parts[2] == "applications" {
		runs, err := c.getJobRuns(ctx)
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			if aws.ToString(run.Id) == parts[3] {
				return models.NewJSONResponse(200, c.Convert(run))
			}
		}
	}

	unsupported := &UnsupportedOperationError{Path: path}
	return models.NewJSONResponse(404, map[string]string{"error": unsupported.Error()})
}
