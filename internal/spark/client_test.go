package spark

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
)

const testBaseURL = "http://shs.local:18080"

func newTestClient(t *testing.T, cfg config.ServerConfig) *Client {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = testBaseURL
	}
	executor := NewRestyExecutor(cfg)
	httpmock.ActivateNonDefault(executor.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewClientWithExecutor(cfg.URL, executor)
}

func TestListApplications(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "completed", req.URL.Query().Get("status"))
			assert.Equal(t, "5", req.URL.Query().Get("limit"))
			return httpmock.NewStringResponse(200, `[
				{"id": "app-001", "name": "ETL", "attempts": [{"sparkUser": "hadoop", "completed": true}]},
				{"id": "app-002", "name": "ML", "attempts": []}
			]`), nil
		})

	apps, err := client.ListApplications(context.Background(), ListApplicationsOptions{
		Status: []string{"completed"},
		Limit:  5,
	})
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-001", apps[0].ID)
	assert.Equal(t, "ETL", apps[0].Name)
	require.Len(t, apps[0].Attempts, 1)
	assert.True(t, apps[0].Attempts[0].Completed)
}

func TestGetApplication(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001",
		httpmock.NewStringResponder(200, `{"id": "app-001", "name": "ETL"}`))

	app, err := client.GetApplication(context.Background(), "app-001")
	require.NoError(t, err)
	assert.Equal(t, "app-001", app.ID)
}

func TestGetApplicationHTTPError(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/missing",
		httpmock.NewStringResponder(404, "no such app: missing"))

	_, err := client.GetApplication(context.Background(), "missing")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
	assert.Equal(t, "api/v1/applications/missing", httpErr.Path)
	assert.Contains(t, httpErr.Body, "no such app")
}

func TestListJobsWithStatusFilter(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001/jobs",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, []string{"running", "succeeded"}, req.URL.Query()["status"])
			return httpmock.NewStringResponse(200, `[{"jobId": 3, "name": "count", "status": "SUCCEEDED"}]`), nil
		})

	jobs, err := client.ListJobs(context.Background(), "app-001", []string{"running", "succeeded"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(3), jobs[0].JobID)
}

func TestListStages(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001/stages",
		httpmock.NewStringResponder(200, `[{"stageId": 1, "executorRunTime": 1200, "status": "COMPLETE"}]`))

	stages, err := client.ListStages(context.Background(), "app-001", nil)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, int64(1200), stages[0].ExecutorRunTime)
}

func TestListExecutorsEndpointSelection(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001/executors",
		httpmock.NewStringResponder(200, `[{"id": "driver", "isActive": true}]`))
	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001/allexecutors",
		httpmock.NewStringResponder(200, `[{"id": "driver"}, {"id": "1", "isActive": false}]`))

	active, err := client.ListExecutors(context.Background(), "app-001", false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := client.ListExecutors(context.Background(), "app-001", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetEnvironment(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001/environment",
		httpmock.NewStringResponder(200, `{
			"runtime": {"javaVersion": "17.0.2", "scalaVersion": "2.13"},
			"sparkProperties": [["spark.executor.memory", "4g"]]
		}`))

	env, err := client.GetEnvironment(context.Background(), "app-001")
	require.NoError(t, err)
	assert.Equal(t, "17.0.2", env.Runtime.JavaVersion)
	require.Len(t, env.SparkProperties, 1)
	assert.Equal(t, "spark.executor.memory", env.SparkProperties[0][0])
}

func TestExecutorAppliesBearerToken(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{
		Auth: config.AuthConfig{Token: "secret-token"},
	})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer secret-token", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(200, `{"id": "app-001"}`), nil
		})

	_, err := client.GetApplication(context.Background(), "app-001")
	require.NoError(t, err)
}

func TestExecutorAppliesBasicAuth(t *testing.T) {
	client := newTestClient(t, config.ServerConfig{
		Auth: config.AuthConfig{Username: "spark", Password: "hunter2"},
	})

	httpmock.RegisterResponder("GET", testBaseURL+"/api/v1/applications/app-001",
		func(req *http.Request) (*http.Response, error) {
			user, pass, ok := req.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "spark", user)
			assert.Equal(t, "hunter2", pass)
			return httpmock.NewStringResponse(200, `{"id": "app-001"}`), nil
		})

	_, err := client.GetApplication(context.Background(), "app-001")
	require.NoError(t, err)
}
