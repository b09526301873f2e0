package tools

import (
	"context"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/app"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/cache"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/spark"
)

func callReq(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func TestSpecFromRequestDefaultsToStatic(t *testing.T) {
	spec := specFromRequest(callReq(nil))

	require.NotNil(t, spec.Static)
	assert.Nil(t, spec.Dynamic)
	assert.True(t, spec.Static.UseDefault)
	assert.Empty(t, spec.Static.ServerName)
}

func TestSpecFromRequestNamedServer(t *testing.T) {
	spec := specFromRequest(callReq(map[string]any{"server": "prod"}))

	require.NotNil(t, spec.Static)
	assert.Equal(t, "prod", spec.Static.ServerName)
	assert.False(t, spec.Static.UseDefault)
}

func TestSpecFromRequestDynamicIdentifiers(t *testing.T) {
	spec := specFromRequest(callReq(map[string]any{"emr_cluster_id": "j-ABC123"}))

	require.NotNil(t, spec.Dynamic)
	assert.Nil(t, spec.Static)
	assert.Equal(t, "j-ABC123", spec.Dynamic.ClusterID)
}

func TestSpecFromRequestDynamicWinsOverServerName(t *testing.T) {
	spec := specFromRequest(callReq(map[string]any{
		"server":          "prod",
		"emr_cluster_arn": "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC",
	}))

	require.NotNil(t, spec.Dynamic)
	assert.Nil(t, spec.Static)
}

func TestSessionIDFallback(t *testing.T) {
	assert.Equal(t, "default", sessionIDFromContext(context.Background()))
}

func strPtr(s string) *string { return &s }

func TestJobDuration(t *testing.T) {
	job := models.Job{
		SubmissionTime: strPtr("2024-01-01T00:00:00.000GMT"),
		CompletionTime: strPtr("2024-01-01T00:01:30.000GMT"),
	}
	assert.Equal(t, 90.0, jobDuration(job).Seconds())

	assert.Zero(t, jobDuration(models.Job{SubmissionTime: strPtr("2024-01-01T00:00:00.000GMT")}))
	assert.Zero(t, jobDuration(models.Job{
		SubmissionTime: strPtr("garbage"),
		CompletionTime: strPtr("2024-01-01T00:01:30.000GMT"),
	}))
}

func TestSlowestJobs(t *testing.T) {
	jobs := []models.Job{
		{JobID: 1, Status: "SUCCEEDED",
			SubmissionTime: strPtr("2024-01-01T00:00:00.000GMT"),
			CompletionTime: strPtr("2024-01-01T00:00:10.000GMT")},
		{JobID: 2, Status: "RUNNING",
			SubmissionTime: strPtr("2024-01-01T00:00:00.000GMT")},
		{JobID: 3, Status: "SUCCEEDED",
			SubmissionTime: strPtr("2024-01-01T00:00:00.000GMT"),
			CompletionTime: strPtr("2024-01-01T00:05:00.000GMT")},
		{JobID: 4, Status: "FAILED",
			SubmissionTime: strPtr("2024-01-01T00:00:00.000GMT"),
			CompletionTime: strPtr("2024-01-01T00:01:00.000GMT")},
	}

	slowest := slowestJobs(jobs, 2, false)
	require.Len(t, slowest, 2)
	assert.Equal(t, int64(3), slowest[0].JobID)
	assert.Equal(t, int64(4), slowest[1].JobID)

	withRunning := slowestJobs(jobs, 10, true)
	assert.Len(t, withRunning, 4)
}

// testRegistry builds a registry over one mocked static server.
func testRegistry(t *testing.T) *Registry {
	t.Helper()

	rc := resty.New().SetBaseURL("http://shs.local:18080")
	httpmock.ActivateNonDefault(rc.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	client := spark.NewClientWithExecutor("http://shs.local:18080", spark.NewRestyExecutorFromClient(rc))
	appCtx := &app.Context{
		Mode:          app.ModeStatic,
		Clients:       map[string]*spark.Client{"prod": client},
		DefaultClient: client,
		ClientCache:   cache.New[string, *spark.Client](),
		ArnCache:      cache.New[string, string](),
	}
	return NewRegistry(appCtx, NewFilter(&config.Config{}))
}

func TestListApplicationsHandler(t *testing.T) {
	r := testRegistry(t)

	httpmock.RegisterResponder("GET", "http://shs.local:18080/api/v1/applications",
		httpmock.NewStringResponder(200, `[{"id": "app-001", "name": "ETL"}]`))

	_, handler := r.listApplicationsTool()
	res, err := handler(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
}

func TestGetApplicationHandlerRequiresAppID(t *testing.T) {
	r := testRegistry(t)

	_, handler := r.getApplicationTool()
	res, err := handler(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandlerReportsUnknownServer(t *testing.T) {
	r := testRegistry(t)

	_, handler := r.listApplicationsTool()
	res, err := handler(context.Background(), callReq(map[string]any{"server": "staging"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCompareAppPerformanceHandler(t *testing.T) {
	r := testRegistry(t)

	for _, appID := range []string{"app-001", "app-002"} {
		httpmock.RegisterResponder("GET", "http://shs.local:18080/api/v1/applications/"+appID+"/jobs",
			httpmock.NewStringResponder(200, `[{"jobId": 1}]`))
		httpmock.RegisterResponder("GET", "http://shs.local:18080/api/v1/applications/"+appID+"/stages",
			httpmock.NewStringResponder(200, `[]`))
		httpmock.RegisterResponder("GET", "http://shs.local:18080/api/v1/applications/"+appID+"/allexecutors",
			httpmock.NewStringResponder(200, `[{"id": "driver"}]`))
	}

	_, handler := r.compareAppPerformanceTool()
	res, err := handler(context.Background(), callReq(map[string]any{
		"app_id_1": "app-001",
		"app_id_2": "app-002",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 6, httpmock.GetTotalCallCount())
}
