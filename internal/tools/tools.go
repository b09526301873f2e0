// Package tools registers the Spark analysis tools on the MCP server.
// Every tool resolves its target server through resolution.GetClient;
// the optional spec arguments select a preconfigured server in static
// mode or an EMR cluster in dynamic mode.
package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/app"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/parallel"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/resolution"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/spark"
)

// sparkTimeLayout is the timestamp format used by the Spark REST API.
const sparkTimeLayout = "2006-01-02T15:04:05.000GMT"

// Registry wires tool handlers to the application context.
type Registry struct {
	appCtx *app.Context
	filter *Filter
}

// NewRegistry builds a tool registry.
func NewRegistry(appCtx *app.Context, filter *Filter) *Registry {
	return &Registry{appCtx: appCtx, filter: filter}
}

// RegisterAll adds every enabled tool to the MCP server.
func (r *Registry) RegisterAll(s *server.MCPServer) {
	r.register(s, r.listApplicationsTool)
	r.register(s, r.getApplicationTool)
	r.register(s, r.listJobsTool)
	r.register(s, r.listSlowestJobsTool)
	r.register(s, r.listStagesTool)
	r.register(s, r.listSlowestStagesTool)
	r.register(s, r.listExecutorsTool)
	r.register(s, r.getEnvironmentTool)
	r.register(s, r.compareAppPerformanceTool)
}

func (r *Registry) register(s *server.MCPServer, build func() (mcp.Tool, server.ToolHandlerFunc)) {
	tool, handler := build()
	if !r.filter.Enabled(tool.Name) {
		logSkipped(tool.Name)
		return
	}
	s.AddTool(tool, handler)
}

// serverSpecOptions declares the spec arguments shared by every tool.
func serverSpecOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("server", mcp.Description("Name of a preconfigured server from config.yaml; omit to use the default server")),
		mcp.WithString("emr_cluster_arn", mcp.Description("ARN of the EMR cluster (dynamic mode only)")),
		mcp.WithString("emr_cluster_id", mcp.Description("ID of the EMR cluster, starts with 'j-' (dynamic mode only)")),
		mcp.WithString("emr_cluster_name", mcp.Description("Name of an active EMR cluster; terminated clusters are not supported (dynamic mode only)")),
	}
}

// specFromRequest builds the server spec from the tool arguments. Any
// EMR identifier makes the spec dynamic; otherwise it is static.
func specFromRequest(req mcp.CallToolRequest) models.ServerSpec {
	dynamic := models.DynamicEMRServerSpec{
		ClusterArn:  mcp.ParseString(req, "emr_cluster_arn", ""),
		ClusterID:   mcp.ParseString(req, "emr_cluster_id", ""),
		ClusterName: mcp.ParseString(req, "emr_cluster_name", ""),
	}
	if !dynamic.IsEmpty() {
		return models.ServerSpec{Dynamic: &dynamic}
	}

	name := mcp.ParseString(req, "server", "")
	return models.ServerSpec{Static: &models.StaticServerSpec{
		ServerName: name,
		UseDefault: name == "",
	}}
}

// sessionIDFromContext returns the MCP session identity used to
// partition the identifier cache.
func sessionIDFromContext(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		return session.SessionID()
	}
	return "default"
}

// resolveClient is the single entry point from tools into client
// resolution.
func (r *Registry) resolveClient(ctx context.Context, req mcp.CallToolRequest) (*spark.Client, error) {
	return resolution.GetClient(ctx, r.appCtx, sessionIDFromContext(ctx), specFromRequest(req))
}

func (r *Registry) listApplicationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List Spark applications known to the history server, optionally filtered by status"),
		mcp.WithString("status", mcp.Description("Filter by status: COMPLETED or RUNNING")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of applications to return")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("list_applications", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		listOpts := spark.ListApplicationsOptions{
			Limit: mcp.ParseInt(req, "limit", 0),
		}
		if status := mcp.ParseString(req, "status", ""); status != "" {
			listOpts.Status = []string{status}
		}

		apps, err := client.ListApplications(ctx, listOpts)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to list applications", err), nil
		}
		return mcp.NewToolResultStructured(apps, fmt.Sprintf("%d application(s)", len(apps))), nil
	}
}

func (r *Registry) getApplicationTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Get one Spark application by id, including its attempts"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("get_application", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		appInfo, err := client.GetApplication(ctx, appID)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to get application", err), nil
		}
		return mcp.NewToolResultStructured(appInfo, "application "+appInfo.ID), nil
	}
}

func (r *Registry) listJobsTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the jobs of a Spark application"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
		mcp.WithString("status", mcp.Description("Filter by job status: RUNNING, SUCCEEDED, FAILED or UNKNOWN")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("list_jobs", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		var status []string
		if s := mcp.ParseString(req, "status", ""); s != "" {
			status = []string{s}
		}

		jobs, err := client.ListJobs(ctx, appID, status)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to list jobs", err), nil
		}
		return mcp.NewToolResultStructured(jobs, fmt.Sprintf("%d job(s)", len(jobs))), nil
	}
}

func (r *Registry) listSlowestJobsTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the slowest jobs of a Spark application, sorted by duration"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
		mcp.WithNumber("n", mcp.Description("Number of jobs to return (default 5)")),
		mcp.WithBoolean("include_running", mcp.Description("Include running jobs (default false)")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("list_slowest_jobs", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		jobs, err := client.ListJobs(ctx, appID, nil)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to list jobs", err), nil
		}

		includeRunning := mcp.ParseBoolean(req, "include_running", false)
		n := mcp.ParseInt(req, "n", 5)

		slowest := slowestJobs(jobs, n, includeRunning)
		return mcp.NewToolResultStructured(slowest, fmt.Sprintf("%d job(s)", len(slowest))), nil
	}
}

func (r *Registry) listStagesTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the stages of a Spark application"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
		mcp.WithString("status", mcp.Description("Filter by stage status: ACTIVE, COMPLETE, FAILED, PENDING or SKIPPED")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("list_stages", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		var status []string
		if s := mcp.ParseString(req, "status", ""); s != "" {
			status = []string{s}
		}

		stages, err := client.ListStages(ctx, appID, status)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to list stages", err), nil
		}
		return mcp.NewToolResultStructured(stages, fmt.Sprintf("%d stage(s)", len(stages))), nil
	}
}

func (r *Registry) listSlowestStagesTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the slowest stages of a Spark application, sorted by executor run time"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
		mcp.WithNumber("n", mcp.Description("Number of stages to return (default 5)")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("list_slowest_stages", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		stages, err := client.ListStages(ctx, appID, nil)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to list stages", err), nil
		}

		n := mcp.ParseInt(req, "n", 5)
		sort.SliceStable(stages, func(i, j int) bool {
			return stages[i].ExecutorRunTime > stages[j].ExecutorRunTime
		})
		if len(stages) > n {
			stages = stages[:n]
		}
		return mcp.NewToolResultStructured(stages, fmt.Sprintf("%d stage(s)", len(stages))), nil
	}
}

func (r *Registry) listExecutorsTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the executors of a Spark application"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
		mcp.WithBoolean("include_inactive", mcp.Description("Include dead executors (default false)")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("list_executors", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		executors, err := client.ListExecutors(ctx, appID, mcp.ParseBoolean(req, "include_inactive", false))
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to list executors", err), nil
		}
		return mcp.NewToolResultStructured(executors, fmt.Sprintf("%d executor(s)", len(executors))), nil
	}
}

func (r *Registry) getEnvironmentTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Get the Spark environment (runtime and properties) of an application"),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Spark application id")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("get_environment", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID := mcp.ParseString(req, "app_id", "")
		if appID == "" {
			return mcp.NewToolResultError("app_id is required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		env, err := client.GetEnvironment(ctx, appID)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to get environment", err), nil
		}
		return mcp.NewToolResultStructured(env, "environment for "+appID), nil
	}
}

func (r *Registry) compareAppPerformanceTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Compare two Spark applications: jobs, stages and executors side by side"),
		mcp.WithString("app_id_1", mcp.Required(), mcp.Description("First Spark application id")),
		mcp.WithString("app_id_2", mcp.Required(), mcp.Description("Second Spark application id")),
	}, serverSpecOptions()...)
	tool := mcp.NewTool("compare_app_performance", opts...)

	return tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		appID1 := mcp.ParseString(req, "app_id_1", "")
		appID2 := mcp.ParseString(req, "app_id_2", "")
		if appID1 == "" || appID2 == "" {
			return mcp.NewToolResultError("app_id_1 and app_id_2 are required"), nil
		}

		client, err := r.resolveClient(ctx, req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to resolve Spark client", err), nil
		}

		calls := []parallel.Call{}
		for _, appID := range []string{appID1, appID2} {
			appID := appID
			calls = append(calls,
				parallel.Call{Name: appID + "/jobs", Func: func(ctx context.Context) (interface{}, error) {
					return client.ListJobs(ctx, appID, nil)
				}},
				parallel.Call{Name: appID + "/stages", Func: func(ctx context.Context) (interface{}, error) {
					return client.ListStages(ctx, appID, nil)
				}},
				parallel.Call{Name: appID + "/executors", Func: func(ctx context.Context) (interface{}, error) {
					return client.ListExecutors(ctx, appID, true)
				}},
			)
		}

		result := parallel.Execute(ctx, calls, 6)
		return mcp.NewToolResultStructured(map[string]interface{}{
			"results": result.Results,
			"errors":  result.Errors,
		}, fmt.Sprintf("comparison of %s and %s", appID1, appID2)), nil
	}
}

// jobDuration computes a job's wall-clock duration from its submission
// and completion timestamps; running jobs have no completion time and
// report zero.
func jobDuration(job models.Job) time.Duration {
	if job.SubmissionTime == nil || job.CompletionTime == nil {
		return 0
	}
	start, err1 := time.Parse(sparkTimeLayout, *job.SubmissionTime)
	end, err2 := time.Parse(sparkTimeLayout, *job.CompletionTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	return end.Sub(start)
}

// slowestJobs returns the n longest-running jobs, excluding running
// ones unless asked for.
func slowestJobs(jobs []models.Job, n int, includeRunning bool) []models.Job {
	filtered := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if !includeRunning && job.Status == "RUNNING" {
			continue
		}
		filtered = append(filtered, job)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return jobDuration(filtered[i]) > jobDuration(filtered[j])
	})

	if len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered
}
