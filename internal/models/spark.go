package models

// Spark History Server REST types (api/v1). Only the fields the tool
// layer reads are modeled; unknown fields are ignored on decode.

// ApplicationAttempt is one attempt of a Spark application.
type ApplicationAttempt struct {
	AttemptID       *string `json:"attemptId"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	LastUpdated     *string `json:"lastUpdated"`
	Duration        *int64  `json:"duration"`
	SparkUser       string  `json:"sparkUser"`
	AppSparkVersion string  `json:"appSparkVersion"`
	Completed       bool    `json:"completed"`
}

// ApplicationInfo is a Spark application as reported by the
// api/v1/applications endpoint.
type ApplicationInfo struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Attempts            []ApplicationAttempt `json:"attempts"`
	CoresGranted        *int32               `json:"coresGranted"`
	MaxCores            *int32               `json:"maxCores"`
	CoresPerExecutor    *int32               `json:"coresPerExecutor"`
	MemoryPerExecutorMB *int32               `json:"memoryPerExecutorMB"`
}

// Job is a Spark job summary from api/v1/applications/<id>/jobs.
type Job struct {
	JobID               int64   `json:"jobId"`
	Name                string  `json:"name"`
	SubmissionTime      *string `json:"submissionTime"`
	CompletionTime      *string `json:"completionTime"`
	Status              string  `json:"status"`
	NumTasks            int32   `json:"numTasks"`
	NumCompletedTasks   int32   `json:"numCompletedTasks"`
	NumFailedTasks      int32   `json:"numFailedTasks"`
	NumActiveTasks      int32   `json:"numActiveTasks"`
	NumSkippedTasks     int32   `json:"numSkippedTasks"`
	NumCompletedStages  int32   `json:"numCompletedStages"`
	NumFailedStages     int32   `json:"numFailedStages"`
	StageIDs            []int64 `json:"stageIds"`
	JobGroup            *string `json:"jobGroup"`
	DurationMillis      *int64  `json:"-"`
}

// Stage is a Spark stage summary from api/v1/applications/<id>/stages.
type Stage struct {
	StageID           int64   `json:"stageId"`
	AttemptID         int32   `json:"attemptId"`
	Name              string  `json:"name"`
	Status            string  `json:"status"`
	NumTasks          int32   `json:"numTasks"`
	NumCompleteTasks  int32   `json:"numCompleteTasks"`
	NumFailedTasks    int32   `json:"numFailedTasks"`
	ExecutorRunTime   int64   `json:"executorRunTime"`
	ExecutorCpuTime   int64   `json:"executorCpuTime"`
	InputBytes        int64   `json:"inputBytes"`
	OutputBytes       int64   `json:"outputBytes"`
	ShuffleReadBytes  int64   `json:"shuffleReadBytes"`
	ShuffleWriteBytes int64   `json:"shuffleWriteBytes"`
	SubmissionTime    *string `json:"submissionTime"`
	CompletionTime    *string `json:"completionTime"`
}

// ExecutorSummary is one executor from api/v1/applications/<id>/executors.
type ExecutorSummary struct {
	ID                string `json:"id"`
	HostPort          string `json:"hostPort"`
	IsActive          bool   `json:"isActive"`
	RddBlocks         int32  `json:"rddBlocks"`
	MemoryUsed        int64  `json:"memoryUsed"`
	DiskUsed          int64  `json:"diskUsed"`
	TotalCores        int32  `json:"totalCores"`
	MaxTasks          int32  `json:"maxTasks"`
	ActiveTasks       int32  `json:"activeTasks"`
	FailedTasks       int32  `json:"failedTasks"`
	CompletedTasks    int32  `json:"completedTasks"`
	TotalTasks        int32  `json:"totalTasks"`
	TotalDuration     int64  `json:"totalDuration"`
	TotalGCTime       int64  `json:"totalGCTime"`
	TotalInputBytes   int64  `json:"totalInputBytes"`
	TotalShuffleRead  int64  `json:"totalShuffleRead"`
	TotalShuffleWrite int64  `json:"totalShuffleWrite"`
	MaxMemory         int64  `json:"maxMemory"`
}

// RuntimeInfo is the runtime section of the environment endpoint.
type RuntimeInfo struct {
	JavaVersion  string `json:"javaVersion"`
	JavaHome     string `json:"javaHome"`
	ScalaVersion string `json:"scalaVersion"`
}

// ApplicationEnvironment is api/v1/applications/<id>/environment.
type ApplicationEnvironment struct {
	Runtime          RuntimeInfo `json:"runtime"`
	SparkProperties  [][]string  `json:"sparkProperties"`
	SystemProperties [][]string  `json:"systemProperties"`
}
