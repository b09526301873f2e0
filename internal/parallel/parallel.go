// Package parallel runs independent API calls concurrently with a
// bounded worker count, collecting per-call results and errors. Used by
// tools that fan out several history-server requests for one answer.
package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
)

// Call is one named unit of work.
type Call struct {
	Name string
	Func func(ctx context.Context) (interface{}, error)
}

// Result aggregates the outcome of an Execute run. Failed calls land in
// Errors; successful ones in Results keyed by call name.
type Result struct {
	Results map[string]interface{}
	Errors  []string
}

// Execute runs the calls on at most maxWorkers goroutines and waits for
// all of them. A failed call never aborts its siblings.
func Execute(ctx context.Context, calls []Call, maxWorkers int) Result {
	if maxWorkers <= 0 {
		maxWorkers = 6
	}

	type outcome struct {
		name  string
		value interface{}
		err   error
	}

	jobs := make(chan Call)
	outcomes := make(chan outcome, len(calls))

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for call := range jobs {
				value, err := call.Func(ctx)
				outcomes <- outcome{name: call.Name, value: value, err: err}
			}
		}()
	}

	for _, call := range calls {
		jobs <- call
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	result := Result{Results: make(map[string]interface{})}
	for o := range outcomes {
		if o.err != nil {
			logger.WithFields(map[string]interface{}{
				"call":  o.name,
				"error": o.err.Error(),
			}).Warn("Parallel call failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s failed: %v", o.name, o.err))
			continue
		}
		result.Results[o.name] = o.value
	}
	return result
}
