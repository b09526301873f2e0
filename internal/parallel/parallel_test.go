package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCollectsResultsAndErrors(t *testing.T) {
	calls := []Call{
		{Name: "jobs", Func: func(ctx context.Context) (interface{}, error) {
			return []string{"job-1"}, nil
		}},
		{Name: "stages", Func: func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("server unreachable")
		}},
		{Name: "executors", Func: func(ctx context.Context) (interface{}, error) {
			return 4, nil
		}},
	}

	result := Execute(context.Background(), calls, 2)

	assert.Equal(t, []string{"job-1"}, result.Results["jobs"])
	assert.Equal(t, 4, result.Results["executors"])
	assert.NotContains(t, result.Results, "stages")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "stages failed: server unreachable", result.Errors[0])
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	var current, peak int32

	calls := make([]Call, 8)
	for i := range calls {
		calls[i] = Call{
			Name: fmt.Sprintf("call-%d", i),
			Func: func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil, nil
			},
		}
	}

	result := Execute(context.Background(), calls, 2)

	assert.Len(t, result.Results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteDefaultWorkerCount(t *testing.T) {
	result := Execute(context.Background(), []Call{
		{Name: "only", Func: func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		}},
	}, 0)

	assert.Equal(t, "ok", result.Results["only"])
	assert.Empty(t, result.Errors)
}

func TestExecuteEmptyCalls(t *testing.T) {
	result := Execute(context.Background(), nil, 4)
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
}
