package queue

import (
	"time"

	"github.com/hibiken/asynq"
)

// HandlersRegistry maps task types onto their workers.
type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

// ServerConfig is the asynq server setup shared by the worker binaries.
// Processing tasks land on the default queue.
func ServerConfig(concurrency int, retryDelay func(n int) time.Duration) asynq.Config {
	return asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return retryDelay(n)
		},
	}
}
