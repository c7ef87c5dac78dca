package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// InlineDispatcher processes résumés on goroutines inside the API process,
// at most limit at a time.
type InlineDispatcher struct {
	orch    *Orchestrator
	timeout time.Duration
	sem     chan struct{}
	wg      sync.WaitGroup
}

func NewInlineDispatcher(o *Orchestrator, limit int, timeout time.Duration) *InlineDispatcher {
	if limit <= 0 {
		limit = 1
	}
	return &InlineDispatcher{orch: o, timeout: timeout, sem: make(chan struct{}, limit)}
}

// Dispatch starts processing id and returns immediately. The run is detached
// from ctx so it outlives the request that triggered it.
func (d *InlineDispatcher) Dispatch(ctx context.Context, id string) error {
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		if d.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, d.timeout)
			defer cancel()
		}
		if _, err := d.orch.ProcessAndStore(runCtx, id); err != nil {
			slog.Error("background processing failed", "resume_id", id, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched run has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
