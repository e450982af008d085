package probe

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// DefaultMaxInflight is the in-flight cap when none is configured.
const DefaultMaxInflight = 10

// CooperativeDispatcher admits tasks one at a time in submission order, with
// concurrency coming only from overlapping I/O waits bounded by an explicit
// in-flight limit. It is the overlapped-I/O counterpart to the worker pool:
// same task contract, same classifier, different suspension points.
type CooperativeDispatcher struct {
	maxInflight int64
	exec        executor
}

// CooperativeOptions configure a CooperativeDispatcher.
type CooperativeOptions struct {
	MaxInflight   int        // simultaneous in-flight cap; <= 0 means DefaultMaxInflight
	RatePerSecond int        // pacing; 0 means unlimited
	Classifier    Classifier // outcome classification rules
}

// NewCooperative builds an in-flight-bounded dispatcher over the given
// transport.
func NewCooperative(t transport.Transport, opt CooperativeOptions) *CooperativeDispatcher {
	limit := opt.MaxInflight
	if limit <= 0 {
		limit = DefaultMaxInflight
	}
	return &CooperativeDispatcher{
		maxInflight: int64(limit),
		exec:        newExecutor(t, opt.Classifier, opt.RatePerSecond),
	}
}

// Dispatch starts tasks in submission order as in-flight slots free up. When
// ctx is cancelled the admission loop stops, dropping unstarted tasks; tasks
// already holding a slot finish or time out on their own.
func (d *CooperativeDispatcher) Dispatch(ctx context.Context, tasks []Task) <-chan Outcome {
	out := make(chan Outcome, len(tasks))
	sem := semaphore.NewWeighted(d.maxInflight)

	go func() {
		var wg sync.WaitGroup
		for _, task := range tasks {
			if err := d.exec.admit(ctx); err != nil {
				break
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(task Task) {
				defer wg.Done()
				defer sem.Release(1)
				out <- d.exec.execute(context.WithoutCancel(ctx), task)
			}(task)
		}
		wg.Wait()
		close(out)
	}()
	return out
}
