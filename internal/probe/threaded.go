package probe

import (
	"context"
	"sync"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// DefaultWorkers is the worker-pool size when none is configured.
const DefaultWorkers = 5

// ThreadedDispatcher executes tasks on a bounded pool of worker goroutines.
// Outcomes arrive in completion order, not submission order.
type ThreadedDispatcher struct {
	workers int
	exec    executor
}

// ThreadedOptions configure a ThreadedDispatcher.
type ThreadedOptions struct {
	Workers       int        // pool size; <= 0 means DefaultWorkers
	RatePerSecond int        // pacing; 0 means unlimited
	Classifier    Classifier // outcome classification rules
}

// NewThreaded builds a worker-pool dispatcher over the given transport.
func NewThreaded(t transport.Transport, opt ThreadedOptions) *ThreadedDispatcher {
	workers := opt.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &ThreadedDispatcher{
		workers: workers,
		exec:    newExecutor(t, opt.Classifier, opt.RatePerSecond),
	}
}

// Dispatch feeds tasks to the pool. A task counts as started once a worker
// has accepted it; the feeder stops handing out tasks when ctx is cancelled,
// while accepted tasks run to completion under their own timeout.
func (d *ThreadedDispatcher) Dispatch(ctx context.Context, tasks []Task) <-chan Outcome {
	// Buffered to the batch size so no worker ever blocks on hand-off.
	out := make(chan Outcome, len(tasks))
	taskCh := make(chan Task)

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			if err := d.exec.admit(ctx); err != nil {
				return
			}
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go func() {
			defer wg.Done()
			for task := range taskCh {
				out <- d.exec.execute(context.WithoutCancel(ctx), task)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
