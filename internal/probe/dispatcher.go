package probe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// Dispatcher executes a batch of tasks and streams outcomes in completion
// order. The returned channel closes once every started task has produced
// exactly one outcome. On cancellation, tasks not yet started are dropped
// without an outcome; in-flight tasks finish or hit their own timeout.
type Dispatcher interface {
	Dispatch(ctx context.Context, tasks []Task) <-chan Outcome
}

// Recorder consumes outcomes as they complete. Implementations must tolerate
// calls from a single goroutine in arbitrary task order.
type Recorder interface {
	Record(Outcome)
}

// RunBatch drives a dispatcher to completion, feeding every outcome to the
// recorders, and reports how many outcomes were produced. It returns when the
// batch is fully processed; a cancelled batch yields a partial count.
func RunBatch(ctx context.Context, tasks []Task, d Dispatcher, recorders ...Recorder) int {
	n := 0
	for out := range d.Dispatch(ctx, tasks) {
		for _, rec := range recorders {
			rec.Record(out)
		}
		n++
	}
	return n
}

// executor is the task-execution path shared by both dispatchers, so the two
// concurrency models stay behaviorally equivalent.
type executor struct {
	transport  transport.Transport
	classifier Classifier
	limiter    *rate.Limiter
}

func newExecutor(t transport.Transport, classifier Classifier, ratePerSecond int) executor {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		// Burst equal to the rate to smooth pacing under concurrency.
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	}
	return executor{transport: t, classifier: classifier, limiter: limiter}
}

// admit gates the start of a task: it observes batch cancellation and applies
// pacing. A task is considered started only after admit returns nil.
func (e *executor) admit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.limiter != nil {
		return e.limiter.Wait(ctx)
	}
	return nil
}

// execute runs one started task to its outcome. A panic anywhere inside the
// task body is converted to an OtherError outcome so one task can never take
// down the batch.
func (e *executor) execute(ctx context.Context, task Task) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				TaskID:  task.ID,
				Kind:    OtherError,
				Detail:  fmt.Sprintf("task panic: %v", r),
				Elapsed: time.Since(start),
			}
		}
	}()

	if e.transport == nil {
		return Outcome{
			TaskID:  task.ID,
			Kind:    OtherError,
			Detail:  "no transport configured",
			Elapsed: time.Since(start),
		}
	}

	res := e.transport.Issue(ctx, task.request())
	kind, key, detail := e.classifier.Classify(res)
	return Outcome{
		TaskID:          task.ID,
		Kind:            kind,
		DistributionKey: key,
		Detail:          detail,
		Elapsed:         time.Since(start),
	}
}
