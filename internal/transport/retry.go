package transport

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RetryPolicy configures transient-failure retries at the transport boundary.
// Only Timeout and ConnectionFailure results are retried unless ShouldRetry
// overrides that.
type RetryPolicy struct {
	MaxAttempts int               // total attempts including the initial try
	BaseDelay   time.Duration     // first backoff step
	MaxDelay    time.Duration     // backoff cap
	ShouldRetry func(Result) bool // predicate; nil means retry transient kinds
}

type retryTransport struct {
	inner  Transport
	policy RetryPolicy
	jitter jitterSource
}

// WithRetry wraps a Transport so transient results are retried with
// exponential backoff and jitter. The wrapped transport still yields exactly
// one Result per Issue call.
func WithRetry(inner Transport, policy RetryPolicy) Transport {
	if policy.MaxAttempts <= 1 {
		return inner
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 5 * time.Second
	}
	if policy.ShouldRetry == nil {
		policy.ShouldRetry = func(res Result) bool {
			return res.Kind == KindTimeout || res.Kind == KindConnectionFailure
		}
	}
	return &retryTransport{
		inner:  inner,
		policy: policy,
		jitter: jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))},
	}
}

func (r *retryTransport) Issue(ctx context.Context, req Request) Result {
	var last Result
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		last = r.inner.Issue(ctx, req)
		if attempt == r.policy.MaxAttempts || !r.policy.ShouldRetry(last) {
			return last
		}

		backoff := time.Duration(1<<uint(attempt-1)) * r.policy.BaseDelay
		if backoff > r.policy.MaxDelay {
			backoff = r.policy.MaxDelay
		}
		select {
		case <-time.After(backoff + r.jitter.jitter(backoff/2)):
		case <-ctx.Done():
			return last
		}
	}
	return last
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
