// Package probe dispatches batches of proxy-validation requests and turns
// every transport result into exactly one classified outcome.
package probe

import (
	"net/url"
	"time"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// Task is one unit of work: a single request to Target routed through Proxy.
// Tasks are immutable once built.
type Task struct {
	ID          int
	Target      *url.URL
	Proxy       *url.URL
	Credentials *transport.Credentials
	Timeout     time.Duration
}

func (t Task) request() transport.Request {
	return transport.Request{
		ID:          t.ID,
		Target:      t.Target,
		Proxy:       t.Proxy,
		Credentials: t.Credentials,
		Timeout:     t.Timeout,
	}
}

// Tasks builds n identical tasks with sequential IDs. This is the common
// shape for a validation batch: same target, same proxy, n samples.
func Tasks(n int, target, proxy *url.URL, creds *transport.Credentials, timeout time.Duration) []Task {
	if n < 0 {
		n = 0
	}
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			ID:          i,
			Target:      target,
			Proxy:       proxy,
			Credentials: creds,
			Timeout:     timeout,
		}
	}
	return tasks
}
