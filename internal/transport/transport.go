// Package transport issues single HTTP requests through a forward proxy and
// reports every outcome as a closed result set, never as a raw error.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// ResultKind identifies which arm of the Result union is populated.
type ResultKind int

const (
	// KindResponse means the request completed and an HTTP response came back.
	KindResponse ResultKind = iota
	// KindTimeout means the request exceeded its per-request deadline.
	KindTimeout
	// KindConnectionFailure means the connection could not be established:
	// DNS resolution, refused connection, or TLS handshake failure.
	KindConnectionFailure
	// KindOther covers any transport fault that fits none of the above.
	KindOther
)

func (k ResultKind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindTimeout:
		return "timeout"
	case KindConnectionFailure:
		return "connection_failure"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("result_kind(%d)", int(k))
	}
}

// Result is the tagged union produced by a Transport. StatusCode and Body are
// meaningful only for KindResponse; Detail only for the failure kinds.
type Result struct {
	Kind       ResultKind
	StatusCode int
	Body       []byte
	Detail     string
}

// Response builds a completed-response result.
func Response(status int, body []byte) Result {
	return Result{Kind: KindResponse, StatusCode: status, Body: body}
}

// Timeout builds a deadline-exceeded result.
func Timeout(detail string) Result {
	return Result{Kind: KindTimeout, Detail: detail}
}

// ConnectionFailure builds a connection-establishment failure result.
func ConnectionFailure(detail string) Result {
	return Result{Kind: KindConnectionFailure, Detail: detail}
}

// Other builds a catch-all failure result.
func Other(detail string) Result {
	return Result{Kind: KindOther, Detail: detail}
}

// Credentials are proxy basic-auth credentials.
type Credentials struct {
	Username string
	Password string
}

// Request describes one probe request. Proxy is the forward proxy endpoint the
// request must be routed through; Credentials, when set, are attached to the
// proxy URL as userinfo.
type Request struct {
	ID          int
	Target      *url.URL
	Proxy       *url.URL
	Credentials *Credentials
	Timeout     time.Duration
}

// ProxyURL returns the proxy endpoint with credentials applied, or nil when no
// proxy is configured.
func (r Request) ProxyURL() *url.URL {
	if r.Proxy == nil {
		return nil
	}
	if r.Credentials == nil {
		return r.Proxy
	}
	u := *r.Proxy
	u.User = url.UserPassword(r.Credentials.Username, r.Credentials.Password)
	return &u
}

// Transport issues a request and reports the outcome. Implementations must be
// total: every fault is encoded in the Result, none escapes as an error or a
// panic. Implementations must be safe for concurrent use.
type Transport interface {
	Issue(ctx context.Context, req Request) Result
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req Request) Result

func (f Func) Issue(ctx context.Context, req Request) Result { return f(ctx, req) }
