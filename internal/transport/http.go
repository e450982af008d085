package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"syscall"
	"time"
)

const maxBodyReadSize = 1024 * 1024

// HTTPTransport issues probe requests with net/http. One underlying
// http.Transport is kept per proxy endpoint so connections are reused across
// tasks that share a proxy.
type HTTPTransport struct {
	mu         sync.Mutex
	transports map[string]*http.Transport
	userAgent  string
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		transports: make(map[string]*http.Transport),
		userAgent:  "proxyprobe",
	}
}

// Issue performs a GET against req.Target through req.Proxy, honoring
// req.Timeout. The returned Result covers every possible fault.
func (t *HTTPTransport) Issue(ctx context.Context, req Request) Result {
	if req.Target == nil {
		return Other("request has no target URL")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Target.String(), nil)
	if err != nil {
		return Other("build request: " + err.Error())
	}
	httpReq.Header.Set("User-Agent", t.userAgent)

	client := &http.Client{Transport: t.transportFor(req.ProxyURL())}
	resp, err := client.Do(httpReq)
	if err != nil {
		return resultFromError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	if err != nil {
		// A timeout while streaming the body is still a timeout.
		if r := resultFromError(err); r.Kind == KindTimeout {
			return r
		}
		body = nil
	}
	return Response(resp.StatusCode, body)
}

// transportFor returns the cached http.Transport for the given proxy endpoint,
// creating it on first use. A nil proxy yields a direct transport.
func (t *HTTPTransport) transportFor(proxy *url.URL) *http.Transport {
	key := ""
	if proxy != nil {
		key = proxy.String()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cached, ok := t.transports[key]; ok {
		return cached
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxy)
	}
	t.transports[key] = tr
	return tr
}

// resultFromError maps a client error onto the Result union. Order matters:
// timeouts are checked before the broader connection-failure classes because
// net errors can satisfy both.
func resultFromError(err error) Result {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout("deadline exceeded")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(netErr.Error())
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectionFailure("dns: " + dnsErr.Error())
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ConnectionFailure(err.Error())
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return ConnectionFailure("tls: " + recordErr.Error())
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ConnectionFailure("tls: " + certErr.Error())
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ConnectionFailure(opErr.Error())
	}

	return Other(err.Error())
}
