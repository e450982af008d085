package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestIssueReturnsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"origin":"1.2.3.4"}`))
	}))
	t.Cleanup(srv.Close)

	tr := transport.NewHTTPTransport()
	res := tr.Issue(context.Background(), transport.Request{
		Target:  mustParse(t, srv.URL),
		Timeout: 5 * time.Second,
	})

	if res.Kind != transport.KindResponse {
		t.Fatalf("expected response, got %s (%s)", res.Kind, res.Detail)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}
	if string(res.Body) != `{"origin":"1.2.3.4"}` {
		t.Errorf("unexpected body %q", res.Body)
	}
}

func TestIssueReportsProxyAuthStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	t.Cleanup(srv.Close)

	tr := transport.NewHTTPTransport()
	res := tr.Issue(context.Background(), transport.Request{Target: mustParse(t, srv.URL)})

	if res.Kind != transport.KindResponse {
		t.Fatalf("expected response, got %s", res.Kind)
	}
	if res.StatusCode != http.StatusProxyAuthRequired {
		t.Errorf("expected status 407, got %d", res.StatusCode)
	}
}

func TestIssueTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	tr := transport.NewHTTPTransport()
	res := tr.Issue(context.Background(), transport.Request{
		Target:  mustParse(t, srv.URL),
		Timeout: 20 * time.Millisecond,
	})

	if res.Kind != transport.KindTimeout {
		t.Fatalf("expected timeout, got %s (%s)", res.Kind, res.Detail)
	}
}

func TestIssueReportsConnectionFailure(t *testing.T) {
	// Grab a port that is guaranteed closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	addr := srv.URL
	srv.Close()

	tr := transport.NewHTTPTransport()
	res := tr.Issue(context.Background(), transport.Request{
		Target:  mustParse(t, addr),
		Timeout: 2 * time.Second,
	})

	if res.Kind != transport.KindConnectionFailure {
		t.Fatalf("expected connection failure, got %s (%s)", res.Kind, res.Detail)
	}
	if res.Detail == "" {
		t.Error("expected a diagnostic detail for connection failure")
	}
}

func TestIssueRoutesThroughProxy(t *testing.T) {
	// The "proxy" answers every absolute-form request itself, so a response
	// proves the request was routed through it rather than sent directly.
	var sawProxyRequest bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.IsAbs() {
			sawProxyRequest = true
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"origin":"proxy-a"}`))
	}))
	t.Cleanup(proxy.Close)

	tr := transport.NewHTTPTransport()
	res := tr.Issue(context.Background(), transport.Request{
		Target:  mustParse(t, "http://upstream.invalid/ip"),
		Proxy:   mustParse(t, proxy.URL),
		Timeout: 5 * time.Second,
	})

	if res.Kind != transport.KindResponse {
		t.Fatalf("expected response via proxy, got %s (%s)", res.Kind, res.Detail)
	}
	if !sawProxyRequest {
		t.Error("proxy never saw an absolute-form request")
	}
}

func TestIssueSendsProxyCredentials(t *testing.T) {
	var gotAuth string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(proxy.Close)

	tr := transport.NewHTTPTransport()
	res := tr.Issue(context.Background(), transport.Request{
		Target:      mustParse(t, "http://upstream.invalid/ip"),
		Proxy:       mustParse(t, proxy.URL),
		Credentials: &transport.Credentials{Username: "user", Password: "password"},
		Timeout:     5 * time.Second,
	})

	if res.Kind != transport.KindResponse {
		t.Fatalf("expected response, got %s (%s)", res.Kind, res.Detail)
	}
	if gotAuth == "" {
		t.Error("expected Proxy-Authorization header on the proxied request")
	}
}

func TestProxyURLMergesCredentials(t *testing.T) {
	req := transport.Request{
		Proxy:       mustParse(t, "http://proxy.local:3128"),
		Credentials: &transport.Credentials{Username: "u", Password: "p"},
	}
	u := req.ProxyURL()
	if u.User == nil {
		t.Fatal("expected userinfo on proxy URL")
	}
	if u.User.Username() != "u" {
		t.Errorf("unexpected username %q", u.User.Username())
	}
	// The original request URL must stay untouched.
	if req.Proxy.User != nil {
		t.Error("Request.Proxy was mutated")
	}
}
