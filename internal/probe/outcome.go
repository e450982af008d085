package probe

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/outboundlb/proxyprobe/internal/transport"
)

// Kind is the closed set of per-task outcomes.
type Kind int

const (
	Success Kind = iota
	Timeout
	ConnectionFailure
	ProxyAuthRequired
	OtherError
)

// Kinds lists every outcome kind in a stable order.
var Kinds = []Kind{Success, Timeout, ConnectionFailure, ProxyAuthRequired, OtherError}

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case ConnectionFailure:
		return "connection_failure"
	case ProxyAuthRequired:
		return "proxy_auth_required"
	case OtherError:
		return "other_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// UnknownKey marks a successful response whose body carried no distribution
// key.
const UnknownKey = "unknown"

// Outcome is the classified result of one task. DistributionKey is set if and
// only if Kind is Success.
type Outcome struct {
	TaskID          int
	Kind            Kind
	DistributionKey string
	Detail          string
	Elapsed         time.Duration
}

// DefaultKeyPath is the JSON path of the backend identity in a successful
// response body. httpbin-style endpoints report the caller's egress address
// under "origin".
const DefaultKeyPath = "origin"

// Classifier maps transport results onto outcome kinds. The mapping is total:
// any result produces exactly one outcome.
type Classifier struct {
	// KeyPath is the gjson path of the distribution key inside a successful
	// response body. Empty means DefaultKeyPath.
	KeyPath string
}

// Classify applies the classification rules in priority order: timeout,
// connection failure, 407, 2xx, everything else.
func (c Classifier) Classify(res transport.Result) (kind Kind, key, detail string) {
	switch res.Kind {
	case transport.KindTimeout:
		return Timeout, "", res.Detail
	case transport.KindConnectionFailure:
		return ConnectionFailure, "", res.Detail
	case transport.KindResponse:
		switch {
		case res.StatusCode == http.StatusProxyAuthRequired:
			return ProxyAuthRequired, "", ""
		case res.StatusCode >= 200 && res.StatusCode < 300:
			return Success, c.distributionKey(res.Body), ""
		default:
			return OtherError, "", fmt.Sprintf("unexpected status %d", res.StatusCode)
		}
	case transport.KindOther:
		return OtherError, "", res.Detail
	default:
		return OtherError, "", fmt.Sprintf("unclassified transport result %v", res.Kind)
	}
}

func (c Classifier) distributionKey(body []byte) string {
	path := c.KeyPath
	if path == "" {
		path = DefaultKeyPath
	}
	val := gjson.GetBytes(body, path)
	if !val.Exists() {
		return UnknownKey
	}
	key := strings.TrimSpace(val.String())
	if key == "" {
		return UnknownKey
	}
	return key
}
