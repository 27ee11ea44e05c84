package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jmes "github.com/jmespath/go-jmespath"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"portalgate/pkg/metrics"
)

// DefaultAuthServer hosts the platform's OAuth and app.info endpoints.
const DefaultAuthServer = "https://oauth.bitrix.info"

// DefaultTimeout bounds a single app.info call.
const DefaultTimeout = 10 * time.Second

var ErrLookup = errors.New("portal lookup failed")

// Install is the portal identity reported by app.info.
type Install struct {
	Domain   string `json:"domain"`
	MemberID string `json:"member_id"`
}

// Lookup redeems a placement AUTH_ID for the installing portal's identity.
type Lookup interface {
	AppInfo(ctx context.Context, authID string) (Install, error)
}

// Client calls GET {base}/rest/app.info?auth=<auth_id>.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAuthServer
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (c *Client) AppInfo(ctx context.Context, authID string) (Install, error) {
	start := time.Now()
	inst, err := c.appInfo(ctx, authID)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ObservePortalLookup(result, time.Since(start))
	return inst, err
}

func (c *Client) appInfo(ctx context.Context, authID string) (Install, error) {
	u := c.base + "/rest/app.info?" + url.Values{"auth": {authID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Install{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Install{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Install{}, fmt.Errorf("%w: status %d", ErrLookup, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Install{}, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return Install{}, fmt.Errorf("%w: decode: %v", ErrLookup, err)
	}
	return Install{
		Domain:   searchString("result.install.domain", doc),
		MemberID: searchString("result.install.member_id", doc),
	}, nil
}

// searchString evaluates a JMESPath expression; missing keys and non-scalar
// values yield "".
func searchString(expr string, doc any) string {
	v, err := jmes.Search(expr, doc)
	if err != nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
