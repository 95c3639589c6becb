// Package transport builds the outbound HTTP client that impersonates the
// Riot client at the TLS and HTTP level.
package transport

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"

	"valauth/internal/autherr"
	"valauth/internal/logging"
)

// DefaultUserAgent identifies the impersonated client build.
const DefaultUserAgent = "RiotClient/60.0.10.4802528.4749685 rso-auth (Windows; 10;;Professional, x64)"

// DefaultTimeout bounds every call made through the client.
const DefaultTimeout = 30 * time.Second

// PseudoHeaderOrder is the HTTP/2 pseudo-header order for all requests.
var PseudoHeaderOrder = []string{
	":method",
	":scheme",
	":authority",
	":path",
}

// headerOrder is the wire order of regular headers.
var headerOrder = []string{
	"user-agent",
	"cookie",
	"content-type",
	"authorization",
	"content-length",
	"accept",
	"accept-encoding",
}

// Response is a fully read provider response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is safe for concurrent use. It carries no cookie jar, so
// concurrent handshakes never observe each other's session cookies.
type Client struct {
	http      tls_client.HttpClient
	userAgent string
	timeout   time.Duration
	suites    []Suite
	proxy     string
}

type options struct {
	cipherSuites []string
	timeout      time.Duration
	proxy        string
	rootCAs      *x509.CertPool
	userAgent    string
}

// Option configures New.
type Option func(*options)

// WithCipherSuites replaces the offered suite list. Names are IANA names.
func WithCipherSuites(names ...string) Option {
	return func(o *options) {
		o.cipherSuites = names
	}
}

// WithTimeout bounds each call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithProxy routes traffic through an outbound proxy in any format
// ParseProxy accepts. An empty string means a direct connection.
func WithProxy(proxy string) Option {
	return func(o *options) {
		o.proxy = proxy
	}
}

// WithRootCAs replaces the system root bundle.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(o *options) {
		o.rootCAs = pool
	}
}

// WithUserAgent overrides the impersonated User-Agent. Empty keeps the default.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// New builds a Client. It performs no I/O. Any failure is a
// ConfigurationError and must not be retried.
func New(opts ...Option) (*Client, error) {
	o := options{
		cipherSuites: DefaultCipherSuites,
		timeout:      DefaultTimeout,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}

	suites, err := LookupSuites(o.cipherSuites)
	if err != nil {
		return nil, err
	}

	rootCAs := o.rootCAs
	if rootCAs == nil {
		rootCAs, err = x509.SystemCertPool()
		if err != nil {
			return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("load system roots: %w", err))
		}
	}

	clientOptions := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds(o.timeout)),
		tls_client.WithClientProfile(newClientProfile(suites)),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithTransportOptions(&tls_client.TransportOptions{
			RootCAs: rootCAs,
		}),
	}

	var proxyDisplay string
	if o.proxy != "" {
		var proxyURL string
		proxyURL, proxyDisplay, err = ParseProxy(o.proxy)
		if err != nil {
			return nil, autherr.New(autherr.ConfigurationError, "transport", err)
		}
		clientOptions = append(clientOptions, tls_client.WithProxyUrl(proxyURL))
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), clientOptions...)
	if err != nil {
		return nil, autherr.New(autherr.ConfigurationError, "transport", err)
	}

	return &Client{
		http:      httpClient,
		userAgent: o.userAgent,
		timeout:   o.timeout,
		suites:    suites,
		proxy:     proxyDisplay,
	}, nil
}

// timeoutSeconds rounds up; tls-client only takes whole seconds. The
// per-call context deadline enforces the exact value.
func timeoutSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// Suites returns the resolved suite list in offer order.
func (c *Client) Suites() []Suite {
	return append([]Suite(nil), c.suites...)
}

// Proxy returns the outbound proxy as host:port, or "" for direct connections.
func (c *Client) Proxy() string {
	return c.proxy
}

// DefaultHeaders returns a fresh copy of the headers sent on every request.
func (c *Client) DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":         {c.userAgent},
		"Cookie":             {""},
		"Content-Type":       {"application/json"},
		http.HeaderOrderKey:  headerOrder,
		http.PHeaderOrderKey: PseudoHeaderOrder,
	}
}

// Send issues one request. body, when non-nil, is sent as JSON. header
// values replace the defaults key by key. Transport failures and timeouts
// come back as NetworkError; the response status is never interpreted here.
func (c *Client) Send(ctx context.Context, method, url string, header http.Header, body any) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, autherr.New(autherr.ConfigurationError, "transport", fmt.Errorf("build request: %w", err))
	}

	req.Header = c.DefaultHeaders()
	for key, values := range header {
		req.Header[http.CanonicalHeaderKey(key)] = values
	}

	return c.doRequest(ctx, req)
}

// doRequest executes req, logs "METHOD path -> status" and reads the body.
func (c *Client) doRequest(ctx context.Context, req *http.Request) (*Response, error) {
	logger := logging.FromContext(ctx)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.DebugContext(ctx, fmt.Sprintf("%s %s -> error", req.Method, req.URL.Path),
			"timeout", autherr.IsTimeout(err), "error", err)
		return nil, autherr.New(autherr.NetworkError, "transport", err)
	}
	defer resp.Body.Close()

	logger.DebugContext(ctx, fmt.Sprintf("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode))

	data, err := readResponseBody(resp)
	if err != nil {
		return nil, autherr.New(autherr.NetworkError, "transport", fmt.Errorf("read response body: %w", err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// readResponseBody decompresses and reads the full response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}
