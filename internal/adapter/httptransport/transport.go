// Package httptransport implements port.Transport over net/http.
package httptransport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vertextoedge/resumable-http/internal/port"
	"github.com/vertextoedge/resumable-http/internal/resume"
)

// DefaultUserAgent is sent when the request carries no User-Agent
const DefaultUserAgent = "resumable-get/1.0"

// Config contains optional transport configuration
type Config struct {
	UserAgent             string
	SkipTLSVerify         bool
	BufferSizeKB          int           // Read/Write buffer size in KB (default: 256)
	MaxIdleConnsPerHost   int           // default: 50
	DialTimeout           time.Duration // default: 30s
	ResponseHeaderTimeout time.Duration // default: 30s
}

// DefaultConfig returns the default transport configuration
func DefaultConfig() *Config {
	return &Config{
		UserAgent:             DefaultUserAgent,
		BufferSizeKB:          256,
		MaxIdleConnsPerHost:   50,
		DialTimeout:           30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// Transport performs requests with a shared http.Client. It is safe for
// concurrent use by many streams.
type Transport struct {
	client    *http.Client
	userAgent string
}

// Ensure Transport implements port.Transport
var _ port.Transport = (*Transport)(nil)

// New creates a new Transport
func New(cfg *Config) *Transport {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}

	bufferSize := cfg.BufferSizeKB * 1024
	if bufferSize <= 0 {
		bufferSize = def.BufferSizeKB * 1024
	}
	perHost := cfg.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = def.MaxIdleConnsPerHost
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = def.DialTimeout
	}
	headerTimeout := cfg.ResponseHeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = def.ResponseHeaderTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		},
		// Connection pooling
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: perHost,
		IdleConnTimeout:     120 * time.Second,

		WriteBufferSize: bufferSize,
		ReadBufferSize:  bufferSize,

		ForceAttemptHTTP2: true,

		// Byte offsets must match the encoded body on the wire
		DisableCompression: true,

		// Response header timeout (not total download timeout)
		ResponseHeaderTimeout: headerTimeout,
	}

	return &Transport{
		client: &http.Client{
			Transport: transport,
			Timeout:   0, // streams may run for hours
		},
		userAgent: userAgent,
	}
}

// NewWithClient wraps an existing http.Client
func NewWithClient(client *http.Client) *Transport {
	return &Transport{client: client, userAgent: DefaultUserAgent}
}

// Do sends req and returns the response with its body unread
func (t *Transport) Do(ctx context.Context, req *port.Request) (*port.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	return &port.Response{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

// CloseIdleConnections closes pooled connections that are not in use
func (t *Transport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

var (
	defaultOnce      sync.Once
	defaultTransport *Transport
)

// Default returns a process-wide Transport built from DefaultConfig
func Default() *Transport {
	defaultOnce.Do(func() {
		defaultTransport = New(nil)
	})
	return defaultTransport
}

// Get opens a resumable GET stream for url using the default transport
func Get(ctx context.Context, url string, opts ...resume.Option) (*resume.Stream, error) {
	return resume.NewClient(Default(), opts...).Get(ctx, url)
}
