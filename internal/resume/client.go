// Package resume turns an HTTP response body into a stream that survives
// mid-transfer transport failures by re-requesting the remaining byte range.
package resume

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/vertextoedge/resumable-http/internal/domain"
	"github.com/vertextoedge/resumable-http/internal/port"
)

// Client creates resumable streams over a Transport. A Client is safe for
// concurrent use; every stream it returns is independent.
type Client struct {
	transport port.Transport
	opts      []Option
}

// NewClient creates a new Client
func NewClient(transport port.Transport, opts ...Option) *Client {
	return &Client{
		transport: transport,
		opts:      opts,
	}
}

// Get opens a resumable stream for a GET request to url
func (c *Client) Get(ctx context.Context, url string) (*Stream, error) {
	return c.NewRequest(http.MethodGet, url).Send(ctx)
}

// NewRequest starts building a request
func (c *Client) NewRequest(method, url string) *RequestBuilder {
	return &RequestBuilder{
		client: c,
		method: method,
		url:    url,
		header: make(http.Header),
	}
}

// RequestBuilder collects the properties of a request before it is sent
type RequestBuilder struct {
	client *Client
	method string
	url    string
	header http.Header
	opts   []Option
}

// Header adds a request header that is repeated on every resumption
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.header.Add(key, value)
	return b
}

// With adds per-request options on top of the client's
func (b *RequestBuilder) With(opts ...Option) *RequestBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// Send issues the initial request and returns a stream positioned at byte 0.
// A failure of the initial request is returned as is; no retry happens here.
func (b *RequestBuilder) Send(ctx context.Context) (*Stream, error) {
	if b.client.transport == nil {
		return nil, domain.ErrNilTransport
	}
	if b.header.Get(headerRange) != "" {
		return nil, fmt.Errorf("%w: %s header is managed by the stream", domain.ErrInvalidInput, headerRange)
	}

	endpoint, err := domain.NewEndpoint(b.method, b.url, b.header)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.transport.Do(ctx, &port.Request{
		Method: endpoint.Method,
		URL:    endpoint.URL,
		Header: endpoint.HeaderClone(),
	})
	if err != nil {
		return nil, err
	}

	opts := make([]Option, 0, len(b.client.opts)+len(b.opts))
	opts = append(opts, b.client.opts...)
	opts = append(opts, b.opts...)

	return newStream(ctx, b.client.transport, endpoint, resp, buildOptions(opts)), nil
}

// IsSuccess reports whether the stream's initial status is 2xx
func IsSuccess(s *Stream) bool {
	return s.StatusCode() >= 200 && s.StatusCode() < 300
}

// CheckStatus closes s and returns a StatusError when the initial status
// is not 2xx.
func CheckStatus(s *Stream) error {
	if IsSuccess(s) {
		return nil
	}
	_ = s.Close()
	status := strings.TrimSpace(http.StatusText(s.StatusCode()))
	return &domain.StatusError{
		StatusCode: s.StatusCode(),
		Status:     fmt.Sprintf("%d %s", s.StatusCode(), status),
		URL:        s.Endpoint().URL,
	}
}
