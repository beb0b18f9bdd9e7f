package port

import (
	"context"
	"io"
	"net/http"
)

// Request is one physical request issued through a Transport
type Request struct {
	Method string
	URL    string
	Header http.Header
}

// Response is one physical response. Body must be closed by the receiver.
type Response struct {
	StatusCode    int
	Status        string
	Header        http.Header
	ContentLength int64 // -1 when unknown
	Body          io.ReadCloser
}

// Transport issues requests and returns live responses.
// Implementations must be safe for concurrent use by many streams.
type Transport interface {
	// Do issues req and returns once response headers have arrived.
	// Non-2xx statuses are returned as responses, not errors.
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req)
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
