package domain

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint is the method and URL a logical download was created with.
// It is reused verbatim for every resumption request.
type Endpoint struct {
	Method string
	URL    string
	Header http.Header
}

// NewEndpoint validates method and rawURL and returns an Endpoint.
// An empty method defaults to GET.
func NewEndpoint(method, rawURL string, header http.Header) (Endpoint, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Endpoint{}, ErrEmptyURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}
	if method == "" {
		method = http.MethodGet
	}

	return Endpoint{
		Method: strings.ToUpper(method),
		URL:    u.String(),
		Header: header.Clone(),
	}, nil
}

// Idempotent reports whether requests to this endpoint may be replayed
// with a Range header.
func (e Endpoint) Idempotent() bool {
	return e.Method == http.MethodGet
}

// HeaderClone returns a copy of the extra request headers, never nil.
func (e Endpoint) HeaderClone() http.Header {
	if e.Header == nil {
		return make(http.Header)
	}
	return e.Header.Clone()
}

func (e Endpoint) String() string {
	return e.Method + " " + e.URL
}
