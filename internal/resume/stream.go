package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vertextoedge/resumable-http/internal/domain"
	"github.com/vertextoedge/resumable-http/internal/port"
)

// Stream is the body of one logical download. It reads from the current
// physical response and, when that response fails mid-transfer on a server
// that advertised byte ranges, reissues the request from the last delivered
// byte and continues reading from the replacement.
//
// A Stream has a single consumer; it is not safe for concurrent Reads.
type Stream struct {
	ctx       context.Context
	transport port.Transport
	endpoint  domain.Endpoint
	opts      Options
	logger    *zap.Logger
	limiter   *rate.Limiter

	// initial response metadata
	statusCode    int
	header        http.Header
	contentLength int64

	// computed once from the initial response
	acceptsRanges bool

	body    io.ReadCloser
	pending error
	pos     Position
	resumes int
	state   domain.DownloadState
	err     error
	closed  bool
}

var _ io.ReadCloser = (*Stream)(nil)

func newStream(ctx context.Context, transport port.Transport, endpoint domain.Endpoint, resp *port.Response, opts Options) *Stream {
	s := &Stream{
		ctx:           ctx,
		transport:     transport,
		endpoint:      endpoint,
		opts:          opts,
		logger:        opts.Logger.With(zap.String("method", endpoint.Method), zap.String("url", endpoint.URL)),
		statusCode:    resp.StatusCode,
		header:        resp.Header,
		contentLength: resp.ContentLength,
		acceptsRanges: endpoint.Idempotent() && AcceptsByteRanges(resp.Header),
		body:          resp.Body,
		state:         domain.StateStreaming,
	}
	if opts.ResumeInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(opts.ResumeInterval), 1)
	}
	if s.body == nil {
		s.body = http.NoBody
	}
	return s
}

// Read delivers the next bytes of the logical download. Mid-stream
// transport errors are hidden when resumption succeeds. After io.EOF or a
// returned error the stream is terminal and every later Read returns the
// same result without touching the network.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, domain.ErrStreamClosed
	}
	if s.state.IsTerminal() {
		return 0, s.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		var err error
		if s.pending != nil {
			err, s.pending = s.pending, nil
		} else {
			var n int
			n, err = s.body.Read(p)
			if n > 0 {
				s.pos.Advance(int64(n))
				// handle the error on the next call so these bytes are delivered first
				s.pending = err
				return n, nil
			}
			if err == nil {
				return 0, nil
			}
		}

		if errors.Is(err, io.EOF) {
			s.finish(domain.StateDone, io.EOF)
			return 0, io.EOF
		}

		if rerr := s.resume(err); rerr != nil {
			if rerr == io.EOF {
				s.finish(domain.StateDone, io.EOF)
			} else {
				s.finish(domain.StateFailed, rerr)
			}
			return 0, s.err
		}
	}
}

// resume replaces the active response after cause. A nil return means
// reading can continue from s.body.
func (s *Stream) resume(cause error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	offset := s.pos.Current()
	if !s.acceptsRanges {
		s.logger.Debug("stream not resumable, server did not advertise byte ranges",
			zap.Int64("offset", offset),
			zap.Error(cause))
		return cause
	}
	if s.opts.MaxResumes > 0 && s.resumes >= s.opts.MaxResumes {
		s.logger.Debug("stream resume limit reached",
			zap.Int("max_resumes", s.opts.MaxResumes),
			zap.Int64("offset", offset),
			zap.Error(cause))
		return cause
	}
	if s.complete(offset) {
		s.logger.Debug("transport error after full content delivered",
			zap.Int64("offset", offset),
			zap.Error(cause))
		return io.EOF
	}

	s.state = domain.StateResuming
	attempt := s.resumes + 1

	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return context.DeadlineExceeded
		}
	}

	s.logger.Debug("resuming stream",
		zap.Int64("offset", offset),
		zap.Int("attempt", attempt),
		zap.Error(cause))

	req := &port.Request{
		Method: s.endpoint.Method,
		URL:    s.endpoint.URL,
		Header: s.endpoint.HeaderClone(),
	}
	req.Header.Set(headerRange, openRange(offset))

	resp, err := s.transport.Do(s.ctx, req)
	if err != nil {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.NewResumeError(offset, attempt, cause, err)
	}
	if s.opts.StrictPartialContent && resp.StatusCode != http.StatusPartialContent {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return domain.NewResumeError(offset, attempt, cause,
			fmt.Errorf("%w: %d", domain.ErrNotPartial, resp.StatusCode))
	}

	old := s.body
	s.body = resp.Body
	if s.body == nil {
		s.body = http.NoBody
	}
	_ = old.Close()

	s.resumes = attempt
	s.state = domain.StateStreaming

	if s.opts.OnResume != nil {
		s.opts.OnResume(ResumeEvent{
			Endpoint:   s.endpoint,
			Offset:     offset,
			Attempt:    attempt,
			Cause:      cause,
			StatusCode: resp.StatusCode,
		})
	}
	return nil
}

// complete reports whether offset already covers the whole resource as
// declared by a full (200) initial response.
func (s *Stream) complete(offset int64) bool {
	return s.statusCode == http.StatusOK && s.contentLength >= 0 && offset >= s.contentLength
}

func (s *Stream) finish(state domain.DownloadState, err error) {
	s.state = state
	s.err = err
	s.pending = nil
	_ = s.body.Close()
}

// Close releases the active response. Reads after Close return
// domain.ErrStreamClosed.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.state.IsTerminal() {
		return nil
	}
	s.state = domain.StateFailed
	s.err = domain.ErrStreamClosed
	return s.body.Close()
}

// Position returns the number of bytes delivered so far
func (s *Stream) Position() int64 {
	return s.pos.Current()
}

// State returns the current download state
func (s *Stream) State() domain.DownloadState {
	return s.state
}

// Err returns the terminal error, nil while streaming or after a clean end
func (s *Stream) Err() error {
	if s.state == domain.StateFailed {
		return s.err
	}
	return nil
}

// Resumes returns how many times the stream was resumed
func (s *Stream) Resumes() int {
	return s.resumes
}

// AcceptsRanges returns the cached range capability verdict
func (s *Stream) AcceptsRanges() bool {
	return s.acceptsRanges
}

// StatusCode returns the status code of the initial response
func (s *Stream) StatusCode() int {
	return s.statusCode
}

// Header returns the headers of the initial response
func (s *Stream) Header() http.Header {
	return s.header
}

// ContentLength returns the initial response length, -1 if unknown
func (s *Stream) ContentLength() int64 {
	return s.contentLength
}

// Endpoint returns the method and URL the stream was opened with
func (s *Stream) Endpoint() domain.Endpoint {
	return s.endpoint
}
