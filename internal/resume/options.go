package resume

import (
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/resumable-http/internal/domain"
)

// ResumeEvent describes one successful resumption
type ResumeEvent struct {
	Endpoint   domain.Endpoint
	Offset     int64
	Attempt    int
	Cause      error
	StatusCode int
}

// Options configures resumption behaviour. The zero value resumes on every
// mid-stream error without pacing and accepts any resumption status.
type Options struct {
	// MaxResumes caps resumptions per logical download. 0 means no cap.
	MaxResumes int

	// ResumeInterval is the minimum time between resumption requests.
	ResumeInterval time.Duration

	// StrictPartialContent rejects resumption responses other than 206.
	StrictPartialContent bool

	// Logger receives debug output about resumptions. Nil disables logging.
	Logger *zap.Logger

	// OnResume is called after each successful resumption.
	OnResume func(ResumeEvent)
}

// Option mutates Options
type Option func(*Options)

// WithMaxResumes sets the resumption cap
func WithMaxResumes(n int) Option {
	return func(o *Options) { o.MaxResumes = n }
}

// WithResumeInterval sets the minimum pacing between resumption requests
func WithResumeInterval(d time.Duration) Option {
	return func(o *Options) { o.ResumeInterval = d }
}

// WithStrictPartialContent requires 206 responses on resumption
func WithStrictPartialContent(strict bool) Option {
	return func(o *Options) { o.StrictPartialContent = strict }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithResumeHook registers a callback invoked after each resumption
func WithResumeHook(fn func(ResumeEvent)) Option {
	return func(o *Options) { o.OnResume = fn }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.MaxResumes < 0 {
		o.MaxResumes = 0
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
