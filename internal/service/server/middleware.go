package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// statusRecorder tracks what a handler sent so the access log can tell
// complete responses from truncated ones.
type statusRecorder struct {
	http.ResponseWriter
	status int
	sent   int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.sent += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying connection
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// truncated reports whether fewer body bytes went out than the
// Content-Length the handler declared
func (sr *statusRecorder) truncated() bool {
	declared, err := strconv.ParseInt(sr.Header().Get("Content-Length"), 10, 64)
	return err == nil && sr.sent < declared
}

// LoggingMiddleware logs every request with its Range header. Range
// requests and truncated responses are logged at info so resumptions are
// visible at the default level.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			rangeHeader := r.Header.Get("Range")
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", rec.status),
				zap.Int64("bytes", rec.sent),
				zap.Duration("duration", time.Since(start)),
			}
			if rangeHeader != "" {
				fields = append(fields, zap.String("range", rangeHeader))
			}

			switch {
			case rec.truncated():
				logger.Info("response truncated", fields...)
			case rangeHeader != "":
				logger.Info("range request served", fields...)
			default:
				logger.Debug("request served", fields...)
			}
		})
	}
}

// BasicAuthMiddleware rejects requests without the configured credentials
func BasicAuthMiddleware(username, password string, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	wantUser := []byte(username)
	wantPass := []byte(password)

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok &&
				subtle.ConstantTimeCompare([]byte(user), wantUser) == 1 &&
				subtle.ConstantTimeCompare([]byte(pass), wantPass) == 1 {
				next(w, r)
				return
			}

			if ok {
				logger.Warn("rejected debug credentials",
					zap.String("username", user),
					zap.String("remote_addr", r.RemoteAddr))
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="resumable-get debug"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}
}
