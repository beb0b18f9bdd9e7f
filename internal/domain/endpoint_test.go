package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		url        string
		wantMethod string
		wantErr    error
	}{
		{name: "get", method: "GET", url: "http://example.com/a", wantMethod: "GET"},
		{name: "default method", method: "", url: "https://example.com/a", wantMethod: "GET"},
		{name: "lower case method", method: "head", url: "https://example.com/a", wantMethod: "HEAD"},
		{name: "empty url", method: "GET", url: "  ", wantErr: ErrEmptyURL},
		{name: "unsupported scheme", method: "GET", url: "file:///etc/passwd", wantErr: ErrInvalidInput},
		{name: "unparsable url", method: "GET", url: "http://[::1", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := NewEndpoint(tt.method, tt.url, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewEndpoint() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEndpoint() unexpected error = %v", err)
			}
			if ep.Method != tt.wantMethod {
				t.Errorf("Method = %v, want %v", ep.Method, tt.wantMethod)
			}
		})
	}
}

func TestEndpoint_HeaderIsCopied(t *testing.T) {
	h := http.Header{"X-Token": {"a"}}
	ep, err := NewEndpoint("GET", "http://example.com", h)
	if err != nil {
		t.Fatalf("NewEndpoint() error = %v", err)
	}

	h.Set("X-Token", "b")
	if got := ep.Header.Get("X-Token"); got != "a" {
		t.Errorf("endpoint header changed with caller map: got %q", got)
	}

	clone := ep.HeaderClone()
	clone.Set("Range", "bytes=1-")
	if ep.Header.Get("Range") != "" {
		t.Error("HeaderClone() shares storage with endpoint")
	}

	var empty Endpoint
	if empty.HeaderClone() == nil {
		t.Error("HeaderClone() on empty endpoint returned nil")
	}
}

func TestEndpoint_Idempotent(t *testing.T) {
	for method, want := range map[string]bool{"GET": true, "POST": false, "PUT": false, "DELETE": false} {
		ep, err := NewEndpoint(method, "http://example.com", nil)
		if err != nil {
			t.Fatalf("NewEndpoint(%s) error = %v", method, err)
		}
		if got := ep.Idempotent(); got != want {
			t.Errorf("Idempotent(%s) = %v, want %v", method, got, want)
		}
	}
}

func TestDownloadState(t *testing.T) {
	tests := []struct {
		state    DownloadState
		str      string
		terminal bool
	}{
		{StateStreaming, "streaming", false},
		{StateResuming, "resuming", false},
		{StateDone, "done", true},
		{StateFailed, "failed", true},
		{DownloadState(42), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.str {
			t.Errorf("String() = %v, want %v", got, tt.str)
		}
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("%s IsTerminal() = %v, want %v", tt.str, got, tt.terminal)
		}
	}
}

func TestDownloadRecord_Transitions(t *testing.T) {
	ep, _ := NewEndpoint("GET", "http://example.com/f", nil)

	r := NewDownloadRecord("id-1", ep, "/tmp/f")
	if r.Status != RecordStatusRunning {
		t.Fatalf("Status = %v, want running", r.Status)
	}
	if err := r.MarkDone(100, 2); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}
	if r.BytesDownloaded != 100 || r.Resumes != 2 || r.FinishedAt == nil {
		t.Errorf("unexpected record after MarkDone: %+v", r)
	}
	if err := r.MarkFailed(0, 0, "late"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Errorf("MarkFailed() on done record error = %v, want ErrInvalidStateTransition", err)
	}

	f := NewDownloadRecord("id-2", ep, "/tmp/f")
	if err := f.MarkFailed(40, 1, "connection reset"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if f.Status != RecordStatusFailed || f.LastError != "connection reset" {
		t.Errorf("unexpected record after MarkFailed: %+v", f)
	}
	if f.Duration() < 0 {
		t.Errorf("Duration() = %v, want >= 0", f.Duration())
	}
}
