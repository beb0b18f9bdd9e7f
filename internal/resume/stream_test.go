package resume

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertextoedge/resumable-http/internal/domain"
	"github.com/vertextoedge/resumable-http/internal/port"
)

var (
	errReset   = errors.New("connection reset by peer")
	errRefused = errors.New("connection refused")
)

// fakeOrigin serves content from memory. Each physical response takes the
// next entry of failAt and breaks when its read offset reaches it.
type fakeOrigin struct {
	mu sync.Mutex

	content     []byte
	ranges      bool
	ignoreRange bool
	chunk       int
	failAt      []int64
	dataWithErr bool
	refuseAfter int // requests beyond this count fail to connect; 0 disables

	requests []*port.Request
}

func newFakeOrigin(size int, ranges bool, failAt ...int64) *fakeOrigin {
	return &fakeOrigin{
		content: testContent(size),
		ranges:  ranges,
		failAt:  failAt,
	}
}

func testContent(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func (o *fakeOrigin) Do(ctx context.Context, req *port.Request) (*port.Response, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.requests = append(o.requests, req)
	if o.refuseAfter > 0 && len(o.requests) > o.refuseAfter {
		return nil, errRefused
	}

	var start int64
	status := http.StatusOK
	if r := req.Header.Get("Range"); r != "" && !o.ignoreRange {
		if _, err := fmt.Sscanf(r, "bytes=%d-", &start); err != nil {
			return nil, err
		}
		status = http.StatusPartialContent
	}

	header := make(http.Header)
	if o.ranges {
		header.Set("Accept-Ranges", "bytes")
	}

	failAt := int64(-1)
	if len(o.failAt) > 0 {
		failAt, o.failAt = o.failAt[0], o.failAt[1:]
	}

	return &port.Response{
		StatusCode:    status,
		Header:        header,
		ContentLength: int64(len(o.content)) - start,
		Body: &faultyBody{
			data:        o.content[start:],
			offset:      start,
			failAt:      failAt,
			chunk:       o.chunk,
			dataWithErr: o.dataWithErr,
		},
	}, nil
}

func (o *fakeOrigin) requestCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}

func (o *fakeOrigin) rangeHeaders() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, r := range o.requests {
		out = append(out, r.Header.Get("Range"))
	}
	return out
}

type faultyBody struct {
	data        []byte
	offset      int64
	failAt      int64
	chunk       int
	dataWithErr bool
	closed      bool
}

func (b *faultyBody) Read(p []byte) (int, error) {
	if b.closed {
		return 0, errors.New("read on closed body")
	}
	if b.failAt >= 0 && b.offset >= b.failAt {
		return 0, errReset
	}
	if len(b.data) == 0 {
		return 0, io.EOF
	}

	n := len(p)
	if b.chunk > 0 && n > b.chunk {
		n = b.chunk
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	if b.failAt >= 0 && b.offset+int64(n) > b.failAt {
		n = int(b.failAt - b.offset)
	}

	copy(p, b.data[:n])
	b.data = b.data[n:]
	b.offset += int64(n)

	if b.dataWithErr && b.failAt >= 0 && b.offset == b.failAt {
		return n, errReset
	}
	return n, nil
}

func (b *faultyBody) Close() error {
	b.closed = true
	return nil
}

func TestStream_ResumesAfterMidStreamError(t *testing.T) {
	origin := newFakeOrigin(1000, true, 400)

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)

	assert.Equal(t, origin.content, got)
	assert.Equal(t, []string{"", "bytes=400-"}, origin.rangeHeaders())
	assert.Equal(t, int64(1000), s.Position())
	assert.Equal(t, 1, s.Resumes())
	assert.Equal(t, domain.StateDone, s.State())
}

func TestStream_NoRangeSupportSurfacesOriginalError(t *testing.T) {
	origin := newFakeOrigin(1000, false, 400)

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.ErrorIs(t, err, errReset)
	assert.Same(t, errReset, err)

	assert.Equal(t, origin.content[:400], got)
	assert.Equal(t, 1, origin.requestCount())
	assert.Equal(t, domain.StateFailed, s.State())
	assert.False(t, s.AcceptsRanges())
}

func TestStream_ResumeConnectFailure(t *testing.T) {
	origin := newFakeOrigin(1000, true, 400)
	origin.refuseAfter = 1

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.Error(t, err)

	assert.Equal(t, origin.content[:400], got)
	assert.ErrorIs(t, err, errRefused)
	assert.NotErrorIs(t, err, errReset)
	assert.True(t, domain.IsResumeError(err))

	var re *domain.ResumeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(400), re.Offset)
	assert.Equal(t, 1, re.Attempt)
	assert.Same(t, errReset, re.Cause)

	assert.Equal(t, 2, origin.requestCount())
	assert.Equal(t, domain.StateFailed, s.State())
}

func TestStream_CleanEndSingleRequest(t *testing.T) {
	origin := newFakeOrigin(1000, true)

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, origin.content, got)

	n, err := s.Read(make([]byte, 10))
	assert.Zero(t, n)
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, 1, origin.requestCount())
	assert.Equal(t, 0, s.Resumes())
	assert.NoError(t, s.Err())
}

func TestStream_Gapless(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		chunk  int
		failAt []int64
	}{
		{name: "error at first byte", size: 100, chunk: 0, failAt: []int64{0}},
		{name: "consecutive offsets", size: 512, chunk: 7, failAt: []int64{100, 250, 251, 252}},
		{name: "error before last byte", size: 300, chunk: 64, failAt: []int64{299}},
		{name: "error on every physical response", size: 64, chunk: 3, failAt: []int64{5, 10, 20, 30, 40, 50, 60, 63}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := newFakeOrigin(tt.size, true, tt.failAt...)
			origin.chunk = tt.chunk

			s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
			require.NoError(t, err)
			defer s.Close()

			got, err := io.ReadAll(s)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(origin.content, got), "content mismatch")
			assert.Equal(t, len(tt.failAt), s.Resumes())
		})
	}
}

func TestStream_GaplessRandomFaults(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		size := 1 + rng.Intn(4096)
		var failAt []int64
		offset := int64(0)
		for offset < int64(size) && len(failAt) < 8 {
			offset += int64(rng.Intn(size/4 + 1))
			if offset >= int64(size) {
				break
			}
			failAt = append(failAt, offset)
		}

		origin := newFakeOrigin(size, true, failAt...)
		origin.chunk = 1 + rng.Intn(97)
		origin.dataWithErr = rng.Intn(2) == 0

		s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
		require.NoError(t, err)

		buf := make([]byte, 1+rng.Intn(128))
		var got []byte
		for {
			n, err := s.Read(buf)
			got = append(got, buf[:n]...)
			if err == io.EOF {
				break
			}
			require.NoError(t, err, "iteration %d", i)
		}
		require.Equal(t, origin.content, got, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestStream_PositionMatchesDeliveredBytesAtResume(t *testing.T) {
	origin := newFakeOrigin(2048, true, 10, 700, 1500)
	origin.chunk = 33

	var delivered int64
	var offsets []int64
	client := NewClient(origin, WithResumeHook(func(ev ResumeEvent) {
		assert.Equal(t, delivered, ev.Offset)
		offsets = append(offsets, ev.Offset)
	}))

	s, err := client.Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 50)
	last := int64(0)
	for {
		n, err := s.Read(buf)
		delivered += int64(n)
		require.GreaterOrEqual(t, s.Position(), last)
		last = s.Position()
		assert.Equal(t, delivered, s.Position())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{10, 700, 1500}, offsets)
	assert.Equal(t, []string{"", "bytes=10-", "bytes=700-", "bytes=1500-"}, origin.rangeHeaders())
}

func TestStream_DataReturnedWithError(t *testing.T) {
	origin := newFakeOrigin(100, true, 40)
	origin.dataWithErr = true

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 100)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, 1, origin.requestCount())

	rest, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, origin.content, append(buf[:n], rest...))
	assert.Equal(t, []string{"", "bytes=40-"}, origin.rangeHeaders())
}

func TestStream_TerminalStatesDoNotIssueRequests(t *testing.T) {
	t.Run("failed", func(t *testing.T) {
		origin := newFakeOrigin(1000, false, 400)
		s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
		require.NoError(t, err)

		_, err = io.ReadAll(s)
		require.ErrorIs(t, err, errReset)

		for i := 0; i < 3; i++ {
			n, err := s.Read(make([]byte, 16))
			assert.Zero(t, n)
			assert.ErrorIs(t, err, errReset)
		}
		assert.Equal(t, 1, origin.requestCount())
	})

	t.Run("resume failed", func(t *testing.T) {
		origin := newFakeOrigin(1000, true, 400)
		origin.refuseAfter = 1
		s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
		require.NoError(t, err)

		_, err = io.ReadAll(s)
		require.ErrorIs(t, err, errRefused)

		_, err = s.Read(make([]byte, 16))
		assert.ErrorIs(t, err, errRefused)
		assert.Equal(t, 2, origin.requestCount())
	})
}

func TestStream_CancellationFailsWithoutResume(t *testing.T) {
	origin := newFakeOrigin(1000, true, 400)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewClient(origin).Get(ctx, "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 400)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)

	cancel()

	n, err := s.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StateFailed, s.State())
	assert.Equal(t, int64(400), s.Position())
	assert.Equal(t, 1, origin.requestCount())
}

func TestStream_MaxResumes(t *testing.T) {
	origin := newFakeOrigin(1000, true, 100, 200, 300)

	s, err := NewClient(origin, WithMaxResumes(2)).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.ErrorIs(t, err, errReset)
	assert.Equal(t, origin.content[:300], got)
	assert.Equal(t, 3, origin.requestCount())
	assert.Equal(t, 2, s.Resumes())
}

func TestStream_StrictPartialContent(t *testing.T) {
	t.Run("rejects full response", func(t *testing.T) {
		origin := newFakeOrigin(1000, true, 400)
		origin.ignoreRange = true

		s, err := NewClient(origin, WithStrictPartialContent(true)).Get(context.Background(), "http://example.com/file.bin")
		require.NoError(t, err)
		defer s.Close()

		got, err := io.ReadAll(s)
		require.ErrorIs(t, err, domain.ErrNotPartial)
		assert.True(t, domain.IsResumeError(err))
		assert.Len(t, got, 400)
	})

	t.Run("accepts any status when lenient", func(t *testing.T) {
		origin := newFakeOrigin(1000, true, 400)
		origin.ignoreRange = true

		s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
		require.NoError(t, err)
		defer s.Close()

		got, err := io.ReadAll(s)
		require.NoError(t, err)
		// the origin replayed from byte 0, which a lenient stream splices in as is
		assert.Len(t, got, 1400)
	})
}

func TestStream_ErrorAfterFullContentEndsCleanly(t *testing.T) {
	origin := newFakeOrigin(1000, true, 1000)

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, origin.content, got)
	assert.Equal(t, 1, origin.requestCount())
	assert.Equal(t, domain.StateDone, s.State())
}

func TestStream_NonIdempotentMethodNotResumed(t *testing.T) {
	origin := newFakeOrigin(1000, true, 400)

	s, err := NewClient(origin).NewRequest(http.MethodPost, "http://example.com/file.bin").Send(context.Background())
	require.NoError(t, err)
	defer s.Close()

	_, err = io.ReadAll(s)
	require.ErrorIs(t, err, errReset)
	assert.False(t, s.AcceptsRanges())
	assert.Equal(t, 1, origin.requestCount())
}

func TestStream_ResumeInterval(t *testing.T) {
	origin := newFakeOrigin(300, true, 100, 200)
	interval := 50 * time.Millisecond

	s, err := NewClient(origin, WithResumeInterval(interval)).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	start := time.Now()
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, origin.content, got)
	assert.GreaterOrEqual(t, time.Since(start), interval-10*time.Millisecond)
}

func TestStream_ResumeIntervalHonoursCancellation(t *testing.T) {
	origin := newFakeOrigin(300, true, 100, 200)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	s, err := NewClient(origin, WithResumeInterval(time.Hour)).Get(ctx, "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, got, 200)
	assert.Equal(t, 2, origin.requestCount())
}

func TestStream_Close(t *testing.T) {
	origin := newFakeOrigin(100, true)

	s, err := NewClient(origin).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Read(make([]byte, 10))
	assert.ErrorIs(t, err, domain.ErrStreamClosed)
	assert.Equal(t, 1, origin.requestCount())
}

func TestStream_ExtraHeadersRepeatedOnResume(t *testing.T) {
	origin := newFakeOrigin(100, true, 50)

	s, err := NewClient(origin).
		NewRequest(http.MethodGet, "http://example.com/file.bin").
		Header("Authorization", "Bearer token").
		Send(context.Background())
	require.NoError(t, err)
	defer s.Close()

	_, err = io.ReadAll(s)
	require.NoError(t, err)

	require.Len(t, origin.requests, 2)
	for _, req := range origin.requests {
		assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "http://example.com/file.bin", req.URL)
	}
}

func TestStream_CapabilityComputedOnce(t *testing.T) {
	origin := newFakeOrigin(900, true, 300, 600)
	calls := 0
	transport := port.TransportFunc(func(ctx context.Context, req *port.Request) (*port.Response, error) {
		resp, err := origin.Do(ctx, req)
		calls++
		if err == nil && calls > 1 {
			// resumed responses drop the header; the first verdict still applies
			resp.Header.Del("Accept-Ranges")
		}
		return resp, err
	})

	s, err := NewClient(transport).Get(context.Background(), "http://example.com/file.bin")
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, origin.content, got)
	assert.Equal(t, 2, s.Resumes())
	assert.True(t, s.AcceptsRanges())
}
