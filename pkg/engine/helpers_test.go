package engine

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// tokenServer fakes the token endpoint. Responses are served in order and
// the last one repeats.
type tokenServer struct {
	*httptest.Server
	calls atomic.Int32

	mu            sync.Mutex
	responses     []tokenResponse
	lastKey       string
	lastMethod    string
	lastBodyBytes int64
	gate          chan struct{}
}

type tokenResponse struct {
	status int
	body   []byte
}

func issued(token string) tokenResponse {
	return tokenResponse{status: http.StatusOK, body: []byte(token)}
}

func newTokenServer(t *testing.T, responses ...tokenResponse) *tokenServer {
	t.Helper()
	ts := &tokenServer{responses: responses}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(ts.calls.Add(1))

		ts.mu.Lock()
		gate := ts.gate
		ts.lastKey = r.Header.Get(SubscriptionKeyHeader)
		ts.lastMethod = r.Method
		ts.lastBodyBytes = r.ContentLength
		resp := ts.responses[min(n, len(ts.responses))-1]
		ts.mu.Unlock()

		if gate != nil {
			<-gate
		}
		w.WriteHeader(resp.status)
		_, _ = w.Write(resp.body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// hold makes the server block every request until the returned func is
// called. Requests are released at cleanup at the latest.
func (ts *tokenServer) hold(t *testing.T) func() {
	gate := make(chan struct{})
	ts.mu.Lock()
	ts.gate = gate
	ts.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { close(gate) })
	}
	t.Cleanup(release)
	return release
}

func (ts *tokenServer) Calls() int {
	return int(ts.calls.Load())
}

func (ts *tokenServer) LastRequest() (method, key string, contentLength int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastMethod, ts.lastKey, ts.lastBodyBytes
}

type countingRecorder struct {
	hits  atomic.Int32
	waits atomic.Int32

	mu         sync.Mutex
	renewals   map[string]int
	dispatched map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		renewals:   make(map[string]int),
		dispatched: make(map[string]int),
	}
}

func (r *countingRecorder) TokenCacheHit() {
	r.hits.Add(1)
}

func (r *countingRecorder) TokenWait() {
	r.waits.Add(1)
}

func (r *countingRecorder) TokenRenewal(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renewals[outcome]++
}

func (r *countingRecorder) Dispatch(_ string, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched[outcome]++
}

func (r *countingRecorder) Renewals(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renewals[outcome]
}

func (r *countingRecorder) Dispatches(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatched[outcome]
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
