package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Response is a canned answer of a FakeRegistry.
type Response struct {
	Status int
	Body   []byte
	// Header values are set on the response before writing.
	Header map[string]string
}

// FakeRegistry is an httptest server answering fixed paths and counting
// every request per path. Unknown paths get a 404.
type FakeRegistry struct {
	*httptest.Server

	mu        sync.Mutex
	routes    map[string]Response
	hits      map[string]int
	userAgent []string
	block     chan struct{}
}

// NewFakeRegistry starts a registry closed when the test ends.
func NewFakeRegistry(t *testing.T) *FakeRegistry {
	t.Helper()
	r := &FakeRegistry{
		routes: make(map[string]Response),
		hits:   make(map[string]int),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Close)
	return r
}

// Handle registers the response served for path.
func (r *FakeRegistry) Handle(path string, resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[path] = resp
}

// Serve registers a 200 response with body.
func (r *FakeRegistry) Serve(path string, body []byte) {
	r.Handle(path, Response{Status: http.StatusOK, Body: body})
}

// Block makes every request wait until the returned function is called.
func (r *FakeRegistry) Block() (release func()) {
	ch := make(chan struct{})
	r.mu.Lock()
	r.block = ch
	r.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Hits returns how many requests path received.
func (r *FakeRegistry) Hits(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

// TotalHits returns the number of requests over all paths.
func (r *FakeRegistry) TotalHits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.hits {
		total += n
	}
	return total
}

// UserAgents returns the User-Agent of every request in arrival order.
func (r *FakeRegistry) UserAgents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.userAgent...)
}

// URLFor joins the server base with path.
func (r *FakeRegistry) URLFor(path string) string {
	return r.Server.URL + "/" + strings.TrimLeft(path, "/")
}

func (r *FakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits[req.URL.Path]++
	r.userAgent = append(r.userAgent, req.UserAgent())
	resp, ok := r.routes[req.URL.Path]
	block := r.block
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-req.Context().Done():
			return
		}
	}
	if !ok {
		http.NotFound(w, req)
		return
	}
	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
