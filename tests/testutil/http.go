package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ManifestServer serves manifests from memory and counts requests per path
type ManifestServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]string
	requests map[string]int
}

// NewManifestServer starts a server for the given path → content pairs
func NewManifestServer(t *testing.T, files map[string]string) *ManifestServer {
	t.Helper()

	ms := &ManifestServer{
		files:    make(map[string]string),
		requests: make(map[string]int),
	}
	for p, c := range files {
		ms.files["/"+strings.TrimPrefix(p, "/")] = c
	}

	ms.Server = httptest.NewServer(http.HandlerFunc(ms.serve))
	t.Cleanup(ms.Close)
	return ms
}

func (ms *ManifestServer) serve(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	ms.requests[r.URL.Path]++
	body, ok := ms.files[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".json") {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "application/yaml")
	}
	_, _ = w.Write([]byte(body))
}

// URLFor returns the absolute URL of path on the server
func (ms *ManifestServer) URLFor(path string) string {
	return ms.Server.URL + "/" + strings.TrimPrefix(path, "/")
}

// Set replaces the content served at path
func (ms *ManifestServer) Set(path, content string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.files["/"+strings.TrimPrefix(path, "/")] = content
}

// Requests returns how many times path was requested
func (ms *ManifestServer) Requests(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.requests["/"+strings.TrimPrefix(path, "/")]
}
