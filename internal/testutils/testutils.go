// Package testutils provides shared test infrastructure.
package testutils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ImageFile defines one fake image served by the test server.
type ImageFile struct {
	ContentType string
	Data        []byte

	// FailStatus, when non-zero, is returned instead of the body.
	FailStatus int

	// FailCount is how many requests fail (with FailStatus, or a
	// stalled response when Stall is set) before the body is served.
	// 0 with FailStatus set means fail every time.
	FailCount int

	// Stall delays the response long enough to trip a client timeout.
	Stall time.Duration
}

// ImageData generates a deterministic payload of the given size.
func ImageData(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

// NewImageServer starts an HTTP server serving the given files by path.
// Paths must include the leading slash. The caller owns the returned
// server and must Close it.
func NewImageServer(t *testing.T, files map[string]*ImageFile) *httptest.Server {
	t.Helper()

	seen := make(map[string]int)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		seen[r.URL.Path]++
		failing := f.FailStatus != 0 || f.Stall != 0
		if failing && (f.FailCount == 0 || seen[r.URL.Path] <= f.FailCount) {
			if f.Stall != 0 {
				time.Sleep(f.Stall)
			}
			if f.FailStatus != 0 {
				w.WriteHeader(f.FailStatus)
				return
			}
		}

		if f.ContentType != "" {
			w.Header().Set("Content-Type", f.ContentType)
		} else {
			// Suppress Go's content sniffing so clients see no header.
			w.Header()["Content-Type"] = nil
		}
		w.Write(f.Data)
	}))
}
