package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(guard *Guard) *HTTPFetcher {
	return NewHTTPFetcher(FetchOptions{
		Timeout:      2 * time.Second,
		MaxBodyBytes: 1024,
		MaxRedirects: 3,
		UserAgent:    "url-detector-test",
		Guard:        guard,
	})
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTTPFetcherFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "url-detector-test", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/huge", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(nil)

	tests := []struct {
		name      string
		path      string
		wantErr   bool
		finalPath string
	}{
		{name: "ok", path: "/page", finalPath: "/page"},
		{name: "redirect followed", path: "/moved", finalPath: "/page"},
		{name: "redirect loop", path: "/loop", wantErr: true},
		{name: "non-2xx", path: "/missing", wantErr: true},
		{name: "oversized body", path: "/huge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.Fetch(context.Background(), mustParse(t, srv.URL+tt.path))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnavailable)
				assert.Nil(t, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, page.StatusCode)
			assert.Equal(t, tt.finalPath, page.FinalURL.Path)
			assert.Contains(t, string(page.Body), "hello")
		})
	}
}

func TestHTTPFetcherBlocksPrivateTargets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach a private target")
	}))
	defer srv.Close()

	f := newTestFetcher(&Guard{BlockPrivate: true})
	_, err := f.Fetch(context.Background(), mustParse(t, srv.URL))

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, ErrBlockedTarget)
}

func TestHTTPFetcherHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestFetcher(nil).Fetch(ctx, mustParse(t, srv.URL))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}
