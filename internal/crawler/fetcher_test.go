package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/binary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/huge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusMovedPermanently)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher("TestAgent/1.0", 5*time.Second, 1024)
	defer f.Close()
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		fetched, err := f.Fetch(ctx, server.URL+"/page")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if fetched.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d", fetched.StatusCode)
		}
		if !strings.Contains(string(fetched.Body), "hello") {
			t.Errorf("Body = %q", fetched.Body)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/missing")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("Error type = %T, want *FetchError", err)
		}
		if fetchErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", fetchErr.StatusCode)
		}
	})

	t.Run("UnsupportedContentType", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/binary")
		var contentErr *ContentError
		if !errors.As(err, &contentErr) {
			t.Fatalf("Error type = %T, want *ContentError", err)
		}
	})

	t.Run("OversizedBody", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/huge")
		var contentErr *ContentError
		if !errors.As(err, &contentErr) {
			t.Fatalf("Error type = %T, want *ContentError", err)
		}
		if !strings.Contains(contentErr.Reason, "oversized") {
			t.Errorf("Reason = %q", contentErr.Reason)
		}
	})

	t.Run("RedirectFollowed", func(t *testing.T) {
		fetched, err := f.Fetch(ctx, server.URL+"/redirect")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !strings.HasSuffix(fetched.FinalURL, "/page") {
			t.Errorf("FinalURL = %q, want the redirect target", fetched.FinalURL)
		}
	})

	t.Run("UserAgentSent", func(t *testing.T) {
		var gotUA string
		uaServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		}))
		defer uaServer.Close()

		if _, err := f.Fetch(ctx, uaServer.URL); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if gotUA != "TestAgent/1.0" {
			t.Errorf("User-Agent = %q", gotUA)
		}
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := f.Fetch(cancelled, server.URL+"/page")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("Error type = %T, want *FetchError", err)
		}
	})
}
