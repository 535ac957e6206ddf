package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// testClient returns an http.Client suitable for testing
func testClient() *http.Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := config.AppConfig{}
	cfg.Validate()
	return NewClient(cfg.HTTPClientSettings, log)
}

func testFetcher(timeout time.Duration) *Fetcher {
	return NewFetcher(testClient(), "audit-test/1.0", timeout, nil, testLogger())
}

// mockServer creates an httptest.Server that always answers with statusCode.
// Returns the server and an atomic counter tracking request attempts.
func mockServer(t *testing.T, statusCode int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	attemptCount := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(statusCode)
	}))
	t.Cleanup(server.Close)
	return server, attemptCount
}

func TestDo_Success(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"200 OK", http.StatusOK},
		{"201 Created", http.StatusCreated},
		{"204 No Content", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, attempts := mockServer(t, tt.statusCode)

			resp, err := testFetcher(5*time.Second).Do(context.Background(), http.MethodGet, server.URL)

			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, resp.StatusCode)
			}
			if attempts.Load() != 1 {
				t.Errorf("expected 1 attempt, got %d", attempts.Load())
			}
		})
	}
}

func TestDo_ErrorStatuses_NoRetry(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		sentinel   error
	}{
		{"404 Not Found", http.StatusNotFound, utils.ErrClientHTTPError},
		{"403 Forbidden", http.StatusForbidden, utils.ErrClientHTTPError},
		{"429 Too Many Requests", http.StatusTooManyRequests, utils.ErrClientHTTPError},
		{"500 Internal Server Error", http.StatusInternalServerError, utils.ErrServerHTTPError},
		{"503 Service Unavailable", http.StatusServiceUnavailable, utils.ErrServerHTTPError},
		{"304 Not Modified", http.StatusNotModified, utils.ErrOtherHTTPError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, attempts := mockServer(t, tt.statusCode)

			resp, err := testFetcher(5*time.Second).Do(context.Background(), http.MethodGet, server.URL)

			if err == nil {
				t.Fatal("expected error for non-2xx status")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got: %v", tt.sentinel, err)
			}
			if resp == nil {
				t.Fatal("expected response alongside status error")
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, resp.StatusCode)
			}
			if attempts.Load() != 1 {
				t.Errorf("expected 1 attempt (no retry), got %d", attempts.Load())
			}
		})
	}
}

func TestDo_SetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	resp, err := testFetcher(5*time.Second).Do(context.Background(), http.MethodHead, server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "audit-test/1.0", gotUA)
}

func TestDo_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := testFetcher(5*time.Second).Do(context.Background(), http.MethodHead, server.URL+"/old")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/new", resp.Request.URL.Path)
}

func TestDo_RedirectLoopStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer server.Close()

	resp, err := testFetcher(5*time.Second).Do(context.Background(), http.MethodGet, server.URL+"/loop")

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, "Network_TooManyRedirects", utils.CategorizeError(err))
}

func TestDo_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	start := time.Now()
	resp, err := testFetcher(50*time.Millisecond).Do(context.Background(), http.MethodGet, server.URL)

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline error, got %v", err)
}

func TestDo_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	resp, err := testFetcher(time.Second).Do(context.Background(), http.MethodGet, addr)

	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestDo_InvalidURL(t *testing.T) {
	_, err := testFetcher(time.Second).Do(context.Background(), http.MethodGet, "http://bad host/\x7f")

	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrRequestCreation)
}

func TestDo_ContextCancelled(t *testing.T) {
	server, attempts := mockServer(t, http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter := NewRateLimiter(10*time.Millisecond, testLogger())
	f := NewFetcher(testClient(), "", time.Second, limiter, testLogger())
	_, err := f.Do(ctx, http.MethodGet, server.URL)

	require.Error(t, err)
	assert.Equal(t, int32(0), attempts.Load())
}

func TestGetBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<urlset></urlset>"))
	})
	mux.HandleFunc("/missing.xml", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := testFetcher(5 * time.Second)

	body, status, err := f.GetBody(context.Background(), server.URL+"/ok.xml")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<urlset></urlset>", string(body))

	body, status, err = f.GetBody(context.Background(), server.URL+"/missing.xml")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, body)
	assert.Equal(t, "HTTP_404", utils.CategorizeError(err))
}

func TestGetDocument_DecodesCharset(t *testing.T) {
	// "Canción" in ISO-8859-1
	latin1 := "<html><head><title>Canci\xf3n</title></head><body><h1>x</h1></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		w.Write([]byte(latin1))
	}))
	defer server.Close()

	page, err := testFetcher(5*time.Second).GetDocument(context.Background(), server.URL+"/post/a")
	require.NoError(t, err)

	assert.Equal(t, "Canción", page.Doc.Find("title").Text())
	assert.Equal(t, "/post/a", page.FinalURL.Path)
	assert.Equal(t, http.StatusOK, page.StatusCode)
}

func TestGetDocument_ErrorStatusKeepsCode(t *testing.T) {
	server, _ := mockServer(t, http.StatusGone)

	page, err := testFetcher(5*time.Second).GetDocument(context.Background(), server.URL)

	require.Error(t, err)
	require.NotNil(t, page)
	assert.Nil(t, page.Doc)
	assert.Equal(t, http.StatusGone, page.StatusCode)
}

func TestReadDocument(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(`<p class="x">hola</p>`), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "hola", doc.Find("p.x").Text())
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, StatusError(200, "200 OK"))
	assert.ErrorIs(t, StatusError(404, "404 Not Found"), utils.ErrClientHTTPError)
	assert.ErrorIs(t, StatusError(502, "502 Bad Gateway"), utils.ErrServerHTTPError)
	assert.ErrorIs(t, StatusError(302, "302 Found"), utils.ErrOtherHTTPError)
}
