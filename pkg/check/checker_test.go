package check

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariasbenraq/scrap-url-broke/pkg/fetch"
	"github.com/ariasbenraq/scrap-url-broke/pkg/storage"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// requestLog records method and path of every request the test server sees.
type requestLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, r.Method+" "+r.URL.Path)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func newLinkServer(t *testing.T) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/no-head", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("full body that should not be needed"))
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server, log
}

func newTestChecker(cache storage.CheckCache) *Checker {
	fetcher := fetch.NewFetcher(&http.Client{}, "test-agent", 5*time.Second, nil, testLogger())
	return NewChecker(fetcher, []int{405, 403, 501}, cache, testLogger())
}

func TestCheck_Statuses(t *testing.T) {
	server, _ := newLinkServer(t)
	checker := newTestChecker(nil)

	tests := []struct {
		path       string
		wantStatus int
		wantBroken bool
	}{
		{"/ok", http.StatusOK, false},
		{"/missing", http.StatusNotFound, true},
		{"/moved", http.StatusOK, false},
		{"/no-head", http.StatusOK, false},
		{"/forbidden", http.StatusForbidden, true},
		{"/error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := checker.Check(context.Background(), server.URL+tt.path)
			assert.NoError(t, res.Err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantBroken, res.Broken())
		})
	}
}

func TestCheck_GetFallbackOnlyForConfiguredStatuses(t *testing.T) {
	server, log := newLinkServer(t)
	checker := newTestChecker(nil)

	checker.Check(context.Background(), server.URL+"/no-head")
	checker.Check(context.Background(), server.URL+"/forbidden")
	checker.Check(context.Background(), server.URL+"/error")
	checker.Check(context.Background(), server.URL+"/missing")

	assert.Equal(t, []string{
		"HEAD /no-head", "GET /no-head",
		"HEAD /forbidden", "GET /forbidden",
		"HEAD /error",
		"HEAD /missing",
	}, log.all())
}

func TestCheck_TransportFailure(t *testing.T) {
	checker := newTestChecker(nil)

	res := checker.Check(context.Background(), "http://127.0.0.1:1/unreachable")
	require.Error(t, res.Err)
	assert.Zero(t, res.StatusCode)
	assert.True(t, res.Broken())
}

func TestCheck_FragmentIsStripped(t *testing.T) {
	server, log := newLinkServer(t)
	checker := newTestChecker(nil)

	res := checker.Check(context.Background(), server.URL+"/ok#section")
	assert.Equal(t, server.URL+"/ok", res.URL)
	assert.Equal(t, []string{"HEAD /ok"}, log.all())
}

func TestCheck_MemoRequestsOncePerRun(t *testing.T) {
	server, log := newLinkServer(t)
	store, err := storage.NewBadgerStore(testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	checker := newTestChecker(store)

	first := checker.Check(context.Background(), server.URL+"/missing")
	second := checker.Check(context.Background(), server.URL+"/missing")

	assert.Equal(t, first.StatusCode, second.StatusCode)
	assert.True(t, second.Broken())
	assert.Equal(t, []string{"HEAD /missing"}, log.all())
}

func TestCheck_MemoKeepsTransportFailures(t *testing.T) {
	store, err := storage.NewBadgerStore(testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	checker := newTestChecker(store)

	target := "http://127.0.0.1:1/unreachable"
	first := checker.Check(context.Background(), target)
	require.Error(t, first.Err)

	entry, found, err := store.GetCheck(target)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEmpty(t, entry.ErrorType)

	second := checker.Check(context.Background(), target)
	require.Error(t, second.Err)
	assert.Equal(t, first.Err.Error(), second.Err.Error())
}

func TestCheck_CancelledContextNotMemoized(t *testing.T) {
	server, _ := newLinkServer(t)
	store, err := storage.NewBadgerStore(testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	checker := newTestChecker(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := checker.Check(ctx, server.URL+"/ok")
	assert.Error(t, res.Err)

	_, found, err := store.GetCheck(server.URL + "/ok")
	require.NoError(t, err)
	assert.False(t, found)
}
