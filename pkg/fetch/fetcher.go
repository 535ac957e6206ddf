package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// maxBodyBytes caps how much of a page or sitemap is read into memory.
const maxBodyBytes = 20 << 20

// Fetcher issues single-attempt HTTP requests with a fixed per-request timeout,
// a configured User-Agent, and the shared request pacing.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	limiter   *RateLimiter
	log       *logrus.Entry
}

// NewFetcher creates a new Fetcher. limiter may be nil to disable pacing.
func NewFetcher(client *http.Client, userAgent string, timeout time.Duration, limiter *RateLimiter, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   limiter,
		log:       log,
	}
}

// Do performs one request. The per-request timeout covers reading the body,
// so the returned body must be closed by the caller, which also releases the timeout.
// On a non-2xx status both the response and a wrapped sentinel error are returned.
// Transport errors return a nil response. No retry is attempted.
func (f *Fetcher) Do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if f.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %s %s: %v", utils.ErrRequestCreation, method, rawURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	reqLog := f.log.WithFields(logrus.Fields{"method": method, "url": rawURL})
	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		reqLog.Debugf("Request failed: %v", err)
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	if statusErr := StatusError(resp.StatusCode, resp.Status); statusErr != nil {
		reqLog.WithField("status_code", resp.StatusCode).Debug("Non-2xx response")
		return resp, statusErr
	}
	reqLog.WithField("status_code", resp.StatusCode).Debug("Fetched")
	return resp, nil
}

// StatusError maps a non-2xx status to a wrapped sentinel error, nil for 2xx.
func StatusError(statusCode int, status string) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode >= 400 && statusCode < 500:
		return fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, status)
	case statusCode >= 500:
		return fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, status)
	default:
		return fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, status)
	}
}

// GetBody fetches rawURL with GET and returns the raw body of a 2xx response.
// The status code is returned whenever a response was received.
func (f *Fetcher) GetBody(ctx context.Context, rawURL string) ([]byte, int, error) {
	resp, err := f.Do(ctx, http.MethodGet, rawURL)
	if err != nil {
		if resp != nil {
			drainAndClose(resp.Body)
			return nil, resp.StatusCode, err
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s: %v", utils.ErrResponseBodyRead, rawURL, err)
	}
	return body, resp.StatusCode, nil
}

// Page is a fetched and parsed HTML document.
type Page struct {
	Doc        *goquery.Document
	FinalURL   *url.URL // URL after redirects; relative links resolve against it
	StatusCode int
}

// GetDocument fetches rawURL with GET and parses a 2xx HTML response,
// decoding the body according to its declared charset.
func (f *Fetcher) GetDocument(ctx context.Context, rawURL string) (*Page, error) {
	resp, err := f.Do(ctx, http.MethodGet, rawURL)
	if err != nil {
		if resp != nil {
			drainAndClose(resp.Body)
			return &Page{StatusCode: resp.StatusCode}, err
		}
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := ReadDocument(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return &Page{StatusCode: resp.StatusCode}, fmt.Errorf("%s: %w", rawURL, err)
	}
	return &Page{Doc: doc, FinalURL: resp.Request.URL, StatusCode: resp.StatusCode}, nil
}

// ReadDocument decodes body using the charset from contentType (or sniffed
// from the content) and parses it into a goquery document.
func ReadDocument(body io.Reader, contentType string) (*goquery.Document, error) {
	utf8Body, err := charset.NewReader(io.LimitReader(body, maxBodyBytes), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: HTML charset: %v", utils.ErrParsing, err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("%w: HTML parse: %v", utils.ErrParsing, err)
	}
	return doc, nil
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

// cancelOnClose releases the per-request context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
