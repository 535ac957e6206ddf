package check

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/parse"
	"github.com/ariasbenraq/scrap-url-broke/pkg/storage"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// Requester issues a single HTTP request. *fetch.Fetcher satisfies it: on a
// non-2xx status it returns the response together with an error, and on a
// transport failure a nil response.
type Requester interface {
	Do(ctx context.Context, method, rawURL string) (*http.Response, error)
}

// Checker tests link targets for liveness with HEAD, falling back to GET
// for servers that reject HEAD.
type Checker struct {
	requester Requester
	fallback  map[int]bool
	cache     storage.CheckCache // nil disables the per-run memo
	log       *logrus.Entry
}

// NewChecker creates a Checker. fallbackStatuses lists HEAD statuses that are
// retried once with GET. cache may be nil.
func NewChecker(requester Requester, fallbackStatuses []int, cache storage.CheckCache, log *logrus.Entry) *Checker {
	fallback := make(map[int]bool, len(fallbackStatuses))
	for _, code := range fallbackStatuses {
		fallback[code] = true
	}
	return &Checker{
		requester: requester,
		fallback:  fallback,
		cache:     cache,
		log:       log.WithField("component", "link_checker"),
	}
}

// Check tests target and never returns an error: transport failures are
// carried in CheckResult.Err. Redirects are followed by the HTTP client.
func (c *Checker) Check(ctx context.Context, target string) models.CheckResult {
	target = parse.StripFragment(target)
	linkLog := c.log.WithField("link_url", target)

	if c.cache != nil {
		entry, found, err := c.cache.GetCheck(target)
		if err != nil {
			linkLog.Warnf("Check memo lookup failed: %v", err)
		} else if found {
			linkLog.WithField("status_code", entry.StatusCode).Debug("Reusing earlier check result")
			return entry.ToResult(target)
		}
	}

	result := c.liveness(ctx, target, linkLog)
	if ctx.Err() != nil {
		return result
	}

	if c.cache != nil {
		entry := &models.CheckDBEntry{StatusCode: result.StatusCode, CheckedAt: time.Now()}
		if result.Err != nil {
			entry.Error = result.Err.Error()
			entry.ErrorType = utils.CategorizeError(result.Err)
		}
		if err := c.cache.PutCheck(target, entry); err != nil {
			linkLog.Warnf("Check memo store failed: %v", err)
		}
	}
	return result
}

func (c *Checker) liveness(ctx context.Context, target string, linkLog *logrus.Entry) models.CheckResult {
	status, err := c.request(ctx, http.MethodHead, target)
	if err == nil && c.fallback[status] {
		linkLog.WithField("head_status", status).Debug("HEAD rejected, retrying with GET")
		status, err = c.request(ctx, http.MethodGet, target)
	}

	result := models.CheckResult{URL: target, StatusCode: status, Err: err}
	fields := logrus.Fields{"status_code": status}
	switch {
	case err != nil:
		fields["error_type"] = utils.CategorizeError(err)
		linkLog.WithFields(fields).Warnf("Link check failed: %v", err)
	case result.Broken():
		linkLog.WithFields(fields).Info("Broken link")
	default:
		linkLog.WithFields(fields).Debug("Link OK")
	}
	return result
}

// request returns the final status of one request. Only transport failures
// are reported as errors; HTTP error statuses are a valid outcome here.
// The body is closed without being read.
func (c *Checker) request(ctx context.Context, method, target string) (int, error) {
	resp, err := c.requester.Do(ctx, method, target)
	if resp == nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
