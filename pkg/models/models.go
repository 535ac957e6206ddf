package models

import (
	"errors"
	"time"
)

// PostReference identifies one blog post found during discovery.
// Equality is by URL; Slug is the first path segment after the post marker.
type PostReference struct {
	URL  string
	Slug string
}

// SEOFields holds the document-level metadata written to the meta report.
type SEOFields struct {
	PageTitle             string
	MetaDescription       string
	MetaDescriptionLength int // Length in runes, not bytes
	CanonicalURL          string
}

// PostContext is everything extracted from a single fetched post page.
type PostContext struct {
	Post            PostReference
	Title           string
	H1              string
	ContentSelector string // Selector that matched the content root ("body" or "document" for fallbacks)
	SEO             SEOFields
	Links           []LinkRecord
	FetchStatus     int   // HTTP status of the post fetch, 0 if the request never completed
	FetchErr        error // Non-nil when the post could not be fetched or parsed
}

// LinkRecord is one link or image target found inside a post's content root.
type LinkRecord struct {
	Kind       LinkKind
	Type       LinkType
	AnchorText string
	URL        string // Absolute URL, resolved against the post URL
	NoFollow   bool
	NoReferrer bool
}

// CheckResult is the outcome of probing one target URL.
type CheckResult struct {
	URL        string
	StatusCode int   // Final status after redirects, 0 on transport failure
	Err        error // Transport failure; the report writes the failure marker instead of a status
}

// Broken reports whether the target should appear in the broken-link report.
func (r CheckResult) Broken() bool {
	return r.Err != nil || r.StatusCode >= 400
}

// CheckDBEntry is the persisted form of a CheckResult in the run-scoped memo.
type CheckDBEntry struct {
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty"` // Error category (on failure)
	CheckedAt  time.Time `json:"checked_at"`
}

// ToResult rebuilds a CheckResult for url. The original error value is not
// preserved, only its message.
func (e CheckDBEntry) ToResult(url string) CheckResult {
	res := CheckResult{URL: url, StatusCode: e.StatusCode}
	if e.Error != "" {
		res.Err = errors.New(e.Error)
	}
	return res
}

// RunSummary aggregates per-site counters for the summary table.
type RunSummary struct {
	SiteKey         string
	RunID           string
	DiscoverySource string // "sitemap", "listing" or "" when nothing was found
	PostsFound      int
	PostsProcessed  int
	PostsFailed     int
	LinksFound      int
	LinksChecked    int
	LinksBroken     int
	ErrorCategories map[string]int
	ReportFiles     []string
	StartTime       time.Time
	EndTime         time.Time
}

// AddError increments the counter for an error category.
func (s *RunSummary) AddError(category string) {
	if s.ErrorCategories == nil {
		s.ErrorCategories = make(map[string]int)
	}
	s.ErrorCategories[category]++
}

// Duration returns the elapsed wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
