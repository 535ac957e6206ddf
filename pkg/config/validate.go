package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultContentSelectors is the ordered fallback chain for a post's content region.
var DefaultContentSelectors = []string{
	`section[data-hook="post-description"]`,
	`div[data-hook="post-content"]`,
	"article",
	"main",
	`[itemprop="articleBody"]`,
	".post-content",
	".entry-content",
	".blog-post",
}

// DefaultTitleSelectors locate the post heading.
var DefaultTitleSelectors = []string{`h1[data-hook="post-title"]`, "h1"}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = defaultUserAgent
	}

	// DefaultRequestTimeout
	if c.DefaultRequestTimeout <= 0 {
		if c.DefaultRequestTimeout < 0 {
			warnings = append(warnings, "default_request_timeout cannot be negative, defaulting to 10s")
		}
		c.DefaultRequestTimeout = 10 * time.Second
	}

	// DefaultRequestDelay
	if c.DefaultRequestDelay < 0 {
		warnings = append(warnings, "default_request_delay cannot be negative, disabling delay")
		c.DefaultRequestDelay = 0
	}

	if len(c.DefaultGetFallbackStatuses) == 0 {
		c.DefaultGetFallbackStatuses = []int{405, 403, 501}
	}
	for _, code := range c.DefaultGetFallbackStatuses {
		if code < 100 || code > 599 {
			return warnings, fmt.Errorf("%w: default_get_fallback_statuses contains invalid status %d", utils.ErrConfigValidation, code)
		}
	}

	// OutputDir
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to '.'")
		c.OutputDir = "."
	}

	if c.FailureMarker == "" {
		c.FailureMarker = "ERROR"
	}

	if c.Delimiter == "" {
		c.Delimiter = ","
	} else if err := validateDelimiter(c.Delimiter); err != nil {
		return warnings, err
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	if c.HTTPClientSettings.Timeout < c.DefaultRequestTimeout {
		warnings = append(warnings, fmt.Sprintf(
			"http_client_settings.timeout (%v) is shorter than default_request_timeout (%v)",
			c.HTTPClientSettings.Timeout, c.DefaultRequestTimeout))
	}

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
	if h.MaxRedirects <= 0 {
		h.MaxRedirects = 10
	}
}

// Validate checks SiteConfig fields and applies defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place (URL normalization, default selectors, report names).
func (c *SiteConfig) Validate() (warnings []string, err error) {
	// Required: BaseURL
	if c.BaseURL == "" {
		return nil, fmt.Errorf("%w: site needs base_url", utils.ErrConfigValidation)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: base_url '%s' must be an absolute http(s) URL", utils.ErrConfigValidation, c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	// PostMarker normalization
	if c.PostMarker == "" {
		c.PostMarker = "/post/"
	} else if c.PostMarker[0] != '/' {
		c.PostMarker = "/" + c.PostMarker
	}

	if c.BlogIndexURL == "" {
		c.BlogIndexURL = c.BaseURL + c.PostMarker
	} else if _, err := url.Parse(c.BlogIndexURL); err != nil {
		return nil, fmt.Errorf("%w: invalid blog_index_url '%s'", utils.ErrConfigValidation, c.BlogIndexURL)
	}

	if len(c.SitemapURLs) == 0 {
		c.SitemapURLs = []string{
			c.BaseURL + "/blog-posts-sitemap.xml",
			c.BaseURL + "/sitemap.xml",
		}
	}

	// ExcludePathPatterns; an explicit empty list disables the pagination filter
	if c.ExcludePathPatterns == nil {
		c.ExcludePathPatterns = []string{"/page/"}
	}
	if _, err := utils.CompileRegexPatterns(c.ExcludePathPatterns); err != nil {
		return nil, err
	}

	// MaxSitemapDepth
	if c.MaxSitemapDepth < 0 {
		warnings = append(warnings, "Site max_sitemap_depth cannot be negative, defaulting to 5")
		c.MaxSitemapDepth = 5
	} else if c.MaxSitemapDepth == 0 {
		c.MaxSitemapDepth = 5
	}

	// Listing
	if c.Listing.MaxPages < 0 {
		warnings = append(warnings, "Site listing.max_pages cannot be negative, defaulting to 50")
		c.Listing.MaxPages = 50
	} else if c.Listing.MaxPages == 0 {
		c.Listing.MaxPages = 50
	}
	if len(c.Listing.PageQueryParams) == 0 {
		c.Listing.PageQueryParams = []string{"page"}
	}

	if len(c.ContentSelectors) == 0 {
		c.ContentSelectors = append([]string(nil), DefaultContentSelectors...)
	}
	if len(c.TitleSelectors) == 0 {
		c.TitleSelectors = append([]string(nil), DefaultTitleSelectors...)
	}

	switch c.TitleSource {
	case "":
		c.TitleSource = TitleSourceHeading
	case TitleSourceHeading, TitleSourceDocument:
	default:
		return nil, fmt.Errorf("%w: unknown title_source '%s' (want %s or %s)",
			utils.ErrConfigValidation, c.TitleSource, TitleSourceHeading, TitleSourceDocument)
	}

	switch c.PostErrorPolicy {
	case "":
		c.PostErrorPolicy = PostErrorSkip
	case PostErrorSkip, PostErrorPlaceholder:
	default:
		return nil, fmt.Errorf("%w: unknown post_error_policy '%s' (want %s or %s)",
			utils.ErrConfigValidation, c.PostErrorPolicy, PostErrorSkip, PostErrorPlaceholder)
	}

	// Stop prefixes are matched against absolute target URLs; path-form entries resolve against base_url
	for i, p := range c.StopURLPrefixes {
		p = strings.TrimSpace(p)
		ref, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid stop_url_prefixes entry '%s'", utils.ErrConfigValidation, p)
		}
		if p != "" && ref.Host == "" {
			p = base.ResolveReference(ref).String()
		}
		c.StopURLPrefixes[i] = p
	}

	for i, d := range c.ExcludedDomains {
		c.ExcludedDomains[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "www."))
	}

	if c.RequestTimeout < 0 {
		warnings = append(warnings, "Site request_timeout cannot be negative, using global default")
		c.RequestTimeout = 0
	}
	if c.RequestDelay < 0 {
		warnings = append(warnings, "Site request_delay cannot be negative, using global default")
		c.RequestDelay = 0
	}

	if c.Delimiter != "" {
		if err := validateDelimiter(c.Delimiter); err != nil {
			return nil, err
		}
	}

	reportWarnings, err := c.validateReports()
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, reportWarnings...)

	return warnings, nil
}

// validateReports defaults to all three reports and fills in missing filenames.
func (c *SiteConfig) validateReports() (warnings []string, err error) {
	if len(c.Reports) == 0 {
		c.Reports = []ReportConfig{{Kind: ReportBroken}, {Kind: ReportLinks}, {Kind: ReportMeta}}
	}

	seenKinds := make(map[string]bool, len(c.Reports))
	seenFiles := make(map[string]bool, len(c.Reports))
	for i := range c.Reports {
		r := &c.Reports[i]
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		switch r.Kind {
		case ReportBroken, ReportLinks, ReportMeta:
		default:
			return nil, fmt.Errorf("%w: report #%d has unknown kind '%s'", utils.ErrConfigValidation, i+1, r.Kind)
		}
		if seenKinds[r.Kind] {
			return nil, fmt.Errorf("%w: report kind '%s' listed more than once", utils.ErrConfigValidation, r.Kind)
		}
		seenKinds[r.Kind] = true

		if r.Filename == "" {
			r.Filename = DefaultReportFilename(r.Kind)
		}
		if seenFiles[r.Filename] {
			return nil, fmt.Errorf("%w: report filename '%s' used more than once", utils.ErrConfigValidation, r.Filename)
		}
		seenFiles[r.Filename] = true

		if r.OnlyBroken != nil && r.Kind != ReportBroken {
			warnings = append(warnings, fmt.Sprintf("only_broken has no effect on '%s' report", r.Kind))
		}
	}
	return warnings, nil
}

func validateDelimiter(d string) error {
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return fmt.Errorf("%w: delimiter '%s' must be a single character other than quote or newline", utils.ErrConfigValidation, d)
	}
	return nil
}

// FilterReports narrows the configured reports to the given kinds, keeping
// configured filenames. Unknown kinds are an error.
func (c *SiteConfig) FilterReports(kinds []string) error {
	if len(kinds) == 0 {
		return nil
	}
	configured := make(map[string]ReportConfig, len(c.Reports))
	for _, r := range c.Reports {
		configured[r.Kind] = r
	}
	filtered := make([]ReportConfig, 0, len(kinds))
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		r, ok := configured[k]
		if !ok {
			switch k {
			case ReportBroken, ReportLinks, ReportMeta:
				r = ReportConfig{Kind: k, Filename: DefaultReportFilename(k)}
			default:
				return fmt.Errorf("%w: unknown report kind '%s'", utils.ErrConfigValidation, k)
			}
		}
		filtered = append(filtered, r)
	}
	c.Reports = filtered
	return nil
}
