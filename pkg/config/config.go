package config

import "time"

// Report kinds understood by the report writer
const (
	ReportBroken = "broken"
	ReportLinks  = "links"
	ReportMeta   = "meta"
)

// Title policies for resolving a post's title
const (
	TitleSourceHeading  = "heading"  // Content heading first, document <title> as fallback
	TitleSourceDocument = "document" // Document <title> first, headings as fallback
)

// Policies for posts whose page cannot be fetched
const (
	PostErrorSkip        = "skip"        // Drop the post from every report
	PostErrorPlaceholder = "placeholder" // Emit a marker meta row and a broken row for the post URL
)

// SiteConfig holds configuration for auditing a single blog
type SiteConfig struct {
	BaseURL                string         `yaml:"base_url"`
	BlogIndexURL           string         `yaml:"blog_index_url,omitempty"`
	SitemapURLs            []string       `yaml:"sitemap_urls,omitempty"`
	DiscoverRobotsSitemaps *bool          `yaml:"discover_robots_sitemaps,omitempty"` // Append Sitemap: lines from robots.txt to the candidates
	PostMarker             string         `yaml:"post_marker,omitempty"`
	ExcludePathPatterns    []string       `yaml:"exclude_path_patterns,omitempty"` // Regex patterns for leaf URLs to drop
	MaxSitemapDepth        int            `yaml:"max_sitemap_depth,omitempty"`
	Listing                ListingConfig  `yaml:"listing,omitempty"`
	ContentSelectors       []string       `yaml:"content_selectors,omitempty"`
	TitleSource            string         `yaml:"title_source,omitempty"`
	TitleSelectors         []string       `yaml:"title_selectors,omitempty"`
	StopURLPrefixes        []string       `yaml:"stop_url_prefixes,omitempty"`
	ExcludedDomains        []string       `yaml:"excluded_domains,omitempty"`
	UserAgent              string         `yaml:"user_agent,omitempty"`
	RequestTimeout         time.Duration  `yaml:"request_timeout,omitempty"`
	RequestDelay           time.Duration  `yaml:"request_delay,omitempty"`
	GetFallbackStatuses    []int          `yaml:"get_fallback_statuses,omitempty"`
	ReuseResults           *bool          `yaml:"reuse_results,omitempty"`
	PostErrorPolicy        string         `yaml:"post_error_policy,omitempty"`
	Reports                []ReportConfig `yaml:"reports,omitempty"`
	Delimiter              string         `yaml:"delimiter,omitempty"`
	FailureMarker          string         `yaml:"failure_marker,omitempty"`
	OutputDir              string         `yaml:"output_dir,omitempty"`
}

// ListingConfig bounds the paginated listing crawl used when no sitemap yields posts
type ListingConfig struct {
	MaxPages        int      `yaml:"max_pages,omitempty"`
	PageQueryParams []string `yaml:"page_query_params,omitempty"`
}

// ReportConfig selects one report and its output file
type ReportConfig struct {
	Kind       string `yaml:"kind"`
	Filename   string `yaml:"filename,omitempty"`
	OnlyBroken *bool  `yaml:"only_broken,omitempty"` // Broken report only; false writes every checked link
}

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent           string                `yaml:"default_user_agent"`
	DefaultRequestTimeout      time.Duration         `yaml:"default_request_timeout"`
	DefaultRequestDelay        time.Duration         `yaml:"default_request_delay"`
	DefaultGetFallbackStatuses []int                 `yaml:"default_get_fallback_statuses,omitempty"`
	OutputDir                  string                `yaml:"output_dir"`
	FailureMarker              string                `yaml:"failure_marker,omitempty"`
	Delimiter                  string                `yaml:"delimiter,omitempty"`
	HTTPClientSettings         HTTPClientConfig      `yaml:"http_client_settings,omitempty"`
	Sites                      map[string]SiteConfig `yaml:"sites"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxRedirects          int           `yaml:"max_redirects,omitempty"`           // Redirects followed before giving up
}

// GetEffectiveUserAgent returns the site user agent, falling back to the global default
func GetEffectiveUserAgent(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.UserAgent != "" {
		return siteCfg.UserAgent
	}
	return appCfg.DefaultUserAgent
}

// GetEffectiveRequestTimeout determines the per-request timeout
func GetEffectiveRequestTimeout(siteCfg SiteConfig, appCfg AppConfig) time.Duration {
	if siteCfg.RequestTimeout > 0 {
		return siteCfg.RequestTimeout
	}
	return appCfg.DefaultRequestTimeout
}

// GetEffectiveRequestDelay determines the fixed delay between requests
func GetEffectiveRequestDelay(siteCfg SiteConfig, appCfg AppConfig) time.Duration {
	if siteCfg.RequestDelay > 0 {
		return siteCfg.RequestDelay
	}
	return appCfg.DefaultRequestDelay
}

// GetEffectiveGetFallbackStatuses returns the HEAD statuses that trigger a GET retry
func GetEffectiveGetFallbackStatuses(siteCfg SiteConfig, appCfg AppConfig) []int {
	if len(siteCfg.GetFallbackStatuses) > 0 {
		return siteCfg.GetFallbackStatuses
	}
	return appCfg.DefaultGetFallbackStatuses
}

// GetEffectiveReuseResults reports whether check results are memoized across posts. Defaults to true.
func GetEffectiveReuseResults(siteCfg SiteConfig) bool {
	if siteCfg.ReuseResults != nil {
		return *siteCfg.ReuseResults
	}
	return true
}

// GetEffectiveDiscoverRobotsSitemaps reports whether robots.txt sitemaps are added. Defaults to false.
func GetEffectiveDiscoverRobotsSitemaps(siteCfg SiteConfig) bool {
	return siteCfg.DiscoverRobotsSitemaps != nil && *siteCfg.DiscoverRobotsSitemaps
}

// GetEffectiveOutputDir determines where report files are written
func GetEffectiveOutputDir(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.OutputDir != "" {
		return siteCfg.OutputDir
	}
	if appCfg.OutputDir != "" {
		return appCfg.OutputDir
	}
	return "."
}

// GetEffectiveFailureMarker returns the status text written for transport failures
func GetEffectiveFailureMarker(siteCfg SiteConfig, appCfg AppConfig) string {
	if siteCfg.FailureMarker != "" {
		return siteCfg.FailureMarker
	}
	if appCfg.FailureMarker != "" {
		return appCfg.FailureMarker
	}
	return "ERROR"
}

// GetEffectiveDelimiter returns the CSV field delimiter
func GetEffectiveDelimiter(siteCfg SiteConfig, appCfg AppConfig) rune {
	d := siteCfg.Delimiter
	if d == "" {
		d = appCfg.Delimiter
	}
	for _, r := range d {
		return r
	}
	return ','
}

// GetEffectiveOnlyBroken reports whether a broken report lists only broken links. Defaults to true.
func (r ReportConfig) GetEffectiveOnlyBroken() bool {
	if r.OnlyBroken != nil {
		return *r.OnlyBroken
	}
	return true
}

// DefaultReportFilename returns the file name used when a report omits one.
func DefaultReportFilename(kind string) string {
	switch kind {
	case ReportBroken:
		return "broken_links.csv"
	case ReportLinks:
		return "reporte_seo_posts.csv"
	case ReportMeta:
		return "seo_meta.csv"
	}
	return kind + ".csv"
}
