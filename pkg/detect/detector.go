package detect

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Platform represents a detected blog platform
type Platform string

const (
	PlatformUnknown     Platform = "unknown"
	PlatformWix         Platform = "wix"
	PlatformWordPress   Platform = "wordpress"
	PlatformGhost       Platform = "ghost"
	PlatformBlogger     Platform = "blogger"
	PlatformSquarespace Platform = "squarespace"
	PlatformMedium      Platform = "medium"
	PlatformHugo        Platform = "hugo"
)

// Result is the outcome of platform detection for a host
type Result struct {
	Platform  Platform
	Selectors []string // Empty for PlatformUnknown
}

// Detector picks content selectors from the blog platform a page was built with.
// Results are cached per host, so only the first post of a site is inspected.
type Detector struct {
	cache *SelectorCache
	log   *logrus.Entry
}

// NewDetector creates a detector with an empty cache
func NewDetector(log *logrus.Entry) *Detector {
	return &Detector{
		cache: NewSelectorCache(),
		log:   log.WithField("component", "detect"),
	}
}

// Detect returns the platform result for the page's host, inspecting doc on a cache miss
func (d *Detector) Detect(doc *goquery.Document, pageURL *url.URL) Result {
	host := strings.ToLower(pageURL.Hostname())

	if cached, ok := d.cache.Get(host); ok {
		return cached
	}

	result := detectPlatform(doc)
	if result.Platform == PlatformUnknown {
		d.log.Infof("No blog platform detected for %s, auto selectors fall through", host)
	} else {
		d.log.Infof("Detected %s for %s, using selectors %v", result.Platform, host, result.Selectors)
	}
	d.cache.Set(host, result)
	return result
}

// Expand replaces every auto entry in selectors with the detected platform's
// selectors, keeping the other entries in place. An unknown platform expands
// to nothing.
func (d *Detector) Expand(selectors []string, doc *goquery.Document, pageURL *url.URL) []string {
	if !HasAutoSelector(selectors) {
		return selectors
	}
	detected := d.Detect(doc, pageURL).Selectors
	out := make([]string, 0, len(selectors)+len(detected))
	for _, s := range selectors {
		if IsAutoSelector(s) {
			out = append(out, detected...)
			continue
		}
		out = append(out, s)
	}
	return out
}

func detectPlatform(doc *goquery.Document) Result {
	html, _ := doc.Html()

	for _, sig := range platformSignatures {
		if sig.Matches(doc, html) {
			return Result{
				Platform:  sig.Platform,
				Selectors: append([]string(nil), sig.Selectors...),
			}
		}
	}
	return Result{Platform: PlatformUnknown}
}

// IsAutoSelector returns true if the selector value asks for platform detection
func IsAutoSelector(selector string) bool {
	return strings.EqualFold(strings.TrimSpace(selector), "auto")
}

// HasAutoSelector reports whether any selector asks for platform detection
func HasAutoSelector(selectors []string) bool {
	for _, s := range selectors {
		if IsAutoSelector(s) {
			return true
		}
	}
	return false
}
