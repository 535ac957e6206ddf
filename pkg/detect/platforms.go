package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlatformSignature defines detection patterns for a blog platform
type PlatformSignature struct {
	Platform     Platform
	Selectors    []string // Content selectors, most specific first
	Generators   []string // Substrings of <meta name="generator">, lower-case
	Attributes   []string // HTML attributes to look for (e.g., "data-hook")
	Classes      []string // CSS classes to look for; a trailing * matches a prefix
	Scripts      []string // Script src patterns to look for
	HTMLPatterns []string // Substring patterns to look for in raw HTML
}

// Matches returns true if the document matches this platform's signature
func (sig *PlatformSignature) Matches(doc *goquery.Document, html string) bool {
	if generator := metaGenerator(doc); generator != "" {
		for _, g := range sig.Generators {
			if strings.Contains(generator, g) {
				return true
			}
		}
	}

	for _, attr := range sig.Attributes {
		if doc.Find("["+attr+"]").Length() > 0 {
			return true
		}
	}

	for _, class := range sig.Classes {
		if prefix, ok := strings.CutSuffix(class, "*"); ok {
			if hasClassPrefix(doc, prefix) {
				return true
			}
		} else if doc.Find("."+class).Length() > 0 {
			return true
		}
	}

	for _, pattern := range sig.Scripts {
		found := false
		doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, _ := s.Attr("src")
			found = strings.Contains(src, pattern)
			return !found
		})
		if found {
			return true
		}
	}

	htmlLower := strings.ToLower(html)
	for _, pattern := range sig.HTMLPatterns {
		if strings.Contains(htmlLower, pattern) {
			return true
		}
	}

	return false
}

// metaGenerator returns the lower-cased content of <meta name="generator">
func metaGenerator(doc *goquery.Document) string {
	generator := ""
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), "generator") {
			generator = strings.ToLower(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return generator
}

func hasClassPrefix(doc *goquery.Document, prefix string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if strings.HasPrefix(c, prefix) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// platformSignatures holds detection patterns for known blog platforms.
// Order matters: the first match wins.
var platformSignatures = []PlatformSignature{
	{
		Platform: PlatformWix,
		Selectors: []string{
			`section[data-hook="post-description"]`,
			`div[data-hook="post-content"]`,
			`[data-hook="post-page"] article`,
		},
		Generators:   []string{"wix.com"},
		Scripts:      []string{"static.parastorage.com"},
		HTMLPatterns: []string{"static.wixstatic.com"},
	},
	{
		Platform:     PlatformWordPress,
		Selectors:    []string{".entry-content", ".wp-block-post-content", ".post-content", "article"},
		Generators:   []string{"wordpress"},
		Classes:      []string{"wp-block-*"},
		Scripts:      []string{"/wp-includes/", "/wp-content/"},
		HTMLPatterns: []string{"/wp-content/themes/"},
	},
	{
		Platform:   PlatformGhost,
		Selectors:  []string{".gh-content", ".post-content", "article.post"},
		Generators: []string{"ghost"},
		Classes:    []string{"gh-content", "kg-card*"},
	},
	{
		Platform:     PlatformBlogger,
		Selectors:    []string{".post-body", ".post-body-container"},
		Generators:   []string{"blogger"},
		HTMLPatterns: []string{"www.blogger.com/static", ".blogspot.com"},
	},
	{
		Platform:     PlatformSquarespace,
		Selectors:    []string{".blog-item-content", "article .sqs-layout"},
		Classes:      []string{"sqs-block*"},
		HTMLPatterns: []string{"static1.squarespace.com"},
	},
	{
		Platform:     PlatformMedium,
		Selectors:    []string{"article section", "article"},
		HTMLPatterns: []string{"cdn-client.medium.com", "miro.medium.com"},
	},
	{
		Platform:   PlatformHugo,
		Selectors:  []string{".post-content", "article .content", "main article"},
		Generators: []string{"hugo"},
	},
}

// PlatformSelectors returns the content selectors for a known platform
func PlatformSelectors(p Platform) []string {
	for _, sig := range platformSignatures {
		if sig.Platform == p {
			return append([]string(nil), sig.Selectors...)
		}
	}
	return nil
}
