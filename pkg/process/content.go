package process

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
)

// Content root fallbacks recorded in PostContext.ContentSelector
const (
	RootBody     = "body"
	RootDocument = "document"
)

// ContentRoot returns the first element matched by selectors, tried in order.
// Without a match it falls back to <body>, then to the whole document, so it
// never fails. The second result names what matched.
func ContentRoot(doc *goquery.Document, selectors []string) (*goquery.Selection, string) {
	for _, selector := range selectors {
		if selector == "" {
			continue
		}
		if match := doc.Find(selector).First(); match.Length() > 0 {
			return match, selector
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body, RootBody
	}
	return doc.Selection, RootDocument
}

// ResolveTitle picks the post title according to policy.
//
// heading:  content-root heading, <article> heading, <title>, fallback
// document: <title>, content-root heading, <article> heading, fallback
//
// Headings are located with headingSelectors in order.
func ResolveTitle(doc *goquery.Document, root *goquery.Selection, policy string, headingSelectors []string, fallback string) string {
	fromRoot := func() string { return firstText(root, headingSelectors) }
	fromArticle := func() string { return firstText(doc.Find("article"), headingSelectors) }
	fromTitle := func() string { return cleanText(doc.Find("title").First().Text()) }

	order := []func() string{fromRoot, fromArticle, fromTitle}
	if policy == config.TitleSourceDocument {
		order = []func() string{fromTitle, fromRoot, fromArticle}
	}
	for _, source := range order {
		if title := source(); title != "" {
			return title
		}
	}
	return fallback
}

// ExtractSEO reads the document-level metadata. The canonical href is resolved
// against pageURL; absent fields are empty strings.
func ExtractSEO(doc *goquery.Document, pageURL *url.URL) models.SEOFields {
	seo := models.SEOFields{
		PageTitle: cleanText(doc.Find("title").First().Text()),
	}

	doc.Find("meta[name]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name, _ := sel.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		content, _ := sel.Attr("content")
		seo.MetaDescription = strings.TrimSpace(content)
		return false
	})
	seo.MetaDescriptionLength = utf8.RuneCountInString(seo.MetaDescription)

	doc.Find("link[rel][href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rel, _ := sel.Attr("rel")
		if !hasToken(rel, "canonical") {
			return true
		}
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		seo.CanonicalURL = href
		if href != "" && pageURL != nil {
			if resolved, err := pageURL.Parse(href); err == nil {
				seo.CanonicalURL = resolved.String()
			}
		}
		return false
	})
	return seo
}

// FirstH1 returns the text of the document's first <h1>, or "".
func FirstH1(doc *goquery.Document) string {
	return cleanText(doc.Find("h1").First().Text())
}

// firstText returns the text of the first non-blank match of selectors within scope.
func firstText(scope *goquery.Selection, selectors []string) string {
	if scope.Length() == 0 {
		return ""
	}
	for _, selector := range selectors {
		var text string
		scope.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text = cleanText(sel.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// cleanText trims s and collapses internal whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// hasToken reports whether the whitespace-separated, case-insensitive list contains token.
func hasToken(list, token string) bool {
	for _, t := range strings.Fields(strings.ToLower(list)) {
		if t == token {
			return true
		}
	}
	return false
}
