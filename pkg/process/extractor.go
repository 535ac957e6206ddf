package process

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/detect"
	"github.com/ariasbenraq/scrap-url-broke/pkg/fetch"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/parse"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// DocumentFetcher retrieves and parses HTML pages. *fetch.Fetcher satisfies it.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Extractor fetches post pages and pulls out the title, SEO fields and the
// link/image targets of the content region.
type Extractor struct {
	fetcher          DocumentFetcher
	scope            *parse.SiteScope
	contentSelectors []string
	titleSource      string
	titleSelectors   []string
	excludedDomains  []string
	stopPrefixes     []string
	detector         *detect.Detector // Set when content_selectors contains "auto"
	log              *logrus.Entry
}

// NewExtractor creates an Extractor for a validated site configuration
func NewExtractor(fetcher DocumentFetcher, siteCfg config.SiteConfig, log *logrus.Entry) (*Extractor, error) {
	scope, err := parse.NewSiteScope(siteCfg.BaseURL)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		fetcher:          fetcher,
		scope:            scope,
		contentSelectors: siteCfg.ContentSelectors,
		titleSource:      siteCfg.TitleSource,
		titleSelectors:   siteCfg.TitleSelectors,
		excludedDomains:  siteCfg.ExcludedDomains,
		stopPrefixes:     siteCfg.StopURLPrefixes,
		log:              log.WithField("component", "extractor"),
	}
	if detect.HasAutoSelector(siteCfg.ContentSelectors) {
		e.detector = detect.NewDetector(log)
	}
	return e, nil
}

// Extract fetches one post. A failed fetch is reported through FetchErr and
// FetchStatus rather than an error return.
func (e *Extractor) Extract(ctx context.Context, post models.PostReference) models.PostContext {
	postLog := e.log.WithField("post_url", post.URL)

	page, err := e.fetcher.GetDocument(ctx, post.URL)
	if err != nil {
		pc := models.PostContext{Post: post, Title: post.URL, FetchErr: err}
		if page != nil {
			pc.FetchStatus = page.StatusCode
		}
		postLog.WithFields(logrus.Fields{
			"status_code": pc.FetchStatus,
			"error_type":  utils.CategorizeError(err),
		}).Warnf("Post fetch failed: %v", err)
		return pc
	}

	base := page.FinalURL
	if base == nil {
		if base, err = url.Parse(post.URL); err != nil {
			return models.PostContext{
				Post:     post,
				Title:    post.URL,
				FetchErr: fmt.Errorf("%w: URL post '%s': %v", utils.ErrParsing, post.URL, err),
			}
		}
	}

	pc := e.ExtractDocument(page.Doc, base, post, postLog)
	pc.FetchStatus = page.StatusCode
	return pc
}

// ExtractDocument runs extraction on an already parsed post page. base is the
// URL relative references resolve against.
func (e *Extractor) ExtractDocument(doc *goquery.Document, base *url.URL, post models.PostReference, postLog *logrus.Entry) models.PostContext {
	selectors := e.contentSelectors
	if e.detector != nil {
		selectors = e.detector.Expand(selectors, doc, base)
	}
	root, matched := ContentRoot(doc, selectors)
	if matched == RootBody || matched == RootDocument {
		postLog.Debugf("No content selector matched, using %s", matched)
	}

	targets := ExtractTargets(root, base, e.scope, postLog)
	found := len(targets)
	targets = FilterExcluded(targets, e.excludedDomains)
	excluded := found - len(targets)
	beforeStop := len(targets)
	targets = TruncateAtStop(targets, e.stopPrefixes)

	pc := models.PostContext{
		Post:            post,
		Title:           ResolveTitle(doc, root, e.titleSource, e.titleSelectors, post.URL),
		H1:              FirstH1(doc),
		ContentSelector: matched,
		SEO:             ExtractSEO(doc, base),
		Links:           targets,
	}
	postLog.WithFields(logrus.Fields{
		"content_selector": matched,
		"excluded":         excluded,
		"truncated":        beforeStop - len(targets),
	}).Infof("Extracted %d target(s)", len(targets))
	return pc
}
