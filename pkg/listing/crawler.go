package listing

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/fetch"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/parse"
	"github.com/ariasbenraq/scrap-url-broke/pkg/queue"
	"github.com/ariasbenraq/scrap-url-broke/pkg/storage"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// pageSegment matches a "/page/N" pagination segment anywhere in a path
var pageSegment = regexp.MustCompile(`(^|/)page/\d+(/|$)`)

// DocumentFetcher retrieves and parses HTML pages. *fetch.Fetcher satisfies it.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Crawler walks the blog's paginated listing pages breadth-first, starting at
// the blog index, and collects the post links they contain.
type Crawler struct {
	fetcher     DocumentFetcher
	store       storage.VisitedSet
	scope       *parse.SiteScope
	indexURL    string
	indexHost   string
	pathPrefix  string // Index path without trailing slash; listing pages must live under it
	marker      string
	excludes    []*regexp.Regexp
	queryParams []string
	maxPages    int
	log         *logrus.Entry
}

// NewCrawler creates a listing Crawler for a validated site configuration
func NewCrawler(fetcher DocumentFetcher, store storage.VisitedSet, siteCfg config.SiteConfig, log *logrus.Entry) (*Crawler, error) {
	scope, err := parse.NewSiteScope(siteCfg.BaseURL)
	if err != nil {
		return nil, err
	}
	index, err := url.Parse(siteCfg.BlogIndexURL)
	if err != nil || index.Host == "" {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "blog index URL '%s' is not absolute", siteCfg.BlogIndexURL)
	}
	excludes, err := utils.CompileRegexPatterns(siteCfg.ExcludePathPatterns)
	if err != nil {
		return nil, err
	}
	return &Crawler{
		fetcher:     fetcher,
		store:       store,
		scope:       scope,
		indexURL:    siteCfg.BlogIndexURL,
		indexHost:   index.Host,
		pathPrefix:  strings.TrimRight(index.Path, "/"),
		marker:      siteCfg.PostMarker,
		excludes:    excludes,
		queryParams: siteCfg.Listing.PageQueryParams,
		maxPages:    siteCfg.Listing.MaxPages,
		log:         log.WithField("component", "listing_crawler"),
	}, nil
}

// Name identifies the discovery strategy in logs and the run summary.
func (c *Crawler) Name() string { return "listing" }

// Discover crawls listing pages until the queue empties or the page limit is
// reached, and returns the collected posts sorted by URL. Page fetch failures
// are logged and skipped; only context cancellation is returned as an error.
func (c *Crawler) Discover(ctx context.Context) ([]models.PostReference, error) {
	frontier := queue.NewFrontier(c.log)
	defer frontier.Close()

	found := make(map[string]models.PostReference)
	c.enqueue(frontier, c.indexURL, 0)

	visitedPages := 0
	for visitedPages < c.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, ok := frontier.Pop()
		if !ok {
			break
		}
		visitedPages++
		c.crawlPage(ctx, frontier, item, found)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frontier.Len() > 0 {
		c.log.Warnf("Listing page limit %d reached, %d page(s) left unvisited", c.maxPages, frontier.Len())
	}

	posts := make([]models.PostReference, 0, len(found))
	for _, ref := range found {
		posts = append(posts, ref)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].URL < posts[j].URL })
	c.log.Infof("Listing crawl visited %d page(s), found %d post URLs", visitedPages, len(posts))
	return posts, nil
}

// crawlPage fetches one listing page, records its post links and queues the
// pagination links it advertises.
func (c *Crawler) crawlPage(ctx context.Context, frontier *queue.Frontier, item queue.Item, found map[string]models.PostReference) {
	pageLog := c.log.WithFields(logrus.Fields{"listing_url": item.URL, "depth": item.Depth})
	pageLog.Info("Processing listing page")

	page, err := c.fetcher.GetDocument(ctx, item.URL)
	if err != nil {
		fields := logrus.Fields{"error_type": utils.CategorizeError(err)}
		if page != nil {
			fields["status_code"] = page.StatusCode
		}
		pageLog.WithFields(fields).Warnf("Fetch failed: %v", err)
		return
	}

	base := page.FinalURL
	if base == nil {
		base, _ = url.Parse(item.URL)
	}

	newPosts, queued := 0, 0
	page.Doc.Find("a[href], link[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !parse.IsFetchableRef(href) {
			return
		}
		u, err := parse.ResolveRef(base, href)
		if err != nil {
			return
		}
		u.Fragment, u.RawFragment = "", ""

		if c.isListingPage(u, hasRelNext(sel)) {
			if c.enqueue(frontier, u.String(), item.Depth+1) {
				queued++
			}
			return
		}
		if goquery.NodeName(sel) != "a" {
			return
		}
		if ref, ok := c.acceptPost(u); ok {
			if _, dup := found[ref.URL]; !dup {
				found[ref.URL] = ref
				newPosts++
			}
		}
	})
	pageLog.Infof("Found %d new post URLs, queued %d listing page(s)", newPosts, queued)
}

// enqueue adds rawURL to the frontier unless it was already visited or queued.
func (c *Crawler) enqueue(frontier *queue.Frontier, rawURL string, depth int) bool {
	normalized, _, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		c.log.WithField("listing_url", rawURL).Warnf("Invalid listing URL: %v", err)
		return false
	}
	added, err := c.store.MarkVisited(storage.NamespaceListing, normalized)
	if err != nil {
		c.log.WithField("listing_url", rawURL).Errorf("Listing visited-set error: %v", err)
		return false
	}
	if !added {
		return false
	}
	frontier.Add(queue.Item{URL: rawURL, Depth: depth})
	return true
}

// isListingPage reports whether u is another page of the blog listing: it must
// live under the index path on the index host and carry a page indicator.
func (c *Crawler) isListingPage(u *url.URL, relNext bool) bool {
	if !strings.EqualFold(u.Host, c.indexHost) {
		return false
	}
	if u.Path != c.pathPrefix && !strings.HasPrefix(u.Path, c.pathPrefix+"/") {
		return false
	}
	if relNext {
		return true
	}
	query := u.Query()
	for _, param := range c.queryParams {
		if query.Get(param) != "" {
			return true
		}
	}
	return pageSegment.MatchString(strings.TrimPrefix(u.Path, c.pathPrefix))
}

// acceptPost reports whether u is an on-site post link not matching any exclude pattern.
func (c *Crawler) acceptPost(u *url.URL) (models.PostReference, bool) {
	if !parse.IsPostURL(u, c.marker) || c.scope.Classify(u) != models.LinkTypeInternal {
		return models.PostReference{}, false
	}
	if utils.MatchesAny(c.excludes, u.Path) {
		return models.PostReference{}, false
	}
	return parse.NewPostReference(u, c.marker), true
}

// hasRelNext reports whether the element's rel attribute contains the "next" token.
func hasRelNext(sel *goquery.Selection) bool {
	rel, ok := sel.Attr("rel")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "next" {
			return true
		}
	}
	return false
}
