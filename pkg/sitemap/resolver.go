package sitemap

import (
	"context"
	"net/url"
	"regexp"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/parse"
	"github.com/ariasbenraq/scrap-url-broke/pkg/storage"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// BodyFetcher retrieves raw documents. *fetch.Fetcher satisfies it.
type BodyFetcher interface {
	GetBody(ctx context.Context, rawURL string) ([]byte, int, error)
}

// SitemapSource lists extra sitemap URLs advertised by a site, e.g. in robots.txt.
type SitemapSource interface {
	Sitemaps(ctx context.Context, siteURL *url.URL) []string
}

// Resolver turns candidate sitemap URLs into the set of post URLs they list.
// Sitemap indexes are followed recursively up to a maximum depth.
type Resolver struct {
	fetcher    BodyFetcher
	store      storage.VisitedSet
	candidates []string
	robots     SitemapSource // nil unless robots.txt discovery is enabled
	baseURL    *url.URL
	marker     string
	excludes   []*regexp.Regexp
	maxDepth   int
	log        *logrus.Entry
}

// NewResolver creates a Resolver for a validated site configuration.
// robots may be nil.
func NewResolver(
	fetcher BodyFetcher,
	store storage.VisitedSet,
	robots SitemapSource,
	siteCfg config.SiteConfig,
	log *logrus.Entry,
) (*Resolver, error) {
	excludes, err := utils.CompileRegexPatterns(siteCfg.ExcludePathPatterns)
	if err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(siteCfg.BaseURL)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrParsing, "URL base '%s': %v", siteCfg.BaseURL, err)
	}
	if !config.GetEffectiveDiscoverRobotsSitemaps(siteCfg) {
		robots = nil
	}
	return &Resolver{
		fetcher:    fetcher,
		store:      store,
		candidates: siteCfg.SitemapURLs,
		robots:     robots,
		baseURL:    baseURL,
		marker:     siteCfg.PostMarker,
		excludes:   excludes,
		maxDepth:   siteCfg.MaxSitemapDepth,
		log:        log.WithField("component", "sitemap_resolver"),
	}, nil
}

// Name identifies the discovery strategy in logs and the run summary.
func (r *Resolver) Name() string { return "sitemap" }

// Discover resolves the configured candidates, followed by any sitemaps
// advertised in robots.txt when that discovery is enabled.
func (r *Resolver) Discover(ctx context.Context) ([]models.PostReference, error) {
	candidates := r.candidates
	if r.robots != nil {
		candidates = appendUnique(candidates, r.robots.Sitemaps(ctx, r.baseURL))
	}
	return r.Resolve(ctx, candidates)
}

// Resolve tries each candidate in order and returns the sorted posts of the
// first one that yields any. Fetch and parse failures are logged and skipped;
// only context cancellation is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) ([]models.PostReference, error) {
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found := make(map[string]models.PostReference)
		r.walk(ctx, candidate, 0, found)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(found) == 0 {
			r.log.WithField("sitemap_url", candidate).Info("Candidate sitemap yielded no posts")
			continue
		}

		posts := make([]models.PostReference, 0, len(found))
		for _, ref := range found {
			posts = append(posts, ref)
		}
		sort.Slice(posts, func(i, j int) bool { return posts[i].URL < posts[j].URL })
		r.log.WithField("sitemap_url", candidate).Infof("Resolved %d post URLs", len(posts))
		return posts, nil
	}
	return nil, nil
}

// walk fetches one sitemap document and either recurses into an index or
// collects the post URLs of a URL set into found.
func (r *Resolver) walk(ctx context.Context, sitemapURL string, depth int, found map[string]models.PostReference) {
	sitemapLog := r.log.WithFields(logrus.Fields{"sitemap_url": sitemapURL, "depth": depth})
	if ctx.Err() != nil {
		return
	}
	if depth > r.maxDepth {
		sitemapLog.Warnf("Max sitemap depth %d exceeded, not following", r.maxDepth)
		return
	}

	normalized, _, err := parse.ParseAndNormalize(sitemapURL)
	if err != nil {
		sitemapLog.Warnf("Invalid sitemap URL: %v", err)
		return
	}
	added, err := r.store.MarkVisited(storage.NamespaceSitemap, normalized)
	if err != nil {
		sitemapLog.Errorf("Sitemap visited-set error: %v", err)
		return
	}
	if !added {
		sitemapLog.Debug("Sitemap already processed, skipping")
		return
	}

	sitemapLog.Info("Processing sitemap")
	body, status, err := r.fetcher.GetBody(ctx, sitemapURL)
	if err != nil {
		sitemapLog.WithFields(logrus.Fields{
			"status_code": status,
			"error_type":  utils.CategorizeError(err),
		}).Warnf("Fetch failed: %v", err)
		return
	}

	doc, err := parse.ParseSitemap(body)
	if err != nil {
		sitemapLog.WithField("error_type", utils.CategorizeError(err)).Warnf("Failed parse XML: %v", err)
		return
	}

	switch doc.Kind {
	case parse.SitemapIndex:
		sitemapLog.Infof("Parsed as Sitemap Index, found %d references.", len(doc.Locs))
		for _, loc := range doc.Locs {
			r.walk(ctx, loc, depth+1, found)
		}
	case parse.SitemapURLSet:
		sitemapLog.Infof("Parsed as URL Set, found %d URLs.", len(doc.Locs))
		kept := 0
		for _, loc := range doc.Locs {
			ref, ok := r.accept(loc)
			if !ok {
				continue
			}
			if _, dup := found[ref.URL]; !dup {
				found[ref.URL] = ref
				kept++
			}
		}
		sitemapLog.Infof("Finished URL Set. Kept %d new post URLs.", kept)
	}
}

// accept reports whether a leaf URL is a post: it must carry the post marker
// with a slug and its path must match none of the exclude patterns.
func (r *Resolver) accept(loc string) (models.PostReference, bool) {
	u, err := url.Parse(loc)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		r.log.WithField("loc", loc).Debug("Ignoring non-HTTP sitemap entry")
		return models.PostReference{}, false
	}
	if !parse.IsPostURL(u, r.marker) {
		return models.PostReference{}, false
	}
	if utils.MatchesAny(r.excludes, u.Path) {
		r.log.WithField("loc", loc).Debug("Excluded by path pattern")
		return models.PostReference{}, false
	}
	return parse.NewPostReference(u, r.marker), true
}

func appendUnique(base []string, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
