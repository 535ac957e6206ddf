package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/check"
	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/fetch"
	"github.com/ariasbenraq/scrap-url-broke/pkg/listing"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/parse"
	"github.com/ariasbenraq/scrap-url-broke/pkg/process"
	"github.com/ariasbenraq/scrap-url-broke/pkg/report"
	"github.com/ariasbenraq/scrap-url-broke/pkg/sitemap"
	"github.com/ariasbenraq/scrap-url-broke/pkg/storage"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// Pipeline audits one configured site: discover posts, extract each post,
// check its targets, then write the reports. Runs are strictly sequential.
type Pipeline struct {
	log     *logrus.Entry // Contextualized with site_key and run_id
	siteCfg config.SiteConfig
	siteKey string
	runID   string

	store     storage.RunStore
	discovery *FallbackChain
	extractor *process.Extractor
	checker   *check.Checker
	output    *report.OutputManager
}

// New wires the components for one site run. appCfg and siteCfg must already
// be validated. client is shared between sites; the run store is created here
// and released by Close.
func New(appCfg config.AppConfig, siteCfg config.SiteConfig, siteKey string, client *http.Client, baseLogger *logrus.Entry) (*Pipeline, error) {
	runID := uuid.New().String()
	log := baseLogger.WithFields(logrus.Fields{"site_key": siteKey, "run_id": runID})

	store, err := storage.NewBadgerStore(log)
	if err != nil {
		return nil, err
	}

	limiter := fetch.NewRateLimiter(config.GetEffectiveRequestDelay(siteCfg, appCfg), log)
	fetcher := fetch.NewFetcher(
		client,
		config.GetEffectiveUserAgent(siteCfg, appCfg),
		config.GetEffectiveRequestTimeout(siteCfg, appCfg),
		limiter,
		log.WithField("component", "fetcher"),
	)

	resolver, err := sitemap.NewResolver(fetcher, store, fetch.NewRobotsHandler(fetcher, log), siteCfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	crawler, err := listing.NewCrawler(fetcher, store, siteCfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	extractor, err := process.NewExtractor(fetcher, siteCfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var cache storage.CheckCache
	if config.GetEffectiveReuseResults(siteCfg) {
		cache = store
	}
	checker := check.NewChecker(fetcher, config.GetEffectiveGetFallbackStatuses(siteCfg, appCfg), cache, log)

	return &Pipeline{
		log:       log,
		siteCfg:   siteCfg,
		siteKey:   siteKey,
		runID:     runID,
		store:     store,
		discovery: NewFallbackChain(log, resolver, crawler),
		extractor: extractor,
		checker:   checker,
		output:    report.NewOutputManager(log, appCfg, siteCfg),
	}, nil
}

// RunID returns the identifier attached to every log line of this run
func (p *Pipeline) RunID() string { return p.runID }

// Close releases the run store
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// Run executes the audit. Reports are written only when every post has been
// processed; a cancelled context returns its error and writes nothing.
// Discovering no posts is not an error: empty reports are written.
func (p *Pipeline) Run(ctx context.Context) (models.RunSummary, error) {
	summary := models.RunSummary{
		SiteKey:   p.siteKey,
		RunID:     p.runID,
		StartTime: time.Now(),
	}

	p.log.WithField("base_url", p.siteCfg.BaseURL).Info("Audit starting")

	discovered, err := p.discovery.Discover(ctx)
	if err != nil {
		return p.finish(summary), err
	}
	summary.DiscoverySource = p.discovery.Source()
	posts := p.uniquePosts(discovered)
	summary.PostsFound = len(posts)

	if len(posts) == 0 {
		emptyErr := utils.WrapErrorf(utils.ErrNoPostsDiscovered, "site %s", p.siteKey)
		summary.AddError(utils.CategorizeError(emptyErr))
		p.log.Warnf("%v, writing empty reports", emptyErr)
	}

	checkLinks := p.wantsReport(config.ReportBroken)
	if !checkLinks {
		p.log.Info("Broken-link report not requested, skipping link checks")
	}

	for i, post := range posts {
		if err := ctx.Err(); err != nil {
			p.log.Warnf("Audit cancelled after %d of %d posts: %v", i, len(posts), err)
			return p.finish(summary), err
		}
		postLog := p.log.WithField("post_url", post.URL)
		postLog.Infof("Processing post %d/%d", i+1, len(posts))

		pc := p.extractor.Extract(ctx, post)
		if err := ctx.Err(); err != nil {
			return p.finish(summary), err
		}
		if pc.FetchErr != nil {
			summary.PostsFailed++
			summary.AddError(utils.CategorizeError(pc.FetchErr))
			if p.siteCfg.PostErrorPolicy == config.PostErrorPlaceholder {
				p.output.RecordPostFailure(pc)
			}
			continue
		}

		summary.PostsProcessed++
		summary.LinksFound += len(pc.Links)
		p.output.RecordLinks(pc)
		p.output.RecordMeta(pc)

		if !checkLinks {
			continue
		}
		if err := p.checkPost(ctx, pc, &summary, postLog); err != nil {
			return p.finish(summary), err
		}
	}

	files, err := p.output.WriteReports()
	summary.ReportFiles = files
	if err != nil {
		summary.AddError(utils.CategorizeError(err))
		return p.finish(summary), err
	}

	summary = p.finish(summary)
	p.log.WithFields(logrus.Fields{
		"posts":         summary.PostsProcessed,
		"posts_failed":  summary.PostsFailed,
		"links_checked": summary.LinksChecked,
		"links_broken":  summary.LinksBroken,
		"duration":      summary.Duration().Round(time.Millisecond),
	}).Info("Audit finished")
	return summary, nil
}

// checkPost checks every distinct target of one post once, in document order.
func (p *Pipeline) checkPost(ctx context.Context, pc models.PostContext, summary *models.RunSummary, postLog *logrus.Entry) error {
	seen := make(map[string]bool, len(pc.Links))
	for _, link := range pc.Links {
		target := parse.StripFragment(link.URL)
		if seen[target] {
			continue
		}
		seen[target] = true

		res := p.checker.Check(ctx, target)
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.LinksChecked++
		if res.Broken() {
			summary.LinksBroken++
			if res.Err != nil {
				summary.AddError(utils.CategorizeError(res.Err))
			} else {
				summary.AddError(utils.CategorizeError(fetch.StatusError(res.StatusCode, http.StatusText(res.StatusCode))))
			}
		}
		p.output.RecordCheck(pc, res)
	}
	postLog.WithField("targets", len(seen)).Debug("Post targets checked")
	return nil
}

// uniquePosts drops posts whose normalized URL was already seen this run.
func (p *Pipeline) uniquePosts(posts []models.PostReference) []models.PostReference {
	unique := make([]models.PostReference, 0, len(posts))
	for _, post := range posts {
		key, _, err := parse.ParseAndNormalize(post.URL)
		if err != nil {
			p.log.WithField("post_url", post.URL).Warnf("Skipping unparsable post URL: %v", err)
			continue
		}
		added, err := p.store.MarkVisited(storage.NamespacePost, key)
		if err != nil {
			p.log.WithField("post_url", post.URL).Errorf("Post visited-set error: %v", err)
			continue
		}
		if added {
			unique = append(unique, post)
		}
	}
	return unique
}

func (p *Pipeline) wantsReport(kind string) bool {
	for _, r := range p.siteCfg.Reports {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// finish stamps the end time and logs how much of the site each stage touched.
func (p *Pipeline) finish(summary models.RunSummary) models.RunSummary {
	summary.EndTime = time.Now()
	fields := logrus.Fields{}
	for _, ns := range []string{storage.NamespaceSitemap, storage.NamespaceListing, storage.NamespacePost} {
		count, err := p.store.Count(ns)
		if err != nil {
			p.log.Debugf("Counting %s entries failed: %v", ns, err)
			continue
		}
		fields[fmt.Sprintf("%s_urls", ns)] = count
	}
	p.log.WithFields(fields).Debug("Run store totals")
	if p.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		if keys, err := p.store.Keys(storage.NamespaceSitemap); err == nil {
			p.log.Tracef("Sitemaps fetched: %v", keys)
		}
	}
	return summary
}
