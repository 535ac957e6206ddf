package orchestrate

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/fetch"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/pipeline"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// SiteResult contains the result of auditing a single site
type SiteResult struct {
	SiteKey  string
	Success  bool
	Error    error
	Summary  models.RunSummary
	Duration time.Duration
}

// Options override site settings for a single invocation
type Options struct {
	OutputDir string   // Replaces every site's output directory when set
	Reports   []string // Restricts the reports written; empty keeps each site's set
}

// Orchestrator audits the selected sites one after another over a shared HTTP client
type Orchestrator struct {
	appCfg   config.AppConfig
	log      *logrus.Entry
	siteKeys []string
	opts     Options

	client  *http.Client
	results []SiteResult
}

// NewOrchestrator creates an orchestrator. appCfg must already be validated;
// site configs are validated per run.
func NewOrchestrator(appCfg config.AppConfig, siteKeys []string, opts Options, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		appCfg:   appCfg,
		log:      log,
		siteKeys: siteKeys,
		opts:     opts,
		client:   fetch.NewClient(appCfg.HTTPClientSettings, log.Logger),
		results:  make([]SiteResult, 0, len(siteKeys)),
	}
}

// Run audits every site in order. A failing site does not stop the others;
// cancellation marks the remaining sites as failed without running them.
func (o *Orchestrator) Run(ctx context.Context) []SiteResult {
	startTime := time.Now()
	o.log.Infof("Starting audit of %d site(s): %v", len(o.siteKeys), o.siteKeys)

	for _, key := range o.siteKeys {
		if err := ctx.Err(); err != nil {
			o.results = append(o.results, SiteResult{SiteKey: key, Error: err})
			continue
		}
		o.results = append(o.results, o.auditSite(ctx, key))
	}

	o.logSummary(time.Since(startTime))
	return o.results
}

// Summaries returns the run summaries of the sites that got far enough to start a run
func (o *Orchestrator) Summaries() []models.RunSummary {
	summaries := make([]models.RunSummary, 0, len(o.results))
	for _, r := range o.results {
		if r.Summary.RunID == "" {
			continue
		}
		summaries = append(summaries, r.Summary)
	}
	return summaries
}

// Failed reports whether any site failed
func (o *Orchestrator) Failed() bool {
	for _, r := range o.results {
		if !r.Success {
			return true
		}
	}
	return false
}

func (o *Orchestrator) auditSite(ctx context.Context, siteKey string) SiteResult {
	startTime := time.Now()
	result := SiteResult{SiteKey: siteKey}
	siteLog := o.log.WithField("site_key", siteKey)

	siteCfg, exists := o.appCfg.Sites[siteKey]
	if !exists {
		result.Error = fmt.Errorf("site '%s' not found in configuration", siteKey)
		siteLog.Error(result.Error)
		return result
	}

	warnings, err := siteCfg.Validate()
	for _, w := range warnings {
		siteLog.Warnf("Config: %s", w)
	}
	if err != nil {
		result.Error = utils.WrapErrorf(err, "site '%s'", siteKey)
		siteLog.Errorf("Invalid site configuration: %v", err)
		return result
	}
	if err := siteCfg.FilterReports(o.opts.Reports); err != nil {
		result.Error = utils.WrapErrorf(err, "site '%s'", siteKey)
		siteLog.Error(result.Error)
		return result
	}
	siteCfg.OutputDir = o.outputDirFor(siteKey, siteCfg)

	p, err := pipeline.New(o.appCfg, siteCfg, siteKey, o.client, o.log)
	if err != nil {
		result.Error = fmt.Errorf("failed to set up audit for '%s': %w", siteKey, err)
		siteLog.Error(result.Error)
		return result
	}
	defer func() {
		if err := p.Close(); err != nil {
			siteLog.Warnf("Closing run store: %v", err)
		}
	}()

	summary, err := p.Run(ctx)
	result.Summary = summary
	result.Duration = time.Since(startTime)
	if err != nil {
		result.Error = err
		siteLog.Errorf("Audit failed: %v", err)
		return result
	}
	result.Success = true
	return result
}

// outputDirFor resolves where a site's reports go. With several sites sharing
// a directory, each site writes into its own subdirectory.
func (o *Orchestrator) outputDirFor(siteKey string, siteCfg config.SiteConfig) string {
	dir := config.GetEffectiveOutputDir(siteCfg, o.appCfg)
	shared := siteCfg.OutputDir == ""
	if o.opts.OutputDir != "" {
		dir = o.opts.OutputDir
		shared = true
	}
	if shared && len(o.siteKeys) > 1 {
		dir = filepath.Join(dir, utils.SanitizeFilename(siteKey))
	}
	return dir
}

// logSummary logs a summary of all site results
func (o *Orchestrator) logSummary(totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Audit completed in %v", totalDuration.Round(time.Millisecond))
	o.log.Info("Site Results:")

	var totalPosts, totalBroken int
	successCount := 0
	failCount := 0

	for _, r := range o.results {
		status := "SUCCESS"
		if !r.Success {
			status = "FAILED"
			failCount++
		} else {
			successCount++
		}
		totalPosts += r.Summary.PostsProcessed
		totalBroken += r.Summary.LinksBroken

		o.log.Infof("  %s: %s - %d posts, %d broken links in %v",
			r.SiteKey, status, r.Summary.PostsProcessed, r.Summary.LinksBroken, r.Duration.Round(time.Millisecond))
		if r.Error != nil {
			o.log.Infof("    Error: %v", r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d sites (%d success, %d failed), %d posts, %d broken links",
		len(o.results), successCount, failCount, totalPosts, totalBroken)
	o.log.Info("============================================")
}

// ValidateSiteKeys checks that all provided site keys exist in the config
func ValidateSiteKeys(appCfg config.AppConfig, siteKeys []string) error {
	for _, key := range siteKeys {
		if _, exists := appCfg.Sites[key]; !exists {
			return fmt.Errorf("site '%s' not found. Available sites: %v", key, GetAllSiteKeys(appCfg))
		}
	}
	return nil
}

// GetAllSiteKeys returns all site keys from the config, sorted
func GetAllSiteKeys(appCfg config.AppConfig) []string {
	keys := make([]string, 0, len(appCfg.Sites))
	for k := range appCfg.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
