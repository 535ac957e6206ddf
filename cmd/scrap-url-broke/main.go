package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	applog "github.com/ariasbenraq/scrap-url-broke/pkg/log"
	"github.com/ariasbenraq/scrap-url-broke/pkg/orchestrate"
	"github.com/ariasbenraq/scrap-url-broke/pkg/report"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "audit":
		os.Exit(runAudit(os.Args[2:]))
	case "validate":
		runValidate(os.Args[2:])
	case "list-sites":
		runListSites(os.Args[2:])
	case "version":
		fmt.Printf("scrap-url-broke %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `scrap-url-broke - Blog link checker and SEO auditor

Usage:
  scrap-url-broke <command> [options]

Commands:
  audit       Discover posts, extract links, check them, write reports
  validate    Validate configuration file
  list-sites  List configured site keys
  version     Print version

Run 'scrap-url-broke <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// auditOptions carries the parsed audit flags
type auditOptions struct {
	configFile string
	siteKeys   []string
	allSites   bool
	logLevel   string
	reports    []string
	outputDir  string
}

// splitList splits a comma-separated flag value, dropping empty items
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseAuditFlags parses the audit flags. Exactly one site selector is required.
func parseAuditFlags(args []string, stderr io.Writer) (auditOptions, error) {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key from config (single site)")
	sites := fs.String("sites", "", "Comma-separated site keys, audited in order")
	allSites := fs.Bool("all-sites", false, "Audit all configured sites")
	logLevel := fs.String("loglevel", "info", "Log level (trace, debug, info, warn, error)")
	reports := fs.String("reports", "", "Comma-separated report kinds to write (broken, links, meta)")
	outputDir := fs.String("output-dir", "", "Directory for report files, overriding the config")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: scrap-url-broke audit [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  scrap-url-broke audit -site company_blog\n")
		fmt.Fprintf(stderr, "  scrap-url-broke audit -sites company_blog,eng_blog -reports broken\n")
		fmt.Fprintf(stderr, "  scrap-url-broke audit -all-sites -output-dir ./reports\n")
	}

	if err := fs.Parse(args); err != nil {
		return auditOptions{}, err
	}

	opts := auditOptions{
		configFile: *configFile,
		allSites:   *allSites,
		logLevel:   *logLevel,
		reports:    splitList(*reports),
		outputDir:  *outputDir,
	}

	switch {
	case *allSites:
	case *sites != "":
		opts.siteKeys = splitList(*sites)
	case *siteKey != "":
		opts.siteKeys = []string{*siteKey}
	}
	if !opts.allSites && len(opts.siteKeys) == 0 {
		fs.Usage()
		return auditOptions{}, fmt.Errorf("one of -site, -sites, or -all-sites is required")
	}
	return opts, nil
}

// runAudit handles the audit subcommand and returns the exit code
func runAudit(args []string) int {
	opts, err := parseAuditFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "Received signal: %v. Stopping audit, no reports will be written...\n", sig)
		cancel()

		select {
		case sig = <-sigChan:
			fmt.Fprintf(os.Stderr, "Received second signal: %v. Forcing exit.\n", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			fmt.Fprintln(os.Stderr, "Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	return doAudit(ctx, opts, os.Stdout, os.Stderr)
}

// doAudit runs the audit and prints the summary table to stdout. Logs go to stderr.
// Returns exit code (0 = every site succeeded, 1 = otherwise).
func doAudit(ctx context.Context, opts auditOptions, stdout, stderr io.Writer) int {
	logger, err := applog.NewLogger(opts.logLevel, stderr)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", opts.logLevel, err)
	}

	logger.Infof("Loading configuration from %s", opts.configFile)
	appCfg, err := loadConfig(opts.configFile)
	if err != nil {
		logger.Errorf("Config error: %v", err)
		return 1
	}

	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		logger.Warn(w)
	}
	if err != nil {
		logger.Errorf("Config error: %v", err)
		return 1
	}

	siteKeys := opts.siteKeys
	if opts.allSites {
		siteKeys = orchestrate.GetAllSiteKeys(*appCfg)
		logger.Infof("All sites mode: found %d sites", len(siteKeys))
		if len(siteKeys) == 0 {
			logger.Errorf("No sites configured in %s", opts.configFile)
			return 1
		}
	}
	if err := orchestrate.ValidateSiteKeys(*appCfg, siteKeys); err != nil {
		logger.Errorf("Invalid site keys: %v", err)
		return 1
	}

	orch := orchestrate.NewOrchestrator(*appCfg, siteKeys, orchestrate.Options{
		OutputDir: opts.outputDir,
		Reports:   opts.reports,
	}, logger.WithField("component", "audit"))

	orch.Run(ctx)
	report.RenderSummary(stdout, orch.Summaries())

	if orch.Failed() {
		return 1
	}
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	siteKey := fs.String("site", "", "Site key to validate (optional, validates all if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scrap-url-broke validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, *siteKey, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, siteKey string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	keys := orchestrate.GetAllSiteKeys(*appCfg)
	if siteKey != "" {
		if _, ok := appCfg.Sites[siteKey]; !ok {
			fmt.Fprintf(stderr, "Error: site '%s' not found in config\n", siteKey)
			return 1
		}
		keys = []string{siteKey}
	}

	hasError := false
	for _, key := range keys {
		siteCfg := appCfg.Sites[key]
		siteWarnings, err := siteCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", key, err)
			hasError = true
			continue
		}
		for _, w := range siteWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", key, w)
		}
		fmt.Fprintf(stdout, "OK: [%s]\n", key)
	}
	if hasError {
		return 1
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListSites handles the list-sites subcommand
func runListSites(args []string) {
	fs := flag.NewFlagSet("list-sites", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scrap-url-broke list-sites [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doListSites(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doListSites lists sites with their effective discovery settings.
// Returns exit code (0 = success, 1 = error).
func doListSites(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Sites in %s:\n\n", configPath)
	for _, key := range orchestrate.GetAllSiteKeys(*appCfg) {
		site := appCfg.Sites[key]
		fmt.Fprintf(stdout, "  %s\n", key)
		if _, err := site.Validate(); err != nil {
			fmt.Fprintf(stdout, "    Invalid: %v\n\n", err)
			continue
		}
		fmt.Fprintf(stdout, "    Base URL: %s\n", site.BaseURL)
		fmt.Fprintf(stdout, "    Sitemaps: %s\n", strings.Join(site.SitemapURLs, ", "))
		fmt.Fprintf(stdout, "    Blog Index: %s\n", site.BlogIndexURL)
		kinds := make([]string, 0, len(site.Reports))
		for _, r := range site.Reports {
			kinds = append(kinds, r.Kind)
		}
		fmt.Fprintf(stdout, "    Reports: %s\n", strings.Join(kinds, ", "))
		fmt.Fprintln(stdout)
	}
	return 0
}
