package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// checkRow is a broken-report row plus whether the check failed, so the
// only_broken filter can be applied when the report is written.
type checkRow struct {
	row    models.BrokenLinkRow
	broken bool
}

// OutputManager accumulates report rows for one site run and writes every
// configured report once the run has completed. Nothing touches the disk
// before WriteReports.
type OutputManager struct {
	log           *logrus.Entry
	outputDir     string
	delimiter     rune
	failureMarker string
	reports       []config.ReportConfig

	checks []checkRow
	links  []models.LinkRow
	meta   []models.MetaRow
}

// NewOutputManager creates an OutputManager for a validated site configuration
func NewOutputManager(log *logrus.Entry, appCfg config.AppConfig, siteCfg config.SiteConfig) *OutputManager {
	return &OutputManager{
		log:           log.WithField("component", "report_writer"),
		outputDir:     config.GetEffectiveOutputDir(siteCfg, appCfg),
		delimiter:     config.GetEffectiveDelimiter(siteCfg, appCfg),
		failureMarker: config.GetEffectiveFailureMarker(siteCfg, appCfg),
		reports:       siteCfg.Reports,
	}
}

// StatusText renders a check result for the status column: the numeric code,
// or the failure marker when the request never completed.
func (om *OutputManager) StatusText(res models.CheckResult) string {
	if res.Err != nil || res.StatusCode == 0 {
		return om.failureMarker
	}
	return strconv.Itoa(res.StatusCode)
}

// RecordCheck adds the outcome of checking one target linked from pc
func (om *OutputManager) RecordCheck(pc models.PostContext, res models.CheckResult) {
	om.checks = append(om.checks, checkRow{
		row: models.BrokenLinkRow{
			PostTitle: pc.Title,
			PostURL:   pc.Post.URL,
			LinkURL:   res.URL,
			Status:    om.StatusText(res),
		},
		broken: res.Broken(),
	})
}

// RecordLinks adds one links-report row per hyperlink of pc. Images are not
// part of the links report.
func (om *OutputManager) RecordLinks(pc models.PostContext) {
	for _, rec := range pc.Links {
		if rec.Kind != models.LinkKindAnchor {
			continue
		}
		om.links = append(om.links, models.LinkRow{
			PostTitle:  pc.Title,
			PostURL:    pc.Post.URL,
			LinkType:   rec.Type,
			AnchorText: rec.AnchorText,
			LinkURL:    rec.URL,
			NoFollow:   rec.NoFollow,
			NoReferrer: rec.NoReferrer,
		})
	}
}

// RecordMeta adds the page metadata row of pc
func (om *OutputManager) RecordMeta(pc models.PostContext) {
	om.meta = append(om.meta, models.MetaRow{
		PostTitle:             pc.Title,
		PostURL:               pc.Post.URL,
		PageTitle:             pc.SEO.PageTitle,
		H1:                    pc.H1,
		MetaDescription:       pc.SEO.MetaDescription,
		MetaDescriptionLength: pc.SEO.MetaDescriptionLength,
		CanonicalURL:          pc.SEO.CanonicalURL,
	})
}

// RecordPostFailure adds placeholder rows for a post that could not be
// fetched: a meta row whose page title is the failure marker, and a broken
// row for the post URL itself.
func (om *OutputManager) RecordPostFailure(pc models.PostContext) {
	om.meta = append(om.meta, models.MetaRow{
		PostTitle: pc.Title,
		PostURL:   pc.Post.URL,
		PageTitle: om.failureMarker,
	})
	om.RecordCheck(pc, models.CheckResult{URL: pc.Post.URL, StatusCode: pc.FetchStatus, Err: postFailureErr(pc)})
}

// postFailureErr drops the fetch error for HTTP error statuses, so those rows
// show the code; every other failure is written with the marker.
func postFailureErr(pc models.PostContext) error {
	if pc.FetchStatus >= 400 {
		return nil
	}
	if pc.FetchErr == nil {
		return fmt.Errorf("post fetch failed")
	}
	return pc.FetchErr
}

// BrokenRows returns the rows the broken report would contain with onlyBroken
func (om *OutputManager) BrokenRows(onlyBroken bool) []models.BrokenLinkRow {
	rows := make([]models.BrokenLinkRow, 0, len(om.checks))
	for _, c := range om.checks {
		if onlyBroken && !c.broken {
			continue
		}
		rows = append(rows, c.row)
	}
	return rows
}

// LinkRows returns the accumulated links-report rows
func (om *OutputManager) LinkRows() []models.LinkRow { return om.links }

// MetaRows returns the accumulated meta-report rows
func (om *OutputManager) MetaRows() []models.MetaRow { return om.meta }

// WriteReports writes every configured report, replacing earlier files, and
// returns the written paths. It stops at the first failure.
func (om *OutputManager) WriteReports() ([]string, error) {
	if err := os.MkdirAll(om.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, om.outputDir, err)
	}

	var written []string
	for _, rc := range om.reports {
		schema, ok := SchemaFor(rc.Kind)
		if !ok {
			return written, fmt.Errorf("%w: unknown report kind '%s'", utils.ErrConfigValidation, rc.Kind)
		}

		var records [][]string
		switch rc.Kind {
		case config.ReportBroken:
			for _, r := range om.BrokenRows(rc.GetEffectiveOnlyBroken()) {
				records = append(records, brokenRecord(r))
			}
		case config.ReportLinks:
			for _, r := range om.links {
				records = append(records, linkRecord(r))
			}
		case config.ReportMeta:
			for _, r := range om.meta {
				records = append(records, metaRecord(r))
			}
		}

		filename := rc.Filename
		if filename == "" {
			filename = config.DefaultReportFilename(rc.Kind)
		}
		path := filepath.Join(om.outputDir, utils.SanitizeFilename(filename))
		if err := writeCSV(path, schema.Header, records, om.delimiter); err != nil {
			om.log.WithField("report_file", path).Errorf("Failed to write %s report: %v", rc.Kind, err)
			return written, err
		}
		om.log.WithField("report_file", path).Infof("Wrote %s report (%d rows)", rc.Kind, len(records))
		written = append(written, path)
	}
	return written, nil
}

// writeCSV writes header and records to a temporary file in the target
// directory and renames it over path.
func writeCSV(path string, header []string, records [][]string, delimiter rune) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in '%s': %w", utils.ErrFilesystem, dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	w.Comma = delimiter
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing header to '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing rows to '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: setting permissions on '%s': %w", utils.ErrFilesystem, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: replacing '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}
