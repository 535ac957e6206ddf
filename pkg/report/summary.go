package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
)

// RenderSummary prints one row per site run plus a totals footer
func RenderSummary(w io.Writer, summaries []models.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Site", "Source", "Posts", "Failed", "Links", "Checked", "Broken", "Errors", "Duration", "Reports"})

	var posts, failed, links, checked, broken int
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.SiteKey,
			sourceLabel(s.DiscoverySource),
			fmt.Sprintf("%d/%d", s.PostsProcessed, s.PostsFound),
			s.PostsFailed,
			s.LinksFound,
			s.LinksChecked,
			s.LinksBroken,
			formatErrorCategories(s.ErrorCategories),
			s.Duration().Round(time.Millisecond),
			strings.Join(s.ReportFiles, "\n"),
		})
		posts += s.PostsProcessed
		failed += s.PostsFailed
		links += s.LinksFound
		checked += s.LinksChecked
		broken += s.LinksBroken
	}

	if len(summaries) > 1 {
		t.AppendFooter(table.Row{"Total", "", posts, failed, links, checked, broken, "", "", ""})
	}
	t.Render()
}

func sourceLabel(source string) string {
	if source == "" {
		return "none"
	}
	return source
}

// formatErrorCategories renders "category=count" pairs sorted by category
func formatErrorCategories(categories map[string]int) string {
	if len(categories) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(categories))
	for k := range categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, categories[k])
	}
	return strings.Join(parts, "\n")
}
