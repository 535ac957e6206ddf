package report

import (
	"strconv"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
)

// Schema is the fixed column layout of one report kind
type Schema struct {
	Kind   string
	Header []string
}

var (
	BrokenSchema = Schema{
		Kind:   config.ReportBroken,
		Header: []string{"post_title", "post_url", "link_url", "status"},
	}
	LinksSchema = Schema{
		Kind:   config.ReportLinks,
		Header: []string{"post_title", "post_url", "link_type", "anchor_text", "link_url", "nofollow", "noreferrer"},
	}
	MetaSchema = Schema{
		Kind:   config.ReportMeta,
		Header: []string{"post_title", "post_url", "page_title", "h1", "meta_description", "meta_description_length", "canonical_url"},
	}
)

// SchemaFor returns the schema of a report kind
func SchemaFor(kind string) (Schema, bool) {
	switch kind {
	case config.ReportBroken:
		return BrokenSchema, true
	case config.ReportLinks:
		return LinksSchema, true
	case config.ReportMeta:
		return MetaSchema, true
	}
	return Schema{}, false
}

func brokenRecord(r models.BrokenLinkRow) []string {
	return []string{r.PostTitle, r.PostURL, r.LinkURL, r.Status}
}

func linkRecord(r models.LinkRow) []string {
	return []string{
		r.PostTitle,
		r.PostURL,
		r.LinkType.String(),
		r.AnchorText,
		r.LinkURL,
		models.Flag(r.NoFollow),
		models.Flag(r.NoReferrer),
	}
}

func metaRecord(r models.MetaRow) []string {
	return []string{
		r.PostTitle,
		r.PostURL,
		r.PageTitle,
		r.H1,
		r.MetaDescription,
		strconv.Itoa(r.MetaDescriptionLength),
		r.CanonicalURL,
	}
}
