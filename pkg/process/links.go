package process

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/parse"
)

// imageSourceAttrs are tried in order; lazy-loading themes leave src empty or
// set it to a placeholder and carry the real URL in a data attribute.
var imageSourceAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// ExtractTargets collects <a href> and <img> targets within root in document
// order, resolved against base. Empty, fragment-only and non-HTTP references
// are skipped.
func ExtractTargets(root *goquery.Selection, base *url.URL, scope *parse.SiteScope, log *logrus.Entry) []models.LinkRecord {
	var records []models.LinkRecord

	root.Find("a[href], img").Each(func(_ int, sel *goquery.Selection) {
		kind := models.LinkKindAnchor
		var ref string
		if goquery.NodeName(sel) == "img" {
			kind = models.LinkKindImage
			ref = imageSource(sel)
		} else {
			ref, _ = sel.Attr("href")
		}
		if !parse.IsFetchableRef(ref) {
			return
		}

		target, err := parse.ResolveRef(base, ref)
		if err != nil {
			log.Debugf("Skipping unresolvable %s target '%s': %v", kind, ref, err)
			return
		}

		rec := models.LinkRecord{
			Kind: kind,
			Type: scope.Classify(target),
			URL:  target.String(),
		}
		if kind == models.LinkKindImage {
			alt, _ := sel.Attr("alt")
			rec.AnchorText = cleanText(alt)
		} else {
			rec.AnchorText = cleanText(sel.Text())
		}
		rec.NoFollow, rec.NoReferrer = relFlags(sel)
		records = append(records, rec)
	})
	return records
}

// imageSource returns the first fetchable source attribute of an <img>.
func imageSource(sel *goquery.Selection) string {
	for _, attr := range imageSourceAttrs {
		if v, ok := sel.Attr(attr); ok && parse.IsFetchableRef(v) {
			return v
		}
	}
	return ""
}

// relFlags derives nofollow/noreferrer from the rel tokens and referrerpolicy.
func relFlags(sel *goquery.Selection) (nofollow, noreferrer bool) {
	rel, _ := sel.Attr("rel")
	nofollow = hasToken(rel, "nofollow")
	noreferrer = hasToken(rel, "noreferrer")
	if policy, ok := sel.Attr("referrerpolicy"); ok && strings.EqualFold(strings.TrimSpace(policy), "no-referrer") {
		noreferrer = true
	}
	return nofollow, noreferrer
}

// FilterExcluded drops targets whose host is, or is a subdomain of, one of domains.
func FilterExcluded(records []models.LinkRecord, domains []string) []models.LinkRecord {
	if len(domains) == 0 {
		return records
	}
	kept := make([]models.LinkRecord, 0, len(records))
	for _, rec := range records {
		if !isExcludedHost(rec.URL, domains) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func isExcludedHost(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range domains {
		if parse.HostMatches(host, d) {
			return true
		}
	}
	return false
}

// TruncateAtStop cuts records at the first target whose URL starts with one of
// prefixes. The stop target and everything after it are dropped.
func TruncateAtStop(records []models.LinkRecord, prefixes []string) []models.LinkRecord {
	for i, rec := range records {
		for _, prefix := range prefixes {
			if prefix != "" && strings.HasPrefix(rec.URL, prefix) {
				return records[:i]
			}
		}
	}
	return records
}
