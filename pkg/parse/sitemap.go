package parse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// --- XML Structs for Sitemap Parsing ---

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLURLSet represents a <urlset> element in a sitemap
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// SitemapKind tells an index of sitemaps apart from a leaf list of pages.
type SitemapKind int

const (
	SitemapUnknown SitemapKind = iota
	SitemapIndex
	SitemapURLSet
)

func (k SitemapKind) String() string {
	switch k {
	case SitemapIndex:
		return "sitemapindex"
	case SitemapURLSet:
		return "urlset"
	}
	return "unknown"
}

// SitemapDocument is a parsed sitemap reduced to its <loc> values.
type SitemapDocument struct {
	Kind SitemapKind
	Locs []string // Nested sitemap URLs for an index, page URLs for a urlset
}

// ParseSitemap detects whether data is a <sitemapindex> or a <urlset> and
// returns its trimmed, non-empty <loc> values in document order.
func ParseSitemap(data []byte) (SitemapDocument, error) {
	root, err := rootElement(data)
	if err != nil {
		return SitemapDocument{}, err
	}

	switch root {
	case "sitemapindex":
		var index XMLSitemapIndex
		if err := newXMLDecoder(data).Decode(&index); err != nil {
			return SitemapDocument{}, fmt.Errorf("%w: XML sitemap index: %v", utils.ErrParsing, err)
		}
		doc := SitemapDocument{Kind: SitemapIndex}
		for _, s := range index.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				doc.Locs = append(doc.Locs, loc)
			}
		}
		return doc, nil
	case "urlset":
		var set XMLURLSet
		if err := newXMLDecoder(data).Decode(&set); err != nil {
			return SitemapDocument{}, fmt.Errorf("%w: XML urlset: %v", utils.ErrParsing, err)
		}
		doc := SitemapDocument{Kind: SitemapURLSet}
		for _, u := range set.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				doc.Locs = append(doc.Locs, loc)
			}
		}
		return doc, nil
	}
	return SitemapDocument{}, fmt.Errorf("%w: XML root <%s> is not a sitemap", utils.ErrParsing, root)
}

// rootElement returns the local name of the first element in data.
func rootElement(data []byte) (string, error) {
	dec := newXMLDecoder(data)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: XML document: %v", utils.ErrParsing, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func newXMLDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	return dec
}
