package process

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ariasbenraq/scrap-url-broke/pkg/config"
)

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// --- ContentRoot Tests ---

func TestContentRoot(t *testing.T) {
	tests := []struct {
		name         string
		html         string
		wantSelector string
		wantText     string
	}{
		{
			name: "FirstSelectorWins",
			html: `<body><article>article</article>
				<section data-hook="post-description">description</section></body>`,
			wantSelector: `section[data-hook="post-description"]`,
			wantText:     "description",
		},
		{
			name:         "LaterSelector",
			html:         `<body><div data-hook="post-content">content</div><article>article</article></body>`,
			wantSelector: `div[data-hook="post-content"]`,
			wantText:     "content",
		},
		{
			name:         "ArticleFallback",
			html:         `<body><p>intro</p><article>the article</article></body>`,
			wantSelector: "article",
			wantText:     "the article",
		},
		{
			name:         "BodyFallback",
			html:         `<html><body><p>plain page</p></body></html>`,
			wantSelector: RootBody,
			wantText:     "plain page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.html)
			root, matched := ContentRoot(doc, config.DefaultContentSelectors)
			assert.Equal(t, tt.wantSelector, matched)
			assert.Equal(t, tt.wantText, cleanText(root.Text()))
		})
	}
}

func TestContentRoot_DocumentFallback(t *testing.T) {
	// The HTML parser always synthesizes <body>, so build a bare document node.
	doc := goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	root, matched := ContentRoot(doc, []string{"article"})
	assert.Equal(t, RootDocument, matched)
	assert.NotNil(t, root)
}

// --- ResolveTitle Tests ---

func TestResolveTitle(t *testing.T) {
	const page = `<html><head><title> Doc  Title </title></head><body>
		<article><h1 data-hook="post-title">Article Heading</h1>
		<section data-hook="post-description"><h1>Root Heading</h1><p>text</p></section></article>
		</body></html>`

	tests := []struct {
		name   string
		html   string
		policy string
		want   string
	}{
		{"HeadingPrefersContentRoot", page, config.TitleSourceHeading, "Root Heading"},
		{"DocumentPrefersTitle", page, config.TitleSourceDocument, "Doc Title"},
		{
			name:   "HeadingFallsBackToArticle",
			html:   `<html><head><title>Doc</title></head><body><article><h1 data-hook="post-title">From Article</h1><div data-hook="post-content">x</div></article></body></html>`,
			policy: config.TitleSourceHeading,
			want:   "From Article",
		},
		{
			name:   "HeadingFallsBackToTitle",
			html:   `<html><head><title>Only Title</title></head><body><article><p>no headings</p></article></body></html>`,
			policy: config.TitleSourceHeading,
			want:   "Only Title",
		},
		{
			name:   "DocumentFallsBackToHeading",
			html:   `<html><head><title>   </title></head><body><article><h1>Heading</h1></article></body></html>`,
			policy: config.TitleSourceDocument,
			want:   "Heading",
		},
		{
			name:   "URLAsLastResort",
			html:   `<html><body><p>nothing</p></body></html>`,
			policy: config.TitleSourceHeading,
			want:   "https://example.com/post/x",
		},
		{
			name:   "BlankHeadingSkipped",
			html:   `<html><body><article><h1> </h1><h1>Second</h1></article></body></html>`,
			policy: config.TitleSourceHeading,
			want:   "Second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, tt.html)
			root, _ := ContentRoot(doc, config.DefaultContentSelectors)
			got := ResolveTitle(doc, root, tt.policy, config.DefaultTitleSelectors, "https://example.com/post/x")
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- ExtractSEO Tests ---

func TestExtractSEO(t *testing.T) {
	doc := mustDoc(t, `<html><head>
		<title>Café guide</title>
		<meta name="Description" content=" Très bon café ">
		<link rel="Canonical" href="/post/cafe-guide">
		</head><body><h1>First</h1><h1>Second</h1></body></html>`)

	seo := ExtractSEO(doc, mustURL(t, "https://example.com/post/cafe-guide?utm=1"))
	assert.Equal(t, "Café guide", seo.PageTitle)
	assert.Equal(t, "Très bon café", seo.MetaDescription)
	assert.Equal(t, 13, seo.MetaDescriptionLength, "length counts runes")
	assert.Equal(t, "https://example.com/post/cafe-guide", seo.CanonicalURL)
	assert.Equal(t, "First", FirstH1(doc))
}

func TestExtractSEO_MissingFields(t *testing.T) {
	doc := mustDoc(t, `<html><head><link rel="stylesheet" href="/s.css"></head><body></body></html>`)

	seo := ExtractSEO(doc, mustURL(t, "https://example.com/post/x"))
	assert.Empty(t, seo.PageTitle)
	assert.Empty(t, seo.MetaDescription)
	assert.Zero(t, seo.MetaDescriptionLength)
	assert.Empty(t, seo.CanonicalURL)
	assert.Empty(t, FirstH1(doc))
}

func TestExtractSEO_EmptyCanonicalStaysEmpty(t *testing.T) {
	doc := mustDoc(t, `<html><head><link rel="canonical" href="  "></head><body></body></html>`)

	seo := ExtractSEO(doc, mustURL(t, "https://example.com/post/x"))
	assert.Empty(t, seo.CanonicalURL)
}

func TestHasToken(t *testing.T) {
	assert.True(t, hasToken("NoFollow  noopener", "nofollow"))
	assert.True(t, hasToken("noopener\tnoreferrer", "noreferrer"))
	assert.False(t, hasToken("nofollowed", "nofollow"))
	assert.False(t, hasToken("", "nofollow"))
}
