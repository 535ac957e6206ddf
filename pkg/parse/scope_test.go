package parse

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"www.example.com", "example.com"},
		{"blog.example.co.uk", "example.co.uk"},
		{"EXAMPLE.com.", "example.com"},
		{"127.0.0.1", "127.0.0.1"},
		{"localhost", "localhost"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, RegistrableDomain(tt.host))
		})
	}
}

func TestHostMatches(t *testing.T) {
	assert.True(t, HostMatches("example.com", "example.com"))
	assert.True(t, HostMatches("www.example.com", "example.com"))
	assert.True(t, HostMatches("Shop.Example.com", "example.com"))
	assert.False(t, HostMatches("notexample.com", "example.com"))
	assert.False(t, HostMatches("example.com.evil.io", "example.com"))
	assert.False(t, HostMatches("", "example.com"))
}

func TestSiteScope_Classify(t *testing.T) {
	scope, err := NewSiteScope("https://www.example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", scope.Domain)

	tests := []struct {
		link string
		want models.LinkType
	}{
		{"https://www.example.com/post/a", models.LinkTypeInternal},
		{"https://example.com/contact", models.LinkTypeInternal},
		{"https://shop.example.com:8443/cart", models.LinkTypeInternal},
		{"/relative/path", models.LinkTypeInternal},
		{"https://notexample.com/", models.LinkTypeExternal},
		{"https://www.google.com/search?q=example.com", models.LinkTypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, scope.Classify(mustParse(t, tt.link)))
		})
	}
}

func TestNewSiteScope_Invalid(t *testing.T) {
	_, err := NewSiteScope("/just/a/path")
	assert.Error(t, err)
}

func TestIsFetchableRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"https://example.com", true},
		{"/post/a", true},
		{"../img/a.png", true},
		{"?page=2", true},
		{"", false},
		{"   ", false},
		{"#", false},
		{"#section", false},
		{"mailto:hola@example.com", false},
		{"MAILTO:hola@example.com", false},
		{"tel:+5411", false},
		{"javascript:void(0)", false},
		{"data:image/png;base64,AAAA", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFetchableRef(tt.ref))
		})
	}
}

func TestResolveRef(t *testing.T) {
	base := mustParse(t, "https://example.com/post/my-post")

	u, err := ResolveRef(base, " ../about ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/about", u.String())

	u, err = ResolveRef(base, "//cdn.example.net/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.net/a.png", u.String())

	_, err = ResolveRef(base, "ftp://files.example.com/a")
	assert.Error(t, err)
}

func TestPostSlug(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/post/my-first-post", "my-first-post"},
		{"https://example.com/post/my-first-post/", "my-first-post"},
		{"https://example.com/es/post/hola/amp", "hola"},
		{"https://example.com/post/", ""},
		{"https://example.com/blog/other", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u := mustParse(t, tt.raw)
			assert.Equal(t, tt.want, PostSlug(u, "/post/"))
			assert.Equal(t, tt.want != "", IsPostURL(u, "/post/"))
		})
	}
}

func TestNewPostReference(t *testing.T) {
	ref := NewPostReference(mustParse(t, "https://example.com/post/a#comments"), "/post/")
	assert.Equal(t, models.PostReference{URL: "https://example.com/post/a", Slug: "a"}, ref)
}
