package parse

import (
	"net/url"
	"testing"
)

func TestNormalizeURL_NilInput(t *testing.T) {
	if result := NormalizeURL(nil); result != "" {
		t.Errorf("NormalizeURL(nil) = %q, want empty string", result)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"UppercaseSchemeAndHost", "HTTPS://Example.COM/Post/A", "https://example.com/Post/A"},
		{"HTTPPort80Removed", "http://example.com:80/path", "http://example.com/path"},
		{"HTTPSPort443Removed", "https://example.com:443/path", "https://example.com/path"},
		{"HTTPPort8080Kept", "http://example.com:8080/path", "http://example.com:8080/path"},
		{"HTTPPort443Kept", "http://example.com:443/path", "http://example.com:443/path"},
		{"EmptyPath", "https://example.com", "https://example.com/"},
		{"TrailingSlashRemoved", "https://example.com/blog/", "https://example.com/blog"},
		{"RootKept", "https://example.com/", "https://example.com/"},
		{"FragmentRemoved", "https://example.com/post/a#comments", "https://example.com/post/a"},
		{"QueryKept", "https://example.com/blog?page=2", "https://example.com/blog?page=2"},
		{"QuerySorted", "https://example.com/blog?tag=go&page=2", "https://example.com/blog?page=2&tag=go"},
		{"QueryAndFragment", "https://example.com/blog?page=3#top", "https://example.com/blog?page=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(tt.input)
			if err != nil {
				t.Fatalf("url.Parse(%q) error: %v", tt.input, err)
			}
			if result := NormalizeURL(parsed); result != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeURL_DoesNotModifyInput(t *testing.T) {
	parsed, _ := url.Parse("HTTPS://Example.com:443/blog/?b=2&a=1#frag")
	orig := *parsed

	NormalizeURL(parsed)

	if *parsed != orig {
		t.Errorf("NormalizeURL modified input: %+v -> %+v", orig, *parsed)
	}
}

func TestParseAndNormalize(t *testing.T) {
	norm, parsed, err := ParseAndNormalize("  https://Example.com/sitemap.xml  ")
	if err != nil {
		t.Fatalf("ParseAndNormalize() unexpected error: %v", err)
	}
	if norm != "https://example.com/sitemap.xml" {
		t.Errorf("ParseAndNormalize() = %q", norm)
	}
	if parsed.Host != "Example.com" {
		t.Errorf("parsed host = %q, want original casing", parsed.Host)
	}

	for _, bad := range []string{"", "not a url", "relative/path"} {
		if _, _, err := ParseAndNormalize(bad); err == nil {
			t.Errorf("ParseAndNormalize(%q) expected error", bad)
		}
	}
}

func TestStripFragment(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a#b": "https://example.com/a",
		"https://example.com/a":   "https://example.com/a",
		"#top":                    "",
	}
	for in, want := range tests {
		if got := StripFragment(in); got != want {
			t.Errorf("StripFragment(%q) = %q, want %q", in, got, want)
		}
	}
}
