package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
	"github.com/ariasbenraq/scrap-url-broke/pkg/utils"
)

// SiteScope decides which links belong to the audited site.
type SiteScope struct {
	Base   *url.URL
	Domain string // Registrable domain (eTLD+1), or the bare host for IPs and single-label hosts
}

// NewSiteScope derives the registrable domain of baseURL.
func NewSiteScope(baseURL string) (*SiteScope, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: URL base '%s' is not absolute", utils.ErrParsing, baseURL)
	}
	return &SiteScope{Base: u, Domain: RegistrableDomain(u.Hostname())}, nil
}

// RegistrableDomain returns host's eTLD+1, e.g. "blog.example.co.uk" -> "example.co.uk".
// IP addresses and hosts without a public suffix are returned unchanged.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// HostMatches reports whether host equals domain or is one of its subdomains.
func HostMatches(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(domain)
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Classify labels u internal when it has no host or its host is within the site's registrable domain.
func (s *SiteScope) Classify(u *url.URL) models.LinkType {
	if u.Host == "" || HostMatches(u.Hostname(), s.Domain) {
		return models.LinkTypeInternal
	}
	return models.LinkTypeExternal
}

// skippedSchemes are link schemes that cannot be checked over HTTP.
var skippedSchemes = map[string]bool{
	"mailto":     true,
	"tel":        true,
	"sms":        true,
	"javascript": true,
	"data":       true,
}

// IsFetchableRef reports whether an href/src value names a fetchable resource.
// Empty values, fragment-only references and non-HTTP schemes are rejected.
func IsFetchableRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return false
	}
	if i := strings.IndexByte(ref, ':'); i > 0 {
		scheme := strings.ToLower(ref[:i])
		if skippedSchemes[scheme] {
			return false
		}
	}
	return true
}

// ResolveRef resolves ref against base and accepts only http(s) results.
func ResolveRef(base *url.URL, ref string) (*url.URL, error) {
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: URL '%s': %v", utils.ErrParsing, ref, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: URL '%s' has unsupported scheme '%s'", utils.ErrParsing, ref, u.Scheme)
	}
	return u, nil
}

// PostSlug returns the first path segment after marker, or "" when the path lacks it.
func PostSlug(u *url.URL, marker string) string {
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeft(u.Path[idx+len(marker):], "/")
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// IsPostURL reports whether u's path carries the post marker followed by a slug.
// A marker-only path is the blog index and is not a post.
func IsPostURL(u *url.URL, marker string) bool {
	return PostSlug(u, marker) != ""
}

// NewPostReference builds a PostReference for rawURL, dropping any fragment.
func NewPostReference(u *url.URL, marker string) models.PostReference {
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	return models.PostReference{URL: clean.String(), Slug: PostSlug(u, marker)}
}
