package fetch

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// RobotsHandler reads robots.txt only to learn which sitemaps a site advertises.
// Allow/Disallow rules are parsed but never consulted.
type RobotsHandler struct {
	fetcher *Fetcher
	log     *logrus.Entry
}

// NewRobotsHandler creates a RobotsHandler
func NewRobotsHandler(fetcher *Fetcher, log *logrus.Entry) *RobotsHandler {
	return &RobotsHandler{fetcher: fetcher, log: log}
}

// Sitemaps returns the Sitemap: URLs listed in the robots.txt of siteURL's host.
// Any fetch or parse failure yields nil.
func (rh *RobotsHandler) Sitemaps(ctx context.Context, siteURL *url.URL) []string {
	robotsURL := &url.URL{Scheme: siteURL.Scheme, Host: siteURL.Host, Path: "/robots.txt"}
	if robotsURL.Scheme != "http" && robotsURL.Scheme != "https" {
		robotsURL.Scheme = "https"
	}
	robotsLog := rh.log.WithField("robots_url", robotsURL.String())

	body, status, err := rh.fetcher.GetBody(ctx, robotsURL.String())
	if err != nil && status == 0 {
		robotsLog.Warnf("Fetching robots.txt failed: %v", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		robotsLog.Warnf("Parsing robots.txt failed: %v", err)
		return nil
	}
	if len(data.Sitemaps) > 0 {
		robotsLog.Infof("Found %d sitemap directive(s)", len(data.Sitemaps))
	}
	return data.Sitemaps
}
