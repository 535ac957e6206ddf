package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
)

// Discoverer finds the posts of a blog. Implementations log and swallow
// fetch failures; only context cancellation is returned.
type Discoverer interface {
	Name() string
	Discover(ctx context.Context) ([]models.PostReference, error)
}

// FallbackChain runs its stages in order and stops at the first that finds
// any posts. Typical use is sitemap resolution backed by the listing crawl.
type FallbackChain struct {
	stages []Discoverer
	source string
	log    *logrus.Entry
}

// NewFallbackChain creates a chain over stages
func NewFallbackChain(log *logrus.Entry, stages ...Discoverer) *FallbackChain {
	return &FallbackChain{stages: stages, log: log.WithField("component", "discovery")}
}

// Name identifies the chain in logs
func (f *FallbackChain) Name() string { return "fallback" }

// Source names the stage that produced the last non-empty result, "" if none did
func (f *FallbackChain) Source() string { return f.source }

// Discover returns the posts of the first productive stage. An empty result
// with a nil error means every stage came back empty.
func (f *FallbackChain) Discover(ctx context.Context) ([]models.PostReference, error) {
	f.source = ""
	for _, stage := range f.stages {
		stageLog := f.log.WithField("strategy", stage.Name())
		stageLog.Info("Discovering posts")

		posts, err := stage.Discover(ctx)
		if err != nil {
			return nil, err
		}
		if len(posts) > 0 {
			f.source = stage.Name()
			stageLog.Infof("Discovered %d posts", len(posts))
			return posts, nil
		}
		stageLog.Warn("No posts discovered, trying next strategy")
	}
	return nil, nil
}
