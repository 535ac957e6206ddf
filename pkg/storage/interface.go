package storage

import (
	"github.com/ariasbenraq/scrap-url-broke/pkg/models"
)

// Namespaces partition the run store so one URL can be tracked independently
// by each discovery stage.
const (
	NamespaceSitemap = "sitemap" // Sitemap documents fetched during resolution
	NamespaceListing = "listing" // Listing pages visited or queued by the listing crawler
	NamespacePost    = "post"    // Post URLs already collected
)

// VisitedSet tracks URLs seen during a single run
type VisitedSet interface {
	// MarkVisited records key under namespace.
	// Returns true if the key was newly added, false if it already existed
	MarkVisited(namespace, key string) (bool, error)

	// IsVisited reports whether key was recorded under namespace
	IsVisited(namespace, key string) (bool, error)
}

// CheckCache memoizes link check outcomes so a URL linked from several posts is checked once per run
type CheckCache interface {
	// GetCheck returns the stored entry for a target URL and whether it exists
	GetCheck(targetURL string) (*models.CheckDBEntry, bool, error)

	// PutCheck stores the outcome of checking a target URL
	PutCheck(targetURL string, entry *models.CheckDBEntry) error
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// Count returns the number of keys recorded under namespace
	Count(namespace string) (int, error)

	// Keys returns every key recorded under namespace in lexical order
	Keys(namespace string) ([]string, error)

	// Close releases the store; its contents are discarded
	Close() error
}

// RunStore combines all store interfaces for the pipeline
type RunStore interface {
	VisitedSet
	CheckCache
	StoreAdmin
}
