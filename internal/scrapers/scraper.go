// Package scrapers defines the contract every posting source implements.
package scrapers

import (
	"context"

	"github.com/maxaizer/jobs-aggregator/internal/entities"
)

// Scraper pulls current postings from one source. Implementations retry
// transient fetch failures internally and degrade to an empty result after
// exhausting retries; they never fail the whole run for a single bad item.
type Scraper interface {
	Scrape(ctx context.Context) ([]entities.Posting, error)

	// Source is the provenance label stamped on produced postings.
	Source() string
}
