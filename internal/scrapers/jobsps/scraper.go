// Package jobsps scrapes IT job postings from the jobs.ps web board.
//
// The board sits behind an anti-bot interstitial, so fetches go through a
// headless browser. A scrape walks three phases: resolve the total page
// count, collect partial records from each listing page until the posted
// dates fall behind the cutoff window, then enrich each retained record
// from its detail page.
package jobsps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/jobs-aggregator/internal/entities"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        = "https://www.jobs.ps/en/categories/it-jobs"
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	defaultMaxAgeDays     = 30

	sourceName = "Jobs.ps"
)

type Scraper struct {
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	maxAgeDays     int

	// paces detail-page fetches to stay under the board's rate limits
	detailLimiter *rate.Limiter

	newFetcher func(ctx context.Context) (pageFetcher, context.CancelFunc)
}

type Option func(*Scraper)

func WithBaseURL(url string) Option {
	return func(s *Scraper) { s.baseURL = url }
}

func WithRetryPolicy(maxRetries int, initialBackoff time.Duration) Option {
	return func(s *Scraper) {
		s.maxRetries = maxRetries
		s.initialBackoff = initialBackoff
	}
}

func WithMaxAgeDays(days int) Option {
	return func(s *Scraper) { s.maxAgeDays = days }
}

func withFetcher(f pageFetcher) Option {
	return func(s *Scraper) {
		s.newFetcher = func(context.Context) (pageFetcher, context.CancelFunc) {
			return f, func() {}
		}
	}
}

func New(opts ...Option) *Scraper {
	s := &Scraper{
		baseURL:        defaultBaseURL,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		maxAgeDays:     defaultMaxAgeDays,
		detailLimiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		newFetcher: func(ctx context.Context) (pageFetcher, context.CancelFunc) {
			return newBrowser(ctx)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) Source() string {
	return sourceName
}

// Scrape returns the board's postings from the last maxAgeDays days.
func (s *Scraper) Scrape(ctx context.Context) ([]entities.Posting, error) {

	cutoff := time.Now().AddDate(0, 0, -s.maxAgeDays)

	fetcher, cleanup := s.newFetcher(ctx)
	defer cleanup()

	totalPages := s.totalPages(ctx, fetcher)
	log.Infof("found %d pages of job listings on %s", totalPages, sourceName)

	var postings []entities.Posting

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return postings, ctx.Err()
		default:
		}

		log.Infof("scraping listing page %d/%d", pageNum, totalPages)
		rows, hasOldPostings := s.scrapeListingPage(ctx, fetcher, pageNum, cutoff)

		for _, row := range rows {
			if err := s.detailLimiter.Wait(ctx); err != nil {
				return postings, err
			}
			if posting := s.scrapeDetailPage(ctx, fetcher, row); posting != nil {
				postings = append(postings, *posting)
			}
		}

		// postings are roughly chronological within a page: once one falls
		// behind the cutoff, later pages only get older
		if hasOldPostings {
			log.Infof("reached postings older than %d days on page %d, stopping pagination",
				s.maxAgeDays, pageNum)
			break
		}
	}

	log.Infof("scraped %d postings from %s (last %d days)", len(postings), sourceName, s.maxAgeDays)
	return postings, nil
}

// totalPages fetches the first listing page and reads the pagination
// control. An unfetchable page yields 0, an absent control 1.
func (s *Scraper) totalPages(ctx context.Context, fetcher pageFetcher) int {
	doc := s.fetchDocument(ctx, fetcher, s.baseURL)
	if doc == nil {
		return 0
	}
	return parseTotalPages(doc)
}

// scrapeListingPage returns the page's rows within the cutoff window and
// whether any row fell behind it. Rows without a parseable date stay in.
func (s *Scraper) scrapeListingPage(ctx context.Context, fetcher pageFetcher,
	pageNum int, cutoff time.Time) ([]listingRow, bool) {

	url := s.baseURL
	if pageNum > 1 {
		url = fmt.Sprintf("%s?page=%d", s.baseURL, pageNum)
	}

	doc := s.fetchDocument(ctx, fetcher, url)
	if doc == nil {
		return nil, false
	}

	var kept []listingRow
	hasOldPostings := false

	for _, row := range parseListingRows(doc) {
		if postedDate, ok := ParsePostedDate(row.DateStr); ok && postedDate.Before(cutoff) {
			hasOldPostings = true
			continue
		}
		kept = append(kept, row)
	}

	return kept, hasOldPostings
}

// scrapeDetailPage enriches a listing row with detail-page metadata. A
// failed detail fetch degrades to a posting built from listing data only.
func (s *Scraper) scrapeDetailPage(ctx context.Context, fetcher pageFetcher, row listingRow) *entities.Posting {

	doc := s.fetchDocument(ctx, fetcher, row.Link)
	if doc == nil {
		log.Warnf("failed to fetch detail page: %v", row.Link)
		return s.postingFromListing(row)
	}

	details := parseDetailMetadata(doc)

	location := details.Location
	if location == "" {
		location = row.Location
	}

	posting, err := entities.NewPosting(entities.Posting{
		Title:         row.Title,
		Company:       row.Company,
		Link:          row.Link,
		Description:   row.Title,
		Source:        sourceName,
		PositionLevel: details.PositionLevel,
		Location:      location,
		Deadline:      details.Deadline,
		Experience:    details.Experience,
		PostedDate:    row.DateStr,
	})
	if err != nil {
		log.Warnf("failed to create posting from detail page %v: %v", row.Link, err)
		return s.postingFromListing(row)
	}
	return &posting
}

// postingFromListing builds the minimal posting when the detail page is
// unavailable; detail-only fields stay unset.
func (s *Scraper) postingFromListing(row listingRow) *entities.Posting {
	posting, err := entities.NewPosting(entities.Posting{
		Title:       row.Title,
		Company:     row.Company,
		Link:        row.Link,
		Description: row.Title,
		Source:      sourceName,
		Location:    row.Location,
		PostedDate:  row.DateStr,
	})
	if err != nil {
		log.Warnf("failed to create posting from listing data: %v", err)
		return nil
	}
	return &posting
}

// fetchDocument fetches a URL with exponential backoff and parses it.
// Exhausted retries yield nil and the caller degrades gracefully.
func (s *Scraper) fetchDocument(ctx context.Context, fetcher pageFetcher, url string) *goquery.Document {

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		html, err := fetcher.Fetch(ctx, url)
		if err == nil {
			doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
			if parseErr != nil {
				log.Errorf("failed to parse page %v: %v", url, parseErr)
				return nil
			}
			return doc
		}

		if attempt == s.maxRetries {
			log.Errorf("failed after %d attempts fetching %v: %v", s.maxRetries, url, err)
			break
		}

		backoff := s.initialBackoff * (1 << (attempt - 1))
		log.Warnf("fetch attempt %d/%d failed for %v: %v. Retrying in %v...",
			attempt, s.maxRetries, url, err, backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}

	return nil
}
