package services

import (
	"context"
	"sort"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobs-aggregator/internal/entities"
	"github.com/maxaizer/jobs-aggregator/internal/events"
	"github.com/maxaizer/jobs-aggregator/internal/formatter"
	"github.com/maxaizer/jobs-aggregator/internal/logger"
	"github.com/maxaizer/jobs-aggregator/internal/repositories"
	"github.com/maxaizer/jobs-aggregator/internal/scrapers"
	"github.com/maxaizer/jobs-aggregator/internal/scrapers/jobsps"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

const defaultSendDelay = time.Second

type postingStore interface {
	Save(ctx context.Context, posting entities.Posting) (bool, error)
}

type relevanceFilter interface {
	IsRelevant(text string) bool
}

type notifier interface {
	Send(ctx context.Context, text string) error
}

// StoreOpener acquires the dedup store for one run; the returned close
// func runs on every exit path.
type StoreOpener func() (postingStore, func() error, error)

// Source pairs a scraper with its per-source pipeline behavior: the
// channel-preview sources run the topical filter, the web board is IT-only
// by construction and is sorted by posted date instead.
type Source struct {
	Scraper         scrapers.Scraper
	FilterRelevance bool
	SortByDate      bool
}

// RunSummary carries one run's counters.
type RunSummary struct {
	Scraped     int
	FilteredOut int
	Duplicates  int
	Delivered   int
	Failed      int
}

// Pipeline sequences scrape → filter → dedup → format → deliver across the
// configured sources. Failures are isolated per item: a posting that fails
// delivery is counted and the run moves on.
type Pipeline struct {
	sources   []Source
	filter    relevanceFilter
	notifier  notifier
	openStore StoreOpener
	bus       EventBus.Bus

	// short-TTL guard in front of the store, same role as the teacher
	// repo's analysis cache: skip the DB round trip for links this
	// process has already confirmed
	seenLinks *gocache.Cache
	sendDelay time.Duration
}

func NewPipeline(sources []Source, filter relevanceFilter, n notifier,
	openStore StoreOpener, bus EventBus.Bus) *Pipeline {

	return &Pipeline{
		sources:   sources,
		filter:    filter,
		notifier:  n,
		openStore: openStore,
		bus:       bus,
		seenLinks: gocache.New(24*time.Hour, 48*time.Hour),
		sendDelay: defaultSendDelay,
	}
}

func (p *Pipeline) SetSendDelay(delay time.Duration) {
	p.sendDelay = delay
}

// NewSqliteStoreOpener opens a migrated sqlite store per run.
func NewSqliteStoreOpener(connectionString string) StoreOpener {
	return func() (postingStore, func() error, error) {
		dbContext, err := repositories.NewDbContext(connectionString)
		if err != nil {
			return nil, nil, err
		}
		if err = dbContext.Migrate(); err != nil {
			_ = dbContext.Close()
			return nil, nil, err
		}
		return repositories.NewPostingsRepository(dbContext.DB), dbContext.Close, nil
	}
}

// Run executes one full pipeline cycle.
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {

	log.Info("starting aggregation pipeline run...")
	startTime := time.Now()

	var summary RunSummary

	store, closeStore, err := p.openStore()
	if err != nil {
		return summary, err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to close store: %v", closeErr)
		}
	}()

	for _, source := range p.sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		p.runSource(ctx, source, store, &summary)
	}

	if p.bus != nil {
		p.bus.Publish(events.RunCompletedTopic, events.RunCompleted{
			Scraped:     summary.Scraped,
			FilteredOut: summary.FilteredOut,
			Duplicates:  summary.Duplicates,
			Delivered:   summary.Delivered,
			Failed:      summary.Failed,
			Duration:    time.Since(startTime).Seconds(),
		})
	}

	log.Infof("pipeline finished. Scraped: %d, Filtered out: %d, Duplicates: %d, Delivered: %d, Failed: %d",
		summary.Scraped, summary.FilteredOut, summary.Duplicates, summary.Delivered, summary.Failed)
	return summary, nil
}

func (p *Pipeline) runSource(ctx context.Context, source Source, store postingStore, summary *RunSummary) {

	log.Infof("scraping postings from %s...", source.Scraper.Source())

	postings, err := source.Scraper.Scrape(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeScrape).
			Errorf("scrape of %s failed: %v", source.Scraper.Source(), err)
		return
	}
	log.Infof("scraped %d postings from %s", len(postings), source.Scraper.Source())
	summary.Scraped += len(postings)

	if source.SortByDate {
		sortByPostedDate(postings)
	}

	for _, posting := range postings {
		if err := ctx.Err(); err != nil {
			return
		}
		p.processPosting(ctx, source, posting, store, summary)
	}
}

func (p *Pipeline) processPosting(ctx context.Context, source Source,
	posting entities.Posting, store postingStore, summary *RunSummary) {

	if source.FilterRelevance && !p.filter.IsRelevant(posting.Description) {
		summary.FilteredOut++
		return
	}

	if _, found := p.seenLinks.Get(posting.Link); found {
		summary.Duplicates++
		return
	}

	isNew, err := store.Save(ctx, posting)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to save posting %v: %v", posting.Link, err)
		summary.Failed++
		return
	}
	_ = p.seenLinks.Add(posting.Link, struct{}{}, gocache.DefaultExpiration)

	if !isNew {
		log.Debugf("duplicate posting skipped: %v", posting.Title)
		summary.Duplicates++
		return
	}

	log.Infof("new IT job found: %v. Preparing to post...", posting.Title)

	if err = p.notifier.Send(ctx, formatter.Format(posting)); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("failed to post posting %q: %v", posting.Title, err)
		summary.Failed++
		return
	}
	summary.Delivered++

	// stay under the delivery channel's rate limits
	select {
	case <-ctx.Done():
	case <-time.After(p.sendDelay):
	}
}

// RunLoop runs the pipeline once per interval until the context is
// canceled. A failed run is logged and the loop proceeds to the next
// cycle; the in-flight cycle always finishes before shutdown.
func (p *Pipeline) RunLoop(ctx context.Context, interval time.Duration) {

	log.Infof("starting continuous loop (interval: %v)", interval)

	for {
		if _, err := p.Run(ctx); err != nil {
			log.Errorf("pipeline error (will retry next cycle): %v", err)
		}

		if ctx.Err() != nil {
			log.Info("shutting down gracefully")
			return
		}

		log.Infof("next run at %v", time.Now().Add(interval).Format(time.RFC3339))

		select {
		case <-ctx.Done():
			log.Info("shutting down gracefully")
			return
		case <-time.After(interval):
		}
	}
}

// sortByPostedDate orders postings earliest first; postings without a
// parseable posted date go last.
func sortByPostedDate(postings []entities.Posting) {
	sort.SliceStable(postings, func(i, j int) bool {
		return jobsps.PostedDateOrFarFuture(postings[i].PostedDate).
			Before(jobsps.PostedDateOrFarFuture(postings[j].PostedDate))
	})
}
