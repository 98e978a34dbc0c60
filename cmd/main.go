package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/joho/godotenv"
	"github.com/maxaizer/jobs-aggregator/internal/bot"
	"github.com/maxaizer/jobs-aggregator/internal/config"
	"github.com/maxaizer/jobs-aggregator/internal/filter"
	"github.com/maxaizer/jobs-aggregator/internal/logger"
	"github.com/maxaizer/jobs-aggregator/internal/metrics"
	"github.com/maxaizer/jobs-aggregator/internal/scrapers/jobsps"
	"github.com/maxaizer/jobs-aggregator/internal/scrapers/tgchannel"
	"github.com/maxaizer/jobs-aggregator/internal/services"
	log "github.com/sirupsen/logrus"
)

func buildSources(cfg *config.Config) []services.Source {

	var sources []services.Source

	if cfg.Scrapers.BoardURL != "" {
		board := jobsps.New(
			jobsps.WithBaseURL(cfg.Scrapers.BoardURL),
			jobsps.WithMaxAgeDays(cfg.Scrapers.MaxAgeDays),
		)
		// board postings are job-only already; channels carry mixed content
		sources = append(sources, services.Source{Scraper: board, SortByDate: true})
	}

	for _, channel := range cfg.Scrapers.Channels {
		sources = append(sources, services.Source{
			Scraper:         tgchannel.New(channel),
			FilterRelevance: true,
		})
	}

	return sources
}

func main() {

	_ = godotenv.Load()

	runOnce := flag.Bool("once", false, "run a single scrape cycle and exit")
	interval := flag.Int("interval", 0, "minutes between cycles, overrides config")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	intervalSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "interval" {
			intervalSet = true
		}
	})
	if intervalSet {
		if *interval <= 0 {
			log.Fatalf("interval must be greater than zero, got %d", *interval)
		}
		cfg.Scrapers.IntervalMinutes = *interval
	}

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer()

	bus := EventBus.New()
	if err := metrics.SubscribeToRuns(bus); err != nil {
		log.Fatalf("can't subscribe metrics to runs: %v", err)
	}

	notifier, err := bot.NewNotifier(cfg.Bot.Token, cfg.Bot.ChannelID)
	if err != nil {
		log.Fatalf("can't create notifier: %v", err)
	}

	if cfg.Scrapers.PostingExpirationDays > 0 {
		cleaner, err := services.NewPostingsCleaner(cfg.DB.ConnectionString, cfg.Scrapers.PostingExpirationDays)
		if err != nil {
			log.Fatalf("can't create postings cleaner: %v", err)
		}
		defer cleaner.Stop()
	}

	pipeline := services.NewPipeline(
		buildSources(cfg),
		filter.New(),
		notifier,
		services.NewSqliteStoreOpener(cfg.DB.ConnectionString),
		bus,
	)

	if *runOnce {
		if _, err := pipeline.Run(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	pipeline.RunLoop(ctx, time.Duration(cfg.Scrapers.IntervalMinutes)*time.Minute)
	log.Info("Shutting down...")
}
