package services

import (
	"context"
	"time"

	"github.com/maxaizer/jobs-aggregator/internal/logger"
	"github.com/maxaizer/jobs-aggregator/internal/repositories"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// PostingsCleaner prunes stored postings past their expiration once a day.
// The expiration must stay well beyond the scrape window: deleting a row
// re-opens its link for delivery.
type PostingsCleaner struct {
	connectionString     string
	cron                 *cron.Cron
	expirationTimeInDays int
}

func NewPostingsCleaner(connectionString string, expirationInDays int) (*PostingsCleaner, error) {

	if expirationInDays <= 0 {
		return nil, errors.New("expiration in days must be greater than zero")
	}

	pc := &PostingsCleaner{
		connectionString:     connectionString,
		cron:                 cron.New(),
		expirationTimeInDays: expirationInDays,
	}

	_, err := pc.cron.AddFunc("0 0 * * *", pc.cleanOldPostings)
	if err != nil {
		return nil, err
	}

	pc.cron.Start()
	log.Infof("postings cleaner started, expiration in days: %d", pc.expirationTimeInDays)
	return pc, nil
}

func (pc *PostingsCleaner) Stop() {
	pc.cron.Stop()
}

func (pc *PostingsCleaner) cleanOldPostings() {

	dbContext, err := repositories.NewDbContext(pc.connectionString)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("cleaner failed to open store: %v", err)
		return
	}
	defer dbContext.Close()

	expirationTime := time.Now().AddDate(0, 0, -pc.expirationTimeInDays)
	rowsAffected, err := repositories.NewPostingsRepository(dbContext.DB).
		RemoveOldPostings(context.Background(), expirationTime)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to clean old postings: %v", err)
	} else {
		log.Infof("old postings cleaned, affected rows: %v", rowsAffected)
	}
}
