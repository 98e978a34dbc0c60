package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type ScrapersConfig struct {
	BoardURL              string   `mapstructure:"board_url"`
	Channels              []string `mapstructure:"channels"`
	IntervalMinutes       int      `mapstructure:"interval_minutes"`
	MaxAgeDays            int      `mapstructure:"max_age_days"`
	PostingExpirationDays int      `mapstructure:"posting_expiration_days"`
}

func (config ScrapersConfig) validate() error {
	var errs []error

	if config.BoardURL == "" && len(config.Channels) == 0 {
		errs = append(errs, fmt.Errorf("at least one source is required: board_url or channels"))
	}
	if config.IntervalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("interval_minutes must be greater than zero"))
	}
	if config.MaxAgeDays <= 0 {
		errs = append(errs, fmt.Errorf("max_age_days must be greater than zero"))
	}
	if config.PostingExpirationDays < 0 {
		errs = append(errs, fmt.Errorf("posting_expiration_days must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config ScrapersConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("scrapers.board_url", "BOARD_URL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("scrapers.channels", "TARGET_CHANNELS"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("scrapers.interval_minutes", "SCRAPE_INTERVAL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("scrapers.posting_expiration_days", "POSTING_EXPIRATION_DAYS"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
