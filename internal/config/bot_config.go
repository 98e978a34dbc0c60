package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type BotConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

func (config BotConfig) validate() error {

	var missingFields []string

	if config.Token == "" {
		missingFields = append(missingFields, "token")
	}

	if config.ChannelID == "" {
		missingFields = append(missingFields, "channel_id")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config BotConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("bot.token", "TELEGRAM_BOT_TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("bot.channel_id", "TELEGRAM_CHANNEL_ID"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
