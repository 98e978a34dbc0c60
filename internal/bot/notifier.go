// Package bot delivers formatted posting notifications to a Telegram
// channel.
package bot

import (
	"context"
	"strconv"
	"time"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
)

// sender is the slice of the Telegram API the notifier needs; swapped for
// a mock in tests.
type sender interface {
	Send(c botApi.Chattable) (botApi.Message, error)
}

type Notifier struct {
	api            sender
	chatID         int64
	channelName    string
	maxRetries     int
	initialBackoff time.Duration
}

// NewNotifier authorizes against the bot API. channelID is either a
// "@channel" username or a numeric chat ID.
func NewNotifier(token string, channelID string) (*Notifier, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	if err = botApi.SetLogger(log.StandardLogger()); err != nil {
		return nil, err
	}

	notifier := &Notifier{
		api:            api,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
	}
	if err = notifier.setChannel(channelID); err != nil {
		return nil, err
	}
	return notifier, nil
}

func (n *Notifier) setChannel(channelID string) error {
	if channelID == "" {
		return errors.New("channel ID is empty")
	}
	if channelID[0] == '@' {
		n.channelName = channelID
		return nil
	}

	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "channel ID %q is neither a @username nor a chat ID", channelID)
	}
	n.chatID = chatID
	return nil
}

func (n *Notifier) SetAPI(api sender) {
	n.api = api
}

func (n *Notifier) SetRetryPolicy(maxRetries int, initialBackoff time.Duration) {
	n.maxRetries = maxRetries
	n.initialBackoff = initialBackoff
}

// Send delivers a MarkdownV2 message to the configured channel, retrying
// transient failures with exponential backoff. Unlike the scrapers it
// returns the final error after exhausting retries; the pipeline counts
// and isolates it per item.
func (n *Notifier) Send(ctx context.Context, text string) error {

	msg := botApi.NewMessage(n.chatID, text)
	msg.ChannelUsername = n.channelName
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		if _, lastErr = n.api.Send(msg); lastErr == nil {
			log.Info("message sent successfully")
			return nil
		}

		if attempt == n.maxRetries {
			break
		}

		backoff := n.initialBackoff * (1 << (attempt - 1))
		log.Warnf("send attempt %d/%d failed: %v. Retrying in %v...",
			attempt, n.maxRetries, lastErr, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return errors.Wrapf(lastErr, "failed to send message after %d attempts", n.maxRetries)
}
