// Package loki pushes log entries to a Grafana Loki instance in batches.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Logger receives the pusher's own delivery failures, which must not be
// routed back through the pusher.
type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {
	// Url of the push endpoint, e.g. https://loki.example.net/loki/api/v1/push
	Url string `validate:"required"`

	// Labels added to every log line
	Labels map[string]string

	// BatchMaxSize is the number of lines that forces a flush
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the longest a line waits before a flush
	BatchMaxWait time.Duration `validate:"gte=1"`

	// Optional basic auth
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 1000
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"msg"`
	Caller  string `json:"caller"`
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type Pusher struct {
	config *Config
	ctx    context.Context
	cancel context.CancelFunc
	client *http.Client
	entry  chan LogEntry
	wg     sync.WaitGroup
	batch  [][]string
	logger Logger
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config: &cfg,
		ctx:    ctx,
		cancel: cancel,
		client: &http.Client{},
		entry:  make(chan LogEntry),
		batch:  make([][]string, 0, cfg.BatchMaxSize),
		logger: logger,
	}

	p.wg.Add(1)
	go p.run()
	return p, nil
}

// Push enqueues an entry for batched delivery.
func (p *Pusher) Push(e LogEntry) error {
	select {
	case p.entry <- e:
	case <-p.ctx.Done():
	}
	return nil
}

// Stop flushes the pending batch and stops the pusher.
func (p *Pusher) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pusher) run() {
	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	flush := func() {
		if len(p.batch) == 0 {
			return
		}
		if err := p.send(); err != nil {
			p.logger.Error("failed to send logs", "error", err)
		}
		p.batch = p.batch[:0]
	}

	defer func() {
		flush()
		p.wg.Done()
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-p.entry:
			line, err := json.Marshal(e)
			if err != nil {
				continue
			}
			timestamp := strconv.FormatInt(time.Now().UnixNano(), 10)
			p.batch = append(p.batch, []string{timestamp, string(line)})
			if len(p.batch) >= p.config.BatchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pusher) send() error {
	payload, err := json.Marshal(pushRequest{Streams: []stream{{
		Stream: p.config.Labels,
		Values: p.batch,
	}}})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, p.config.Url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected response code from Loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
