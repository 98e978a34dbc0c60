// Package tgchannel scrapes job postings from a public Telegram channel's
// web preview (the t.me/s/<channel> endpoint).
package tgchannel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/jobs-aggregator/internal/entities"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	httpTimeout           = 15 * time.Second
	userAgent             = "JobsAggregator/0.1 (+https://github.com)"
)

// Domains Telegram's auto-linker produces from technology names that look
// like two-part domains (VB.NET -> http://vb.net/). Never real job links.
var falsePositiveDomains = map[string]struct{}{
	"vb.net":  {},
	"asp.net": {},
	"ado.net": {},
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Scraper struct {
	channelName    string
	url            string
	sourceName     string
	httpClient     HTTPClient
	maxRetries     int
	initialBackoff time.Duration
}

// New builds a scraper for the named channel. A leading "@" and any
// t.me/ or https:// prefix are stripped, leaving the bare handle.
func New(channelName string) *Scraper {
	name := strings.NewReplacer("@", "", "t.me/", "", "https://", "").Replace(channelName)
	return &Scraper{
		channelName:    name,
		url:            "https://t.me/s/" + name,
		sourceName:     fmt.Sprintf("Telegram (@%s)", name),
		httpClient:     &http.Client{Timeout: httpTimeout},
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
	}
}

func (s *Scraper) SetHTTPClient(client HTTPClient) {
	s.httpClient = client
}

func (s *Scraper) SetRetryPolicy(maxRetries int, initialBackoff time.Duration) {
	s.maxRetries = maxRetries
	s.initialBackoff = initialBackoff
}

func (s *Scraper) Source() string {
	return s.sourceName
}

// Scrape fetches the channel preview once and parses each message block
// into a posting. Network failures are retried with exponential backoff;
// a parse failure aborts immediately since retrying cannot fix it. After
// exhaustion the result is an empty list, not an error.
func (s *Scraper) Scrape(ctx context.Context) ([]entities.Posting, error) {

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		html, err := s.fetch(ctx)
		if err == nil {
			postings, parseErr := s.parsePreview(html)
			if parseErr != nil {
				log.Errorf("unexpected error parsing %v: %v", s.url, parseErr)
				return []entities.Posting{}, nil
			}
			return postings, nil
		}

		if attempt == s.maxRetries {
			log.Errorf("HTTP error after %d attempts scraping %v: %v", s.maxRetries, s.url, err)
			break
		}

		backoff := s.initialBackoff * (1 << (attempt - 1))
		log.Warnf("scrape attempt %d/%d failed for %v: %v. Retrying in %v...",
			attempt, s.maxRetries, s.url, err, backoff)

		select {
		case <-ctx.Done():
			return []entities.Posting{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return []entities.Posting{}, nil
}

func (s *Scraper) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %v", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	return string(body), nil
}

func (s *Scraper) parsePreview(html string) ([]entities.Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var postings []entities.Posting
	doc.Find("div.tgme_widget_message").Each(func(_ int, message *goquery.Selection) {
		if posting := s.parseMessage(message); posting != nil {
			postings = append(postings, *posting)
		}
	})
	return postings, nil
}

// parseMessage turns one message block into a posting, or nil when the
// message has no usable text or link.
func (s *Scraper) parseMessage(message *goquery.Selection) *entities.Posting {

	text := message.Find("div.tgme_widget_message_text").First()
	if text.Length() == 0 {
		return nil
	}

	// keep multi-line structure: <br> becomes a newline before text extraction
	text.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	fullText := text.Text()

	link := s.findBestLink(message, text)
	if link == "" {
		return nil
	}

	lines := lo.Filter(strings.Split(fullText, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	if len(lines) == 0 {
		return nil
	}

	title := strings.TrimSpace(lines[0])
	if runes := []rune(title); len(runes) > entities.MaxTitleLength {
		title = string(runes[:entities.MaxTitleLength])
	}

	posting, err := entities.NewPosting(entities.Posting{
		Title: title,
		// company extraction from free text needs structure this source
		// does not provide; left unset
		Link:        link,
		Description: fullText,
		Source:      s.sourceName,
	})
	if err != nil {
		log.Warnf("failed to validate posting from message: %v", err)
		return nil
	}
	return &posting
}

// findBestLink picks the first anchor that survives the false-positive
// heuristic, falling back to the message's own permalink.
func (s *Scraper) findBestLink(message, text *goquery.Selection) string {

	var candidates []string
	text.Find("a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			candidates = append(candidates, href)
		}
	})

	valid := lo.Filter(candidates, func(href string, _ int) bool {
		return isValidJobLink(href)
	})
	if len(valid) > 0 {
		return valid[0]
	}

	if post, ok := message.Attr("data-post"); ok && post != "" {
		return "https://t.me/" + post
	}
	return ""
}

// isValidJobLink rejects auto-linked tech-term pseudo-URLs. The shape test
// (root path, two-segment domain, very short first segment) is a heuristic
// guess at technology names, not an exact rule.
func isValidJobLink(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	domain := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if _, known := falsePositiveDomains[domain]; known {
		return false
	}

	if parsed.Path == "" || parsed.Path == "/" {
		parts := strings.Split(domain, ".")
		if len(parts) == 2 && len(parts[0]) <= 3 {
			return false
		}
	}
	return true
}
