package jobsps

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// generous navigation timeout: the anti-bot interstitial can hold the
	// page for a while before real content loads
	pageTimeout      = 60 * time.Second
	challengeTimeout = 30 * time.Second

	// page title shown while the Cloudflare interstitial is unresolved
	challengeTitleMarker = "just a moment"
)

// pageFetcher fetches a URL and returns the rendered HTML. The chromedp
// implementation is swapped for a mock in tests.
type pageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// chromedpFetcher drives one headless-Chrome tab. All fetches of a scrape
// run share the tab so the anti-bot clearance cookie survives between
// navigations.
type chromedpFetcher struct {
	tabCtx context.Context
}

// newBrowser allocates a headless browser and a tab, returning the fetcher
// and a cleanup releasing both.
func newBrowser(ctx context.Context) (*chromedpFetcher, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelTab()
		cancelAlloc()
	}
	return &chromedpFetcher{tabCtx: tabCtx}, cancel
}

// Fetch navigates to the URL, waits out an anti-bot interstitial if one is
// shown, and returns the document HTML. HTTP status >= 400 is a failure.
func (f *chromedpFetcher) Fetch(ctx context.Context, url string) (string, error) {

	tctx, cancel := context.WithTimeout(f.tabCtx, pageTimeout)
	defer cancel()

	// honor the caller's cancellation as well as the page timeout
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tctx.Done():
		}
	}()

	resp, err := chromedp.RunResponse(tctx, chromedp.Navigate(url))
	if err != nil {
		return "", errors.Wrapf(err, "navigation failed for %s", url)
	}

	if err := waitForChallenge(tctx); err != nil {
		log.Warnf("anti-bot challenge wait issue for %s: %v", url, err)
	}

	if resp != nil && resp.Status >= 400 {
		return "", errors.Errorf("HTTP %d for %s", int(resp.Status), url)
	}

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", errors.Wrapf(err, "failed to read page content for %s", url)
	}
	return html, nil
}

// waitForChallenge detects the interstitial by its title marker and blocks
// until the title changes away from it, then lets the real document load.
func waitForChallenge(ctx context.Context) error {

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(title), challengeTitleMarker) {
		return nil
	}

	log.Info("anti-bot challenge detected, waiting for resolution...")

	wctx, cancel := context.WithTimeout(ctx, challengeTimeout)
	defer cancel()

	err := chromedp.Run(wctx,
		chromedp.Poll(
			`!document.title.toLowerCase().includes('`+challengeTitleMarker+`')`,
			nil,
			chromedp.WithPollingInterval(500*time.Millisecond),
		),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return err
	}

	log.Info("anti-bot challenge resolved")
	return nil
}
