package services

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobs-aggregator/internal/entities"
	"github.com/maxaizer/jobs-aggregator/internal/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScraper struct {
	postings []entities.Posting
	err      error
}

func (m *mockScraper) Scrape(ctx context.Context) ([]entities.Posting, error) {
	return m.postings, m.err
}

func (m *mockScraper) Source() string {
	return "Mock Source"
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Save(ctx context.Context, posting entities.Posting) (bool, error) {
	args := m.Called(ctx, posting)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
	sentAt []time.Time
}

func (m *mockNotifier) Send(ctx context.Context, text string) error {
	m.sentAt = append(m.sentAt, time.Now())
	return m.Called(ctx, text).Error(0)
}

type acceptAllFilter struct{}

func (acceptAllFilter) IsRelevant(text string) bool { return true }

type rejectAllFilter struct{}

func (rejectAllFilter) IsRelevant(text string) bool { return false }

func posting(link, title string) entities.Posting {
	return entities.Posting{
		Title:       title,
		Link:        link,
		Description: title,
		Source:      "Mock Source",
	}
}

func opener(store postingStore) StoreOpener {
	return func() (postingStore, func() error, error) {
		return store, func() error { return nil }, nil
	}
}

func newTestPipeline(sources []Source, store postingStore, n notifier) *Pipeline {
	p := NewPipeline(sources, acceptAllFilter{}, n, opener(store), nil)
	p.SetSendDelay(10 * time.Millisecond)
	return p
}

func Test_Run_NewPostings_AreDeliveredWithPauseBetween(t *testing.T) {

	scraper := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "First"),
		posting("https://example.com/2", "Second"),
	}}

	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(true, nil)

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	pipeline := newTestPipeline([]Source{{Scraper: scraper}}, store, notifier)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunSummary{Scraped: 2, Delivered: 2}, summary)
	notifier.AssertNumberOfCalls(t, "Send", 2)
	store.AssertNumberOfCalls(t, "Save", 2)

	require.Len(t, notifier.sentAt, 2)
	assert.GreaterOrEqual(t, notifier.sentAt[1].Sub(notifier.sentAt[0]), 10*time.Millisecond)
}

func Test_Run_DuplicatePosting_IsNeverDelivered(t *testing.T) {

	scraper := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "Seen before"),
	}}

	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(false, nil)

	notifier := &mockNotifier{}

	pipeline := newTestPipeline([]Source{{Scraper: scraper}}, store, notifier)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunSummary{Scraped: 1, Duplicates: 1}, summary)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func Test_Run_DeliveryFailure_IsIsolatedPerItem(t *testing.T) {

	scraper := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "Fails"),
		posting("https://example.com/2", "Succeeds"),
	}}

	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(true, nil)

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("flood wait")).Once()
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	pipeline := newTestPipeline([]Source{{Scraper: scraper}}, store, notifier)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunSummary{Scraped: 2, Delivered: 1, Failed: 1}, summary)
	notifier.AssertNumberOfCalls(t, "Send", 2)
}

func Test_Run_FilteredSource_CountsFilteredOut(t *testing.T) {

	scraper := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "Accountant wanted"),
	}}

	store := &mockStore{}
	notifier := &mockNotifier{}

	pipeline := NewPipeline([]Source{{Scraper: scraper, FilterRelevance: true}},
		rejectAllFilter{}, notifier, opener(store), nil)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunSummary{Scraped: 1, FilteredOut: 1}, summary)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func Test_Run_SortedSource_DeliversEarliestFirst(t *testing.T) {

	undated := posting("https://example.com/1", "Undated")
	older := posting("https://example.com/2", "Older")
	older.PostedDate = "01, Jan, 2025"
	newer := posting("https://example.com/3", "Newer")
	newer.PostedDate = "16, Nov, 2025"

	scraper := &mockScraper{postings: []entities.Posting{undated, newer, older}}

	store := &mockStore{}
	var savedOrder []string
	store.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedOrder = append(savedOrder, args.Get(1).(entities.Posting).Title)
		}).Return(true, nil)

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	pipeline := newTestPipeline([]Source{{Scraper: scraper, SortByDate: true}}, store, notifier)
	pipeline.SetSendDelay(0)

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Older", "Newer", "Undated"}, savedOrder)
}

func Test_Run_SeenLinkCache_SkipsStoreOnSecondRun(t *testing.T) {

	scraper := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "Once"),
	}}

	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(true, nil)

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	pipeline := newTestPipeline([]Source{{Scraper: scraper}}, store, notifier)
	pipeline.SetSendDelay(0)

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunSummary{Scraped: 1, Duplicates: 1}, summary)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func Test_Run_ScraperError_DoesNotAbortOtherSources(t *testing.T) {

	failing := &mockScraper{err: errors.New("browser crashed")}
	working := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "Still works"),
	}}

	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(true, nil)

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	pipeline := newTestPipeline([]Source{{Scraper: failing}, {Scraper: working}}, store, notifier)
	pipeline.SetSendDelay(0)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunSummary{Scraped: 1, Delivered: 1}, summary)
}

func Test_Run_StoreOpenFailure_FailsWholeRun(t *testing.T) {

	pipeline := NewPipeline(nil, acceptAllFilter{}, &mockNotifier{},
		func() (postingStore, func() error, error) {
			return nil, nil, errors.New("disk full")
		}, nil)

	_, err := pipeline.Run(context.Background())
	assert.Error(t, err)
}

func Test_Run_PublishesRunCompletedEvent(t *testing.T) {

	scraper := &mockScraper{postings: []entities.Posting{
		posting("https://example.com/1", "First"),
	}}

	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(true, nil)

	notifier := &mockNotifier{}
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	bus := EventBus.New()
	var published []events.RunCompleted
	require.NoError(t, bus.Subscribe(events.RunCompletedTopic, func(e events.RunCompleted) {
		published = append(published, e)
	}))

	pipeline := NewPipeline([]Source{{Scraper: scraper}}, acceptAllFilter{},
		notifier, opener(store), bus)
	pipeline.SetSendDelay(0)

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, 1, published[0].Scraped)
	assert.Equal(t, 1, published[0].Delivered)
}

func Test_RunLoop_StopsOnContextCancel(t *testing.T) {

	store := &mockStore{}
	notifier := &mockNotifier{}
	pipeline := newTestPipeline(nil, store, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pipeline.RunLoop(ctx, time.Hour)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop after cancellation")
	}
}
