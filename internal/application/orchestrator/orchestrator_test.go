package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/domain/repository"
)

type fakeJobs struct {
	mu       sync.Mutex
	flags    map[string]bool
	refreshN map[string]int
}

func newFakeJobs() *fakeJobs { return &fakeJobs{flags: map[string]bool{}, refreshN: map[string]int{}} }

func (f *fakeJobs) TrySet(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flags[key] {
		return false, nil
	}
	f.flags[key] = true
	return true, nil
}

func (f *fakeJobs) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[key], nil
}

func (f *fakeJobs) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshN[key]++
	return nil
}

func (f *fakeJobs) refreshCalls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshN[key]
}

func (f *fakeJobs) Clear(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flags, key)
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	chapters map[string][]*entity.Chapter
}

func newFakeStore() *fakeStore { return &fakeStore{chapters: map[string][]*entity.Chapter{}} }

func (s *fakeStore) FindByVid(ctx context.Context, vid string, limit int) ([]*entity.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters[vid], nil
}

func (s *fakeStore) Replace(ctx context.Context, vid string, chapters []*entity.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[vid] = chapters
	return nil
}

func (s *fakeStore) DeleteByVid(ctx context.Context, vid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chapters, vid)
	return nil
}

type fakeFeedback struct{ feedback *entity.Feedback }

func (f *fakeFeedback) Get(ctx context.Context, vid string) (*entity.Feedback, error) {
	return f.feedback, nil
}

type fakeCaptions struct {
	captions []entity.TimedText
	lang     string
	err      error
}

func (f *fakeCaptions) Fetch(ctx context.Context, vid string) ([]entity.TimedText, string, error) {
	return f.captions, f.lang, f.err
}

type publishedEvent struct {
	channel string
	ev      repository.Event
}

type fakeEventBus struct {
	mu        sync.Mutex
	published []publishedEvent
}

func (f *fakeEventBus) Publish(ctx context.Context, channel string, ev repository.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{channel: channel, ev: ev})
	return nil
}

func (f *fakeEventBus) Subscribe(ctx context.Context, channel string) (<-chan repository.Event, func(), error) {
	ch := make(chan repository.Event)
	return ch, func() {}, nil
}

func (f *fakeEventBus) events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.published))
	copy(out, f.published)
	return out
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEnqueuer) EnqueueSummarizeJob(ctx context.Context, vid, trigger string, hints []entity.ChapterHint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func newTestOrchestrator(jobs *fakeJobs, store *fakeStore, feedback *entity.Feedback, captions *fakeCaptions, enqueuer *fakeEnqueuer) *Orchestrator {
	o, _ := newTestOrchestratorWithBus(jobs, store, feedback, captions, enqueuer)
	return o
}

func newTestOrchestratorWithBus(jobs *fakeJobs, store *fakeStore, feedback *entity.Feedback, captions *fakeCaptions, enqueuer *fakeEnqueuer) (*Orchestrator, *fakeEventBus) {
	bus := &fakeEventBus{}
	o := New(jobs, store, &fakeFeedback{feedback: feedback}, captions, bus, enqueuer,
		Config{SummarizingTTL: time.Minute, NoCaptionsTTL: time.Minute, ResummarizeMinTotal: 10, ResummarizeBadRatio: 0.2}, nil)
	return o, bus
}

func TestSummarizeReturnsDoneFromStore(t *testing.T) {
	store := newFakeStore()
	store.chapters["v1"] = []*entity.Chapter{{Cid: "c1", Vid: "v1", Summary: "done already"}}
	o := newTestOrchestrator(newFakeJobs(), store, nil, &fakeCaptions{}, &fakeEnqueuer{})

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultDone, res.Kind)
	require.Equal(t, entity.SummaryStateDone, res.Response.State)
}

func TestSummarizeFromStorePublishesDoneThenCloseForSubscribers(t *testing.T) {
	store := newFakeStore()
	store.chapters["v1"] = []*entity.Chapter{{Cid: "c1", Vid: "v1", Summary: "done already"}}
	o, bus := newTestOrchestratorWithBus(newFakeJobs(), store, nil, &fakeCaptions{}, &fakeEnqueuer{})

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultDone, res.Kind)

	events := bus.events()
	require.Len(t, events, 2)
	require.Equal(t, repository.ChannelForVid("v1"), events[0].channel)
	require.Equal(t, repository.EventSummary, events[0].ev.Tag)
	require.Equal(t, entity.SummaryStateDone, events[0].ev.Data.State)
	require.Equal(t, repository.EventClose, events[1].ev.Tag)
}

func TestSummarizeReturnsNothingWhenNoCaptionsCached(t *testing.T) {
	jobs := newFakeJobs()
	jobs.flags[repository.NoCaptionsKey("v1")] = true
	o := newTestOrchestrator(jobs, newFakeStore(), nil, &fakeCaptions{}, &fakeEnqueuer{})

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultNothing, res.Kind)
}

func TestSummarizeSubscribesWhenAlreadyInFlight(t *testing.T) {
	jobs := newFakeJobs()
	jobs.flags[repository.SummarizingKey("v1")] = true
	o := newTestOrchestrator(jobs, newFakeStore(), nil, &fakeCaptions{}, &fakeEnqueuer{})

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultSubscribe, res.Kind)
	res.Cleanup()
}

func TestSummarizeFetchesAndEnqueuesOnFreshVideo(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	captions := &fakeCaptions{captions: []entity.TimedText{{Start: 0, Text: "hi"}}, lang: "en"}
	o := newTestOrchestrator(newFakeJobs(), newFakeStore(), nil, captions, enqueuer)

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultSubscribe, res.Kind)
	require.Equal(t, 1, enqueuer.calls)
	res.Cleanup()
}

func TestSummarizeSetsNegativeCacheWhenNoTranscript(t *testing.T) {
	jobs := newFakeJobs()
	captions := &fakeCaptions{err: repository.ErrNoTranscript}
	o := newTestOrchestrator(jobs, newFakeStore(), nil, captions, &fakeEnqueuer{})

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultNothing, res.Kind)

	exists, _ := jobs.Exists(context.Background(), repository.NoCaptionsKey("v1"))
	require.True(t, exists)
	inFlight, _ := jobs.Exists(context.Background(), repository.SummarizingKey("v1"))
	require.False(t, inFlight)
}

func TestSummarizeForcesFreshRunOnBadFeedbackRatio(t *testing.T) {
	store := newFakeStore()
	store.chapters["v1"] = []*entity.Chapter{{Cid: "c1", Vid: "v1", Slicer: entity.SlicerLLM, Summary: "stale"}}
	feedback := &entity.Feedback{Vid: "v1", Good: 8, Bad: 2}
	enqueuer := &fakeEnqueuer{}
	captions := &fakeCaptions{captions: []entity.TimedText{{Start: 0, Text: "hi"}}, lang: "en"}
	o := newTestOrchestrator(newFakeJobs(), store, feedback, captions, enqueuer)

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultSubscribe, res.Kind)
	require.Equal(t, 1, enqueuer.calls)
	_, ok := store.chapters["v1"]
	require.False(t, ok)
	res.Cleanup()
}

func TestSummarizeKeepsCacheBelowFeedbackThreshold(t *testing.T) {
	store := newFakeStore()
	store.chapters["v1"] = []*entity.Chapter{{Cid: "c1", Vid: "v1", Summary: "fine"}}
	feedback := &entity.Feedback{Vid: "v1", Good: 5, Bad: 2}
	o := newTestOrchestrator(newFakeJobs(), store, feedback, &fakeCaptions{}, &fakeEnqueuer{})

	res, err := o.Summarize(context.Background(), "v1", "user", nil)
	require.NoError(t, err)
	require.Equal(t, ResultDone, res.Kind)
}

func TestSummarizeForcesFreshRunOnHintedVideoWithNonYouTubeChapters(t *testing.T) {
	store := newFakeStore()
	store.chapters["v1"] = []*entity.Chapter{{Cid: "c1", Vid: "v1", Slicer: entity.SlicerLLM, Summary: "stale"}}
	enqueuer := &fakeEnqueuer{}
	captions := &fakeCaptions{captions: []entity.TimedText{{Start: 0, Text: "hi"}}, lang: "en"}
	o := newTestOrchestrator(newFakeJobs(), store, nil, captions, enqueuer)

	hints := []entity.ChapterHint{{Title: "Intro", Timestamp: "0:00"}}
	res, err := o.Summarize(context.Background(), "v1", "user", hints)
	require.NoError(t, err)
	require.Equal(t, ResultSubscribe, res.Kind)
	require.Equal(t, 1, enqueuer.calls)
	res.Cleanup()
}

func TestHeartbeatSummarizingRefreshesFlagPeriodically(t *testing.T) {
	jobs := newFakeJobs()
	o := newTestOrchestrator(jobs, newFakeStore(), nil, &fakeCaptions{}, &fakeEnqueuer{})
	o.cfg.SummarizingTTL = 9 * time.Millisecond

	stop := o.heartbeatSummarizing(context.Background(), "v1")
	defer stop()

	require.Eventually(t, func() bool {
		return jobs.refreshCalls(repository.SummarizingKey("v1")) > 0
	}, time.Second, time.Millisecond)
}

func TestHeartbeatSummarizingStopsOnCleanup(t *testing.T) {
	jobs := newFakeJobs()
	o := newTestOrchestrator(jobs, newFakeStore(), nil, &fakeCaptions{}, &fakeEnqueuer{})
	o.cfg.SummarizingTTL = 9 * time.Millisecond

	stop := o.heartbeatSummarizing(context.Background(), "v1")
	require.Eventually(t, func() bool {
		return jobs.refreshCalls(repository.SummarizingKey("v1")) > 0
	}, time.Second, time.Millisecond)
	stop()

	seenAtStop := jobs.refreshCalls(repository.SummarizingKey("v1"))
	time.Sleep(50 * time.Millisecond)
	// allow at most one in-flight tick racing the stop signal; the ticker
	// must not keep firing indefinitely after stop() returns.
	require.LessOrEqual(t, jobs.refreshCalls(repository.SummarizingKey("v1")), seenAtStop+1)
}

func TestShouldResummarizeOnFeedbackBelowMinTotalIsFalse(t *testing.T) {
	require.False(t, shouldResummarizeOnFeedback(&entity.Feedback{Good: 1, Bad: 8}, 10, 0.2))
}

func TestShouldResummarizeOnFeedbackAtRatioIsTrue(t *testing.T) {
	require.True(t, shouldResummarizeOnFeedback(&entity.Feedback{Good: 8, Bad: 2}, 10, 0.2))
}
