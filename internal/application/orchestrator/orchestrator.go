// Package orchestrator implements the top-level summarize state machine
// (spec §4.10): deciding whether a request can be answered from the store,
// from an in-flight subscription, or must kick off a new background run,
// and separately driving that background run end to end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vidsum/orchestrator/internal/application/chapterize"
	"github.com/vidsum/orchestrator/internal/application/refine"
	"github.com/vidsum/orchestrator/internal/domain/entity"
	"github.com/vidsum/orchestrator/internal/domain/repository"
)

// ResultKind classifies how a Summarize call was answered (spec §4.10, §6).
type ResultKind string

const (
	// ResultDone means chapters are ready now; Response is populated.
	ResultDone ResultKind = "done"
	// ResultNothing means no captions exist for the video; a negative
	// cache entry was set so repeat requests fail fast.
	ResultNothing ResultKind = "nothing"
	// ResultSubscribe means a run is in flight; Events streams its
	// progress and the caller must call Cleanup when done reading it.
	ResultSubscribe ResultKind = "subscribe"
)

// Result is the outcome of a Summarize call.
type Result struct {
	Kind     ResultKind
	Response *entity.SummaryResponse
	Events   <-chan repository.Event
	Cleanup  func()
}

// Enqueuer dispatches a background summarize run. It is satisfied by
// messaging.JobEnqueuer, a thin adapter over *messaging.Producer.
type Enqueuer interface {
	EnqueueSummarizeJob(ctx context.Context, vid, trigger string, hints []entity.ChapterHint) error
}

// Config carries the TTLs and thresholds spec §4.1/§4.8 leave as tunables.
type Config struct {
	SummarizingTTL      time.Duration
	NoCaptionsTTL       time.Duration
	ResummarizeMinTotal int
	ResummarizeBadRatio float64
}

// Orchestrator wires the durable store, the advisory flags, the event bus
// and the chapterize/refine pipeline into the request-facing decision in
// spec §4.10 and the background job it may enqueue.
type Orchestrator struct {
	jobs      repository.JobRegistry
	store     repository.ChapterStore
	feedback  repository.FeedbackReader
	captions  repository.CaptionSource
	events    repository.EventBus
	enqueuer  Enqueuer
	cfg       Config
	log       *slog.Logger
	decisions singleflight.Group
}

// New builds an Orchestrator.
func New(
	jobs repository.JobRegistry,
	store repository.ChapterStore,
	feedback repository.FeedbackReader,
	captions repository.CaptionSource,
	events repository.EventBus,
	enqueuer Enqueuer,
	cfg Config,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		jobs:     jobs,
		store:    store,
		feedback: feedback,
		captions: captions,
		events:   events,
		enqueuer: enqueuer,
		cfg:      cfg,
		log:      log,
	}
}

// decision is what the singleflight-collapsed half of Summarize produces;
// the Subscribe case is finished outside the collapsed section so every
// caller — the original and any duplicates collapsed onto it — gets its
// own independent EventBus subscription rather than sharing one channel.
type decision struct {
	kind     ResultKind
	response *entity.SummaryResponse
}

// Summarize implements spec §4.10's synchronous half: it answers
// immediately from the store or the negative cache, subscribes to an
// already-running job, or fetches captions and starts a new one.
//
// Concurrent calls for the same vid within this process are collapsed by a
// singleflight group so only one of them performs the store/cache/flag
// dance and the caption fetch; the others receive the same decision.
func (o *Orchestrator) Summarize(ctx context.Context, vid, trigger string, hints []entity.ChapterHint) (*Result, error) {
	v, err, _ := o.decisions.Do(vid, func() (interface{}, error) {
		return o.decide(ctx, vid, trigger, hints)
	})
	if err != nil {
		return nil, err
	}
	d := v.(*decision)

	if d.kind != ResultSubscribe {
		return &Result{Kind: d.kind, Response: d.response}, nil
	}

	ch, cleanup, err := o.events.Subscribe(ctx, repository.ChannelForVid(vid))
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", vid, err)
	}
	return &Result{Kind: ResultSubscribe, Events: ch, Cleanup: cleanup}, nil
}

func (o *Orchestrator) decide(ctx context.Context, vid, trigger string, hints []entity.ChapterHint) (*decision, error) {
	existing, err := o.store.FindByVid(ctx, vid, 0)
	if err != nil {
		return nil, fmt.Errorf("load chapters for %s: %w", vid, err)
	}

	forceFresh := false
	if len(existing) > 0 {
		if len(hints) > 0 && hintedResummarize(existing) {
			forceFresh = true
		} else {
			fb, ferr := o.feedback.Get(ctx, vid)
			if ferr == nil && shouldResummarizeOnFeedback(fb, o.cfg.ResummarizeMinTotal, o.cfg.ResummarizeBadRatio) {
				forceFresh = true
			}
		}

		if !forceFresh && !anyEmptySummary(existing) {
			o.publish(ctx, vid, entity.SummaryStateDone, existing)
			o.publishClose(ctx, vid)
			return &decision{kind: ResultDone, response: &entity.SummaryResponse{
				State:    entity.SummaryStateDone,
				Chapters: existing,
			}}, nil
		}
	}

	if forceFresh {
		if err := o.store.DeleteByVid(ctx, vid); err != nil {
			return nil, fmt.Errorf("delete stale chapters for %s: %w", vid, err)
		}
		if err := o.jobs.Clear(ctx, repository.NoCaptionsKey(vid)); err != nil {
			o.log.Warn("clear no-captions flag failed", "vid", vid, "error", err)
		}
		if err := o.jobs.Clear(ctx, repository.SummarizingKey(vid)); err != nil {
			o.log.Warn("clear summarizing flag failed", "vid", vid, "error", err)
		}
	}

	if noCaptions, err := o.jobs.Exists(ctx, repository.NoCaptionsKey(vid)); err == nil && noCaptions {
		return &decision{kind: ResultNothing, response: &entity.SummaryResponse{State: entity.SummaryStateNothing}}, nil
	}

	if inFlight, err := o.jobs.Exists(ctx, repository.SummarizingKey(vid)); err == nil && inFlight {
		return &decision{kind: ResultSubscribe}, nil
	}

	won, err := o.jobs.TrySet(ctx, repository.SummarizingKey(vid), o.cfg.SummarizingTTL)
	if err != nil {
		o.log.Warn("acquire summarizing flag failed, proceeding without dedup", "vid", vid, "error", err)
		won = true
	}
	if !won {
		// Lost the race to another process between Exists and TrySet; fall
		// through to subscribing against whichever run is now in flight.
		return &decision{kind: ResultSubscribe}, nil
	}

	// The flag is set before the fetch, not after, so concurrent requests
	// for the same video serialize on this one fetch instead of each
	// hitting the upstream caption source.
	_, _, err = o.captions.Fetch(ctx, vid)
	if err != nil {
		if errors.Is(err, repository.ErrNoTranscript) || errors.Is(err, repository.ErrTranscriptsDisabled) {
			if cerr := o.jobs.Clear(ctx, repository.SummarizingKey(vid)); cerr != nil {
				o.log.Warn("clear summarizing flag after no-captions failed", "vid", vid, "error", cerr)
			}
			if _, serr := o.jobs.TrySet(ctx, repository.NoCaptionsKey(vid), o.cfg.NoCaptionsTTL); serr != nil {
				o.log.Warn("set no-captions flag failed", "vid", vid, "error", serr)
			}
			return &decision{kind: ResultNothing, response: &entity.SummaryResponse{State: entity.SummaryStateNothing}}, nil
		}
		if cerr := o.jobs.Clear(ctx, repository.SummarizingKey(vid)); cerr != nil {
			o.log.Warn("clear summarizing flag after fetch error failed", "vid", vid, "error", cerr)
		}
		return nil, fmt.Errorf("fetch captions for %s: %w", vid, err)
	}

	if err := o.enqueuer.EnqueueSummarizeJob(ctx, vid, trigger, hints); err != nil {
		if cerr := o.jobs.Clear(ctx, repository.SummarizingKey(vid)); cerr != nil {
			o.log.Warn("clear summarizing flag after enqueue error failed", "vid", vid, "error", cerr)
		}
		return nil, fmt.Errorf("enqueue summarize job for %s: %w", vid, err)
	}

	return &decision{kind: ResultSubscribe}, nil
}

// hintedResummarize reports whether a hinted request should force a fresh
// run because the cached chapters weren't produced from hints (spec §4.10):
// any chapter not sliced by the user's own YouTube-native boundaries means
// the existing run didn't come from hints, so a hinted re-request wins.
func hintedResummarize(existing []*entity.Chapter) bool {
	for _, c := range existing {
		if c.Slicer != entity.SlicerYouTube {
			return true
		}
	}
	return false
}

// RunJob carries the chapterizer and refiner that Run uses for the
// background half of a summarize run (spec §4.10, §4.8, §4.9).
// It is built once by the job-worker and passed to Run from its stream
// consumer.
type RunJob struct {
	Chapterizer *chapterize.Chapterizer
	Refiner     *refine.Refiner
}

// Run executes one background summarize job for vid: chapterize, refine,
// persist, publish, and clear the in-flight flag. Captions are re-fetched
// here rather than carried on the job message, to keep the dispatch payload
// small.
func (o *Orchestrator) Run(ctx context.Context, rj RunJob, vid, trigger string, hints []entity.ChapterHint) error {
	defer func() {
		if err := o.jobs.Clear(ctx, repository.SummarizingKey(vid)); err != nil {
			o.log.Warn("clear summarizing flag after job failed", "vid", vid, "error", err)
		}
	}()

	stopHeartbeat := o.heartbeatSummarizing(ctx, vid)
	defer stopHeartbeat()

	captions, lang, err := o.captions.Fetch(ctx, vid)
	if err != nil {
		o.publishClose(ctx, vid)
		return fmt.Errorf("re-fetch captions for %s: %w", vid, err)
	}

	onNew := func(ch *entity.Chapter) {
		o.publish(ctx, vid, entity.SummaryStateDoing, []*entity.Chapter{ch})
	}

	chapters, err := rj.Chapterizer.Run(ctx, vid, trigger, captions, lang, hints, onNew)
	if err != nil {
		o.publishClose(ctx, vid)
		return fmt.Errorf("chapterize %s: %w", vid, err)
	}

	if hasException := rj.Refiner.Run(ctx, captions, chapters, lang); hasException {
		o.log.Warn("one or more chapters failed to refine", "vid", vid)
	}

	if err := o.store.Replace(ctx, vid, chapters); err != nil {
		o.publishClose(ctx, vid)
		return fmt.Errorf("persist chapters for %s: %w", vid, err)
	}

	o.publish(ctx, vid, entity.SummaryStateDone, chapters)
	o.publishClose(ctx, vid)
	return nil
}

// heartbeatSummarizing resets the summarizing(vid) flag's TTL on an interval
// well inside that TTL, so a chapterize+refine run that outlives a single
// TTL window doesn't let the flag expire out from under it (spec line 65).
// The returned func stops the heartbeat; it must be called before Run
// clears the flag.
func (o *Orchestrator) heartbeatSummarizing(ctx context.Context, vid string) func() {
	interval := o.cfg.SummarizingTTL / 3
	if interval <= 0 {
		interval = time.Second
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		key := repository.SummarizingKey(vid)
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := o.jobs.Refresh(ctx, key, o.cfg.SummarizingTTL); err != nil {
					o.log.Warn("refresh summarizing flag failed", "vid", vid, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

func (o *Orchestrator) publish(ctx context.Context, vid string, state entity.SummaryState, chapters []*entity.Chapter) {
	ev := repository.Event{Tag: repository.EventSummary, Data: &entity.SummaryResponse{State: state, Chapters: chapters}}
	if err := o.events.Publish(ctx, repository.ChannelForVid(vid), ev); err != nil {
		o.log.Warn("publish summary event failed", "vid", vid, "error", err)
	}
}

func (o *Orchestrator) publishClose(ctx context.Context, vid string) {
	if err := o.events.Publish(ctx, repository.ChannelForVid(vid), repository.Event{Tag: repository.EventClose}); err != nil {
		o.log.Warn("publish close event failed", "vid", vid, "error", err)
	}
}
