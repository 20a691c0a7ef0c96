// Package refresh runs the batch content-refresh pipeline.
//
// A run walks Fetching → Filtering → Summarizing → Synthesizing → Uploading →
// Committing strictly in order; each stage operates on the surviving subset
// of the previous one. The live catalog is only touched in Committing, as a
// single atomic replace of a fully built batch. Any batch-wide failure leaves
// the previous catalog serving untouched, and a rerun restarts from Fetching;
// there is no partial resume.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"aus-news/internal/catalog"
	"aus-news/internal/models"
	"aus-news/internal/source"
	"aus-news/internal/tts"
)

// ErrRunInProgress is returned when a run is requested while another is in
// flight. Runs are mutually exclusive; the caller retries later.
var ErrRunInProgress = errors.New("refresh run already in progress")

// ErrBatchAborted is returned when a batch-wide condition (no usable
// candidates at some stage) kills the run. The live catalog is untouched.
var ErrBatchAborted = errors.New("batch aborted")

// State names the pipeline stage a run is in.
type State string

// Pipeline states.
const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateFiltering    State = "filtering"
	StateSummarizing  State = "summarizing"
	StateSynthesizing State = "synthesizing"
	StateUploading    State = "uploading"
	StateCommitting   State = "committing"
	StateFailed       State = "failed"
)

// Filter is the chain surface the orchestrator drives.
type Filter interface {
	Run(ctx context.Context, candidates []models.Candidate) []models.Candidate
}

// Summarizer produces the bounded summary for one candidate.
type Summarizer interface {
	Summarize(ctx context.Context, cand models.Candidate) (string, error)
}

// Gateway is the object store surface the orchestrator drives.
type Gateway interface {
	NewHandle(feed, batch string) string
	Upload(ctx context.Context, handle string, data []byte, contentType string) error
	DeleteBatch(ctx context.Context, handles []string)
}

// Options wires one feed's pipeline together.
type Options struct {
	Feed         string
	Sources      []source.Source
	Filter       Filter
	Summarizer   Summarizer
	Synthesizer  tts.Service
	Gateway      Gateway
	Store        *catalog.Store
	RunBudget    time.Duration
	MaxItems     int
	SourceWindow string
	Logger       *slog.Logger
}

// Orchestrator owns one feed's catalog and is its only writer.
type Orchestrator struct {
	feed         string
	sources      []source.Source
	filter       Filter
	summarizer   Summarizer
	synth        tts.Service
	gateway      Gateway
	store        *catalog.Store
	budget       time.Duration
	maxItems     int
	sourceWindow string
	logger       *slog.Logger

	running atomic.Bool
	state   atomic.Value // State
	lastRun atomic.Value // time.Time
}

// NewOrchestrator creates the refresh orchestrator for one feed.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		feed:         opts.Feed,
		sources:      opts.Sources,
		filter:       opts.Filter,
		summarizer:   opts.Summarizer,
		synth:        opts.Synthesizer,
		gateway:      opts.Gateway,
		store:        opts.Store,
		budget:       opts.RunBudget,
		maxItems:     opts.MaxItems,
		sourceWindow: opts.SourceWindow,
		logger:       opts.Logger.With("feed", opts.Feed),
	}
	o.state.Store(StateIdle)
	return o
}

// Report summarizes one completed run for the triggering caller.
type Report struct {
	Feed        string        `json:"feed"`
	Fetched     int           `json:"fetched"`
	Rejected    int           `json:"rejected"`
	Dropped     int           `json:"dropped"`
	Items       int           `json:"items"`
	AudioCount  int           `json:"audioCount"`
	Duration    time.Duration `json:"-"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// State returns the stage the orchestrator is currently in.
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

// LastRefresh returns when the catalog last committed, zero if never.
func (o *Orchestrator) LastRefresh() time.Time {
	if t, ok := o.lastRun.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// item pairs a candidate with the artifacts later stages attach to it.
type item struct {
	cand    models.Candidate
	summary string
	audio   []byte
	handle  string
}

// Run executes one full refresh. It is synchronous and returns only once the
// new catalog is committed or the run has failed. A second call while one is
// in flight returns ErrRunInProgress immediately.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	report, err := o.run(ctx, started)
	if err != nil {
		o.state.Store(StateFailed)
		o.logger.Error("refresh run failed", "error", err, "duration", time.Since(started))
		return nil, err
	}

	o.state.Store(StateIdle)
	o.lastRun.Store(report.GeneratedAt)
	o.logger.Info("refresh run complete",
		"items", report.Items, "audio", report.AudioCount, "duration", report.Duration)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, started time.Time) (*Report, error) {
	o.state.Store(StateFetching)
	candidates := source.FetchAll(ctx, o.logger, o.sources...)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates fetched", ErrBatchAborted)
	}
	if o.maxItems > 0 && len(candidates) > o.maxItems {
		candidates = candidates[:o.maxItems]
	}
	fetched := len(candidates)

	o.state.Store(StateFiltering)
	passed := o.filter.Run(ctx, candidates)
	if len(passed) == 0 {
		return nil, fmt.Errorf("%w: every candidate rejected", ErrBatchAborted)
	}
	rejected := fetched - len(passed)

	o.state.Store(StateSummarizing)
	var items []item
	for _, cand := range passed {
		summary, err := o.summarizer.Summarize(ctx, cand)
		if err != nil {
			o.logger.Warn("summarization failed, dropping candidate", "url", cand.SourceURL, "error", err)
			continue
		}
		items = append(items, item{cand: cand, summary: summary})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: every summarization failed", ErrBatchAborted)
	}
	dropped := len(passed) - len(items)

	// Synthesis and upload failures degrade the item to text-only rather
	// than dropping it: the summary still has value without narration.
	o.state.Store(StateSynthesizing)
	for i := range items {
		audio, err := o.synth.SynthesizeSpeech(ctx, items[i].summary)
		if err != nil {
			o.logger.Warn("synthesis failed, keeping item text-only",
				"url", items[i].cand.SourceURL, "error", err)
			continue
		}
		items[i].audio = audio
	}

	o.state.Store(StateUploading)
	batch := started.UTC().Format("20060102-150405")
	for i := range items {
		if items[i].audio == nil {
			continue
		}
		handle := o.gateway.NewHandle(o.feed, batch)
		if err := o.gateway.Upload(ctx, handle, items[i].audio, tts.ContentType); err != nil {
			o.logger.Warn("upload failed, keeping item text-only",
				"url", items[i].cand.SourceURL, "error", err)
			continue
		}
		items[i].handle = handle
		items[i].audio = nil
	}

	o.state.Store(StateCommitting)
	next := o.buildCatalog(items)
	previous := o.store.Replace(next)

	// Previous-batch objects are removed only after the swap, on a fresh
	// context: the run deadline may already be spent and cleanup must not
	// be able to fail the committed batch.
	if previous != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		o.gateway.DeleteBatch(cleanupCtx, previous.AudioHandles())
	}

	audioCount := 0
	for _, it := range items {
		if it.handle != "" {
			audioCount++
		}
	}

	return &Report{
		Feed:        o.feed,
		Fetched:     fetched,
		Rejected:    rejected,
		Dropped:     dropped,
		Items:       len(items),
		AudioCount:  audioCount,
		Duration:    time.Since(started),
		GeneratedAt: next.GeneratedAt,
	}, nil
}

func (o *Orchestrator) buildCatalog(items []item) *models.Catalog {
	catalogItems := make([]models.CatalogItem, 0, len(items))
	for i, it := range items {
		title := it.cand.Title
		if title == "" {
			title = truncate(it.summary, 50) + "..."
		}
		catalogItems = append(catalogItems, models.CatalogItem{
			ID:          i + 1,
			Title:       title,
			Category:    it.cand.Category,
			Summary:     it.summary,
			Source:      it.cand.Source,
			SourceURL:   it.cand.SourceURL,
			ImageURL:    it.cand.ImageURL,
			AudioHandle: it.handle,
		})
	}
	return &models.Catalog{
		Items:        catalogItems,
		GeneratedAt:  time.Now().UTC(),
		SourceWindow: o.sourceWindow,
	}
}

// truncate cuts s to at most n runes, never splitting a multi-byte sequence.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
