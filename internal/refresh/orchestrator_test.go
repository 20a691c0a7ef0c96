package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"aus-news/internal/catalog"
	"aus-news/internal/models"
	"aus-news/internal/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	name  string
	cands []models.Candidate
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(context.Context) ([]models.Candidate, error) {
	return f.cands, f.err
}

// rejectFilter rejects candidates whose URL appears in the reject set.
type rejectFilter struct {
	reject map[string]bool
}

func (f *rejectFilter) Run(_ context.Context, cands []models.Candidate) []models.Candidate {
	var passed []models.Candidate
	for _, c := range cands {
		if !f.reject[c.SourceURL] {
			passed = append(passed, c)
		}
	}
	return passed
}

type fakeSummarizer struct {
	failFor map[string]bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, cand models.Candidate) (string, error) {
	if f.failFor[cand.SourceURL] {
		return "", errors.New("empty model output")
	}
	return "summary of " + cand.Title, nil
}

type fakeSynth struct {
	failFor map[string]bool
}

func (f *fakeSynth) SynthesizeSpeech(_ context.Context, text string) ([]byte, error) {
	if f.failFor[text] {
		return nil, errors.New("tts down")
	}
	return []byte("mp3:" + text), nil
}

func (f *fakeSynth) Provider() string { return "fake" }

type fakeGateway struct {
	mu       sync.Mutex
	serial   int
	uploads  map[string][]byte
	deleted  []string
	failNext bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{uploads: make(map[string][]byte)}
}

func (g *fakeGateway) NewHandle(feed, batch string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.serial++
	return fmt.Sprintf("audio/%s/%s/%d.mp3", feed, batch, g.serial)
}

func (g *fakeGateway) Upload(_ context.Context, handle string, data []byte, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext {
		g.failNext = false
		return errors.New("upload failed")
	}
	g.uploads[handle] = data
	return nil
}

func (g *fakeGateway) DeleteBatch(_ context.Context, handles []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, handles...)
	for _, h := range handles {
		delete(g.uploads, h)
	}
}

func candidates(urls ...string) []models.Candidate {
	out := make([]models.Candidate, len(urls))
	for i, u := range urls {
		out[i] = models.Candidate{Source: "test", Title: "title " + u, SourceURL: u}
	}
	return out
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Feed == "" {
		opts.Feed = "news"
	}
	if opts.Filter == nil {
		opts.Filter = &rejectFilter{}
	}
	if opts.Summarizer == nil {
		opts.Summarizer = &fakeSummarizer{}
	}
	if opts.Synthesizer == nil {
		opts.Synthesizer = &fakeSynth{}
	}
	if opts.Gateway == nil {
		opts.Gateway = newFakeGateway()
	}
	if opts.Store == nil {
		opts.Store = catalog.NewStore()
	}
	if opts.RunBudget == 0 {
		opts.RunBudget = time.Minute
	}
	opts.Logger = discardLogger()
	return NewOrchestrator(opts)
}

// Batch of 5: 2 rejected by the filter, 1 fails summarization. The committed
// catalog has exactly 2 items, both narrated.
func TestRunScenarioFiveCandidates(t *testing.T) {
	store := catalog.NewStore()
	gw := newFakeGateway()
	o := newOrchestrator(t, Options{
		Sources:    []source.Source{&fakeSource{name: "s", cands: candidates("u1", "u2", "u3", "u4", "u5")}},
		Filter:     &rejectFilter{reject: map[string]bool{"u2": true, "u4": true}},
		Summarizer: &fakeSummarizer{failFor: map[string]bool{"u3": true}},
		Gateway:    gw,
		Store:      store,
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Fetched != 5 || report.Rejected != 2 || report.Dropped != 1 {
		t.Fatalf("unexpected report counts: %+v", report)
	}
	if report.Items != 2 || report.AudioCount != 2 {
		t.Fatalf("expected 2 items with audio, got %+v", report)
	}

	cat, ok := store.Snapshot()
	if !ok || len(cat.Items) != 2 {
		t.Fatalf("expected committed catalog of 2, got %v", cat)
	}
	for _, item := range cat.Items {
		if item.AudioHandle == "" {
			t.Fatalf("item %d missing audio handle", item.ID)
		}
		if _, uploaded := gw.uploads[item.AudioHandle]; !uploaded {
			t.Fatalf("handle %s not uploaded", item.AudioHandle)
		}
	}
	if cat.Items[0].SourceURL != "u1" || cat.Items[1].SourceURL != "u5" {
		t.Fatalf("order not preserved: %+v", cat.Items)
	}
}

// One of two sources failing degrades the run, it does not abort it.
func TestRunDegradesPerSource(t *testing.T) {
	store := catalog.NewStore()
	o := newOrchestrator(t, Options{
		Sources: []source.Source{
			&fakeSource{name: "down", err: source.ErrSourceUnavailable},
			&fakeSource{name: "up", cands: candidates("u1", "u2")},
		},
		Store: store,
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Fetched != 2 || report.Items != 2 {
		t.Fatalf("expected the healthy source's candidates, got %+v", report)
	}
}

// A batch-wide failure leaves the previous catalog serving untouched.
func TestRunAbortPreservesCatalog(t *testing.T) {
	store := catalog.NewStore()
	previous := &models.Catalog{Items: []models.CatalogItem{{ID: 1, Title: "old"}}, GeneratedAt: time.Now()}
	store.Replace(previous)

	o := newOrchestrator(t, Options{
		Sources: []source.Source{&fakeSource{name: "down", err: source.ErrSourceUnavailable}},
		Store:   store,
	})

	_, err := o.Run(context.Background())
	if !errors.Is(err, ErrBatchAborted) {
		t.Fatalf("expected ErrBatchAborted, got %v", err)
	}
	if o.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", o.State())
	}
	cat, ok := store.Snapshot()
	if !ok || cat != previous {
		t.Fatal("previous catalog should be untouched after an aborted run")
	}
}

func TestRunAbortsWhenAllSummariesFail(t *testing.T) {
	store := catalog.NewStore()
	o := newOrchestrator(t, Options{
		Sources:    []source.Source{&fakeSource{name: "s", cands: candidates("u1", "u2")}},
		Summarizer: &fakeSummarizer{failFor: map[string]bool{"u1": true, "u2": true}},
		Store:      store,
	})
	_, err := o.Run(context.Background())
	if !errors.Is(err, ErrBatchAborted) {
		t.Fatalf("expected ErrBatchAborted, got %v", err)
	}
	if _, ok := store.Snapshot(); ok {
		t.Fatal("no catalog should be committed")
	}
}

// Synthesis failure keeps the item, text-only.
func TestRunSynthesisFailureKeepsItemTextOnly(t *testing.T) {
	store := catalog.NewStore()
	o := newOrchestrator(t, Options{
		Sources:     []source.Source{&fakeSource{name: "s", cands: candidates("u1", "u2")}},
		Synthesizer: &fakeSynth{failFor: map[string]bool{"summary of title u1": true}},
		Store:       store,
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Items != 2 || report.AudioCount != 1 {
		t.Fatalf("expected 2 items with 1 narrated, got %+v", report)
	}
	cat, _ := store.Snapshot()
	if cat.Items[0].AudioHandle != "" {
		t.Fatal("failed synthesis should leave an empty handle")
	}
	if cat.Items[1].AudioHandle == "" {
		t.Fatal("healthy item should carry a handle")
	}
}

// After a successful run the previous batch's objects are deleted and none
// of its handles appear in the new catalog.
func TestRunCleansUpPreviousBatch(t *testing.T) {
	store := catalog.NewStore()
	gw := newFakeGateway()
	opts := Options{
		Sources: []source.Source{&fakeSource{name: "s", cands: candidates("u1", "u2")}},
		Gateway: gw,
		Store:   store,
	}

	first := newOrchestrator(t, opts)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCat, _ := store.Snapshot()
	firstHandles := firstCat.AudioHandles()
	if len(firstHandles) != 2 {
		t.Fatalf("expected 2 handles in first batch, got %d", len(firstHandles))
	}

	second := newOrchestrator(t, opts)
	if _, err := second.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(gw.deleted) != 2 {
		t.Fatalf("expected first batch's 2 objects deleted, got %v", gw.deleted)
	}
	secondCat, _ := store.Snapshot()
	for _, handle := range secondCat.AudioHandles() {
		for _, old := range firstHandles {
			if handle == old {
				t.Fatalf("handle %s reused across batches", handle)
			}
		}
	}
}

// A second Run while one is in flight is rejected immediately.
func TestRunMutualExclusion(t *testing.T) {
	release := make(chan struct{})
	blocking := &blockingSource{release: release, started: make(chan struct{}, 1)}
	o := newOrchestrator(t, Options{
		Sources: []source.Source{blocking},
	})

	errs := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background())
		errs <- err
	}()
	<-blocking.started

	if _, err := o.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	close(release)
	if err := <-errs; err != nil {
		t.Fatalf("first run should succeed, got %v", err)
	}

	// Once idle, a new run is accepted again.
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("follow-up run should succeed, got %v", err)
	}
}

type blockingSource struct {
	release chan struct{}
	started chan struct{}
}

func (b *blockingSource) Name() string { return "blocking" }

func (b *blockingSource) Fetch(context.Context) ([]models.Candidate, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return candidates("u1"), nil
}

func TestRunTitleFallback(t *testing.T) {
	store := catalog.NewStore()
	longSummary := strings.Repeat("fact ", 20)
	o := newOrchestrator(t, Options{
		Sources:    []source.Source{&fakeSource{name: "s", cands: []models.Candidate{{SourceURL: "u1"}}}},
		Summarizer: staticSummarizer{text: longSummary},
		Store:      store,
	})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cat, _ := store.Snapshot()
	title := cat.Items[0].Title
	if !strings.HasSuffix(title, "...") || len(title) != 53 {
		t.Fatalf("expected 50-char summary prefix title, got %q (%d)", title, len(title))
	}
}

// Multi-byte summaries must not be split mid-rune by the title fallback.
func TestRunTitleFallbackMultibyte(t *testing.T) {
	store := catalog.NewStore()
	longSummary := strings.Repeat("café société ", 10)
	o := newOrchestrator(t, Options{
		Sources:    []source.Source{&fakeSource{name: "s", cands: []models.Candidate{{SourceURL: "u1"}}}},
		Summarizer: staticSummarizer{text: longSummary},
		Store:      store,
	})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cat, _ := store.Snapshot()
	title := cat.Items[0].Title
	if !utf8.ValidString(title) {
		t.Fatalf("title contains a broken rune: %q", title)
	}
	if !strings.HasSuffix(title, "...") {
		t.Fatalf("expected truncated summary title, got %q", title)
	}
	if got := utf8.RuneCountInString(strings.TrimSuffix(title, "...")); got != 50 {
		t.Fatalf("expected 50-rune prefix, got %d", got)
	}
}

type staticSummarizer struct{ text string }

func (s staticSummarizer) Summarize(context.Context, models.Candidate) (string, error) {
	return s.text, nil
}
