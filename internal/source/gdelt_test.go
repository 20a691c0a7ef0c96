package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aus-news/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const articlePage = `<html><head><title>t</title></head><body>
<h1>  Scraped Headline  </h1>
<p>First paragraph of the story with enough words to clear the length floor.</p>
<p>Second paragraph continues the story.</p>
<p>   </p>
</body></html>`

func TestGDELTFetch(t *testing.T) {
	var listingQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/doc"):
			listingQuery = r.URL.RawQuery
			fmt.Fprintf(w, `{"articles":[
				{"url":"%[1]s/news.com.au/story-one","title":"Listing One","seendate":"20260830T090000Z","socialimage":"https://img/one.jpg"},
				{"url":"%[1]s/bbc.co.uk/story-two","title":"Foreign","seendate":"20260830T080000Z"},
				{"url":"%[1]s/abc.net.au/story-three","title":"Listing Three","seendate":"not-a-date"}
			]}`, "http://"+r.Host)
		case strings.Contains(r.URL.Path, "story-one"), strings.Contains(r.URL.Path, "story-three"):
			io.WriteString(w, articlePage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGDELT(config.GDELTConfig{
		SourceCountry: "AS",
		DomainSuffix:  ".au",
		WindowHours:   10,
		MaxRecords:    20,
	}, discardLogger())
	g.endpoint = srv.URL + "/doc"
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	candidates, err := g.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates after suffix filter, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Title != "Scraped Headline" {
		t.Fatalf("expected scraped h1 to override listing title, got %q", first.Title)
	}
	if !strings.Contains(first.Body, "First paragraph") || !strings.Contains(first.Body, "Second paragraph") {
		t.Fatalf("expected joined paragraph text, got %q", first.Body)
	}
	if first.ImageURL != "https://img/one.jpg" {
		t.Fatalf("expected social image carried through, got %q", first.ImageURL)
	}
	if !first.PublishedAt.Equal(time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published time %v", first.PublishedAt)
	}

	// An unparsable seendate falls back to the current time.
	if !candidates[1].PublishedAt.Equal(fixed) {
		t.Fatalf("expected fallback publish time, got %v", candidates[1].PublishedAt)
	}

	for _, want := range []string{
		"mode=ArtList",
		"sort=DateDesc",
		"startdatetime=20260830020000",
		"enddatetime=20260830120000",
	} {
		if !strings.Contains(listingQuery, want) {
			t.Errorf("listing query missing %s: %s", want, listingQuery)
		}
	}
}

func TestGDELTFetchAPIDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGDELT(config.GDELTConfig{SourceCountry: "AS", DomainSuffix: ".au", MaxRecords: 5}, discardLogger())
	g.endpoint = srv.URL

	_, err := g.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error when the doc api is down")
	}
	if !strings.Contains(err.Error(), ErrSourceUnavailable.Error()) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestGDELTDropsShortArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/doc") {
			fmt.Fprintf(w, `{"articles":[{"url":"%s/short.com.au/x","title":"Shell","seendate":"20260830T090000Z"}]}`, "http://"+r.Host)
			return
		}
		io.WriteString(w, `<html><body><p>too short</p></body></html>`)
	}))
	defer srv.Close()

	g := NewGDELT(config.GDELTConfig{SourceCountry: "AS", DomainSuffix: ".au", MaxRecords: 5}, discardLogger())
	g.endpoint = srv.URL + "/doc"

	candidates, err := g.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty-shell article dropped, got %d candidates", len(candidates))
	}
}
