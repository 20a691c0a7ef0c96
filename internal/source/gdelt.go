package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"aus-news/config"
	"aus-news/internal/models"
)

const (
	gdeltDefaultEndpoint = "https://api.gdeltproject.org/api/v2/doc/doc"
	userAgent            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// Articles whose scraped body is shorter than this are navigation shells
	// or empty shells, not news.
	minArticleLength = 50
)

// GDELT fetches recent wire articles from the GDELT doc API and scrapes each
// article's full text.
type GDELT struct {
	cfg      config.GDELTConfig
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewGDELT creates the wire-article source.
func NewGDELT(cfg config.GDELTConfig, logger *slog.Logger) *GDELT {
	return &GDELT{
		cfg:      cfg,
		endpoint: gdeltDefaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		now:      time.Now,
	}
}

// Name implements Source.
func (g *GDELT) Name() string { return "gdelt" }

type gdeltArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	SeenDate    string `json:"seendate"`
	SocialImage string `json:"socialimage"`
	Language    string `json:"language"`
	Domain      string `json:"domain"`
}

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

// Fetch queries the doc API for the configured window, keeps articles from
// the configured domain suffix, and scrapes each one. Articles that fail to
// scrape are dropped; an API failure returns ErrSourceUnavailable.
func (g *GDELT) Fetch(ctx context.Context) ([]models.Candidate, error) {
	listing, err := g.queryArticleList(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var candidates []models.Candidate
	for _, art := range listing {
		if !strings.Contains(strings.ToLower(art.URL), g.cfg.DomainSuffix) {
			continue
		}

		body, title, err := g.scrapeArticle(ctx, art.URL)
		if err != nil {
			g.logger.Debug("article scrape failed", "url", art.URL, "error", err)
			continue
		}
		if title == "" {
			title = art.Title
		}

		candidates = append(candidates, models.Candidate{
			Source:      "gdelt",
			Title:       title,
			Body:        body,
			SourceURL:   art.URL,
			ImageURL:    art.SocialImage,
			PublishedAt: parseSeenDate(art.SeenDate, g.now),
		})
		if len(candidates) >= g.cfg.MaxRecords {
			break
		}
	}

	return candidates, nil
}

func (g *GDELT) queryArticleList(ctx context.Context) ([]gdeltArticle, error) {
	end := g.now().UTC()
	start := end.Add(-time.Duration(g.cfg.WindowHours) * time.Hour)

	query := fmt.Sprintf("sourcecountry:%s sourcelang:eng", g.cfg.SourceCountry)
	params := url.Values{}
	params.Set("format", "json")
	params.Set("mode", "ArtList")
	params.Set("sort", "DateDesc")
	params.Set("query", query)
	params.Set("maxrecords", fmt.Sprintf("%d", g.cfg.MaxRecords))
	params.Set("startdatetime", start.Format("20060102150405"))
	params.Set("enddatetime", end.Format("20060102150405"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doc api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("doc api status %s", resp.Status)
	}

	var parsed gdeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode doc api response: %w", err)
	}

	g.logger.Info("gdelt listing fetched", "articles", len(parsed.Articles))
	return parsed.Articles, nil
}

// scrapeArticle pulls the article page and extracts the joined paragraph text
// and the h1 title.
func (g *GDELT) scrapeArticle(ctx context.Context, articleURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml")
	req.Header.Set("Accept-Language", "en-AU,en-GB;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Referer", "https://news.google.com/")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("article status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse article html: %w", err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	body := strings.Join(paragraphs, " ")
	if len(body) < minArticleLength {
		return "", "", fmt.Errorf("article too short (%d chars)", len(body))
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	return body, title, nil
}

func parseSeenDate(value string, now func() time.Time) time.Time {
	t, err := time.Parse("20060102T150405Z", value)
	if err != nil {
		return now().UTC()
	}
	return t
}
