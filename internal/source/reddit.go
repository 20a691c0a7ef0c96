package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"aus-news/config"
	"aus-news/internal/models"
)

const redditDefaultBaseURL = "https://www.reddit.com"

// Reddit fetches hot discussion threads with their top comments from the
// public JSON listing API.
type Reddit struct {
	cfg     config.RedditConfig
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewReddit creates the discussion source.
func NewReddit(cfg config.RedditConfig, logger *slog.Logger) *Reddit {
	return &Reddit{
		cfg:     cfg,
		baseURL: redditDefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

// Name implements Source.
func (r *Reddit) Name() string { return "reddit" }

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
	Thumbnail   string  `json:"thumbnail"`
	Preview     struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch walks the configured subreddits and returns their hot threads from
// the last 24 hours, sorted by score and capped at the configured maximum.
// A subreddit failure is logged and skipped; only a fully empty result set
// maps to ErrSourceUnavailable.
func (r *Reddit) Fetch(ctx context.Context) ([]models.Candidate, error) {
	cutoff := r.now().Add(-24 * time.Hour)

	type scored struct {
		cand  models.Candidate
		score int
	}

	var collected []scored
	failures := 0
	for _, sub := range r.cfg.Subreddits {
		posts, err := r.fetchListing(ctx, sub)
		if err != nil {
			r.logger.Warn("subreddit fetch failed", "subreddit", sub, "error", err)
			failures++
			continue
		}
		for _, post := range posts {
			created := time.Unix(int64(post.CreatedUTC), 0)
			if post.Stickied || created.Before(cutoff) {
				continue
			}
			collected = append(collected, scored{
				cand:  r.toCandidate(ctx, sub, post, created),
				score: post.Score,
			})
		}
	}

	if len(collected) == 0 && failures == len(r.cfg.Subreddits) {
		return nil, fmt.Errorf("%w: all subreddits failed", ErrSourceUnavailable)
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].score > collected[j].score
	})
	if len(collected) > r.cfg.MaxItems {
		collected = collected[:r.cfg.MaxItems]
	}

	candidates := make([]models.Candidate, 0, len(collected))
	for _, s := range collected {
		candidates = append(candidates, s.cand)
	}
	return candidates, nil
}

func (r *Reddit) toCandidate(ctx context.Context, sub string, post redditPost, created time.Time) models.Candidate {
	comments, err := r.fetchTopComments(ctx, sub, post.ID)
	if err != nil {
		// Threads without comments still make usable candidates.
		r.logger.Debug("comment fetch failed", "subreddit", sub, "post", post.ID, "error", err)
	}

	body := post.SelfText
	if len(body) > 1000 {
		body = body[:1000]
	}

	return models.Candidate{
		Source:      "r/" + sub,
		Title:       post.Title,
		Body:        body,
		SourceURL:   "https://reddit.com" + post.Permalink,
		ImageURL:    postImage(post),
		PublishedAt: created,
		Comments:    comments,
		Category:    fmt.Sprintf("%d upvotes %d comments", post.Score, post.NumComments),
	}
}

func (r *Reddit) fetchListing(ctx context.Context, sub string) ([]redditPost, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.baseURL, sub, r.cfg.ListingLimit)
	var listing redditListing
	if err := r.getJSON(ctx, url, &listing); err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

type redditCommentListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Body  string `json:"body"`
				Score int    `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) fetchTopComments(ctx context.Context, sub, postID string) ([]models.Comment, error) {
	url := fmt.Sprintf("%s/r/%s/comments/%s.json?sort=top&limit=5&depth=1", r.baseURL, sub, postID)

	// The comments endpoint returns two listings: the post, then its
	// comment tree.
	var pages []redditCommentListing
	if err := r.getJSON(ctx, url, &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var comments []models.Comment
	for _, child := range pages[1].Data.Children {
		body := strings.TrimSpace(child.Data.Body)
		if body == "" {
			continue
		}
		if child.Data.Score <= r.cfg.MinCommentScore {
			continue
		}
		if len(body) > 500 {
			body = body[:500]
		}
		comments = append(comments, models.Comment{Body: body, Score: child.Data.Score})
		if len(comments) == 5 {
			break
		}
	}
	return comments, nil
}

func (r *Reddit) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listing status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}
	return nil
}

func postImage(post redditPost) string {
	if len(post.Preview.Images) > 0 {
		// Preview URLs come back HTML-escaped.
		return strings.ReplaceAll(post.Preview.Images[0].Source.URL, "&amp;", "&")
	}
	if strings.HasPrefix(post.Thumbnail, "http") {
		return post.Thumbnail
	}
	return ""
}
