package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aus-news/config"
	"aus-news/internal/catalog"
	"aus-news/internal/refresh"
)

// Resolver exchanges a durable audio handle for a fresh short-lived download
// URL. *storage.MinioClient satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (string, error)
}

// Refresher triggers and reports on a feed's batch refresh.
// *refresh.Orchestrator satisfies it.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Report, error)
	State() refresh.State
	LastRefresh() time.Time
}

// Feed binds one catalog to its refresher and presentation defaults.
type Feed struct {
	Name        string
	Store       *catalog.Store
	Refresher   Refresher
	Placeholder string
}

// Server is the HTTP serving surface: catalog reads, refresh triggers, and
// the audio streaming proxy.
type Server struct {
	config   *config.Config
	router   *gin.Engine
	resolver Resolver
	feeds    []*Feed
	byName   map[string]*Feed
	client   *http.Client
	logger   *slog.Logger
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, resolver Resolver, feeds []*Feed, logger *slog.Logger) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Range, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	byName := make(map[string]*Feed, len(feeds))
	for _, feed := range feeds {
		byName[feed.Name] = feed
	}

	server := &Server{
		config:   cfg,
		router:   router,
		resolver: resolver,
		feeds:    feeds,
		byName:   byName,
		client:   &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,
	}
	server.registerRoutes()
	return server
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api")
	{
		for _, feed := range s.feeds {
			feed := feed
			api.GET("/"+feed.Name, func(c *gin.Context) { s.listHandler(c, feed) })
			api.POST("/refresh/"+feed.Name, func(c *gin.Context) { s.refreshHandler(c, feed) })
		}
		api.GET("/audio/:feed/:id", s.streamHandler)
		api.GET("/status", s.statusHandler)
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	return s.router.Run(":" + s.config.Server.Port)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// record is the wire shape of one catalog item. audio_url is the system's
// own streaming endpoint; the storage provider's URLs never reach clients.
type record struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Summary   string  `json:"summary"`
	Source    string  `json:"source"`
	SourceURL string  `json:"source_url"`
	Image     string  `json:"image"`
	AudioURL  *string `json:"audio_url"`
}

func (s *Server) listHandler(c *gin.Context, feed *Feed) {
	cat, ok := feed.Store.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not yet populated",
			"message": "no catalog committed yet; trigger /api/refresh/" + feed.Name,
		})
		return
	}

	version := strconv.FormatInt(cat.GeneratedAt.Unix(), 10)
	records := make([]record, 0, len(cat.Items))
	for _, item := range cat.Items {
		rec := record{
			ID:        item.ID,
			Title:     item.Title,
			Category:  item.Category,
			Summary:   item.Summary,
			Source:    item.Source,
			SourceURL: item.SourceURL,
			Image:     displayImage(item.ImageURL, feed.Placeholder),
		}
		if item.AudioHandle != "" {
			url := "/api/audio/" + feed.Name + "/" + strconv.Itoa(item.ID) + "?v=" + version
			rec.AudioURL = &url
		}
		records = append(records, rec)
	}

	c.JSON(http.StatusOK, records)
}

func (s *Server) refreshHandler(c *gin.Context, feed *Feed) {
	// Synchronous on purpose: the caller is an external scheduler that
	// tolerates multi-minute responses and wants the run's outcome.
	report, err := feed.Refresher.Run(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"status":  "refreshing",
				"message": "a refresh run is already in progress",
			})
		case errors.Is(err, refresh.ErrBatchAborted):
			c.JSON(http.StatusBadGateway, gin.H{
				"status":  "error",
				"message": "batch aborted, previous catalog preserved",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "refresh failed",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"report":  report,
		"seconds": report.Duration.Seconds(),
	})
}

func (s *Server) statusHandler(c *gin.Context) {
	status := gin.H{}
	for _, feed := range s.feeds {
		_, cached := feed.Store.Snapshot()
		entry := gin.H{
			"cached": cached,
			"count":  feed.Store.Len(),
			"state":  feed.Refresher.State(),
		}
		if last := feed.Refresher.LastRefresh(); !last.IsZero() {
			entry["last_updated"] = last.Format(time.RFC3339)
		}
		status[feed.Name] = entry
	}
	c.JSON(http.StatusOK, status)
}

// streamHandler proxies audio bytes for one catalog item. The durable handle
// is resolved to a fresh download URL on every request; the URL is used once
// and discarded.
func (s *Server) streamHandler(c *gin.Context) {
	feed, ok := s.byName[c.Param("feed")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown feed"})
		return
	}

	cat, ok := feed.Store.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not yet populated"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, ok := cat.ItemByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown item id"})
		return
	}
	if item.AudioHandle == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audio for this item"})
		return
	}

	downloadURL, err := s.resolver.Resolve(c.Request.Context(), item.AudioHandle)
	if err != nil {
		s.logger.Error("handle resolution failed", "feed", feed.Name, "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "audio temporarily unavailable"})
		return
	}

	s.proxyAudio(c, downloadURL)
}

// proxyAudio streams the resolved URL through to the client, passing Range
// semantics both ways so players can seek.
func (s *Server) proxyAudio(c *gin.Context, downloadURL string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, downloadURL, nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "audio temporarily unavailable"})
		return
	}
	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("audio fetch failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "audio temporarily unavailable"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		s.logger.Error("audio fetch bad status", "status", resp.Status)
		c.JSON(http.StatusBadGateway, gin.H{"error": "audio temporarily unavailable"})
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", "audio/mpeg")
	header.Set("Accept-Ranges", "bytes")
	header.Set("Cache-Control", "no-cache")
	if v := resp.Header.Get("Content-Length"); v != "" {
		header.Set("Content-Length", v)
	}
	if v := resp.Header.Get("Content-Range"); v != "" {
		header.Set("Content-Range", v)
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// The client dropping mid-stream is routine for audio.
		s.logger.Debug("audio stream interrupted", "error", err)
	}
}

// displayImage downgrades image quality via URL parameters and substitutes a
// placeholder when the item has no usable image.
func displayImage(imageURL, placeholder string) string {
	if !strings.HasPrefix(imageURL, "http") {
		return placeholder
	}
	if strings.Contains(imageURL, "?") {
		return imageURL + "&width=400&quality=60"
	}
	return imageURL + "?width=400&quality=60"
}
