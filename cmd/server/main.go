package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"aus-news/config"
	"aus-news/internal/ai"
	"aus-news/internal/api"
	"aus-news/internal/catalog"
	"aus-news/internal/filter"
	"aus-news/internal/logging"
	"aus-news/internal/refresh"
	"aus-news/internal/source"
	"aus-news/internal/storage"
	"aus-news/internal/summary"
	"aus-news/internal/tts"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.Log.Level)
	logger.Info("starting aus-news", "env", cfg.Server.Env)

	llm := ai.NewClient(&cfg.OpenAI, cfg.Pipeline.CallTimeout, logger)

	synth, err := tts.Factory(&cfg.OpenAI)
	if err != nil {
		logger.Error("speech synthesizer init failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewMinioClient(&cfg.MinIO, cfg.Pipeline.ResolveExpiry, logger)
	if err != nil {
		logger.Error("object store init failed", "error", err)
		os.Exit(1)
	}

	summarizer := summary.New(llm, cfg.OpenAI.MaxTokens)

	newsFilter := filter.NewChain(logger,
		filter.NewPaywallCheck(llm),
		filter.NewRelevanceCheck(llm),
		filter.NewFactualCheck(llm),
	)
	newsCatalog := catalog.NewStore()
	newsRefresher := refresh.NewOrchestrator(refresh.Options{
		Feed:         "news",
		Sources:      []source.Source{source.NewGDELT(cfg.GDELT, logger)},
		Filter:       newsFilter,
		Summarizer:   summarizer,
		Synthesizer:  synth,
		Gateway:      store,
		Store:        newsCatalog,
		RunBudget:    cfg.Pipeline.RunBudget,
		MaxItems:     cfg.Pipeline.MaxItems,
		SourceWindow: fmt.Sprintf("last %dh", cfg.GDELT.WindowHours),
		Logger:       logger,
	})

	// Reddit posts skip the paywall check, their text is always readable.
	redditFilter := filter.NewChain(logger,
		filter.NewRelevanceCheck(llm),
		filter.NewFactualCheck(llm),
	)
	redditCatalog := catalog.NewStore()
	redditRefresher := refresh.NewOrchestrator(refresh.Options{
		Feed:         "reddit",
		Sources:      []source.Source{source.NewReddit(cfg.Reddit, logger)},
		Filter:       redditFilter,
		Summarizer:   summarizer,
		Synthesizer:  synth,
		Gateway:      store,
		Store:        redditCatalog,
		RunBudget:    cfg.Pipeline.RunBudget,
		MaxItems:     cfg.Pipeline.MaxItems,
		SourceWindow: "last 24h",
		Logger:       logger,
	})

	feeds := []*api.Feed{
		{
			Name:        "news",
			Store:       newsCatalog,
			Refresher:   newsRefresher,
			Placeholder: "https://via.placeholder.com/400x250/4A90E2/ffffff?text=No+Image",
		},
		{
			Name:        "reddit",
			Store:       redditCatalog,
			Refresher:   redditRefresher,
			Placeholder: "https://via.placeholder.com/400x250/FF4500/ffffff?text=Reddit",
		},
	}
	server := api.NewServer(cfg, store, feeds, logger)

	// Refresh both feeds once a day at 06:00; manual refreshes stay
	// available through the API in between.
	sched := cron.New()
	_, err = sched.AddFunc("0 6 * * *", func() {
		for _, r := range []*refresh.Orchestrator{newsRefresher, redditRefresher} {
			if _, err := r.Run(context.Background()); err != nil {
				logger.Error("scheduled refresh failed", "error", err)
			}
		}
	})
	if err != nil {
		logger.Error("scheduling refresh failed", "error", err)
	} else {
		sched.Start()
		defer sched.Stop()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("listening", "port", cfg.Server.Port)
		if err := server.Run(); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down")
}
