// Package main is the api-gateway service entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vidsum/orchestrator/internal/application/orchestrator"
	"github.com/vidsum/orchestrator/internal/config"
	"github.com/vidsum/orchestrator/internal/infrastructure/caption"
	"github.com/vidsum/orchestrator/internal/infrastructure/messaging"
	"github.com/vidsum/orchestrator/internal/infrastructure/persistence/postgres"
	"github.com/vidsum/orchestrator/internal/infrastructure/persistence/redis"
	"github.com/vidsum/orchestrator/internal/interfaces/http/handler"
	"github.com/vidsum/orchestrator/internal/interfaces/http/router"
	"github.com/vidsum/orchestrator/pkg/logger"
	"github.com/vidsum/orchestrator/pkg/tracer"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting api-gateway", "version", Version, "build_time", BuildTime, "env", cfg.App.Env)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to connect postgres", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", err)
	}
	defer redisClient.Close()

	chapterRepo := postgres.NewChapterRepository(pgClient)
	feedbackRepo := postgres.NewFeedbackRepository(pgClient)
	jobRegistry := redis.NewJobRegistry(redisClient)
	eventBus := redis.NewEventBus(redisClient, cfg.Summarize.SubscribeIdle)

	captionSource := caption.NewHTTPSource(&cfg.Captions)

	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
	enqueuer := messaging.NewJobEnqueuer(producer)

	// api-gateway only ever runs Summarize's synchronous decide path; the
	// chapterize/refine pipeline is the job-worker's concern, reached
	// through the enqueued message rather than an in-process call here.
	orch := orchestrator.New(jobRegistry, chapterRepo, feedbackRepo, captionSource, eventBus, enqueuer, orchestrator.Config{
		SummarizingTTL:      cfg.Summarize.SummarizingTTL,
		NoCaptionsTTL:       cfg.Summarize.NoCaptionsTTL,
		ResummarizeMinTotal: cfg.Summarize.ResummarizeMinTotal,
		ResummarizeBadRatio: cfg.Summarize.ResummarizeBadRatio,
	}, log)

	healthHandler := handler.NewHealthHandler(pgClient, redisClient)
	summarizeHandler := handler.NewSummarizeHandler(orch)
	feedbackHandler := handler.NewFeedbackHandler(feedbackRepo)

	r := router.New(cfg, &router.RouterHandlers{
		Health:    healthHandler,
		Summarize: summarizeHandler,
		Feedback:  feedbackHandler,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
