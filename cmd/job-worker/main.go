// Package main is the job-worker service entrypoint: it consumes
// summarize_job messages dispatched by api-gateway and runs the
// chapterize/refine pipeline to completion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vidsum/orchestrator/internal/application/chapterize"
	"github.com/vidsum/orchestrator/internal/application/chunk"
	"github.com/vidsum/orchestrator/internal/application/orchestrator"
	"github.com/vidsum/orchestrator/internal/application/refine"
	"github.com/vidsum/orchestrator/internal/config"
	"github.com/vidsum/orchestrator/internal/infrastructure/caption"
	"github.com/vidsum/orchestrator/internal/infrastructure/llm"
	"github.com/vidsum/orchestrator/internal/infrastructure/messaging"
	"github.com/vidsum/orchestrator/internal/infrastructure/persistence/postgres"
	"github.com/vidsum/orchestrator/internal/infrastructure/persistence/redis"
	"github.com/vidsum/orchestrator/pkg/logger"
	"github.com/vidsum/orchestrator/pkg/tokencount"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.FromContext(ctx)
	log.Info("starting job-worker", "version", Version, "build_time", BuildTime, "env", cfg.App.Env)

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

	counter, err := tokencount.Default()
	if err != nil {
		logger.Fatal(ctx, "failed to build token counter", err)
	}
	chunker := chunk.New(counter)

	chatModelFactory := llm.NewChatModelFactory(cfg)
	llmClient := llm.NewLlmClient(chatModelFactory, cfg)

	chapterizer := chapterize.New(llmClient, chunker, counter, cfg.LLM.Providers["small"].TopPDeterminstc)
	refiner := refine.New(llmClient, chunker, cfg.LLM.Providers["large"].TopPFreeform, cfg.Summarize.RefineConcurrency)

	producer := messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
	enqueuer := messaging.NewJobEnqueuer(producer)

	orch := orchestrator.New(jobRegistry, chapterRepo, feedbackRepo, captionSource, eventBus, enqueuer, orchestrator.Config{
		SummarizingTTL:      cfg.Summarize.SummarizingTTL,
		NoCaptionsTTL:       cfg.Summarize.NoCaptionsTTL,
		ResummarizeMinTotal: cfg.Summarize.ResummarizeMinTotal,
		ResummarizeBadRatio: cfg.Summarize.ResummarizeBadRatio,
	}, log)

	runJob := orchestrator.RunJob{Chapterizer: chapterizer, Refiner: refiner}

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamSummarizeJob,
		Group:         messaging.ConsumerGroupJobWorker,
		ConsumerName:  consumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler("summarize_job", func(ctx context.Context, msg *messaging.Message) error {
		var job messaging.SummarizeJobMessage
		if err := msg.UnmarshalPayload(&job); err != nil {
			return fmt.Errorf("decode summarize_job payload: %w", err)
		}
		return orch.Run(ctx, runJob, job.Vid, job.Trigger, job.Hints)
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	log.Info("job-worker running")
	<-ctx.Done()

	log.Info("shutting down job-worker...")
	consumer.Stop()
	log.Info("job-worker exited")
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return fmt.Sprintf("job-worker-%d", os.Getpid())
	}
	return fmt.Sprintf("job-worker-%s-%d", host, os.Getpid())
}
