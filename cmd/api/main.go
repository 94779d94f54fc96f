package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rayfield/solar-ai-platform/cmd/mainconfig"
	"github.com/rayfield/solar-ai-platform/internal/api/router"
	"github.com/rayfield/solar-ai-platform/internal/app/bootstrap"
	appconfig "github.com/rayfield/solar-ai-platform/internal/config"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/http/handlers"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting solar-ai-platform API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	reg := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(reg)

	// Queue side. Memory mode runs the engine in-process so the whole
	// pipeline works from a single binary during development.
	var (
		publisher *conversation.Publisher
		jobStore  conversation.JobRecorder
		runner    *conversation.Runner
	)
	if cfg.UseMemoryQueue {
		queues := conversation.NewQueues(
			conversation.NewMemoryQueue(64),
			conversation.NewMemoryQueue(64),
			conversation.NewMemoryQueue(64),
		)
		jobs := conversation.NewMemoryJobStore()
		publisher = conversation.NewPublisher(queues, jobs)
		jobStore = jobs

		locker := bootstrap.BuildLeadLocker(bootstrap.BuildRedisClient(ctx, cfg, logger, true), logger)
		engine, err := bootstrap.BuildEngine(ctx, cfg, stores, locker, nil, engineMetrics, logger)
		if err != nil {
			logger.Warn("in-process worker disabled", "error", err)
		} else {
			runner = conversation.NewRunner(engine, queues, logger,
				conversation.WithWorkerCount(cfg.QueueConcurrency),
				conversation.WithWorkerMetrics(engineMetrics),
				conversation.WithJobUpdater(jobs),
			)
		}
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sqsClient := sqs.NewFromConfig(awsCfg)
		queues := conversation.NewQueues(
			conversation.NewSQSQueue(sqsClient, cfg.InitialContactQueueURL),
			conversation.NewSQSQueue(sqsClient, cfg.AIProcessQueueURL),
			conversation.NewSQSQueue(sqsClient, cfg.RemindersQueueURL),
		)
		jobs := conversation.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.QualificationJobsTable, logger)
		publisher = conversation.NewPublisher(queues, jobs)
		jobStore = jobs
	}

	// Outbound confirmation sender for opt-outs. Missing Twilio creds
	// only disable the confirmation, not the webhook.
	messenger, err := bootstrap.BuildMessenger(cfg, logger)
	if err != nil {
		logger.Warn("opt-out confirmations disabled", "error", err)
		messenger = nil
	}

	r := router.New(&router.Config{
		Logger:       logger,
		LeadsHandler: handlers.NewLeadsHandler(stores.Leads, publisher, logger),
		TwilioWebhook: handlers.NewTwilioWebhookHandler(
			stores.Leads, stores.Messages, publisher, messenger,
			handlers.TwilioWebhookConfig{
				AuthToken:          cfg.TwilioAuthToken,
				WebhookURL:         cfg.TwilioWebhookURL,
				OptOutConfirmation: cfg.OptOutConfirmation,
			},
			engineMetrics, logger,
		),
		JobsHandler:         handlers.NewJobsHandler(jobStore, logger),
		AppointmentsHandler: handlers.NewAppointmentsHandler(stores.Appointments, logger),
		HealthHandler:       handlers.NewHealthHandler(stores.DB),
		AdminJWTSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if runner != nil {
		runner.Start(runCtx)
		logger.Info("in-process job runner started", "workers", cfg.QueueConcurrency)
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if runner != nil {
		runner.Wait()
	}

	logger.Info("server stopped")
}
