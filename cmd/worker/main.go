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
	"github.com/rayfield/solar-ai-platform/internal/app/bootstrap"
	appconfig "github.com/rayfield/solar-ai-platform/internal/config"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting solar-ai-platform worker", "env", cfg.Env)

	ctx := context.Background()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

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
	publisher := conversation.NewPublisher(queues, jobs)

	reg := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(reg)

	locker := bootstrap.BuildLeadLocker(bootstrap.BuildRedisClient(ctx, cfg, logger, true), logger)
	notifier := bootstrap.BuildEscalationNotifier(awsCfg, cfg, logger)

	engine, err := bootstrap.BuildEngine(ctx, cfg, stores, locker, notifier, engineMetrics, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	runner := conversation.NewRunner(engine, queues, logger,
		conversation.WithWorkerCount(cfg.QueueConcurrency),
		conversation.WithWorkerMetrics(engineMetrics),
		conversation.WithJobUpdater(jobs),
	)
	scanner := conversation.NewReminderScanner(stores.Leads, publisher, cfg.ReminderAfter, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner.Start(runCtx)
	go scanner.Run(runCtx)

	// Metrics endpoint for scraping.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()
	_ = metricsSrv.Shutdown(doneCtx)

	waitCh := make(chan struct{})
	go func() {
		runner.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("worker stopped")
	case <-doneCtx.Done():
		logger.Error("worker shutdown timed out", "error", doneCtx.Err())
	}
}
