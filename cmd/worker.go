package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/paperglass/paperglass/pkg/buildinfo"
	"github.com/paperglass/paperglass/pkg/dedup"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/observability"
	"github.com/paperglass/paperglass/pkg/pipeline"
	"github.com/paperglass/paperglass/pkg/queues"
	"github.com/paperglass/paperglass/pkg/workers"
)

// NewWorkerCommand runs the background extraction worker pool.
func NewWorkerCommand() *cobra.Command {
	var (
		metricsAddr string
		count       int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background document processing workers",
		Long: `Consume documents from the Redis queue, run the extraction pipeline,
record processed invoices for duplicate detection, and publish routing
decisions back onto the decision queue.

The pool drains in-flight work on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := newRedisClient(cfg.Redis)
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis at %s: %w", cfg.Redis.Addr, err)
			}

			documents := queues.NewRedisQueue(client, queues.DefaultQueueConfig(cfg.Redis.DocumentQueue), logger)
			decisions := queues.NewRedisQueue(client, queues.DefaultQueueConfig(cfg.Redis.DecisionQueue), logger)
			defer documents.Close()
			defer decisions.Close()

			registry := prometheus.NewRegistry()
			metrics := observability.NewPipelineMetrics(registry)

			engineOpts := []pipeline.Option{
				pipeline.WithMetrics(metrics),
				pipeline.WithTracer(observability.NewTracer()),
			}

			var recorder workers.Recorder
			if cfg.Postgres.DSN != "" {
				pool, err := dedup.ConnectWithRetry(ctx, cfg.Postgres.DSN, 5, 2*time.Second)
				if err != nil {
					return fmt.Errorf("postgres: %w", err)
				}
				defer pool.Close()
				store := dedup.New(pool, logger)
				if err := store.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("postgres schema: %w", err)
				}
				recorder = store
				engineOpts = append(engineOpts, pipeline.WithDuplicateChecker(store))
				logger.Info("duplicate detection enabled")
			} else {
				logger.Warn("no postgres dsn configured, duplicate detection disabled")
			}

			engine, err := buildEngine(cfg, logger, engineOpts...)
			if err != nil {
				return err
			}

			processor := workers.NewDocumentProcessor(engine, recorder, decisions, logger)

			workerCfg := workers.DefaultConfig()
			if cfg.Workers.Count > 0 {
				workerCfg.Count = cfg.Workers.Count
			}
			if count > 0 {
				workerCfg.Count = count
			}
			if cfg.Workers.PollInterval > 0 {
				workerCfg.PollInterval = cfg.Workers.PollInterval
			}
			if cfg.Workers.ShutdownTimeout > 0 {
				workerCfg.ShutdownTimeout = cfg.Workers.ShutdownTimeout
			}

			pool := workers.NewPool(workerCfg, documents, processor.Handle, logger)
			pool.Start()
			logger.Info("consuming documents",
				logging.F("document_queue", documents.Name()),
				logging.F("decision_queue", decisions.Name()))

			go workers.RunStaleRecovery(ctx, documents, time.Minute, logger)

			var metricsSrv *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				mux.HandleFunc("/version", buildinfo.Handler("paperglass-worker"))
				mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					fmt.Fprintln(w, "ok")
				})
				metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics server failed", logging.Err(err))
					}
				}()
				logger.Info("metrics server listening", logging.F("addr", metricsAddr))
			}

			<-ctx.Done()
			logger.Info("shutting down worker pool")

			pool.Stop()
			if metricsSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(shutdownCtx)
			}

			stats := pool.Stats()
			logger.Info("shutdown complete",
				logging.F("processed", stats.Processed),
				logging.F("failed", stats.Failed))
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the metrics/health endpoint (disabled when empty)")
	cmd.Flags().IntVar(&count, "workers", 0, "worker count (overrides config)")
	return cmd
}
