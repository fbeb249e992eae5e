package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/ortelius/cve-triage/events/modules/enrichment"
	"github.com/ortelius/cve-triage/internal/api"
	"github.com/ortelius/cve-triage/internal/export"
	"github.com/ortelius/cve-triage/internal/kafka"
	"github.com/ortelius/cve-triage/internal/triage"
	"github.com/ortelius/cve-triage/restapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the triage API and the enrichment backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	norm, err := normalizer(cfg)
	if err != nil {
		return err
	}

	provider, err := triageProvider(cfg, logger)
	if err != nil {
		return err
	}
	if provider == nil {
		logger.Warn("No enrichment endpoint configured; submits will be rejected until api_base_url or demo_mode is set")
	}

	local, cache, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cache != nil {
		go purgeLoop(ctx, cache.PurgeExpired)
	}

	opts := triage.Options{
		Provider:         provider,
		Normalizer:       norm,
		IdentifierColumn: cfg.IdentifierColumn,
		Logger:           logger,
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := enrichment.NewProducer(brokers, cfg.KafkaTopic)
		defer producer.Close()
		opts.Publisher = producer
		logger.Info("Publishing completed enrichments", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))

		if cfg.KafkaRequestTopic != "" {
			err := kafka.RunEventProcessor(ctx, kafka.ProcessorConfig{
				Brokers:   brokers,
				Topic:     cfg.KafkaRequestTopic,
				GroupID:   cfg.KafkaGroupID,
				APIKey:    cfg.KafkaAPIKey,
				APISecret: cfg.KafkaAPISecret,
			}, local, producer, logger)
			if err != nil {
				return err
			}
		}
	}

	registry := triage.NewRegistry(opts, triage.RegistryConfig{
		TTL:         cfg.SessionTTL(),
		MaxSessions: cfg.MaxSessions,
	})
	go sweepLoop(ctx, registry, cfg.SessionTTL()/2)

	app, err := api.NewFiberApp(restapi.Dependencies{
		Backend:        local,
		Registry:       registry,
		Exporter:       export.Default(),
		ExportFilename: cfg.ExportFilename,
		Logger:         logger,
	}, cfg.RequestTimeout())
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		_ = app.Shutdown()
	}()

	logger.Info("Starting server", zap.String("port", cfg.Port))
	logger.Info("GraphQL endpoint available at /api/v1/graphql")
	return app.Listen(":" + cfg.Port)
}

func purgeLoop(ctx context.Context, purge func(context.Context) error) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		if err := purge(ctx); err != nil {
			logger.Warn("Cache purge failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepLoop(ctx context.Context, registry *triage.Registry, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Sweep(); n > 0 {
				logger.Debug("Dropped idle sessions", zap.Int("count", n), zap.Int("live", registry.Len()))
			}
		}
	}
}
