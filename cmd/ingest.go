package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/api"
	"github.com/medregs/guidance-intake/internal/cache"
	"github.com/medregs/guidance-intake/internal/clock/system"
	"github.com/medregs/guidance-intake/internal/fetch"
	"github.com/medregs/guidance-intake/internal/id/uuid"
	"github.com/medregs/guidance-intake/internal/intake"
	"github.com/medregs/guidance-intake/internal/metrics"
	"github.com/medregs/guidance-intake/internal/render"
	"github.com/medregs/guidance-intake/internal/sources"
)

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass over the configured sources.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, ok := cmd.Context().Value(appKey).(App)
			if !ok || appInstance == nil {
				return errors.New("application not initialized")
			}
			return runIngest(cmd, appInstance, sourceName)
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "restrict the run to one configured source (case-insensitive)")

	return cmd
}

func runIngest(cmd *cobra.Command, appInstance App, sourceName string) error {
	ctx := cmd.Context()
	cfg := appInstance.GetConfig()

	runID, err := uuid.NewUUIDGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger := appInstance.GetLogger().With(zap.String("run_id", runID))

	metrics.Init()
	metrics.RecordRun()

	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.String("addr", opsServer.Addr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("ops server stopped", zap.Error(err))
		}
	}()
	defer func() {
		if err := opsServer.Close(); err != nil {
			logger.Warn("ops server close failed", zap.Error(err))
		}
	}()

	client, err := fetch.NewClient(fetch.Config{
		UserAgent:          cfg.HTTP.UserAgent,
		RequestTimeout:     cfg.RequestTimeout(),
		MaxAttempts:        cfg.HTTP.MaxRetries,
		Concurrency:        cfg.HTTP.Concurrency,
		RateLimitPerDomain: cfg.HTTP.RateLimitPerDomain,
	}, logger)
	if err != nil {
		return fmt.Errorf("build fetch client: %w", err)
	}

	var renderer render.Renderer
	if cfg.Render.Headless {
		headless, err := render.NewChromedpRenderer(render.ChromedpConfig{
			UserAgent:      cfg.HTTP.UserAgent,
			NavTimeout:     time.Duration(cfg.Render.NavTimeoutSeconds) * time.Second,
			MaxConcurrency: cfg.Render.MaxParallel,
			DomainQPS:      cfg.Render.DomainQPS,
		}, logger)
		if err != nil {
			return fmt.Errorf("build headless renderer: %w", err)
		}
		defer func() {
			if err := headless.Close(); err != nil {
				logger.Warn("renderer close failed", zap.Error(err))
			}
		}()
		renderer = headless
	} else {
		renderer = render.NewStaticRenderer()
	}

	store := appInstance.GetStore()
	fileCache, err := cache.NewDiskCache(cache.Config{Dir: cfg.Cache.Dir}, client, renderer, store, logger)
	if err != nil {
		return fmt.Errorf("build retrieval cache: %w", err)
	}

	pipeline := intake.NewPipeline(
		store,
		fileCache,
		intake.NewEngine(store, logger),
		intake.NewAllocator(),
		intake.NewNormalizer(cfg.Program.ID, cfg.Program.DocFormat, logger),
		system.New(),
		appInstance.GetUploader(),
		appInstance.GetPublisher(),
		intake.PipelineConfig{
			ProgramID:    cfg.Program.ID,
			UploadPrefix: cfg.Uploader.Prefix,
			Topic:        cfg.PubSub.TopicName,
		},
		logger,
	)

	selected := sources.Filter(cfg.SourceList(), sourceName, logger)
	jobs := sources.Build(selected, client, logger)

	logger.Info("ingestion run starting", zap.Int("sources", len(jobs)))
	start := time.Now()
	pipeline.Run(ctx, jobs)
	logger.Info("ingestion run finished", zap.Duration("elapsed", time.Since(start)))

	return nil
}
