package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/analysis"
	"github.com/hyperjump/trendlens/internal/backend"
	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/export"
	"github.com/hyperjump/trendlens/internal/history"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/session"
	"github.com/hyperjump/trendlens/internal/storage"
	"github.com/hyperjump/trendlens/internal/suggest"
)

// suggestionSeedLimit bounds how many logged results are indexed at startup.
const suggestionSeedLimit = 500

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	History   *history.Manager
	Generator *backend.Generator
	Cache     *analysis.CachedAnalyzer
	Session   *session.Controller
	Exporter  *export.Exporter
	Suggest   *suggest.Index

	stop func()
}

// Close stops the session loop and releases storage and the suggestion index.
func (c *Components) Close() {
	if c.stop != nil {
		c.stop()
	}
	if c.Suggest != nil {
		_ = c.Suggest.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires storage, history, the analyzer chain, the session loop,
// exports and suggestions. With inProcess set, an embedded backend is called directly
// instead of over HTTP.
func initializeComponents(cfg *config.Config, logger *zap.Logger, inProcess bool) (*Components, error) {
	store, err := storage.New(cfg.Storage.Driver, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	ctx := context.Background()

	hist := history.NewManager(store,
		history.WithKey(cfg.History.Key),
		history.WithMaxEntries(cfg.History.MaxEntries),
		history.WithLogger(logger),
	)
	hist.Load(ctx)

	c := &Components{Storage: store, History: hist}
	if cfg.Backend.Embedded {
		c.Generator = backend.NewGenerator(
			backend.WithMonths(cfg.Backend.Months),
			backend.WithHorizon(max(cfg.Backend.Horizon, 0)),
			backend.WithUnavailable(cfg.Backend.Unavailable...),
			backend.WithLogger(logger),
		)
	}

	var base analysis.Analyzer
	if c.Generator != nil && inProcess {
		base = c.Generator
	} else {
		base = analysis.NewClient(cfg.Backend.URL,
			analysis.WithTimeout(cfg.Backend.Timeout),
			analysis.WithRateLimit(cfg.Backend.RateLimitPerMin),
			analysis.WithLogger(logger),
		)
	}
	var analyzer analysis.Analyzer = analysis.NewRecordingAnalyzer(base, store, logger)
	if cfg.Analysis.CacheSize > 0 {
		c.Cache = analysis.NewCachedAnalyzer(analyzer, cfg.Analysis.CacheSize, cfg.Analysis.CacheTTL, logger)
		analyzer = c.Cache
	}

	c.Session = session.NewController(analyzer, hist, session.WithLogger(logger))
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Session.Run(runCtx)
	}()
	c.stop = func() {
		cancel()
		<-done
	}

	regions := export.NewRegions()
	regions.Register(export.ResultsRegion(export.RegionTrendChart, "Keyword trends", c.Session.Results))
	c.Exporter = export.NewExporter(regions,
		export.NewChartRasterizer(cfg.Export.RasterWidth, cfg.Export.RasterHeight),
		export.WithLogger(logger),
	)

	idx, err := suggest.NewIndex()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize suggestion index: %w", err)
	}
	c.Suggest = idx
	if err := seedSuggestions(ctx, idx, hist, store); err != nil {
		logger.Warn("suggestion index seed incomplete", zap.Error(err))
	}
	logger.Debug("components initialized",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("embedded_backend", c.Generator != nil),
		zap.Bool("in_process", inProcess && c.Generator != nil),
		zap.Int("suggestion_terms", idx.Len()),
	)
	return c, nil
}

// seedSuggestions indexes the recent searches and the most recent logged results.
func seedSuggestions(ctx context.Context, idx *suggest.Index, hist *history.Manager, store storage.Storage) error {
	if err := idx.AddHistory(hist.List()); err != nil {
		return err
	}
	logged, err := store.ListResults(ctx, "", suggestionSeedLimit)
	if err != nil {
		return err
	}
	for _, lr := range logged {
		if lr.Result == nil {
			continue
		}
		if err := idx.AddResults(models.NewResultSet(models.Succeeded(lr.Keyword, lr.Result))); err != nil {
			return err
		}
	}
	return nil
}
