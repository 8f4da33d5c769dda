package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
	"github.com/ZanzyTHEbar/learnpath/learnpath/db"
	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/adapters"
	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/serving"
)

// runtime holds the wired recommendation stack for one command
type runtime struct {
	pipeline *service.RecommendationPipeline
	handler  *serving.Handler
	metrics  *service.MetricsCollector
	registry *prometheus.Registry
	closers  []func() error
}

func (rt *runtime) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildRuntime wires the configured backend into a pipeline and handler
func buildRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*runtime, error) {
	rt := &runtime{registry: prometheus.NewRegistry()}
	rt.metrics = service.NewMetricsCollector(rt.registry)
	dim := cfg.Recommend.Dimension

	search, roles, err := openCatalog(ctx, cfg, logger, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	encoder, err := service.NewProfileEncoder(dim, cfg.Encoder, roles, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.pipeline, err = service.NewRecommendationPipeline(service.PipelineDeps{
		Config:    cfg,
		Encoder:   encoder,
		Retriever: service.NewCandidateRetriever(search, dim, cfg.Retrieval, rt.metrics, logger),
		Scorer:    scorer,
		Tracer:    adapters.NewZerologTracer(logger),
		Metrics:   rt.metrics,
		Logger:    logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	decoder, err := serving.NewPayloadDecoder()
	if err != nil {
		rt.Close()
		return nil, err
	}
	cache := adapters.NewLRUCache[[]service.RankedRecommendation](cfg.Serving.FallbackCacheCapacity)
	fallback := serving.NewFallbackRecommender(rt.pipeline, cache, cfg, logger)
	rt.handler = serving.NewHandler(decoder, fallback, rt.pipeline.ScoreSemantic(), logger)

	return rt, nil
}

// openCatalog returns the similarity search and role lookup for the backend
func openCatalog(ctx context.Context, cfg *config.Config, logger zerolog.Logger, rt *runtime) (service.SimilaritySearch, service.RoleVectorLookup, error) {
	dim := cfg.Recommend.Dimension

	switch cfg.Catalog.Backend {
	case "libsql":
		conn, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, conn.Close)
		store := adapters.NewCatalogStore(conn, dim, logger)
		return store, store, nil

	case "chromem":
		search, err := adapters.NewChromemSearch(cfg.Catalog.ChromemDir, cfg.Catalog.Collection, dim, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Catalog.ContentPath != "" {
			nodes, err := service.ReadContentFile(cfg.Catalog.ContentPath)
			if err != nil {
				return nil, nil, err
			}
			if err := search.AddNodes(ctx, nodes); err != nil {
				return nil, nil, err
			}
		}
		roles, err := openRoleTable(ctx, cfg, logger, rt)
		if err != nil {
			return nil, nil, err
		}
		return search, roles, nil

	default:
		idx := service.NewFlatIndex(dim)
		if cfg.Catalog.ContentPath != "" {
			n, err := idx.LoadContentFile(ctx, cfg.Catalog.ContentPath)
			if err != nil {
				return nil, nil, err
			}
			logger.Info().Int("nodes", n).Str("path", cfg.Catalog.ContentPath).Msg("loaded content catalog")
		}
		roles, err := openRoleTable(ctx, cfg, logger, rt)
		if err != nil {
			return nil, nil, err
		}
		return idx, roles, nil
	}
}

func openRoleTable(ctx context.Context, cfg *config.Config, logger zerolog.Logger, rt *runtime) (*service.RoleTable, error) {
	dim := cfg.Recommend.Dimension
	path := cfg.Catalog.RoleVectorsPath
	if path == "" {
		return service.NewRoleTable(dim, nil, logger)
	}

	roles, err := service.NewRoleTableFromFile(dim, path, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.WatchRoleVectors {
		watchCtx, cancel := context.WithCancel(ctx)
		rt.closers = append(rt.closers, func() error { cancel(); return nil })
		go func() {
			if err := roles.Watch(watchCtx, path); err != nil {
				logger.Error().Err(err).Msg("role vector watcher stopped")
			}
		}()
	}
	return roles, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	conn, err := db.ConnectToDB(cfg.Catalog.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func newScorer(cfg *config.Config) (service.SuccessScorer, error) {
	dim := cfg.Recommend.Dimension
	if cfg.Ranker.Model != "logistic" {
		return service.NewCosineScorer(dim), nil
	}

	ltr := service.NewLogisticScorer(dim)
	if cfg.Ranker.WeightsPath != "" {
		if err := ltr.LoadWeights(cfg.Ranker.WeightsPath); err != nil {
			return nil, fmt.Errorf("load ranker: %w", err)
		}
	}
	return ltr, nil
}
