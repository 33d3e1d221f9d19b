package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dnldd/marketgraph/analysis"
	"github.com/dnldd/marketgraph/database"
	"github.com/dnldd/marketgraph/fetch"
	"github.com/dnldd/marketgraph/graph"
	"github.com/dnldd/marketgraph/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gonum.org/v1/gonum/mat"
)

const (
	// refreshTime is the daily watch mode refresh time.
	refreshTime = "18:00"
)

// GraphConfig represents the configuration struct for the graph service.
type GraphConfig struct {
	// Instruments represents the tracked instrument universe.
	Instruments []shared.Instrument
	// FMPAPIKey is the FMP service API Key.
	FMPAPIKey string
	// Start is the start of the analyzed historical window.
	Start time.Time
	// End is the end of the analyzed historical window.
	End time.Time
	// OutputPath is the rendered graph output filepath.
	OutputPath string
	// EdgeCutoff is the minimum partial correlation magnitude rendered as an edge.
	EdgeCutoff float64
	// Watch reruns the analysis on a daily schedule when set.
	Watch bool
	// DatabaseEndpoint is the optional run storage endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// QuoteClient optionally overrides the quote history client.
	QuoteClient shared.QuoteFetcher
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *GraphConfig) Validate() error {
	var errs error

	if len(cfg.Instruments) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no instruments provided for graph service"))
	}
	if cfg.FMPAPIKey == "" && cfg.QuoteClient == nil {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		errs = errors.Join(errs, fmt.Errorf("analysis window cannot be empty"))
	}
	if !cfg.Start.Before(cfg.End) {
		errs = errors.Join(errs, fmt.Errorf("analysis window start must precede its end"))
	}
	if cfg.OutputPath == "" {
		errs = errors.Join(errs, fmt.Errorf("output path cannot be an empty string"))
	}
	if cfg.EdgeCutoff < 0 {
		errs = errors.Join(errs, fmt.Errorf("edge cutoff cannot be negative"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Graph represents the market structure graph service.
type Graph struct {
	cfg          *GraphConfig
	fetchManager *fetch.Manager
	estimator    *analysis.GraphicalLassoCV
	clusterer    *analysis.AffinityPropagation
	embedder     *analysis.LocallyLinearEmbedding
	renderer     *graph.Renderer
	store        database.RunStorer
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger
}

// NewGraph initializes a new graph service.
func NewGraph(ctx context.Context, cfg *GraphConfig) (*Graph, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating graph service config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "graph").Logger()

	quoteClient := cfg.QuoteClient
	if quoteClient == nil {
		quoteClient, err = fetch.NewFMPClient(&fetch.FMPConfig{
			APIKey:  cfg.FMPAPIKey,
			BaseURL: fetch.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating fmp client: %w", err)
		}
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Instruments: cfg.Instruments,
		QuoteClient: quoteClient,
		Logger:      &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	estimatorLogger := logger.With().Str("component", "estimator").Logger()
	estimator, err := analysis.NewGraphicalLassoCV(&analysis.GraphicalLassoCVConfig{
		Logger: &estimatorLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating covariance estimator: %w", err)
	}

	clustererLogger := logger.With().Str("component", "clusterer").Logger()
	clusterer, err := analysis.NewAffinityPropagation(&analysis.AffinityPropagationConfig{
		Logger: &clustererLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating clusterer: %w", err)
	}

	embedderLogger := logger.With().Str("component", "embedder").Logger()
	embedder, err := analysis.NewLocallyLinearEmbedding(&analysis.LocallyLinearEmbeddingConfig{
		Logger: &embedderLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	names := make([]string, len(cfg.Instruments))
	for idx := range cfg.Instruments {
		names[idx] = cfg.Instruments[idx].Name
	}

	rendererLogger := logger.With().Str("component", "renderer").Logger()
	renderer, err := graph.NewRenderer(&graph.RendererConfig{
		Names:      names,
		EdgeCutoff: cfg.EdgeCutoff,
		OutputPath: cfg.OutputPath,
		Logger:     &rendererLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	var store database.RunStorer
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		store, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
	}

	svc := &Graph{
		cfg:          cfg,
		fetchManager: fetchMgr,
		estimator:    estimator,
		clusterer:    clusterer,
		embedder:     embedder,
		renderer:     renderer,
		store:        store,
		jobScheduler: gocron.NewScheduler(time.UTC),
		logger:       &logger,
	}

	return svc, nil
}

// logClusters logs the composition of every identified cluster.
func (g *Graph) logClusters(labels []int, clusters int) {
	for cluster := 0; cluster < clusters; cluster++ {
		members := make([]string, 0, len(labels))
		for idx := range labels {
			if labels[idx] == cluster {
				members = append(members, g.cfg.Instruments[idx].Name)
			}
		}

		g.logger.Info().Msgf("cluster %d: %s", cluster+1, strings.Join(members, ", "))
	}
}

// collectEdges gathers the conditional dependency edges clearing the cutoff.
func (g *Graph) collectEdges(partials *mat.SymDense) []database.Edge {
	size := partials.SymmetricDim()

	edges := make([]database.Edge, 0, size)
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if math.Abs(partials.At(i, j)) <= g.cfg.EdgeCutoff {
				continue
			}

			edges = append(edges, database.Edge{
				Source: g.cfg.Instruments[i].Symbol,
				Target: g.cfg.Instruments[j].Symbol,
				Weight: partials.At(i, j),
			})
		}
	}

	return edges
}

// runAnalysis executes one full structure analysis pass: fetch, standardize,
// estimate, cluster, embed, render and optionally persist.
func (g *Graph) runAnalysis(ctx context.Context) error {
	run := database.NewRun(g.cfg.Start, g.cfg.End)
	g.logger.Info().Msgf("starting structure analysis run %s for %d instruments",
		run.ID, len(g.cfg.Instruments))

	series, err := g.fetchManager.FetchUniverse(ctx, g.cfg.Start, g.cfg.End)
	if err != nil {
		return fmt.Errorf("fetching instrument universe: %w", err)
	}

	variation, err := shared.NewVariationMatrix(series)
	if err != nil {
		return fmt.Errorf("building variation matrix: %w", err)
	}

	err = variation.Standardize()
	if err != nil {
		return fmt.Errorf("standardizing variation matrix: %w", err)
	}

	covariance, precision, err := g.estimator.Fit(variation.Data)
	if err != nil {
		return fmt.Errorf("estimating sparse covariance: %w", err)
	}

	partials, err := analysis.PartialCorrelations(precision)
	if err != nil {
		return fmt.Errorf("deriving partial correlations: %w", err)
	}

	labels, clusters, err := g.clusterer.Cluster(covariance)
	if err != nil {
		return fmt.Errorf("clustering instruments: %w", err)
	}

	g.logClusters(labels, clusters)

	coordinates, err := g.embedder.Embed(variation.Transposed())
	if err != nil {
		return fmt.Errorf("embedding instruments: %w", err)
	}

	err = g.renderer.Render(coordinates, labels, clusters, partials)
	if err != nil {
		return fmt.Errorf("rendering structure graph: %w", err)
	}

	if g.store != nil {
		run.Alpha = g.estimator.Alpha
		run.Clusters = clusters
		run.Edges = g.collectEdges(partials)
		run.Members = make([]database.Membership, len(labels))
		for idx := range labels {
			run.Members[idx] = database.Membership{
				Symbol: g.cfg.Instruments[idx].Symbol,
				Name:   g.cfg.Instruments[idx].Name,
				Label:  labels[idx],
			}
		}

		err = g.store.PersistRun(ctx, run)
		if err != nil {
			return fmt.Errorf("persisting run: %w", err)
		}
	}

	g.logger.Info().Msgf("completed structure analysis run %s: %d clusters", run.ID, clusters)

	return nil
}

// Run manages the lifecycle processes of the graph service.
func (g *Graph) Run(ctx context.Context) {
	err := g.runAnalysis(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("running structure analysis")
		g.cfg.Cancel()
		return
	}

	if !g.cfg.Watch {
		g.cfg.Cancel()
		return
	}

	_, err = g.jobScheduler.Every(1).Day().At(refreshTime).Do(func() {
		err := g.runAnalysis(ctx)
		if err != nil {
			g.logger.Error().Err(err).Msg("refreshing structure analysis")
		}
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("scheduling daily refresh")
		g.cfg.Cancel()
		return
	}

	g.jobScheduler.StartAsync()
	<-ctx.Done()
	g.jobScheduler.Stop()
}
