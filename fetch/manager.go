package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/marketgraph/shared"
	"github.com/rs/zerolog"
)

const (
	// maxWorkers is the maximum number of concurrent fetch workers.
	maxWorkers = 8
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Instruments represents the tracked instrument universe.
	Instruments []shared.Instrument
	// QuoteClient represents the quote history client.
	QuoteClient shared.QuoteFetcher
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Instruments) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no instruments provided for fetch manager"))
	}
	if cfg.QuoteClient == nil {
		errs = errors.Join(errs, fmt.Errorf("quote client cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager represents the quote fetch manager.
type Manager struct {
	cfg     *ManagerConfig
	workers chan struct{}
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	return &Manager{
		cfg:     cfg,
		workers: make(chan struct{}, maxWorkers),
	}, nil
}

// fetchSeries fetches and parses the daily quote series for the provided symbol.
func (m *Manager) fetchSeries(ctx context.Context, symbol string, start time.Time, end time.Time) (*shared.QuoteSeries, error) {
	data, err := m.cfg.QuoteClient.FetchDailyHistorical(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching quote history for %s: %w", symbol, err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no quote history returned for %s, the symbol may be "+
			"unknown or delisted", symbol)
	}

	series, err := m.cfg.QuoteClient.ParseQuotes(data, symbol)
	if err != nil {
		return nil, fmt.Errorf("parsing quote history for %s: %w", symbol, err)
	}

	return series, nil
}

// FetchUniverse fetches the daily quote series of every configured instrument
// over the provided window and aligns them on their common trading days.
// The returned series preserve the configured instrument order.
func (m *Manager) FetchUniverse(ctx context.Context, start time.Time, end time.Time) ([]shared.QuoteSeries, error) {
	results := make([]*shared.QuoteSeries, len(m.cfg.Instruments))
	fetchErrors := make([]error, len(m.cfg.Instruments))

	var wg sync.WaitGroup
	for idx := range m.cfg.Instruments {
		instrument := m.cfg.Instruments[idx]

		wg.Add(1)
		m.workers <- struct{}{}
		go func(idx int, symbol string) {
			defer wg.Done()
			defer func() { <-m.workers }()

			series, err := m.fetchSeries(ctx, symbol, start, end)
			if err != nil {
				fetchErrors[idx] = err
				return
			}

			m.cfg.Logger.Info().Msgf("fetched %d daily quotes for %s", len(series.Quotes), symbol)
			results[idx] = series
		}(idx, instrument.Symbol)
	}

	wg.Wait()

	err := errors.Join(fetchErrors...)
	if err != nil {
		return nil, err
	}

	series := make([]shared.QuoteSeries, len(results))
	for idx := range results {
		series[idx] = *results[idx]
	}

	aligned, err := shared.AlignSeries(series)
	if err != nil {
		return nil, fmt.Errorf("aligning quote series: %w", err)
	}

	return aligned, nil
}
