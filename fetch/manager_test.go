package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dnldd/marketgraph/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// fakeQuoteClient serves canned quote payloads keyed by symbol.
type fakeQuoteClient struct {
	payloads map[string]string
}

// Ensure the fakeQuoteClient implements the QuoteFetcher interface.
var _ shared.QuoteFetcher = (*fakeQuoteClient)(nil)

func (f *fakeQuoteClient) FetchDailyHistorical(ctx context.Context, symbol string, start time.Time, end time.Time) ([]gjson.Result, error) {
	payload, ok := f.payloads[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}

	return gjson.Parse(payload).Array(), nil
}

func (f *fakeQuoteClient) ParseQuotes(data []gjson.Result, symbol string) (*shared.QuoteSeries, error) {
	quotes := make([]shared.Quote, 0, len(data))
	for idx := range data {
		dt, err := time.Parse(shared.DateLayout, data[idx].Get("date").String())
		if err != nil {
			return nil, err
		}

		quotes = append(quotes, shared.Quote{
			Date:  dt,
			Open:  data[idx].Get("open").Float(),
			Close: data[idx].Get("close").Float(),
		})
	}

	series := &shared.QuoteSeries{Symbol: symbol, Quotes: quotes}
	series.SortQuotes()

	return series, nil
}

func TestManager(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure the manager rejects an invalid config.
	_, err := NewManager(&ManagerConfig{})
	assert.Error(t, err)

	client := &fakeQuoteClient{
		payloads: map[string]string{
			"XOM": `[{"date":"2003-01-02","open":10,"close":11},
				{"date":"2003-01-03","open":11,"close":12},
				{"date":"2003-01-06","open":12,"close":13}]`,
			"CVX": `[{"date":"2003-01-03","open":20,"close":21},
				{"date":"2003-01-02","open":21,"close":22}]`,
		},
	}

	instruments := shared.NewUniverse([]string{"XOM", "CVX"})
	mgr, err := NewManager(&ManagerConfig{
		Instruments: instruments,
		QuoteClient: client,
		Logger:      &logger,
	})
	assert.NoError(t, err)

	start := time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2003, 2, 1, 0, 0, 0, 0, time.UTC)

	// Ensure the universe fetch aligns series on common trading days and
	// preserves the configured instrument order.
	series, err := mgr.FetchUniverse(context.Background(), start, end)
	assert.NoError(t, err)
	assert.Equal(t, len(series), 2)
	assert.Equal(t, series[0].Symbol, "XOM")
	assert.Equal(t, series[1].Symbol, "CVX")
	assert.Equal(t, len(series[0].Quotes), 2)
	assert.Equal(t, len(series[1].Quotes), 2)
	assert.Equal(t, series[0].Quotes[0].Date.Day(), 2)
	assert.Equal(t, series[0].Quotes[1].Date.Day(), 3)

	// Ensure a missing symbol fails the fetch with a named error.
	instruments = shared.NewUniverse([]string{"XOM", "NAV"})
	mgr, err = NewManager(&ManagerConfig{
		Instruments: instruments,
		QuoteClient: client,
		Logger:      &logger,
	})
	assert.NoError(t, err)

	_, err = mgr.FetchUniverse(context.Background(), start, end)
	assert.Error(t, err)

	// Ensure an empty quote history is a fatal error.
	client.payloads["NAV"] = `[]`
	_, err = mgr.FetchUniverse(context.Background(), start, end)
	assert.Error(t, err)
}

func TestFetchUniverseConcurrentClient(t *testing.T) {
	logger := zerolog.Nop()

	// Each symbol's quote history carries an open price unique to it, so a
	// corrupted request url surfaces as a mismatched series.
	opens := make(map[string]float64)
	symbols := make([]string, 0, 24)
	for idx := 0; idx < 24; idx++ {
		symbol := fmt.Sprintf("SYM%d", idx)
		symbols = append(symbols, symbol)
		opens[symbol] = float64(100 + idx)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		open, ok := opens[symbol]
		if !ok {
			t.Errorf("unexpected symbol in request url: %q", symbol)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("apikey") != "key" {
			t.Errorf("unexpected api key in request url: %q", r.URL.Query().Get("apikey"))
		}

		payload := fmt.Sprintf(`[{"date":"2003-01-02","open":%f,"close":%f},
			{"date":"2003-01-03","open":%f,"close":%f}]`,
			open, open+1, open+1, open+2)
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client, err := NewFMPClient(&FMPConfig{APIKey: "key", BaseURL: server.URL})
	assert.NoError(t, err)

	mgr, err := NewManager(&ManagerConfig{
		Instruments: shared.NewUniverse(symbols),
		QuoteClient: client,
		Logger:      &logger,
	})
	assert.NoError(t, err)

	start := time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2003, 2, 1, 0, 0, 0, 0, time.UTC)

	series, err := mgr.FetchUniverse(context.Background(), start, end)
	assert.NoError(t, err)
	assert.Equal(t, len(series), len(symbols))

	// Every series must hold its own symbol's quotes, in the configured order.
	for idx := range series {
		assert.Equal(t, series[idx].Symbol, symbols[idx])
		assert.Equal(t, len(series[idx].Quotes), 2)
		assert.Equal(t, series[idx].Quotes[0].Open, opens[symbols[idx]])
		assert.Equal(t, series[idx].Quotes[1].Open, opens[symbols[idx]]+1)
	}
}
