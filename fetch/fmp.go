package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnldd/marketgraph/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the base url for the FMP stable api.
	BaseURL = "https://financialmodelingprep.com/stable"
	// dailyHistoricalPath is the daily end-of-day historical quotes path.
	dailyHistoricalPath = "/historical-price-eod/full"
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIKey is the FMP API Key.
	APIKey string
	// BaseURL is the base url of the FMP service.
	BaseURL string
}

// Validate asserts the config has sane inputs.
func (cfg *FMPConfig) Validate() error {
	var errs error

	if cfg.APIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp base url cannot be an empty string"))
	}

	return errs
}

// FMPClient represents the Financial Modeling Preparation (FMP) API client.
// The client is safe for concurrent use.
type FMPClient struct {
	cfg   *FMPConfig
	httpc http.Client
}

// Ensure the FMPClient implements the QuoteFetcher interface.
var _ shared.QuoteFetcher = (*FMPClient)(nil)

// NewFMPClient instantiates a new FMP client.
func NewFMPClient(cfg *FMPConfig) (*FMPClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fmp config: %w", err)
	}

	return &FMPClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	var buf strings.Builder
	buf.Grow(len(c.cfg.BaseURL) + len(path) + 1 + len(params))
	buf.WriteString(c.cfg.BaseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// ParseQuotes parses daily quotes from the provided json data.
func (c *FMPClient) ParseQuotes(data []gjson.Result, symbol string) (*shared.QuoteSeries, error) {
	quotes := make([]shared.Quote, 0, len(data))

	for idx := range data {
		var quote shared.Quote

		quote.Open = data[idx].Get("open").Float()
		quote.Close = data[idx].Get("close").Float()

		dt, err := time.Parse(shared.DateLayout, data[idx].Get("date").String())
		if err != nil {
			return nil, fmt.Errorf("parsing quote date for %s: %w", symbol, err)
		}

		quote.Date = dt
		quotes = append(quotes, quote)
	}

	series := &shared.QuoteSeries{
		Symbol: symbol,
		Quotes: quotes,
	}
	series.SortQuotes()

	return series, nil
}

// FetchDailyHistorical fetches daily historical quote data for the provided
// symbol over the provided window.
func (c *FMPClient) FetchDailyHistorical(ctx context.Context, symbol string, start time.Time, end time.Time) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("apikey", c.cfg.APIKey)
	params.Add("from", start.Format(shared.DateLayout))
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DateLayout))
	}

	formedURL := c.formURL(dailyHistoricalPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating daily historical request for %s: %w", symbol, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching daily historical data for %s: %w", symbol, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching daily historical data for %s: status %d", symbol, resp.StatusCode)
	}

	data := gjson.ParseBytes(body).Array()

	return data, nil
}
