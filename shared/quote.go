package shared

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DateLayout is the format layout for parsing daily quote dates.
	DateLayout = "2006-01-02"
)

// Quote represents a single daily price observation for an instrument.
type Quote struct {
	Date  time.Time
	Open  float64
	Close float64
}

// QuoteSeries represents the daily quote history of an instrument.
type QuoteSeries struct {
	// Symbol is the instrument's ticker symbol.
	Symbol string
	// Quotes are the daily observations, in ascending date order.
	Quotes []Quote
}

// SortQuotes orders the series quotes by ascending date.
func (s *QuoteSeries) SortQuotes() {
	sort.Slice(s.Quotes, func(i, j int) bool {
		return s.Quotes[i].Date.Before(s.Quotes[j].Date)
	})
}

// dateKey generates a deterministic map key for a quote date.
func dateKey(date time.Time) string {
	return date.Format(DateLayout)
}

// AlignSeries trims the provided quote series to the trading days common to
// all of them, preserving ascending date order. Series with no quotes and an
// empty common window are both errors.
func AlignSeries(series []QuoteSeries) ([]QuoteSeries, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no quote series provided for alignment")
	}

	// Count how many series each trading day occurs in.
	occurrences := make(map[string]int)
	for idx := range series {
		if len(series[idx].Quotes) == 0 {
			return nil, fmt.Errorf("quote series for %s is empty", series[idx].Symbol)
		}

		for k := range series[idx].Quotes {
			occurrences[dateKey(series[idx].Quotes[k].Date)]++
		}
	}

	common := make(map[string]bool)
	for key, count := range occurrences {
		if count == len(series) {
			common[key] = true
		}
	}

	if len(common) == 0 {
		return nil, fmt.Errorf("no trading days common to all %d quote series", len(series))
	}

	aligned := make([]QuoteSeries, 0, len(series))
	for idx := range series {
		trimmed := QuoteSeries{
			Symbol: series[idx].Symbol,
			Quotes: make([]Quote, 0, len(common)),
		}

		for k := range series[idx].Quotes {
			if common[dateKey(series[idx].Quotes[k].Date)] {
				trimmed.Quotes = append(trimmed.Quotes, series[idx].Quotes[k])
			}
		}

		trimmed.SortQuotes()

		if len(trimmed.Quotes) != len(common) {
			return nil, fmt.Errorf("quote series for %s has duplicate trading days", series[idx].Symbol)
		}

		aligned = append(aligned, trimmed)
	}

	return aligned, nil
}
