package shared

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/mat"
)

// QuoteFetcher defines the requirements for fetching daily historical quotes.
type QuoteFetcher interface {
	// FetchDailyHistorical fetches daily historical quote data for the
	// provided symbol over the provided window.
	FetchDailyHistorical(ctx context.Context, symbol string, start time.Time, end time.Time) ([]gjson.Result, error)
	// ParseQuotes parses daily quotes from the provided json data.
	ParseQuotes(data []gjson.Result, symbol string) (*QuoteSeries, error)
}

// CovarianceEstimator defines the requirements for estimating a sparse
// covariance model. Samples are observations x features; the returned
// covariance and precision matrices are features x features.
type CovarianceEstimator interface {
	// Fit estimates the covariance and precision matrices of the provided samples.
	Fit(samples *mat.Dense) (covariance *mat.SymDense, precision *mat.SymDense, err error)
}

// Clusterer defines the requirements for clustering points from a precomputed
// similarity matrix.
type Clusterer interface {
	// Cluster assigns a cluster label to every point of the provided
	// similarity matrix, returning the labels and the number of clusters.
	Cluster(similarity *mat.SymDense) (labels []int, clusters int, err error)
}

// Embedder defines the requirements for embedding points in a lower dimension.
// Points are rows of the provided matrix.
type Embedder interface {
	// Embed computes a low-dimensional coordinate for every point.
	Embed(points *mat.Dense) (*mat.Dense, error)
}
