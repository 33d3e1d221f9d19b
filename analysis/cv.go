package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/marketgraph/shared"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

const (
	// defaultAlphas is the default size of the regularization grid.
	defaultAlphas = 10
	// defaultFolds is the default number of cross validation folds.
	defaultFolds = 4
	// alphaGridRatio is the ratio between the smallest and largest grid alphas.
	alphaGridRatio = 0.01
)

// GraphicalLassoCVConfig represents the configuration for the cross validated
// graphical lasso estimator.
type GraphicalLassoCVConfig struct {
	// Alphas is the number of grid points for the regularization strength.
	Alphas int
	// Folds is the number of cross validation folds.
	Folds int
	// MaxIterations is the iteration cap for each underlying estimator.
	MaxIterations int
	// Tolerance is the convergence tolerance for each underlying estimator.
	Tolerance float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *GraphicalLassoCVConfig) Validate() error {
	var errs error

	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}
	if cfg.Alphas == 0 {
		cfg.Alphas = defaultAlphas
	}
	if cfg.Alphas < 2 {
		errs = errors.Join(errs, fmt.Errorf("regularization grid needs at least 2 points"))
	}
	if cfg.Folds == 0 {
		cfg.Folds = defaultFolds
	}
	if cfg.Folds < 2 {
		errs = errors.Join(errs, fmt.Errorf("cross validation needs at least 2 folds"))
	}

	return errs
}

// GraphicalLassoCV selects the graphical lasso regularization strength by
// k-fold cross validation over a log-spaced grid, then refits on all samples.
type GraphicalLassoCV struct {
	cfg *GraphicalLassoCVConfig

	// Alpha is the selected regularization strength, set by Fit.
	Alpha float64
}

// Ensure the GraphicalLassoCV implements the CovarianceEstimator interface.
var _ shared.CovarianceEstimator = (*GraphicalLassoCV)(nil)

// NewGraphicalLassoCV initializes a new cross validated graphical lasso estimator.
func NewGraphicalLassoCV(cfg *GraphicalLassoCVConfig) (*GraphicalLassoCV, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating graphical lasso cv config: %w", err)
	}

	return &GraphicalLassoCV{cfg: cfg}, nil
}

// alphaGrid builds a log-spaced regularization grid from the empirical
// covariance, descending from the strength that fully sparsifies the model.
func alphaGrid(empirical *mat.SymDense, points int) []float64 {
	size := empirical.SymmetricDim()

	var alphaMax float64
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if math.Abs(empirical.At(i, j)) > alphaMax {
				alphaMax = math.Abs(empirical.At(i, j))
			}
		}
	}

	if alphaMax == 0 {
		alphaMax = 1
	}

	alphaMin := alphaMax * alphaGridRatio
	step := (math.Log(alphaMax) - math.Log(alphaMin)) / float64(points-1)

	grid := make([]float64, points)
	for idx := 0; idx < points; idx++ {
		grid[idx] = math.Exp(math.Log(alphaMin) + step*float64(idx))
	}

	return grid
}

// foldSplit partitions the sample rows into contiguous train/test folds.
func foldSplit(samples *mat.Dense, folds int, fold int) (*mat.Dense, *mat.Dense) {
	rows, cols := samples.Dims()
	foldSize := rows / folds

	testStart := fold * foldSize
	testEnd := testStart + foldSize
	if fold == folds-1 {
		testEnd = rows
	}

	train := mat.NewDense(rows-(testEnd-testStart), cols, nil)
	test := mat.NewDense(testEnd-testStart, cols, nil)

	trainRow, testRow := 0, 0
	for row := 0; row < rows; row++ {
		if row >= testStart && row < testEnd {
			for col := 0; col < cols; col++ {
				test.Set(testRow, col, samples.At(row, col))
			}
			testRow++
			continue
		}

		for col := 0; col < cols; col++ {
			train.Set(trainRow, col, samples.At(row, col))
		}
		trainRow++
	}

	return train, test
}

// logLikelihood scores a fitted precision matrix against a held-out empirical
// covariance using the Gaussian log likelihood.
func logLikelihood(testCov *mat.SymDense, precision *mat.SymDense) float64 {
	size := testCov.SymmetricDim()

	var chol mat.Cholesky
	if !chol.Factorize(precision) {
		return math.Inf(-1)
	}

	var traceProduct float64
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			traceProduct += testCov.At(i, j) * precision.At(i, j)
		}
	}

	return -0.5 * (traceProduct - chol.LogDet() + float64(size)*math.Log(2*math.Pi))
}

// Fit selects the best regularization strength by cross validation and
// estimates the covariance and precision matrices of the provided samples.
func (g *GraphicalLassoCV) Fit(samples *mat.Dense) (*mat.SymDense, *mat.SymDense, error) {
	rows, _ := samples.Dims()
	if rows < g.cfg.Folds*2 {
		return nil, nil, fmt.Errorf("at least %d observations required for %d-fold "+
			"cross validation, got %d", g.cfg.Folds*2, g.cfg.Folds, rows)
	}

	empirical, err := EmpiricalCovariance(samples)
	if err != nil {
		return nil, nil, fmt.Errorf("estimating empirical covariance: %w", err)
	}

	grid := alphaGrid(empirical, g.cfg.Alphas)
	scores := make([]float64, len(grid))
	counts := make([]int, len(grid))

	for fold := 0; fold < g.cfg.Folds; fold++ {
		train, test := foldSplit(samples, g.cfg.Folds, fold)

		testCov, err := EmpiricalCovariance(test)
		if err != nil {
			return nil, nil, fmt.Errorf("estimating held-out covariance for fold %d: %w", fold, err)
		}

		for idx := range grid {
			estimator, err := NewGraphicalLasso(&GraphicalLassoConfig{
				Alpha:         grid[idx],
				MaxIterations: g.cfg.MaxIterations,
				Tolerance:     g.cfg.Tolerance,
				Logger:        g.cfg.Logger,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("creating fold estimator: %w", err)
			}

			_, precision, err := estimator.Fit(train)
			if err != nil {
				// A strength that fails on this fold is scored as unusable
				// rather than aborting the search.
				g.cfg.Logger.Debug().Msgf("strength %.6f unusable on fold %d: %v",
					grid[idx], fold, err)
				scores[idx] = math.Inf(-1)
				counts[idx]++
				continue
			}

			scores[idx] += logLikelihood(testCov, precision)
			counts[idx]++
		}
	}

	best := -1
	bestScore := math.Inf(-1)
	for idx := range grid {
		score := scores[idx] / float64(counts[idx])
		if score > bestScore {
			bestScore = score
			best = idx
		}
	}

	if best == -1 || math.IsInf(bestScore, -1) {
		return nil, nil, fmt.Errorf("no regularization strength produced a usable model, " +
			"the samples may be degenerate")
	}

	g.Alpha = grid[best]
	g.cfg.Logger.Info().Msgf("selected regularization strength %.6f (score %.4f)",
		g.Alpha, bestScore)

	final, err := NewGraphicalLasso(&GraphicalLassoConfig{
		Alpha:         g.Alpha,
		MaxIterations: g.cfg.MaxIterations,
		Tolerance:     g.cfg.Tolerance,
		Logger:        g.cfg.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating final estimator: %w", err)
	}

	return final.Fit(samples)
}
