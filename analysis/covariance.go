package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/marketgraph/shared"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// defaultMaxIterations is the default iteration cap for the estimator.
	defaultMaxIterations = 100
	// defaultTolerance is the default convergence tolerance for the estimator.
	defaultTolerance = 1e-4
	// lassoMaxIterations is the iteration cap for the inner lasso solve.
	lassoMaxIterations = 1000
)

// EmpiricalCovariance computes the maximum-likelihood covariance matrix of the
// provided samples (observations x features).
func EmpiricalCovariance(samples *mat.Dense) (*mat.SymDense, error) {
	rows, cols := samples.Dims()
	if rows < 2 {
		return nil, fmt.Errorf("at least 2 observations required to estimate covariance, got %d", rows)
	}
	if cols < 2 {
		return nil, fmt.Errorf("at least 2 features required to estimate covariance, got %d", cols)
	}

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, samples, nil)

	// CovarianceMatrix normalizes by n-1, rescale to the maximum-likelihood
	// estimate which normalizes by n.
	scale := float64(rows-1) / float64(rows)
	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			cov.SetSym(i, j, cov.At(i, j)*scale)
		}
	}

	return cov, nil
}

// GraphicalLassoConfig represents the configuration for the graphical lasso
// covariance estimator.
type GraphicalLassoConfig struct {
	// Alpha is the l1 regularization strength.
	Alpha float64
	// MaxIterations is the iteration cap for the outer coordinate descent.
	MaxIterations int
	// Tolerance is the convergence tolerance on the estimated covariance.
	Tolerance float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *GraphicalLassoConfig) Validate() error {
	var errs error

	if cfg.Alpha < 0 {
		errs = errors.Join(errs, fmt.Errorf("regularization strength cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = defaultTolerance
	}

	return errs
}

// GraphicalLasso estimates a sparse inverse covariance model by l1-penalized
// maximum likelihood, using block coordinate descent over the features.
type GraphicalLasso struct {
	cfg *GraphicalLassoConfig
}

// Ensure the GraphicalLasso implements the CovarianceEstimator interface.
var _ shared.CovarianceEstimator = (*GraphicalLasso)(nil)

// NewGraphicalLasso initializes a new graphical lasso estimator.
func NewGraphicalLasso(cfg *GraphicalLassoConfig) (*GraphicalLasso, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating graphical lasso config: %w", err)
	}

	return &GraphicalLasso{cfg: cfg}, nil
}

// softThreshold applies the soft thresholding operator.
func softThreshold(value float64, threshold float64) float64 {
	switch {
	case value > threshold:
		return value - threshold
	case value < -threshold:
		return value + threshold
	default:
		return 0
	}
}

// solveLasso solves the penalized subproblem for one feature column by cyclic
// coordinate descent, reusing the provided coefficient slice as the warm start.
func solveLasso(w11 *mat.Dense, s12 []float64, alpha float64, tolerance float64, beta []float64) {
	size := len(s12)

	for iteration := 0; iteration < lassoMaxIterations; iteration++ {
		var maxDelta float64

		for k := 0; k < size; k++ {
			if w11.At(k, k) == 0 {
				continue
			}

			var residual float64
			for l := 0; l < size; l++ {
				if l != k {
					residual += w11.At(k, l) * beta[l]
				}
			}

			updated := softThreshold(s12[k]-residual, alpha) / w11.At(k, k)
			delta := math.Abs(updated - beta[k])
			if delta > maxDelta {
				maxDelta = delta
			}
			beta[k] = updated
		}

		if maxDelta < tolerance {
			return
		}
	}
}

// Fit estimates the covariance and precision matrices of the provided samples.
// When the regularization strength is zero the estimate reduces to the
// empirical covariance and its inverse.
func (g *GraphicalLasso) Fit(samples *mat.Dense) (*mat.SymDense, *mat.SymDense, error) {
	empirical, err := EmpiricalCovariance(samples)
	if err != nil {
		return nil, nil, fmt.Errorf("estimating empirical covariance: %w", err)
	}

	return g.fitCovariance(empirical)
}

// fitCovariance runs the block coordinate descent on a precomputed empirical
// covariance matrix.
func (g *GraphicalLasso) fitCovariance(empirical *mat.SymDense) (*mat.SymDense, *mat.SymDense, error) {
	size := empirical.SymmetricDim()
	alpha := g.cfg.Alpha

	// Working covariance estimate, regularized on the diagonal.
	w := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			w.Set(i, j, empirical.At(i, j))
		}
		w.Set(i, i, empirical.At(i, i)+alpha)
	}

	// Per-column lasso coefficients, kept across sweeps as warm starts.
	betas := make([][]float64, size)
	for idx := range betas {
		betas[idx] = make([]float64, size-1)
	}

	w11 := mat.NewDense(size-1, size-1, nil)
	s12 := make([]float64, size-1)
	w12 := make([]float64, size-1)

	converged := false
	for iteration := 0; iteration < g.cfg.MaxIterations && !converged; iteration++ {
		var totalDelta float64

		for col := 0; col < size; col++ {
			// Partition the problem around the current column.
			for i, ii := 0, 0; i < size; i++ {
				if i == col {
					continue
				}

				s12[ii] = empirical.At(i, col)
				for j, jj := 0, 0; j < size; j++ {
					if j == col {
						continue
					}
					w11.Set(ii, jj, w.At(i, j))
					jj++
				}
				ii++
			}

			solveLasso(w11, s12, alpha, g.cfg.Tolerance/10, betas[col])

			// Update the covariance column from the solved coefficients.
			for i := 0; i < size-1; i++ {
				var sum float64
				for j := 0; j < size-1; j++ {
					sum += w11.At(i, j) * betas[col][j]
				}
				w12[i] = sum
			}

			for i, ii := 0, 0; i < size; i++ {
				if i == col {
					continue
				}

				totalDelta += math.Abs(w.At(i, col) - w12[ii])
				w.Set(i, col, w12[ii])
				w.Set(col, i, w12[ii])
				ii++
			}
		}

		meanDelta := totalDelta / float64(size*(size-1))
		if math.IsNaN(meanDelta) || math.IsInf(meanDelta, 0) {
			return nil, nil, fmt.Errorf("graphical lasso diverged, the empirical " +
				"covariance may be singular or ill-conditioned")
		}

		converged = meanDelta < g.cfg.Tolerance
	}

	if !converged {
		return nil, nil, fmt.Errorf("graphical lasso failed to converge in %d iterations",
			g.cfg.MaxIterations)
	}

	covariance := mat.NewSymDense(size, nil)
	for i := 0; i < size; i++ {
		for j := i; j < size; j++ {
			covariance.SetSym(i, j, w.At(i, j))
		}
	}

	precision, err := precisionFromCoefficients(w, betas)
	if err != nil {
		return nil, nil, err
	}

	return covariance, precision, nil
}

// precisionFromCoefficients recovers the precision matrix from the estimated
// covariance and the per-column lasso coefficients, preserving exact zeros.
func precisionFromCoefficients(w *mat.Dense, betas [][]float64) (*mat.SymDense, error) {
	size, _ := w.Dims()
	precision := mat.NewDense(size, size, nil)

	for col := 0; col < size; col++ {
		var dot float64
		for i, ii := 0, 0; i < size; i++ {
			if i == col {
				continue
			}
			dot += w.At(i, col) * betas[col][ii]
			ii++
		}

		denominator := w.At(col, col) - dot
		if denominator <= 0 {
			return nil, fmt.Errorf("estimated covariance is not positive definite")
		}

		diagonal := 1 / denominator
		precision.Set(col, col, diagonal)

		for i, ii := 0, 0; i < size; i++ {
			if i == col {
				continue
			}
			precision.Set(i, col, -betas[col][ii]*diagonal)
			ii++
		}
	}

	// Symmetrize, the column solves can differ by rounding.
	symmetric := mat.NewSymDense(size, nil)
	for i := 0; i < size; i++ {
		for j := i; j < size; j++ {
			symmetric.SetSym(i, j, (precision.At(i, j)+precision.At(j, i))/2)
		}
	}

	return symmetric, nil
}

// PartialCorrelations derives the partial correlation matrix from the provided
// precision matrix. The diagonal is zeroed, only pairwise conditional
// dependencies are of interest.
func PartialCorrelations(precision *mat.SymDense) (*mat.SymDense, error) {
	size := precision.SymmetricDim()

	scale := make([]float64, size)
	for i := 0; i < size; i++ {
		if precision.At(i, i) <= 0 {
			return nil, fmt.Errorf("precision matrix has non-positive diagonal entry at %d", i)
		}
		scale[i] = 1 / math.Sqrt(precision.At(i, i))
	}

	partials := mat.NewSymDense(size, nil)
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			partials.SetSym(i, j, -precision.At(i, j)*scale[i]*scale[j])
		}
	}

	return partials, nil
}
