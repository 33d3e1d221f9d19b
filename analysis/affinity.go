package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dnldd/marketgraph/shared"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

const (
	// defaultDamping is the default message damping factor.
	defaultDamping = 0.5
	// defaultAffinityIterations is the default iteration cap.
	defaultAffinityIterations = 200
	// defaultConvergenceWindow is the number of iterations the exemplar set
	// must remain stable to be considered converged.
	defaultConvergenceWindow = 15
)

// AffinityPropagationConfig represents the configuration for the affinity
// propagation clusterer.
type AffinityPropagationConfig struct {
	// Damping is the message damping factor, in [0.5, 1).
	Damping float64
	// MaxIterations is the message passing iteration cap.
	MaxIterations int
	// ConvergenceWindow is the stability window for convergence.
	ConvergenceWindow int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *AffinityPropagationConfig) Validate() error {
	var errs error

	if cfg.Damping == 0 {
		cfg.Damping = defaultDamping
	}
	if cfg.Damping < 0.5 || cfg.Damping >= 1 {
		errs = errors.Join(errs, fmt.Errorf("damping must be in [0.5, 1), got %v", cfg.Damping))
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaultAffinityIterations
	}
	if cfg.ConvergenceWindow == 0 {
		cfg.ConvergenceWindow = defaultConvergenceWindow
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// AffinityPropagation clusters points from a precomputed similarity matrix by
// exchanging responsibility and availability messages until a stable set of
// exemplars emerges. The number of clusters is not fixed in advance.
type AffinityPropagation struct {
	cfg *AffinityPropagationConfig
}

// Ensure the AffinityPropagation implements the Clusterer interface.
var _ shared.Clusterer = (*AffinityPropagation)(nil)

// NewAffinityPropagation initializes a new affinity propagation clusterer.
func NewAffinityPropagation(cfg *AffinityPropagationConfig) (*AffinityPropagation, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating affinity propagation config: %w", err)
	}

	return &AffinityPropagation{cfg: cfg}, nil
}

// medianPreference computes the median of the off-diagonal similarities, the
// default self-similarity preference.
func medianPreference(similarity *mat.SymDense) float64 {
	size := similarity.SymmetricDim()

	values := make([]float64, 0, size*(size-1))
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i != j {
				values = append(values, similarity.At(i, j))
			}
		}
	}

	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}

	return values[mid]
}

// Cluster assigns a cluster label to every point of the provided similarity
// matrix, returning the labels and the number of clusters.
func (a *AffinityPropagation) Cluster(similarity *mat.SymDense) ([]int, int, error) {
	size := similarity.SymmetricDim()
	if size < 2 {
		return nil, 0, fmt.Errorf("at least 2 points required for clustering, got %d", size)
	}

	// Working similarity matrix with the preference on the diagonal.
	preference := medianPreference(similarity)
	s := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			s.Set(i, j, similarity.At(i, j))
		}
		s.Set(i, i, preference)
	}

	responsibility := mat.NewDense(size, size, nil)
	availability := mat.NewDense(size, size, nil)

	exemplars := make([]bool, size)
	stable := 0
	converged := false

	for iteration := 0; iteration < a.cfg.MaxIterations && !converged; iteration++ {
		// Responsibility updates.
		for i := 0; i < size; i++ {
			best, second := math.Inf(-1), math.Inf(-1)
			bestIdx := -1
			for k := 0; k < size; k++ {
				value := availability.At(i, k) + s.At(i, k)
				switch {
				case value > best:
					second = best
					best = value
					bestIdx = k
				case value > second:
					second = value
				}
			}

			for k := 0; k < size; k++ {
				competitor := best
				if k == bestIdx {
					competitor = second
				}

				updated := s.At(i, k) - competitor
				responsibility.Set(i, k,
					a.cfg.Damping*responsibility.At(i, k)+(1-a.cfg.Damping)*updated)
			}
		}

		// Availability updates.
		for k := 0; k < size; k++ {
			var positiveSum float64
			for i := 0; i < size; i++ {
				if i != k && responsibility.At(i, k) > 0 {
					positiveSum += responsibility.At(i, k)
				}
			}

			for i := 0; i < size; i++ {
				var updated float64
				switch {
				case i == k:
					updated = positiveSum
				default:
					contribution := positiveSum
					if responsibility.At(i, k) > 0 {
						contribution -= responsibility.At(i, k)
					}
					updated = math.Min(0, responsibility.At(k, k)+contribution)
				}

				availability.Set(i, k,
					a.cfg.Damping*availability.At(i, k)+(1-a.cfg.Damping)*updated)
			}
		}

		// Convergence check on the stability of the exemplar set.
		changed := false
		for k := 0; k < size; k++ {
			isExemplar := responsibility.At(k, k)+availability.At(k, k) > 0
			if isExemplar != exemplars[k] {
				exemplars[k] = isExemplar
				changed = true
			}
		}

		switch {
		case changed:
			stable = 0
		default:
			stable++
		}

		converged = stable >= a.cfg.ConvergenceWindow
	}

	exemplarIndices := make([]int, 0, size)
	for k := 0; k < size; k++ {
		if exemplars[k] {
			exemplarIndices = append(exemplarIndices, k)
		}
	}

	if len(exemplarIndices) == 0 {
		return nil, 0, fmt.Errorf("affinity propagation identified no exemplars, " +
			"the similarities may be degenerate")
	}

	if !converged {
		return nil, 0, fmt.Errorf("affinity propagation failed to converge in %d iterations",
			a.cfg.MaxIterations)
	}

	// Assign every point to its most similar exemplar. Exemplars always
	// belong to their own cluster.
	labels := make([]int, size)
	for i := 0; i < size; i++ {
		best := math.Inf(-1)
		for label, k := range exemplarIndices {
			if i == k {
				labels[i] = label
				best = math.Inf(1)
				break
			}

			if s.At(i, k) > best {
				best = s.At(i, k)
				labels[i] = label
			}
		}
	}

	a.cfg.Logger.Info().Msgf("affinity propagation identified %d clusters", len(exemplarIndices))

	return labels, len(exemplarIndices), nil
}
