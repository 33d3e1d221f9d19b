package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dnldd/marketgraph/shared"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

const (
	// defaultNeighbors is the default neighborhood size.
	defaultNeighbors = 6
	// defaultComponents is the default embedding dimension.
	defaultComponents = 2
	// defaultRegularization is the default local weight solve regularization.
	defaultRegularization = 1e-3
)

// LocallyLinearEmbeddingConfig represents the configuration for the locally
// linear embedder.
type LocallyLinearEmbeddingConfig struct {
	// Neighbors is the neighborhood size used for local reconstruction.
	Neighbors int
	// Components is the embedding dimension.
	Components int
	// Regularization conditions the local gram matrices before solving.
	Regularization float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *LocallyLinearEmbeddingConfig) Validate() error {
	var errs error

	if cfg.Neighbors == 0 {
		cfg.Neighbors = defaultNeighbors
	}
	if cfg.Neighbors < 1 {
		errs = errors.Join(errs, fmt.Errorf("neighborhood size must be positive"))
	}
	if cfg.Components == 0 {
		cfg.Components = defaultComponents
	}
	if cfg.Components < 1 {
		errs = errors.Join(errs, fmt.Errorf("embedding dimension must be positive"))
	}
	if cfg.Regularization == 0 {
		cfg.Regularization = defaultRegularization
	}
	if cfg.Regularization < 0 {
		errs = errors.Join(errs, fmt.Errorf("regularization cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// LocallyLinearEmbedding embeds high-dimensional points in a lower dimension
// while preserving local neighborhood structure: each point is reconstructed
// as a weighted combination of its nearest neighbors, and coordinates are
// chosen so the same weights still reconstruct it in the low dimension.
type LocallyLinearEmbedding struct {
	cfg *LocallyLinearEmbeddingConfig
}

// Ensure the LocallyLinearEmbedding implements the Embedder interface.
var _ shared.Embedder = (*LocallyLinearEmbedding)(nil)

// NewLocallyLinearEmbedding initializes a new locally linear embedder.
func NewLocallyLinearEmbedding(cfg *LocallyLinearEmbeddingConfig) (*LocallyLinearEmbedding, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating locally linear embedding config: %w", err)
	}

	return &LocallyLinearEmbedding{cfg: cfg}, nil
}

// nearestNeighbors returns the indices of the k nearest points to the target,
// by euclidean distance, ties broken by index order.
func nearestNeighbors(points *mat.Dense, target int, k int) []int {
	rows, cols := points.Dims()

	type neighbor struct {
		index    int
		distance float64
	}

	neighbors := make([]neighbor, 0, rows-1)
	for row := 0; row < rows; row++ {
		if row == target {
			continue
		}

		var distance float64
		for col := 0; col < cols; col++ {
			diff := points.At(target, col) - points.At(row, col)
			distance += diff * diff
		}

		neighbors = append(neighbors, neighbor{index: row, distance: distance})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})

	indices := make([]int, k)
	for idx := 0; idx < k; idx++ {
		indices[idx] = neighbors[idx].index
	}

	return indices
}

// localWeights solves for the reconstruction weights of the target point from
// its neighbors.
func (l *LocallyLinearEmbedding) localWeights(points *mat.Dense, target int, neighbors []int) ([]float64, error) {
	_, cols := points.Dims()
	k := len(neighbors)

	// Local gram matrix of the neighbor displacement vectors.
	gram := mat.NewDense(k, k, nil)
	var trace float64
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			var dot float64
			for col := 0; col < cols; col++ {
				da := points.At(target, col) - points.At(neighbors[a], col)
				db := points.At(target, col) - points.At(neighbors[b], col)
				dot += da * db
			}

			gram.Set(a, b, dot)
			gram.Set(b, a, dot)
			if a == b {
				trace += dot
			}
		}
	}

	// Condition the gram matrix, it is singular whenever the neighborhood is
	// larger than the ambient dimension.
	ridge := l.cfg.Regularization
	if trace > 0 {
		ridge *= trace
	}
	for a := 0; a < k; a++ {
		gram.Set(a, a, gram.At(a, a)+ridge)
	}

	ones := mat.NewVecDense(k, nil)
	for a := 0; a < k; a++ {
		ones.SetVec(a, 1)
	}

	var weights mat.VecDense
	err := weights.SolveVec(gram, ones)
	if err != nil {
		return nil, fmt.Errorf("solving local weights for point %d: %w", target, err)
	}

	var sum float64
	for a := 0; a < k; a++ {
		sum += weights.AtVec(a)
	}
	if sum == 0 {
		return nil, fmt.Errorf("local weights for point %d sum to zero", target)
	}

	normalized := make([]float64, k)
	for a := 0; a < k; a++ {
		normalized[a] = weights.AtVec(a) / sum
	}

	return normalized, nil
}

// Embed computes a low-dimensional coordinate for every point. Points are rows
// of the provided matrix; the result has one row per point and one column per
// embedding component.
func (l *LocallyLinearEmbedding) Embed(points *mat.Dense) (*mat.Dense, error) {
	rows, _ := points.Dims()

	if l.cfg.Neighbors >= rows {
		return nil, fmt.Errorf("neighborhood size %d must be smaller than the number "+
			"of points %d", l.cfg.Neighbors, rows)
	}
	if rows < l.cfg.Components+2 {
		return nil, fmt.Errorf("at least %d points required for a %d dimensional "+
			"embedding, got %d", l.cfg.Components+2, l.cfg.Components, rows)
	}

	// Reconstruction weight matrix.
	weights := mat.NewDense(rows, rows, nil)
	for row := 0; row < rows; row++ {
		neighbors := nearestNeighbors(points, row, l.cfg.Neighbors)

		local, err := l.localWeights(points, row, neighbors)
		if err != nil {
			return nil, err
		}

		for idx := range neighbors {
			weights.Set(row, neighbors[idx], local[idx])
		}
	}

	// Embedding cost matrix (I - W)' (I - W).
	identityMinusW := mat.NewDense(rows, rows, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			value := -weights.At(i, j)
			if i == j {
				value++
			}
			identityMinusW.Set(i, j, value)
		}
	}

	var cost mat.Dense
	cost.Mul(identityMinusW.T(), identityMinusW)

	symmetric := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			symmetric.SetSym(i, j, (cost.At(i, j)+cost.At(j, i))/2)
		}
	}

	var eigen mat.EigenSym
	if !eigen.Factorize(symmetric, true) {
		return nil, fmt.Errorf("eigendecomposition of the embedding cost matrix failed")
	}

	var vectors mat.Dense
	eigen.VectorsTo(&vectors)

	// Eigenvalues are in ascending order; the bottom eigenvector is the
	// constant mode and is discarded.
	coordinates := mat.NewDense(rows, l.cfg.Components, nil)
	for component := 0; component < l.cfg.Components; component++ {
		for row := 0; row < rows; row++ {
			coordinates.Set(row, component, vectors.At(row, component+1))
		}
	}

	return coordinates, nil
}
