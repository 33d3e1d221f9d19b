package analysis

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func TestGraphicalLassoCV(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure invalid configs are rejected.
	_, err := NewGraphicalLassoCV(&GraphicalLassoCVConfig{})
	assert.Error(t, err)

	_, err = NewGraphicalLassoCV(&GraphicalLassoCVConfig{Alphas: 1, Logger: &logger})
	assert.Error(t, err)

	_, err = NewGraphicalLassoCV(&GraphicalLassoCVConfig{Folds: 1, Logger: &logger})
	assert.Error(t, err)

	estimator, err := NewGraphicalLassoCV(&GraphicalLassoCVConfig{
		Alphas: 5,
		Folds:  3,
		Logger: &logger,
	})
	assert.NoError(t, err)

	// Ensure too few observations for the fold count is an error.
	_, _, err = estimator.Fit(mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Error(t, err)

	samples := correlatedSamples(120)
	covariance, precision, err := estimator.Fit(samples)
	assert.NoError(t, err)

	assert.Equal(t, covariance.SymmetricDim(), 4)
	assert.Equal(t, precision.SymmetricDim(), 4)

	// Ensure a regularization strength was selected from the grid.
	if estimator.Alpha <= 0 {
		t.Errorf("expected a positive selected regularization strength, got %v", estimator.Alpha)
	}
}

func TestAlphaGrid(t *testing.T) {
	empirical := mat.NewSymDense(2, []float64{
		1, 0.5,
		0.5, 1,
	})

	grid := alphaGrid(empirical, 10)
	assert.Equal(t, len(grid), 10)

	// Ensure the grid is ascending and capped by the largest off-diagonal entry.
	for idx := 1; idx < len(grid); idx++ {
		if grid[idx] <= grid[idx-1] {
			t.Errorf("expected an ascending grid, got %v <= %v", grid[idx], grid[idx-1])
		}
	}

	if grid[len(grid)-1] > 0.5+1e-12 {
		t.Errorf("expected the grid to be capped at 0.5, got %v", grid[len(grid)-1])
	}
}

func TestFoldSplit(t *testing.T) {
	samples := mat.NewDense(10, 2, nil)
	for row := 0; row < 10; row++ {
		samples.Set(row, 0, float64(row))
		samples.Set(row, 1, float64(row))
	}

	train, test := foldSplit(samples, 3, 0)
	trainRows, _ := train.Dims()
	testRows, _ := test.Dims()
	assert.Equal(t, trainRows, 7)
	assert.Equal(t, testRows, 3)
	assert.Equal(t, test.At(0, 0), float64(0))
	assert.Equal(t, train.At(0, 0), float64(3))

	// The final fold absorbs the remainder rows.
	train, test = foldSplit(samples, 3, 2)
	trainRows, _ = train.Dims()
	testRows, _ = test.Dims()
	assert.Equal(t, trainRows, 6)
	assert.Equal(t, testRows, 4)
	assert.Equal(t, test.At(0, 0), float64(6))
}
