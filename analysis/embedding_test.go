package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// curvePoints builds points along a gently curved path in three dimensions.
func curvePoints(count int) *mat.Dense {
	rng := rand.New(rand.NewSource(7))

	points := mat.NewDense(count, 3, nil)
	for row := 0; row < count; row++ {
		t := float64(row) / float64(count)
		points.Set(row, 0, t+0.01*rng.NormFloat64())
		points.Set(row, 1, math.Sin(t)+0.01*rng.NormFloat64())
		points.Set(row, 2, t*t+0.01*rng.NormFloat64())
	}

	return points
}

func TestLocallyLinearEmbedding(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure invalid configs are rejected.
	_, err := NewLocallyLinearEmbedding(&LocallyLinearEmbeddingConfig{})
	assert.Error(t, err)

	_, err = NewLocallyLinearEmbedding(&LocallyLinearEmbeddingConfig{
		Regularization: -1,
		Logger:         &logger,
	})
	assert.Error(t, err)

	embedder, err := NewLocallyLinearEmbedding(&LocallyLinearEmbeddingConfig{Logger: &logger})
	assert.NoError(t, err)

	// Ensure a neighborhood larger than the point set is an error.
	_, err = embedder.Embed(curvePoints(5))
	assert.Error(t, err)

	coordinates, err := embedder.Embed(curvePoints(20))
	assert.NoError(t, err)

	rows, cols := coordinates.Dims()
	assert.Equal(t, rows, 20)
	assert.Equal(t, cols, 2)

	// Ensure the embedding contains no degenerate values.
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			value := coordinates.At(row, col)
			if math.IsNaN(value) || math.IsInf(value, 0) {
				t.Errorf("degenerate embedding coordinate at (%d,%d): %v", row, col, value)
			}
		}
	}
}

func TestNearestNeighbors(t *testing.T) {
	points := mat.NewDense(4, 1, []float64{0, 1, 10, 2})

	neighbors := nearestNeighbors(points, 0, 2)
	assert.Equal(t, len(neighbors), 2)
	assert.Equal(t, neighbors[0], 1)
	assert.Equal(t, neighbors[1], 3)

	// The target itself is never a neighbor.
	for idx := range neighbors {
		assert.NotEqual(t, neighbors[idx], 0)
	}
}
