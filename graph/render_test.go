package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func TestRenderer(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure invalid configs are rejected.
	_, err := NewRenderer(&RendererConfig{})
	assert.Error(t, err)

	outputPath := filepath.Join(t.TempDir(), "structure.svg")
	renderer, err := NewRenderer(&RendererConfig{
		Names:      []string{"Exxon", "Chevron", "Apple", "Microsoft"},
		EdgeCutoff: 0.02,
		OutputPath: outputPath,
		Logger:     &logger,
	})
	assert.NoError(t, err)

	coordinates := mat.NewDense(4, 2, []float64{
		-0.1, -0.1,
		-0.12, -0.08,
		0.1, 0.1,
		0.12, 0.09,
	})
	labels := []int{0, 0, 1, 1}
	partials := mat.NewSymDense(4, []float64{
		0, 0.4, 0.01, 0,
		0.4, 0, 0, 0.01,
		0.01, 0, 0, 0.3,
		0, 0.01, 0.3, 0,
	})

	// Ensure mismatched inputs are errors.
	err = renderer.Render(mat.NewDense(4, 3, nil), labels, 2, partials)
	assert.Error(t, err)

	err = renderer.Render(mat.NewDense(3, 2, nil), labels[:3], 2, partials)
	assert.Error(t, err)

	err = renderer.Render(coordinates, labels[:3], 2, partials)
	assert.Error(t, err)

	// Ensure a well formed graph renders to the output path.
	err = renderer.Render(coordinates, labels, 2, partials)
	assert.NoError(t, err)

	info, err := os.Stat(outputPath)
	assert.NoError(t, err)
	if info.Size() == 0 {
		t.Error("expected a non-empty rendered graph")
	}
}
