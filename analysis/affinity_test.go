package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// blobSimilarity builds a negative squared distance similarity matrix for
// three well separated groups of four 1d points.
func blobSimilarity() *mat.SymDense {
	points := []float64{
		0, 0.1, 0.2, 0.3,
		5, 5.1, 5.2, 5.3,
		10, 10.1, 10.2, 10.3,
	}

	similarity := mat.NewSymDense(len(points), nil)
	for i := range points {
		for j := i; j < len(points); j++ {
			diff := points[i] - points[j]
			similarity.SetSym(i, j, -diff*diff)
		}
	}

	return similarity
}

func TestAffinityPropagation(t *testing.T) {
	logger := zerolog.Nop()

	// Ensure invalid configs are rejected.
	_, err := NewAffinityPropagation(&AffinityPropagationConfig{})
	assert.Error(t, err)

	_, err = NewAffinityPropagation(&AffinityPropagationConfig{Damping: 0.3, Logger: &logger})
	assert.Error(t, err)

	clusterer, err := NewAffinityPropagation(&AffinityPropagationConfig{Logger: &logger})
	assert.NoError(t, err)

	// Ensure a single point cannot be clustered.
	_, _, err = clusterer.Cluster(mat.NewSymDense(1, []float64{1}))
	assert.Error(t, err)

	similarity := blobSimilarity()
	labels, clusters, err := clusterer.Cluster(similarity)
	assert.NoError(t, err)

	// Every point receives exactly one label, and every label addresses an
	// identified cluster.
	assert.Equal(t, len(labels), 12)
	for idx := range labels {
		if labels[idx] < 0 || labels[idx] >= clusters {
			t.Errorf("point %d: label %d out of range [0, %d)", idx, labels[idx], clusters)
		}
	}

	// The three separated groups form three clusters.
	assert.Equal(t, clusters, 3)
	for group := 0; group < 3; group++ {
		first := labels[group*4]
		for offset := 1; offset < 4; offset++ {
			assert.Equal(t, labels[group*4+offset], first)
		}
	}
	assert.NotEqual(t, labels[0], labels[4])
	assert.NotEqual(t, labels[4], labels[8])
	assert.NotEqual(t, labels[0], labels[8])

	// Clustering is deterministic for identical inputs.
	again, againClusters, err := clusterer.Cluster(blobSimilarity())
	assert.NoError(t, err)
	assert.Equal(t, againClusters, clusters)
	if !cmp.Equal(labels, again) {
		t.Errorf("expected identical labels across runs: %v", cmp.Diff(labels, again))
	}
}

func TestMedianPreference(t *testing.T) {
	similarity := mat.NewSymDense(3, []float64{
		0, -1, -2,
		-1, 0, -4,
		-2, -4, 0,
	})

	// Off-diagonal values are -1, -1, -2, -2, -4, -4, the median is -2.
	assert.Equal(t, medianPreference(similarity), float64(-2))
}
