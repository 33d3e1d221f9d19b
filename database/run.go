package database

import (
	"time"

	"github.com/google/uuid"
)

// Membership represents the cluster assignment of one instrument in a run.
type Membership struct {
	// Symbol is the instrument's ticker symbol.
	Symbol string
	// Name is the instrument's display name.
	Name string
	// Label is the assigned cluster label.
	Label int
}

// Edge represents a conditional dependency edge between two instruments.
type Edge struct {
	// Source is the source instrument symbol.
	Source string
	// Target is the target instrument symbol.
	Target string
	// Weight is the partial correlation of the pair.
	Weight float64
}

// Run represents a completed structure analysis run.
type Run struct {
	// ID uniquely identifies the run.
	ID string
	// Start is the start of the analyzed window.
	Start time.Time
	// End is the end of the analyzed window.
	End time.Time
	// Alpha is the regularization strength used by the covariance estimator.
	Alpha float64
	// Clusters is the number of identified clusters.
	Clusters int
	// Members are the per-instrument cluster assignments.
	Members []Membership
	// Edges are the rendered conditional dependency edges.
	Edges []Edge
	// CreatedOn is the run creation time.
	CreatedOn time.Time
}

// NewRun initializes a new analysis run with a unique id.
func NewRun(start time.Time, end time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Start:     start,
		End:       end,
		CreatedOn: time.Now().UTC(),
	}
}
