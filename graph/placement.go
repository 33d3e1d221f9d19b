package graph

import (
	"fmt"
	"math"
)

const (
	// labelNudge is the coordinate offset applied to a placed label.
	labelNudge = 0.002
	// selfDisplacement is the sentinel displacement assigned to the target
	// point so it can never be selected as its own nearest neighbor.
	selfDisplacement = 1.0
)

// HorizontalAlignment represents the horizontal anchor of a label.
type HorizontalAlignment int

const (
	AnchorLeft HorizontalAlignment = iota
	AnchorRight
)

// VerticalAlignment represents the vertical anchor of a label.
type VerticalAlignment int

const (
	AnchorBottom VerticalAlignment = iota
	AnchorTop
)

// Point represents a 2D embedding coordinate.
type Point struct {
	X float64
	Y float64
}

// LabelPlacement represents the resolved position and anchors of a node label.
type LabelPlacement struct {
	// X and Y are the nudged label coordinates.
	X float64
	Y float64
	// Horizontal is the horizontal anchor of the label text.
	Horizontal HorizontalAlignment
	// Vertical is the vertical anchor of the label text.
	Vertical VerticalAlignment
}

// PlaceLabel chooses the label position and anchors for the target point so
// the label leans away from its closest neighbors. The horizontal direction
// follows the displacement of the point nearest along the vertical axis, and
// the vertical direction follows the displacement of the point nearest along
// the horizontal axis.
func PlaceLabel(points []Point, target int) (LabelPlacement, error) {
	if len(points) < 2 {
		return LabelPlacement{}, fmt.Errorf("at least 2 points required for label placement, got %d",
			len(points))
	}
	if target < 0 || target >= len(points) {
		return LabelPlacement{}, fmt.Errorf("label placement target %d out of range [0, %d)",
			target, len(points))
	}

	dx := make([]float64, len(points))
	dy := make([]float64, len(points))
	for idx := range points {
		dx[idx] = points[idx].X - points[target].X
		dy[idx] = points[idx].Y - points[target].Y
	}

	// The target never competes as its own neighbor.
	dx[target] = selfDisplacement
	dy[target] = selfDisplacement

	minDX, minDY := target, target
	for idx := range points {
		if math.Abs(dx[idx]) < math.Abs(dx[minDX]) {
			minDX = idx
		}
		if math.Abs(dy[idx]) < math.Abs(dy[minDY]) {
			minDY = idx
		}
	}

	horizontalShift := dx[minDY]
	verticalShift := dy[minDX]

	placement := LabelPlacement{X: points[target].X, Y: points[target].Y}

	switch {
	case horizontalShift > 0:
		placement.Horizontal = AnchorLeft
		placement.X += labelNudge
	default:
		placement.Horizontal = AnchorRight
		placement.X -= labelNudge
	}

	switch {
	case verticalShift > 0:
		placement.Vertical = AnchorBottom
		placement.Y += labelNudge
	default:
		placement.Vertical = AnchorTop
		placement.Y -= labelNudge
	}

	return placement, nil
}
