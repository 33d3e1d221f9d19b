package graph

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot/palette"
)

// ColorStop represents a single stop of a discrete colorscale.
type ColorStop struct {
	// Position is the stop position in [0, 1].
	Position float64
	// Color is the sampled palette color at the stop.
	Color color.RGBA
	// RGB is the 8-bit rgb string form of the color.
	RGB string
}

// Colorscale samples the provided continuous colormap at n evenly spaced
// points in [0, 1] and returns the discrete color stops. At least 2 stops are
// required, a single stop has no defined step size.
func Colorscale(cmap palette.ColorMap, n int) ([]ColorStop, error) {
	if n <= 1 {
		return nil, fmt.Errorf("at least 2 colorscale stops required, got %d", n)
	}

	cmap.SetMin(0)
	cmap.SetMax(1)

	step := 1 / float64(n-1)
	stops := make([]ColorStop, 0, n)

	for idx := 0; idx < n; idx++ {
		position := float64(idx) * step
		if position > 1 {
			// Guard against accumulated rounding on the final stop.
			position = 1
		}

		sampled, err := cmap.At(position)
		if err != nil {
			return nil, fmt.Errorf("sampling colormap at %v: %w", position, err)
		}

		r, g, b, _ := sampled.RGBA()
		rgba := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}

		stops = append(stops, ColorStop{
			Position: position,
			Color:    rgba,
			RGB:      fmt.Sprintf("rgb(%d,%d,%d)", rgba.R, rgba.G, rgba.B),
		})
	}

	return stops, nil
}
