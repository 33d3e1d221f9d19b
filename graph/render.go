package graph

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

const (
	// canvasSize is the rendered plot width and height.
	canvasSize = 10 * vg.Inch
	// edgeWidthScale converts a partial correlation magnitude to a stroke width.
	edgeWidthScale = 15
	// minColorStops is the smallest colorscale sample count with a defined step.
	minColorStops = 2
)

// nodeRadius is the rendered node glyph radius.
var nodeRadius = vg.Points(6)

// RendererConfig represents the configuration for the graph renderer.
type RendererConfig struct {
	// Names are the node display names, in node order.
	Names []string
	// EdgeCutoff is the minimum partial correlation magnitude drawn as an edge.
	EdgeCutoff float64
	// OutputPath is the output image filepath, format derived from its extension.
	OutputPath string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *RendererConfig) Validate() error {
	var errs error

	if len(cfg.Names) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no node names provided for renderer"))
	}
	if cfg.EdgeCutoff < 0 {
		errs = errors.Join(errs, fmt.Errorf("edge cutoff cannot be negative"))
	}
	if cfg.OutputPath == "" {
		errs = errors.Join(errs, fmt.Errorf("output path cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Renderer renders the clustered instrument graph: nodes at their embedding
// coordinates colored by cluster, edges weighted by partial correlation
// magnitude, and labels anchored away from their nearest neighbors.
type Renderer struct {
	cfg *RendererConfig
}

// NewRenderer initializes a new graph renderer.
func NewRenderer(cfg *RendererConfig) (*Renderer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating renderer config: %w", err)
	}

	return &Renderer{cfg: cfg}, nil
}

// addEdges draws an edge for every pair of nodes whose partial correlation
// magnitude clears the cutoff, stroke width scaled by the magnitude.
func (r *Renderer) addEdges(p *plot.Plot, points []Point, partials *mat.SymDense) (int, error) {
	size := partials.SymmetricDim()
	edges := 0

	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			magnitude := math.Abs(partials.At(i, j))
			if magnitude <= r.cfg.EdgeCutoff {
				continue
			}

			line, err := plotter.NewLine(plotter.XYs{
				{X: points[i].X, Y: points[i].Y},
				{X: points[j].X, Y: points[j].Y},
			})
			if err != nil {
				return 0, fmt.Errorf("creating edge %d-%d: %w", i, j, err)
			}

			line.LineStyle.Width = vg.Points(edgeWidthScale * magnitude)
			line.LineStyle.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
			p.Add(line)
			edges++
		}
	}

	return edges, nil
}

// addNodes draws one scatter per cluster, colored from the sampled colorscale.
func (r *Renderer) addNodes(p *plot.Plot, points []Point, labels []int, stops []ColorStop) error {
	clusters := make(map[int]plotter.XYs)
	for idx := range points {
		clusters[labels[idx]] = append(clusters[labels[idx]],
			plotter.XY{X: points[idx].X, Y: points[idx].Y})
	}

	for label, xys := range clusters {
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("creating cluster %d scatter: %w", label, err)
		}

		scatter.GlyphStyle.Radius = nodeRadius
		scatter.GlyphStyle.Color = stops[label%len(stops)].Color
		p.Add(scatter)
	}

	return nil
}

// addLabels draws node labels using the placement heuristic.
func (r *Renderer) addLabels(p *plot.Plot, points []Point) error {
	xys := make(plotter.XYs, len(points))
	names := make([]string, len(points))
	placements := make([]LabelPlacement, len(points))

	for idx := range points {
		placement, err := PlaceLabel(points, idx)
		if err != nil {
			return fmt.Errorf("placing label for %s: %w", r.cfg.Names[idx], err)
		}

		placements[idx] = placement
		xys[idx] = plotter.XY{X: placement.X, Y: placement.Y}
		names[idx] = r.cfg.Names[idx]
	}

	nodeLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return fmt.Errorf("creating node labels: %w", err)
	}

	for idx := range placements {
		switch placements[idx].Horizontal {
		case AnchorLeft:
			nodeLabels.TextStyle[idx].XAlign = text.XLeft
		case AnchorRight:
			nodeLabels.TextStyle[idx].XAlign = text.XRight
		}

		switch placements[idx].Vertical {
		case AnchorBottom:
			nodeLabels.TextStyle[idx].YAlign = text.YBottom
		case AnchorTop:
			nodeLabels.TextStyle[idx].YAlign = text.YTop
		}
	}

	p.Add(nodeLabels)

	return nil
}

// Render renders the clustered instrument graph to the configured output path.
func (r *Renderer) Render(coordinates *mat.Dense, labels []int, clusters int, partials *mat.SymDense) error {
	rows, cols := coordinates.Dims()

	if cols != 2 {
		return fmt.Errorf("renderer requires 2d coordinates, got %d dimensions", cols)
	}
	if rows != len(r.cfg.Names) {
		return fmt.Errorf("coordinate count %d does not match node name count %d",
			rows, len(r.cfg.Names))
	}
	if rows != len(labels) {
		return fmt.Errorf("coordinate count %d does not match label count %d", rows, len(labels))
	}
	if partials.SymmetricDim() != rows {
		return fmt.Errorf("partial correlation dimension %d does not match node count %d",
			partials.SymmetricDim(), rows)
	}

	points := make([]Point, rows)
	for idx := range points {
		points[idx] = Point{X: coordinates.At(idx, 0), Y: coordinates.At(idx, 1)}
	}

	samples := clusters
	if samples < minColorStops {
		samples = minColorStops
	}

	stops, err := Colorscale(moreland.Kindlmann(), samples)
	if err != nil {
		return fmt.Errorf("sampling cluster colorscale: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Market structure"
	p.HideAxes()

	edges, err := r.addEdges(p, points, partials)
	if err != nil {
		return err
	}

	err = r.addNodes(p, points, labels, stops)
	if err != nil {
		return err
	}

	err = r.addLabels(p, points)
	if err != nil {
		return err
	}

	err = p.Save(canvasSize, canvasSize, r.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("saving graph to %s: %w", r.cfg.OutputPath, err)
	}

	r.cfg.Logger.Info().Msgf("rendered %d nodes and %d edges to %s", rows, edges, r.cfg.OutputPath)

	return nil
}
