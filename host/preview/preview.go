// Package preview records segmented toolpaths, plots them and measures how
// far the segments stray from the ideal arc.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"arcmotion/standalone"
	"arcmotion/standalone/arc"
	"arcmotion/standalone/planner"
)

// ErrNoMoves is returned when there is nothing to plot
var ErrNoMoves = errors.New("preview: no moves recorded")

// Recorder collects planned moves; it implements planner.Executor
type Recorder struct {
	Moves []standalone.Move
	next  planner.Executor
}

// NewRecorder returns a recorder that forwards every move to next when non-nil
func NewRecorder(next planner.Executor) *Recorder {
	return &Recorder{next: next}
}

// Execute records a copy of move and forwards it
func (r *Recorder) Execute(ctx context.Context, move *standalone.Move) error {
	r.Moves = append(r.Moves, *move)
	if r.next != nil {
		return r.next.Execute(ctx, move)
	}
	return nil
}

// ParsePlane maps a plane name (xy, xz, yz, or G17/G18/G19) to its arc plane
func ParsePlane(name string) (arc.Plane, error) {
	switch strings.ToLower(name) {
	case "xy", "g17":
		return arc.PlaneXY, nil
	case "xz", "g18":
		return arc.PlaneXZ, nil
	case "yz", "g19":
		return arc.PlaneYZ, nil
	}
	return arc.PlaneXY, fmt.Errorf("preview: unknown plane %q", name)
}

// Path projects the toolpath onto plane: the first move's start followed by every end
func Path(moves []standalone.Move, plane arc.Plane) plotter.XYs {
	if len(moves) == 0 {
		return nil
	}
	a, b, _ := plane.Axes()
	pts := make(plotter.XYs, 0, len(moves)+1)
	start := moves[0].Start.Vector()
	pts = append(pts, plotter.XY{X: start[a], Y: start[b]})
	for _, m := range moves {
		end := m.End.Vector()
		pts = append(pts, plotter.XY{X: end[a], Y: end[b]})
	}
	return pts
}

// Render draws the toolpath projected onto plane and saves it to path.
// The image format follows the file extension (png, svg, pdf).
func Render(moves []standalone.Move, plane arc.Plane, path string) error {
	pts := Path(moves, plane)
	if len(pts) == 0 {
		return ErrNoMoves
	}

	names := [arc.NumAxes]string{"X", "Y", "Z", "E"}
	a, b, _ := plane.Axes()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Toolpath (%s, %d moves)", plane, len(moves))
	p.X.Label.Text = names[a] + " (mm)"
	p.Y.Label.Text = names[b] + " (mm)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)

	vertices, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	vertices.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(vertices)

	// Same scale on both axes so circles stay round
	lo := math.Min(p.X.Min, p.Y.Min)
	hi := math.Max(p.X.Max, p.Y.Max)
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min, p.Y.Max = lo, hi

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Report summarizes how a segmented arc deviates from the true arc
type Report struct {
	Geometry arc.Geometry

	MaxRadial  float64 // Largest |distance from center - radius| over emitted points
	MeanRadial float64
	MaxSagitta float64 // Largest chord midpoint distance inside the circle

	EndpointExact bool // Last emitted point equals the requested target
}

// Deviation segments req with s and measures the emitted points against the ideal circle
func Deviation(req arc.Request, s *arc.Segmenter) (Report, error) {
	rep := Report{Geometry: s.Plan(req)}
	if rep.Geometry.Segments == 0 {
		return rep, ErrNoMoves
	}

	center := r2.Vec{X: rep.Geometry.CenterA, Y: rep.Geometry.CenterB}
	prev := r2.Vec{X: req.Current[req.AxisA], Y: req.Current[req.AxisB]}
	radial := make([]float64, 0, rep.Geometry.Segments)
	sagitta := make([]float64, 0, rep.Geometry.Segments)
	var last arc.AxisVector

	s.Segment(req, arc.NoClamp, arc.SinkFunc(func(target arc.AxisVector, _ float64, _ int) {
		p := r2.Vec{X: target[req.AxisA], Y: target[req.AxisB]}
		radial = append(radial, math.Abs(r2.Norm(r2.Sub(p, center))-req.Radius))

		mid := r2.Scale(0.5, r2.Add(prev, p))
		sagitta = append(sagitta, req.Radius-r2.Norm(r2.Sub(mid, center)))

		prev = p
		last = target
	}))

	rep.MaxRadial = floats.Max(radial)
	rep.MeanRadial = stat.Mean(radial, nil)
	rep.MaxSagitta = floats.Max(sagitta)
	rep.EndpointExact = last == req.Target
	return rep, nil
}
