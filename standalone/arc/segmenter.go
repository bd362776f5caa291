package arc

import (
	"errors"
	"fmt"
	"math"
)

// Default tuning, matching common Marlin configurations
const (
	DefaultChordTolerance     = 1.0 // MM_PER_ARC_SEGMENT
	DefaultCorrectionInterval = 25  // N_ARC_CORRECTION
)

var (
	ErrChordTolerance     = errors.New("arc: chord tolerance must be > 0")
	ErrCorrectionInterval = errors.New("arc: correction interval must be >= 1")
)

// Segmenter splits arcs into line segments of roughly ChordTolerance length
type Segmenter struct {
	ChordTolerance     float64 // Target segment length (mm)
	CorrectionInterval int     // Approximate rotations between exact recomputations
}

// NewSegmenter creates a segmenter with the given tuning
func NewSegmenter(chordTolerance float64, correctionInterval int) (*Segmenter, error) {
	if !(chordTolerance > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrChordTolerance, chordTolerance)
	}
	if correctionInterval < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrCorrectionInterval, correctionInterval)
	}
	return &Segmenter{
		ChordTolerance:     chordTolerance,
		CorrectionInterval: correctionInterval,
	}, nil
}

// Geometry is the precomputed shape of one arc
type Geometry struct {
	CenterA float64
	CenterB float64

	AngularTravel float64 // Signed sweep, CCW positive (radians)
	LinearTravel  float64
	ExtrudeTravel float64
	PathLength    float64 // Helical length (mm)

	Segments int // 0 for a degenerate arc
}

// Plan computes the center, sweep, path length and segment count of req
func (s *Segmenter) Plan(req Request) Geometry {
	g := Geometry{
		CenterA:       req.Current[req.AxisA] + req.Offset[0],
		CenterB:       req.Current[req.AxisB] + req.Offset[1],
		LinearTravel:  req.Target[req.Linear] - req.Current[req.Linear],
		ExtrudeTravel: req.Target[AxisE] - req.Current[AxisE],
	}

	rA := -req.Offset[0]
	rB := -req.Offset[1]
	rtA := req.Target[req.AxisA] - g.CenterA
	rtB := req.Target[req.AxisB] - g.CenterB

	closed := req.Current[req.AxisA] == req.Target[req.AxisA] &&
		req.Current[req.AxisB] == req.Target[req.AxisB]

	switch {
	case closed && (req.Offset[0] != 0 || req.Offset[1] != 0):
		// Closed loop in the plane is a full circle; atan2 of the rounded
		// end vector would give a sweep of about ±1e-16 instead
		g.AngularTravel = 2 * math.Pi
		if req.Direction == Clockwise {
			g.AngularTravel = -2 * math.Pi
		}
	default:
		// CCW angle between the start and end radius vectors
		g.AngularTravel = math.Atan2(rA*rtB-rB*rtA, rA*rtA+rB*rtB)
		if g.AngularTravel < 0 {
			g.AngularTravel += 2 * math.Pi
		}
		if req.Direction == Clockwise {
			g.AngularTravel -= 2 * math.Pi
		}
	}

	g.PathLength = math.Hypot(g.AngularTravel*req.Radius, math.Abs(g.LinearTravel))
	if g.PathLength < MinPathLength {
		return g
	}

	g.Segments = int(math.Floor(g.PathLength / s.ChordTolerance))
	if g.Segments == 0 {
		g.Segments = 1
	}
	return g
}

// Segment emits req as line segments into sink and returns how many were
// emitted. Intermediate points go through clamp; the final point is
// req.Target, unclamped and bit-for-bit. A nil clamp disables clamping.
func (s *Segmenter) Segment(req Request, clamp Clamp, sink Sink) int {
	g := s.Plan(req)
	if g.Segments == 0 {
		return 0
	}
	if clamp == nil {
		clamp = NoClamp
	}

	n := float64(g.Segments)
	thetaPerSegment := g.AngularTravel / n
	linearPerSegment := g.LinearTravel / n
	extrudePerSegment := g.ExtrudeTravel / n

	rot := SmallAngle(thetaPerSegment)
	state := NewRotationState(req.Offset)

	target := req.Current
	for i := 1; i < g.Segments; i++ {
		state.Advance(i, thetaPerSegment, rot, req.Offset, s.CorrectionInterval)

		target[req.AxisA] = g.CenterA + state.R.X
		target[req.AxisB] = g.CenterB + state.R.Y
		target[req.Linear] += linearPerSegment
		target[AxisE] += extrudePerSegment

		sink.Enqueue(clamp.Clamp(target), req.FeedRate, req.Channel)
	}

	sink.Enqueue(req.Target, req.FeedRate, req.Channel)
	return g.Segments
}
