package text

import "math"

// OutlinePoint represents a point in a glyph outline.
type OutlinePoint struct {
	X, Y float32
}

// OutlineSegment represents a segment of a glyph outline.
type OutlineSegment struct {
	// Op is the segment operation type.
	Op OutlineOp

	// Points contains the control and end points for this segment.
	// - MoveTo: Points[0] is the target point
	// - LineTo: Points[0] is the target point
	// - QuadTo: Points[0] is control, Points[1] is target
	// - CubicTo: Points[0], Points[1] are controls, Points[2] is target
	Points [3]OutlinePoint
}

// OutlineOp is the type of path operation.
type OutlineOp uint8

const (
	// OutlineOpMoveTo moves to a new point without drawing.
	OutlineOpMoveTo OutlineOp = iota

	// OutlineOpLineTo draws a line to the target point.
	OutlineOpLineTo

	// OutlineOpQuadTo draws a quadratic bezier curve.
	OutlineOpQuadTo

	// OutlineOpCubicTo draws a cubic bezier curve.
	OutlineOpCubicTo
)

// String returns a string representation of the operation.
func (op OutlineOp) String() string {
	switch op {
	case OutlineOpMoveTo:
		return "MoveTo"
	case OutlineOpLineTo:
		return "LineTo"
	case OutlineOpQuadTo:
		return "QuadTo"
	case OutlineOpCubicTo:
		return "CubicTo"
	default:
		return "Unknown"
	}
}

// points returns the points used by the segment's operation.
func (s OutlineSegment) points() []OutlinePoint {
	switch s.Op {
	case OutlineOpQuadTo:
		return s.Points[:2]
	case OutlineOpCubicTo:
		return s.Points[:3]
	default:
		return s.Points[:1]
	}
}

// GlyphOutline is the vector outline of one glyph in font units, y up.
type GlyphOutline struct {
	Segments []OutlineSegment
}

// IsEmpty returns true if the outline has no segments.
func (o GlyphOutline) IsEmpty() bool {
	return len(o.Segments) == 0
}

// Bounds returns the bounding box of all points of the outline, control
// points included. An empty outline returns all zeros.
func (o GlyphOutline) Bounds() (minX, minY, maxX, maxY float32) {
	if o.IsEmpty() {
		return 0, 0, 0, 0
	}
	minX, minY = math.MaxFloat32, math.MaxFloat32
	maxX, maxY = -math.MaxFloat32, -math.MaxFloat32
	for _, seg := range o.Segments {
		for _, p := range seg.points() {
			minX = min(minX, p.X)
			minY = min(minY, p.Y)
			maxX = max(maxX, p.X)
			maxY = max(maxY, p.Y)
		}
	}
	return minX, minY, maxX, maxY
}
