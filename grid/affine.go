package grid

import (
	"math"

	"github.com/pkg/errors"
)

// ErrNonInvertible is returned when a grid transform collapses the plane.
var ErrNonInvertible = errors.New("grid transform is not invertible")

// Affine is a 2D affine transform mapping (x, y) to
// (A*x + B*y + C, D*x + E*y + F).
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Apply maps a point.
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

// Mul returns the composition m·n: n is applied first, then m.
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A: m.A*n.A + m.B*n.D,
		B: m.A*n.B + m.B*n.E,
		C: m.A*n.C + m.B*n.F + m.C,
		D: m.D*n.A + m.E*n.D,
		E: m.D*n.B + m.E*n.E,
		F: m.D*n.C + m.E*n.F + m.F,
	}
}

// Translate appends a translation, applied to points before m.
func (m Affine) Translate(dx, dy float64) Affine {
	return m.Mul(Affine{A: 1, C: dx, E: 1, F: dy})
}

// Rotate appends a rotation by deg degrees (clockwise on screen, where y grows downwards).
func (m Affine) Rotate(deg float64) Affine {
	s, c := math.Sincos(deg * math.Pi / 180)
	return m.Mul(Affine{A: c, B: -s, D: s, E: c})
}

// Scale appends a per-axis scale.
func (m Affine) Scale(sx, sy float64) Affine {
	return m.Mul(Affine{A: sx, E: sy})
}

// Det is the determinant of the linear part.
func (m Affine) Det() float64 {
	return m.A*m.E - m.B*m.D
}

// Invert returns the inverse transform, or ErrNonInvertible.
func (m Affine) Invert() (Affine, error) {
	det := m.Det()
	if math.Abs(det) < 1e-12 || math.IsNaN(det) {
		return Affine{}, ErrNonInvertible
	}
	a, b := m.E/det, -m.B/det
	d, e := -m.D/det, m.A/det
	return Affine{
		A: a, B: b, C: -(a*m.C + b*m.F),
		D: d, E: e, F: -(d*m.C + e*m.F),
	}, nil
}

func forwardTransform(t GridTransform, width, height float64) Affine {
	return Identity().
		Translate(width*t.CenterX, height*t.CenterY).
		Rotate(t.Angle).
		Scale(t.ScaleX, t.ScaleY).
		Translate(-width/2, -height/2)
}
