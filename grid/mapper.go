package grid

import (
	"math"

	"github.com/pkg/errors"
)

// NoTank marks a point that falls outside every tank.
const NoTank = 0

// Point is a position in video pixel coordinates.
type Point struct {
	X, Y float64
}

// Mapper classifies pixel positions into tanks for one video frame size.
// It is immutable once built.
type Mapper struct {
	width, height float64
	cols, rows    int
	thickness     int
	forward       Affine
	inverse       Affine
}

// NewMapper builds the forward and inverse transforms for a width x height frame.
func NewMapper(s Settings, width, height int) (*Mapper, error) {
	if s.Grid == nil || s.Transform == nil {
		return nil, errors.New("grid settings are incomplete")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", width, height)
	}
	if s.Grid.Cols < 1 || s.Grid.Rows < 1 {
		return nil, errors.Errorf("invalid grid %dx%d", s.Grid.Cols, s.Grid.Rows)
	}
	w, h := float64(width), float64(height)
	fwd := forwardTransform(*s.Transform, w, h)
	inv, err := fwd.Invert()
	if err != nil {
		return nil, err
	}
	thickness := s.Grid.LineThickness
	if thickness <= 0 {
		thickness = DefaultLineThickness
	}
	return &Mapper{
		width:     w,
		height:    h,
		cols:      s.Grid.Cols,
		rows:      s.Grid.Rows,
		thickness: thickness,
		forward:   fwd,
		inverse:   inv,
	}, nil
}

// Forward maps grid space to pixel space.
func (m *Mapper) Forward() Affine { return m.forward }

// Inverse maps pixel space to grid space.
func (m *Mapper) Inverse() Affine { return m.inverse }

// NumTanks is cols*rows.
func (m *Mapper) NumTanks() int { return m.cols * m.rows }

// Size returns the frame size the mapper was built for.
func (m *Mapper) Size() (int, int) { return int(m.width), int(m.height) }

// LineThickness is the grid line width in pixels for renderers.
func (m *Mapper) LineThickness() int { return m.thickness }

// Classify returns the 1-based tank index containing (x, y), or NoTank.
// Tanks are numbered row-major from the top-left cell of the untransformed grid.
func (m *Mapper) Classify(x, y float64) int {
	tx, ty := m.inverse.Apply(x, y)
	// also rejects NaN
	if !(tx >= 0 && tx < m.width && ty >= 0 && ty < m.height) {
		return NoTank
	}
	col := int(math.Floor(tx / (m.width / float64(m.cols))))
	row := int(math.Floor(ty / (m.height / float64(m.rows))))
	col = clamp(col, 0, m.cols-1)
	row = clamp(row, 0, m.rows-1)
	return row*m.cols + col + 1
}

// CellPolygon returns the pixel-space corners of a tank, clockwise from the
// cell's top-left corner.
func (m *Mapper) CellPolygon(tank int) [4]Point {
	if tank < 1 || tank > m.NumTanks() {
		return [4]Point{}
	}
	cw, ch := m.width/float64(m.cols), m.height/float64(m.rows)
	row, col := (tank-1)/m.cols, (tank-1)%m.cols
	x0, y0 := float64(col)*cw, float64(row)*ch
	x1, y1 := x0+cw, y0+ch
	return [4]Point{m.apply(x0, y0), m.apply(x1, y0), m.apply(x1, y1), m.apply(x0, y1)}
}

// CellCenter returns the pixel-space centre of a tank.
func (m *Mapper) CellCenter(tank int) Point {
	if tank < 1 || tank > m.NumTanks() {
		return Point{}
	}
	cw, ch := m.width/float64(m.cols), m.height/float64(m.rows)
	row, col := (tank-1)/m.cols, (tank-1)%m.cols
	return m.apply((float64(col)+0.5)*cw, (float64(row)+0.5)*ch)
}

// GridLines returns every vertical then horizontal grid line, border included,
// mapped to pixel space.
func (m *Mapper) GridLines() [][2]Point {
	lines := make([][2]Point, 0, m.cols+m.rows+2)
	for c := 0; c <= m.cols; c++ {
		x := float64(c) * m.width / float64(m.cols)
		lines = append(lines, [2]Point{m.apply(x, 0), m.apply(x, m.height)})
	}
	for r := 0; r <= m.rows; r++ {
		y := float64(r) * m.height / float64(m.rows)
		lines = append(lines, [2]Point{m.apply(0, y), m.apply(m.width, y)})
	}
	return lines
}

func (m *Mapper) apply(x, y float64) Point {
	px, py := m.forward.Apply(x, y)
	return Point{px, py}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
