package grid

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func identitySettings(cols, rows int) Settings {
	return Settings{
		Grid:      &GridSettings{Cols: cols, Rows: rows, LineThickness: 2},
		Transform: &GridTransform{CenterX: 0.5, CenterY: 0.5, ScaleX: 1, ScaleY: 1},
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)
	return path
}

func TestClassifyIdentity(t *testing.T) {
	m, err := NewMapper(identitySettings(2, 1), 200, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumTanks(), test.ShouldEqual, 2)
	test.That(t, m.Classify(40, 50), test.ShouldEqual, 1)
	test.That(t, m.Classify(160, 50), test.ShouldEqual, 2)
	test.That(t, m.Classify(100, -5), test.ShouldEqual, NoTank)
	test.That(t, m.Classify(200, 50), test.ShouldEqual, NoTank)
	test.That(t, m.Classify(math.NaN(), 50), test.ShouldEqual, NoTank)
	// the right border is exclusive, the left one inclusive
	test.That(t, m.Classify(0, 0), test.ShouldEqual, 1)
	test.That(t, m.Classify(199.999, 99.999), test.ShouldEqual, 2)
}

func TestClassifyRowMajor(t *testing.T) {
	m, err := NewMapper(identitySettings(3, 2), 300, 200)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Classify(50, 50), test.ShouldEqual, 1)
	test.That(t, m.Classify(250, 50), test.ShouldEqual, 3)
	test.That(t, m.Classify(50, 150), test.ShouldEqual, 4)
	test.That(t, m.Classify(250, 150), test.ShouldEqual, 6)
}

func TestClassifyRotated(t *testing.T) {
	s := identitySettings(2, 1)
	s.Transform.Angle = 90
	m, err := NewMapper(s, 100, 100)
	test.That(t, err, test.ShouldBeNil)
	// the left half of the grid is rotated onto the top half of the frame
	test.That(t, m.Classify(50, 25), test.ShouldEqual, 1)
	test.That(t, m.Classify(50, 75), test.ShouldEqual, 2)
}

func TestForwardInverseRoundTrip(t *testing.T) {
	s := Settings{
		Grid:      &GridSettings{Cols: 4, Rows: 3},
		Transform: &GridTransform{CenterX: 0.45, CenterY: 0.55, Angle: 17.5, ScaleX: 0.8, ScaleY: 0.7},
	}
	m, err := NewMapper(s, 640, 480)
	test.That(t, err, test.ShouldBeNil)
	id := m.Inverse().Mul(m.Forward())
	test.That(t, id.A, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, id.B, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, id.C, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, id.D, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, id.E, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, id.F, test.ShouldAlmostEqual, 0, 1e-9)

	for tank := 1; tank <= m.NumTanks(); tank++ {
		c := m.CellCenter(tank)
		test.That(t, m.Classify(c.X, c.Y), test.ShouldEqual, tank)
		gx, gy := m.Inverse().Apply(c.X, c.Y)
		px, py := m.Forward().Apply(gx, gy)
		test.That(t, m.Classify(px, py), test.ShouldEqual, tank)
	}
}

func TestNonInvertible(t *testing.T) {
	s := identitySettings(2, 2)
	s.Transform.ScaleY = 0
	_, err := NewMapper(s, 100, 100)
	test.That(t, errors.Is(err, ErrNonInvertible), test.ShouldBeTrue)

	err = s.Validate("settings.json")
	test.That(t, errors.Is(err, ErrNonInvertible), test.ShouldBeTrue)
}

func TestGridGeometry(t *testing.T) {
	m, err := NewMapper(identitySettings(2, 1), 200, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.GridLines(), test.ShouldHaveLength, 5)
	poly := m.CellPolygon(2)
	test.That(t, poly[0], test.ShouldResemble, Point{100, 0})
	test.That(t, poly[2], test.ShouldResemble, Point{200, 100})
	test.That(t, m.CellPolygon(3), test.ShouldResemble, [4]Point{})
}

func TestLoadSettings(t *testing.T) {
	path := writeSettings(t, `{
		"grid_settings": {"columns": 3, "rows": 2},
		"grid_transform": {"center_x": 0.5, "center_y": 0.5, "angle": 0, "scale_x": 1, "scale_y": 1}
	}`)
	s, err := LoadSettings(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Grid.Cols, test.ShouldEqual, 3)
	test.That(t, s.Grid.Rows, test.ShouldEqual, 2)
	test.That(t, s.Grid.LineThickness, test.ShouldEqual, DefaultLineThickness)
	test.That(t, s.NumTanks(), test.ShouldEqual, 6)

	path = writeSettings(t, `{"grid_settings": {"cols": 2, "columns": 5, "rows": 1, "line_thickness": 4},
		"grid_transform": {"center_x": 0.5, "center_y": 0.5, "scale_x": 1, "scale_y": 1}}`)
	s, err = LoadSettings(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Grid.Cols, test.ShouldEqual, 2)
	test.That(t, s.Grid.LineThickness, test.ShouldEqual, 4)
}

func TestLoadSettingsErrors(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := writeSettings(t, `{"grid_settings": {"cols": 2, "rows": 1}}`)
	_, err = LoadSettings(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "grid_transform")

	path = writeSettings(t, `{"grid_settings": {"rows": 1}, "grid_transform": {"scale_x": 1, "scale_y": 1}}`)
	_, err = LoadSettings(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cols")

	path = writeSettings(t, `{"grid_settings": `)
	_, err = LoadSettings(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, path)
}
