// Package grid maps video pixel coordinates onto the numbered tanks of a
// multi-tank arena described by a grid settings file.
package grid

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// DefaultLineThickness is used when the settings file leaves line_thickness unset.
const DefaultLineThickness = 2

// Settings is the on-disk grid description: cell counts plus the transform
// placing the grid on the video frame.
type Settings struct {
	Grid      *GridSettings  `json:"grid_settings"`
	Transform *GridTransform `json:"grid_transform"`
}

// GridSettings holds the tank layout. "columns" is accepted as an alias of "cols".
type GridSettings struct {
	Cols          int `json:"cols"`
	Rows          int `json:"rows"`
	LineThickness int `json:"line_thickness"`
}

// GridTransform positions the grid: centre as a fraction of the frame size,
// rotation in degrees and per-axis scale.
type GridTransform struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Angle   float64 `json:"angle"`
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
}

// UnmarshalJSON accepts both "cols" and "columns".
func (g *GridSettings) UnmarshalJSON(data []byte) error {
	var raw struct {
		Cols          *int `json:"cols"`
		Columns       *int `json:"columns"`
		Rows          int  `json:"rows"`
		LineThickness int  `json:"line_thickness"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Cols != nil:
		g.Cols = *raw.Cols
	case raw.Columns != nil:
		g.Cols = *raw.Columns
	}
	g.Rows = raw.Rows
	g.LineThickness = raw.LineThickness
	return nil
}

// NumTanks is cols*rows.
func (s Settings) NumTanks() int {
	if s.Grid == nil {
		return 0
	}
	return s.Grid.Cols * s.Grid.Rows
}

// Validate checks that both sections are present and describe a usable grid.
// A transform that cannot be inverted is reported as ErrNonInvertible.
func (s *Settings) Validate(path string) error {
	if s.Grid == nil {
		return errors.Errorf(`expected "grid_settings" section in %q`, path)
	}
	if s.Transform == nil {
		return errors.Errorf(`expected "grid_transform" section in %q`, path)
	}
	if s.Grid.Cols < 1 {
		return errors.Errorf("grid cols must be at least 1, got %d in %q", s.Grid.Cols, path)
	}
	if s.Grid.Rows < 1 {
		return errors.Errorf("grid rows must be at least 1, got %d in %q", s.Grid.Rows, path)
	}
	if s.Grid.LineThickness < 0 {
		return errors.Errorf("line_thickness cannot be negative in %q", path)
	}
	if s.Grid.LineThickness == 0 {
		s.Grid.LineThickness = DefaultLineThickness
	}
	// the determinant of the forward transform is scale_x*scale_y whatever the frame size
	if _, err := forwardTransform(*s.Transform, 1, 1).Invert(); err != nil {
		return errors.Wrapf(err, "grid transform in %q", path)
	}
	return nil
}

// LoadSettings reads and validates a grid settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "cannot read grid settings %q", path)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrapf(err, "malformed grid settings %q", path)
	}
	if err := s.Validate(path); err != nil {
		return Settings{}, err
	}
	return s, nil
}
