// Package detections loads per-frame detection records from CSV and assigns
// them to tanks.
package detections

import (
	"strconv"
	"strings"

	"github.com/viam-modules/tank-tracking/grid"
)

// Well-known columns of a detection source.
const (
	ColumnFrame   = "frame_idx"
	ColumnClass   = "class_name"
	ColumnConf    = "conf"
	ColumnX1      = "x1"
	ColumnY1      = "y1"
	ColumnX2      = "x2"
	ColumnY2      = "y2"
	ColumnCX      = "cx"
	ColumnCY      = "cy"
	ColumnPolygon = "polygon"
	ColumnTank    = "tank_number"
	ColumnTrackID = "track_id"
)

const (
	// NoTank marks a detection outside every tank.
	NoTank = grid.NoTank
	// NoTrack marks a detection that was not produced by a tracker.
	NoTrack = 0
)

// Value is one cell of a detection record. Cells that parse as numbers keep
// their numeric form; anything else is kept as text.
type Value struct {
	Raw     string
	Num     float64
	Numeric bool
	Integer bool
}

// ParseValue parses a raw cell leniently.
func ParseValue(raw string) Value {
	v := Value{Raw: raw}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		v.Num = f
		v.Numeric = true
	}
	return v
}

// FloatValue wraps a computed number.
func FloatValue(f float64) Value {
	return Value{Raw: strconv.FormatFloat(f, 'f', -1, 64), Num: f, Numeric: true}
}

// IntValue wraps a computed integer.
func IntValue(i int) Value {
	return Value{Raw: strconv.Itoa(i), Num: float64(i), Numeric: true, Integer: true}
}

// TextValue wraps text.
func TextValue(s string) Value {
	return Value{Raw: s}
}

// String formats floats with four decimals and everything else as is.
func (v Value) String() string {
	if v.Numeric && !v.Integer {
		return strconv.FormatFloat(v.Num, 'f', 4, 64)
	}
	return v.Raw
}

// Any returns the value as int64, float64 or string, for spreadsheet cells.
func (v Value) Any() interface{} {
	switch {
	case v.Integer:
		return int64(v.Num)
	case v.Numeric:
		return v.Num
	default:
		return v.Raw
	}
}

// Detection is one record for one frame.
type Detection struct {
	Frame       int
	ClassName   string
	Conf        float64
	X1, Y1      float64
	X2, Y2      float64
	HasBox      bool
	CX, CY      float64
	HasCentroid bool
	Polygon     string
	Tank        int
	TrackID     int
	// Fields holds every source cell by column name. It is shared between
	// copies of a detection and must not be modified.
	Fields map[string]Value
}

// Center returns the centroid.
func (d Detection) Center() (float64, float64) {
	return d.CX, d.CY
}

// Width and Height of the bounding box, zero without a box.
func (d Detection) Width() float64 {
	if !d.HasBox {
		return 0
	}
	return d.X2 - d.X1
}

func (d Detection) Height() float64 {
	if !d.HasBox {
		return 0
	}
	return d.Y2 - d.Y1
}

// Value returns the cell for a column: well-known columns come from the typed
// fields (so tracker estimates win over source cells), the rest pass through.
// ok is false when the detection has nothing for the column.
func (d Detection) Value(col string) (Value, bool) {
	raw, hasRaw := d.Fields[col]
	switch col {
	case ColumnFrame:
		return IntValue(d.Frame), true
	case ColumnClass:
		if !hasRaw && d.ClassName == "" {
			return Value{}, false
		}
		return TextValue(d.ClassName), true
	case ColumnPolygon:
		if !hasRaw && d.Polygon == "" {
			return Value{}, false
		}
		return TextValue(d.Polygon), true
	case ColumnConf:
		if hasRaw && !raw.Numeric {
			return raw, true
		}
		return FloatValue(d.Conf), true
	case ColumnX1, ColumnY1, ColumnX2, ColumnY2:
		if !d.HasBox {
			return raw, hasRaw
		}
		return FloatValue(d.boxField(col)), true
	case ColumnCX, ColumnCY:
		if !d.HasCentroid {
			return raw, hasRaw
		}
		if col == ColumnCX {
			return FloatValue(d.CX), true
		}
		return FloatValue(d.CY), true
	case ColumnTank:
		if d.Tank == NoTank {
			return Value{}, false
		}
		return IntValue(d.Tank), true
	case ColumnTrackID:
		if d.TrackID == NoTrack {
			return Value{}, false
		}
		return IntValue(d.TrackID), true
	}
	return raw, hasRaw
}

func (d Detection) boxField(col string) float64 {
	switch col {
	case ColumnX1:
		return d.X1
	case ColumnY1:
		return d.Y1
	case ColumnX2:
		return d.X2
	default:
		return d.Y2
	}
}
