package detections

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Store holds every detection of one source, grouped by frame.
type Store struct {
	// Columns is the source header, in file order.
	Columns []string
	Frames  map[int][]Detection
	// Skipped counts rows dropped because frame_idx was not a valid frame.
	Skipped int
}

// Load reads a detection CSV from disk.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open detections %q", path)
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load detections %q", path)
	}
	return s, nil
}

// Read parses detection records. The header is required and must name
// frame_idx. Rows with a bad frame index are skipped and counted, short rows
// simply lack the missing cells.
func Read(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("detection source is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	hasFrame := false
	for _, h := range header {
		if h == ColumnFrame {
			hasFrame = true
		}
	}
	if !hasFrame {
		return nil, errors.Errorf("detection source has no %q column", ColumnFrame)
	}

	s := &Store{Columns: header, Frames: make(map[int][]Detection)}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "malformed detection row")
		}
		fields := make(map[string]Value, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			fields[header[i]] = ParseValue(cell)
		}
		det, ok := fromFields(fields)
		if !ok {
			s.Skipped++
			continue
		}
		s.Frames[det.Frame] = append(s.Frames[det.Frame], det)
	}
	return s, nil
}

// maxFrame bounds frame_idx to values an int holds on every platform.
const maxFrame = float64(math.MaxInt32)

func fromFields(fields map[string]Value) (Detection, bool) {
	frame, ok := fields[ColumnFrame]
	if !ok || !frame.Numeric || math.IsNaN(frame.Num) || math.IsInf(frame.Num, 0) ||
		frame.Num < 0 || frame.Num >= maxFrame {
		return Detection{}, false
	}
	det := Detection{
		Frame:  int(frame.Num),
		Fields: fields,
	}
	if v, ok := fields[ColumnClass]; ok {
		det.ClassName = v.Raw
	}
	if v, ok := fields[ColumnConf]; ok && v.Numeric {
		det.Conf = v.Num
	}
	if v, ok := fields[ColumnPolygon]; ok {
		det.Polygon = v.Raw
	}
	x1, ok1 := number(fields, ColumnX1)
	y1, ok2 := number(fields, ColumnY1)
	x2, ok3 := number(fields, ColumnX2)
	y2, ok4 := number(fields, ColumnY2)
	if ok1 && ok2 && ok3 && ok4 {
		det.X1, det.Y1, det.X2, det.Y2 = x1, y1, x2, y2
		det.HasBox = true
	}
	cx, okx := number(fields, ColumnCX)
	cy, oky := number(fields, ColumnCY)
	switch {
	case okx && oky:
		det.CX, det.CY = cx, cy
		det.HasCentroid = true
	case det.HasBox:
		det.CX, det.CY = (det.X1+det.X2)/2, (det.Y1+det.Y2)/2
		det.HasCentroid = true
	}
	return det, true
}

func number(fields map[string]Value, col string) (float64, bool) {
	v, ok := fields[col]
	if !ok || !v.Numeric {
		return 0, false
	}
	return v.Num, true
}

// FrameIndices returns the frames that have detections, ascending.
func (s *Store) FrameIndices() []int {
	frames := make([]int, 0, len(s.Frames))
	for f := range s.Frames {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// CountFrom returns how many detections lie at or after frame.
func (s *Store) CountFrom(frame int) int {
	n := 0
	for f, dets := range s.Frames {
		if f >= frame {
			n += len(dets)
		}
	}
	return n
}

// LastFrame is the highest frame index, or -1 for an empty store.
func (s *Store) LastFrame() int {
	last := -1
	for f := range s.Frames {
		if f > last {
			last = f
		}
	}
	return last
}

// Len is the number of detections.
func (s *Store) Len() int {
	n := 0
	for _, dets := range s.Frames {
		n += len(dets)
	}
	return n
}

// HasColumn reports whether the source header names col.
func (s *Store) HasColumn(col string) bool {
	for _, c := range s.Columns {
		if c == col {
			return true
		}
	}
	return false
}
