package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/viam-modules/tank-tracking/detections"
)

// EnrichedCSV writes every tracked detection with its tank number (and track
// id when tracking), frames ascending. Nothing is written for an empty stream.
func EnrichedCSV(path string, columns []string, tracked map[int][]detections.Detection) error {
	dets := Flatten(tracked)
	if len(dets) == 0 {
		return ErrNoData
	}
	return writeFile(path, func(w io.Writer) error {
		return writeEnriched(w, columns, dets)
	})
}

func writeEnriched(w io.Writer, columns []string, dets []detections.Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, d := range dets {
		for i, v := range row(d, columns) {
			record[i] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CentroidCSV writes one row per frame with the centroid of every tank side
// by side. A tank with several detections in a frame reports the first one.
func CentroidCSV(path string, tracked map[int][]detections.Detection, numTanks int) error {
	if len(Flatten(tracked)) == 0 {
		return ErrNoData
	}
	return writeFile(path, func(w io.Writer) error {
		return writeCentroids(w, tracked, numTanks)
	})
}

func writeCentroids(w io.Writer, tracked map[int][]detections.Detection, numTanks int) error {
	cw := csv.NewWriter(w)
	header := []string{detections.ColumnFrame}
	for tank := 1; tank <= numTanks; tank++ {
		t := strconv.Itoa(tank)
		header = append(header, "tank_"+t+"_cx", "tank_"+t+"_cy")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, frame := range detections.SortedKeys(tracked) {
		first := firstPerTank(tracked[frame])
		if len(first) == 0 {
			continue
		}
		record := make([]string, len(header))
		record[0] = strconv.Itoa(frame)
		for tank := 1; tank <= numTanks; tank++ {
			if d, ok := first[tank]; ok {
				record[2*tank-1] = detections.FloatValue(d.CX).String()
				record[2*tank] = detections.FloatValue(d.CY).String()
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFile creates path and removes it again if fill fails.
func writeFile(path string, fill func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "cannot close %q", path)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if err := fill(f); err != nil {
		return errors.Wrapf(err, "cannot write %q", path)
	}
	return nil
}
