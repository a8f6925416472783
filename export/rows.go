package export

import (
	"sort"

	"github.com/viam-modules/tank-tracking/detections"
)

// Columns returns the output header for enriched exports: the source
// columns, the derived centroid columns when the source had none, then
// tank_number and, when tracking, track_id.
func Columns(source []string, tracking bool) []string {
	cols := make([]string, 0, len(source)+4)
	seen := make(map[string]bool, len(source))
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, c := range source {
		add(c)
	}
	add(detections.ColumnCX)
	add(detections.ColumnCY)
	add(detections.ColumnTank)
	if tracking {
		add(detections.ColumnTrackID)
	}
	return cols
}

// Flatten returns the tracked stream as one slice, frames ascending.
func Flatten(tracked map[int][]detections.Detection) []detections.Detection {
	var out []detections.Detection
	for _, frame := range detections.SortedKeys(tracked) {
		out = append(out, tracked[frame]...)
	}
	return out
}

// row renders the cells of one detection for the given columns.
func row(d detections.Detection, columns []string) []detections.Value {
	cells := make([]detections.Value, len(columns))
	for i, c := range columns {
		if v, ok := d.Value(c); ok {
			cells[i] = v
		}
	}
	return cells
}

// firstPerTank picks, per tank, the first detection of a frame.
func firstPerTank(dets []detections.Detection) map[int]detections.Detection {
	out := make(map[int]detections.Detection)
	for _, d := range dets {
		if d.Tank == detections.NoTank || !d.HasCentroid {
			continue
		}
		if _, ok := out[d.Tank]; !ok {
			out[d.Tank] = d
		}
	}
	return out
}

// pathKey identifies one polyline: a track when the stream carries track
// ids, otherwise the tank's first detection of each frame.
type pathKey struct {
	tank, track int
}

type sample struct {
	frame int
	x, y  float64
}

// sampledPaths returns the centroids of every sampleRate-th frame grouped by
// path, frames ascending.
func sampledPaths(tracked map[int][]detections.Detection, sampleRate int) map[pathKey][]sample {
	if sampleRate < 1 {
		sampleRate = 1
	}
	out := make(map[pathKey][]sample)
	for _, frame := range detections.SortedKeys(tracked) {
		if frame%sampleRate != 0 {
			continue
		}
		dets := tracked[frame]
		for tank, d := range firstPerTank(dets) {
			if d.TrackID == detections.NoTrack {
				out[pathKey{tank: tank}] = append(out[pathKey{tank: tank}], sample{frame, d.CX, d.CY})
			}
		}
		for _, d := range dets {
			if d.Tank == detections.NoTank || d.TrackID == detections.NoTrack || !d.HasCentroid {
				continue
			}
			k := pathKey{tank: d.Tank, track: d.TrackID}
			out[k] = append(out[k], sample{frame, d.CX, d.CY})
		}
	}
	return out
}

func sortedPathKeys(paths map[pathKey][]sample) []pathKey {
	keys := make([]pathKey, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].tank != keys[j].tank {
			return keys[i].tank < keys[j].tank
		}
		return keys[i].track < keys[j].track
	})
	return keys
}
