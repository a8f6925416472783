package detections

import "sort"

// Classifier resolves a pixel position to a tank index.
type Classifier interface {
	Classify(x, y float64) int
}

// AssignStats summarises an assignment pass.
type AssignStats struct {
	Assigned   int
	Unassigned int
}

// Assign sets Tank on every detection of the store. Detections without a
// centroid, or outside the grid, get NoTank and stay in the store.
func Assign(s *Store, c Classifier) AssignStats {
	var stats AssignStats
	for _, dets := range s.Frames {
		for i := range dets {
			d := &dets[i]
			d.Tank = NoTank
			if d.HasCentroid {
				d.Tank = c.Classify(d.CX, d.CY)
			}
			if d.Tank == NoTank {
				stats.Unassigned++
			} else {
				stats.Assigned++
			}
		}
	}
	return stats
}

// ByTank groups detections by tank, dropping those outside every tank.
// Order within a tank follows the input.
func ByTank(dets []Detection) map[int][]Detection {
	out := make(map[int][]Detection)
	for _, d := range dets {
		if d.Tank == NoTank {
			continue
		}
		out[d.Tank] = append(out[d.Tank], d)
	}
	return out
}

// SortByConfidence sorts by descending confidence, keeping input order for ties.
func SortByConfidence(dets []Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Conf > dets[j].Conf
	})
}

// TopK returns a sorted copy of the k most confident detections.
func TopK(dets []Detection, k int) []Detection {
	out := make([]Detection, len(dets))
	copy(out, dets)
	SortByConfidence(out)
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// SortedKeys returns the keys of a per-tank or per-frame map, ascending.
func SortedKeys[T any](m map[int]T) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
