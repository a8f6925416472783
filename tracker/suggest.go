package tracker

import (
	"math"

	"github.com/viam-modules/tank-tracking/detections"
)

// SuggestSampleRows is how many source rows SuggestThreshold looks at.
const SuggestSampleRows = 1000

// SuggestThreshold proposes a euclidean distance_threshold of three times the
// mean centroid step between consecutive rows, taking at most maxRows rows
// in frame order. ok is false when fewer than two usable rows exist.
func SuggestThreshold(s *detections.Store, maxRows int) (threshold float64, ok bool) {
	if maxRows <= 0 {
		maxRows = SuggestSampleRows
	}
	var (
		rows     int
		prev     detections.Detection
		havePrev bool
		sum      float64
		steps    int
	)
	for _, frame := range s.FrameIndices() {
		for _, d := range s.Frames[frame] {
			if rows >= maxRows {
				break
			}
			rows++
			if !d.HasCentroid {
				continue
			}
			if havePrev {
				step := math.Hypot(d.CX-prev.CX, d.CY-prev.CY)
				if !math.IsNaN(step) && !math.IsInf(step, 0) {
					sum += step
					steps++
				}
			}
			prev, havePrev = d, true
		}
	}
	if steps == 0 {
		return 0, false
	}
	return 3 * sum / float64(steps), true
}
