package tracking

import (
	"github.com/viam-modules/tank-tracking/detections"
)

// ConfidenceFilter keeps the most confident detections of each tank and
// frame. It holds no state and assigns no track ids.
type ConfidenceFilter struct {
	maxPerTank int
}

// NewConfidenceFilter keeps at most maxPerTank detections per tank and frame.
func NewConfidenceFilter(maxPerTank int) *ConfidenceFilter {
	return &ConfidenceFilter{maxPerTank: maxPerTank}
}

func (f *ConfidenceFilter) Name() string { return MethodConfidence }

// Idle is always true: empty frames produce nothing.
func (f *ConfidenceFilter) Idle() bool { return true }

// Update returns the kept detections, tanks in ascending order and by
// descending confidence within a tank.
func (f *ConfidenceFilter) Update(frame int, dets []detections.Detection) []detections.Detection {
	if len(dets) == 0 {
		return nil
	}
	byTank := detections.ByTank(dets)
	out := make([]detections.Detection, 0, len(dets))
	for _, tank := range detections.SortedKeys(byTank) {
		out = append(out, detections.TopK(byTank[tank], f.maxPerTank)...)
	}
	return out
}
