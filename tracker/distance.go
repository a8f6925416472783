package tracker

import (
	"math"

	"github.com/viam-modules/tank-tracking/detections"
)

// gatedCost stands in for pairs the solver must never match.
const gatedCost = 1e9

// box is an axis aligned rectangle in pixel coordinates.
type box struct {
	x1, y1, x2, y2 float64
}

func boxOf(d detections.Detection) box {
	if d.HasBox {
		return box{d.X1, d.Y1, d.X2, d.Y2}
	}
	return box{d.CX, d.CY, d.CX, d.CY}
}

func (b box) area() float64 {
	return math.Max(0, b.x2-b.x1) * math.Max(0, b.y2-b.y1)
}

// centeredAt returns the box translated so its centre is (cx, cy).
func (b box) centeredAt(cx, cy float64) box {
	hw, hh := (b.x2-b.x1)/2, (b.y2-b.y1)/2
	return box{cx - hw, cy - hh, cx + hw, cy + hh}
}

// iou returns the intersection over union of 2 boxes.
func iou(a, b box) float64 {
	ix := math.Min(a.x2, b.x2) - math.Max(a.x1, b.x1)
	iy := math.Min(a.y2, b.y2) - math.Max(a.y1, b.y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// cost is the distance between a track's predicted position and a detection.
func (t *Tracker) cost(tr *track, d detections.Detection) float64 {
	px, py := tr.kf.position()
	switch t.cfg.DistanceFunction {
	case DistanceIOU:
		pred := boxOf(tr.last).centeredAt(px, py)
		return 1 - iou(pred, boxOf(d))
	default:
		return math.Hypot(px-d.CX, py-d.CY)
	}
}

// buildMatchingMatrix sets up a cost matrix for the Hungarian algorithm, one
// row per live track and one column per detection. Pairs at or beyond the
// distance threshold are gated.
func (t *Tracker) buildMatchingMatrix(dets []detections.Detection) [][]float64 {
	matchMtx := make([][]float64, len(t.tracks))
	for i, tr := range t.tracks {
		row := make([]float64, len(dets))
		for j, d := range dets {
			c := t.cost(tr, d)
			if math.IsNaN(c) || c >= t.cfg.DistanceThreshold {
				c = gatedCost
			}
			row[j] = c
		}
		matchMtx[i] = row
	}
	return matchMtx
}
