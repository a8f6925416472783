// This file contains the methods that give tracks their identity: matched
// detections extend an existing track, the others start a new one.
package tracker

import (
	"github.com/viam-modules/tank-tracking/detections"
)

// applyMatches takes the output of the Hungarian matching algorithm, extends
// the matched tracks, ages or drops the unmatched ones and starts a fresh
// track for every detection left over.
func (t *Tracker) applyMatches(matches []int, dets []detections.Detection) {
	notUsed := make([]bool, len(dets))
	for i := range notUsed {
		notUsed[i] = true
	}
	kept := make([]*track, 0, len(t.tracks)+len(dets))
	for idx, tr := range t.tracks {
		if newIdx := matches[idx]; newIdx >= 0 {
			tr.hit(dets[newIdx])
			notUsed[newIdx] = false
		} else {
			tr.miss()
		}
		// a dropped id is never handed out again
		if !tr.dead(t.cfg.HitCounterMax) {
			kept = append(kept, tr)
		}
	}
	for idx, d := range dets {
		if notUsed[idx] {
			kept = append(kept, t.startTrack(d))
		}
	}
	t.tracks = kept
}

// startTrack gives a detection a fresh id. The track is tentative until it
// has been matched for more than initialization_delay frames.
func (t *Tracker) startTrack(det detections.Detection) *track {
	id := t.nextID
	t.nextID++
	return newTrack(id, det, t.cfg)
}
