// Package tracker implements a multi-object tracker for the animals of one tank.
// Each track follows a centroid with a constant velocity Kalman filter, and
// new detections are associated with live tracks frame by frame via Munkres'
// method.
package tracker

import (
	"sort"

	hg "github.com/charles-haynes/munkres"
	"github.com/pkg/errors"

	"github.com/viam-modules/tank-tracking/detections"
)

// Tracker keeps the live tracks of a single tank. It is not safe for
// concurrent use.
type Tracker struct {
	cfg    Config
	tracks []*track
	nextID int
}

// New returns an empty tracker. The configuration is validated.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tracker config")
	}
	return &Tracker{cfg: cfg, nextID: 1}, nil
}

// Config returns the tracker parameters.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Live is the number of live tracks, tentative or confirmed.
func (t *Tracker) Live() int {
	return len(t.tracks)
}

// Update consumes the detections of one frame and returns one detection per
// confirmed live track, sorted by track id. Every returned detection carries
// its TrackID and the filtered centroid; the other fields come from the last
// detection matched to the track.
func (t *Tracker) Update(dets []detections.Detection) []detections.Detection {
	usable := make([]detections.Detection, 0, len(dets))
	for _, d := range dets {
		if d.HasCentroid {
			usable = append(usable, d)
		}
	}

	for _, tr := range t.tracks {
		tr.predict()
	}

	matches := t.match(usable)
	t.applyMatches(matches, usable)

	out := make([]detections.Detection, 0, len(t.tracks))
	for _, tr := range t.tracks {
		if tr.confirmed {
			out = append(out, tr.output())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

// match solves the assignment between live tracks and detections. The
// result has one entry per track holding the index of its detection, or -1.
func (t *Tracker) match(dets []detections.Detection) []int {
	matches := make([]int, len(t.tracks))
	for i := range matches {
		matches[i] = -1
	}
	if len(t.tracks) == 0 || len(dets) == 0 {
		return matches
	}
	matchMtx := t.buildMatchingMatrix(dets)
	HA, err := hg.NewHungarianAlgorithm(matchMtx)
	if err != nil {
		return matches
	}
	for i, j := range HA.Execute() {
		if i >= len(matches) || j < 0 || j >= len(dets) {
			continue
		}
		// the solver always pairs something, gated pairs are left unmatched
		if matchMtx[i][j] >= gatedCost {
			continue
		}
		matches[i] = j
	}
	return matches
}
