package tracking

import (
	"github.com/pkg/errors"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/tracker"
)

// TankTrackers runs an independent tracker per tank.
type TankTrackers struct {
	cfg      tracker.Config
	numTanks int
	trackers map[int]*tracker.Tracker
}

// NewTankTrackers creates one tracker for each tank 1..numTanks.
func NewTankTrackers(numTanks int, cfg tracker.Config) (*TankTrackers, error) {
	if numTanks < 1 {
		return nil, errors.Errorf("need at least one tank, got %d", numTanks)
	}
	tt := &TankTrackers{
		cfg:      cfg,
		numTanks: numTanks,
		trackers: make(map[int]*tracker.Tracker, numTanks),
	}
	for tank := 1; tank <= numTanks; tank++ {
		tr, err := tracker.New(cfg)
		if err != nil {
			return nil, err
		}
		tt.trackers[tank] = tr
	}
	return tt, nil
}

func (tt *TankTrackers) Name() string { return MethodTracker }

// Update advances every tank's tracker by one frame, including tanks with no
// detection in this frame so that their tracks age. Each tank keeps only its
// max_animals_per_tank most confident detections before tracking.
func (tt *TankTrackers) Update(frame int, dets []detections.Detection) []detections.Detection {
	byTank := detections.ByTank(dets)
	var out []detections.Detection
	for tank := 1; tank <= tt.numTanks; tank++ {
		denoised := detections.TopK(byTank[tank], tt.cfg.MaxAnimalsPerTank)
		for _, d := range tt.trackers[tank].Update(denoised) {
			d.Frame = frame
			d.Tank = tank
			out = append(out, d)
		}
	}
	return out
}

// Idle reports whether no tank has a live track, so that an empty frame
// changes nothing.
func (tt *TankTrackers) Idle() bool {
	for _, tr := range tt.trackers {
		if tr.Live() > 0 {
			return false
		}
	}
	return true
}

// Tracker returns the tracker of one tank, or nil.
func (tt *TankTrackers) Tracker(tank int) *tracker.Tracker {
	return tt.trackers[tank]
}
