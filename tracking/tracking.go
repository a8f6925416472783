// Package tracking turns the tank-assigned detections of a video into the
// tracked stream that every exporter consumes.
package tracking

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/tracker"
)

// Tracking methods.
const (
	MethodConfidence = "confidence"
	MethodTracker    = "tracker"
)

// ErrUnknownMethod is returned by New for an unsupported method name.
var ErrUnknownMethod = errors.New("unknown tracking method")

// Strategy consumes one frame's tank-assigned detections at a time.
type Strategy interface {
	// Update returns the tracked stream for one frame. Frames are fed in
	// ascending order.
	Update(frame int, dets []detections.Detection) []detections.Detection
	Name() string
}

// TrackKey identifies a track across the whole arena. Track ids are only
// unique within a tank.
type TrackKey struct {
	Tank    int
	LocalID int
}

func (k TrackKey) String() string {
	return fmt.Sprintf("T%d#%d", k.Tank, k.LocalID)
}

// KeyOf returns the arena-wide identity of a tracked detection.
func KeyOf(d detections.Detection) (TrackKey, bool) {
	if d.Tank == detections.NoTank || d.TrackID == detections.NoTrack {
		return TrackKey{}, false
	}
	return TrackKey{Tank: d.Tank, LocalID: d.TrackID}, true
}

// New builds the strategy for a method name.
func New(method string, numTanks int, cfg tracker.Config) (Strategy, error) {
	switch method {
	case MethodConfidence:
		if cfg.MaxAnimalsPerTank < 1 {
			return nil, errors.New("max_animals_per_tank cannot be less than 1")
		}
		return NewConfidenceFilter(cfg.MaxAnimalsPerTank), nil
	case MethodTracker:
		return NewTankTrackers(numTanks, cfg)
	default:
		return nil, errors.Wrapf(ErrUnknownMethod, "%q", method)
	}
}

// Idler is implemented by strategies that can tell when an empty frame would
// leave their state unchanged.
type Idler interface {
	Idle() bool
}

func idle(s Strategy) bool {
	i, ok := s.(Idler)
	return ok && i.Idle()
}

// Run feeds the frames 0..totalFrames-1 through the strategy in order.
// Detections at or past totalFrames are ignored; when the frame count is
// unknown (totalFrames <= 0) the source's last frame ends the run. Runs of
// empty frames are skipped while the strategy is idle, so the work is bounded
// by the detections rather than by the frame indices. The context is polled
// once per frame; on cancellation the partial result is returned with the
// context error. onFrame may be nil.
func Run(
	ctx context.Context,
	s Strategy,
	store *detections.Store,
	totalFrames int,
	onFrame func(frame, total int),
) (map[int][]detections.Detection, error) {
	total := totalFrames
	if total <= 0 {
		total = store.LastFrame() + 1
	}
	frames := store.FrameIndices()
	tracked := make(map[int][]detections.Detection)
	for frame := 0; frame < total; frame++ {
		if err := ctx.Err(); err != nil {
			return tracked, err
		}
		rows, ok := store.Frames[frame]
		if !ok && idle(s) {
			next := total
			if i := sort.SearchInts(frames, frame); i < len(frames) && frames[i] < total {
				next = frames[i]
			}
			if onFrame != nil {
				onFrame(next, total)
			}
			frame = next - 1
			continue
		}
		var assigned []detections.Detection
		for _, d := range rows {
			if d.Tank != detections.NoTank {
				assigned = append(assigned, d)
			}
		}
		if out := s.Update(frame, assigned); len(out) > 0 {
			tracked[frame] = out
		}
		if onFrame != nil {
			onFrame(frame+1, total)
		}
	}
	return tracked, nil
}
