package tracker

import (
	"github.com/bmharper/ringbuffer"

	"github.com/viam-modules/tank-tracking/detections"
)

type observation struct {
	x, y float64
}

type track struct {
	id        int
	kf        *kalmanFilter
	history   ringbuffer.RingP[observation]
	smoothing int
	last      detections.Detection
	initDelay int
	hits      int
	misses    int
	confirmed bool
}

func newTrack(id int, det detections.Detection, cfg Config) *track {
	tr := &track{
		id:        id,
		kf:        newKalmanFilter(det.CX, det.CY),
		history:   ringbuffer.NewRingP[observation](nextPowerOf2(max(cfg.PastDetectionsLength, 1))),
		smoothing: cfg.PastDetectionsLength,
		last:      det,
		initDelay: cfg.InitializationDelay,
		hits:      1,
	}
	tr.history.Add(observation{det.CX, det.CY})
	tr.checkConfirmed()
	return tr
}

func (tr *track) predict() {
	tr.kf.predict()
}

// hit folds a matched detection into the track.
func (tr *track) hit(det detections.Detection) {
	tr.history.Add(observation{det.CX, det.CY})
	tr.kf.update(tr.smoothed())
	tr.last = det
	tr.hits++
	tr.misses = 0
	tr.checkConfirmed()
}

func (tr *track) miss() {
	tr.hits = 0
	tr.misses++
}

func (tr *track) checkConfirmed() {
	if !tr.confirmed && tr.hits > tr.initDelay {
		tr.confirmed = true
	}
}

// dead reports whether the track must be dropped: a tentative track dies on
// its first miss, a confirmed one once it has missed more than hitCounterMax frames.
func (tr *track) dead(hitCounterMax int) bool {
	if !tr.confirmed {
		return tr.misses > 0
	}
	return tr.misses > hitCounterMax
}

// smoothed is the mean of the most recent observations.
func (tr *track) smoothed() (float64, float64) {
	n := tr.history.Len()
	if tr.smoothing > 1 && n > tr.smoothing {
		n = tr.smoothing
	} else if tr.smoothing <= 1 {
		n = 1
	}
	var sx, sy float64
	for i := tr.history.Len() - n; i < tr.history.Len(); i++ {
		o := tr.history.Peek(i)
		sx += o.x
		sy += o.y
	}
	return sx / float64(n), sy / float64(n)
}

// output is the last matched detection carrying the track id and the
// filtered centroid.
func (tr *track) output() detections.Detection {
	out := tr.last
	out.TrackID = tr.id
	out.CX, out.CY = tr.kf.position()
	out.HasCentroid = true
	return out
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
