// Package timeline turns per-frame class labels into run-length segments for
// the behaviour strip drawn under annotated videos.
package timeline

import (
	"sort"

	"github.com/viam-modules/tank-tracking/detections"
)

// Segment is a run of consecutive frames of one tank with the same class.
// Start and End are inclusive.
type Segment struct {
	Tank      int
	Start     int
	End       int
	ClassName string
}

// Len is the number of frames covered.
func (s Segment) Len() int {
	return s.End - s.Start + 1
}

// Build collects, per tank, the class label of each frame. When a tank has
// several detections in one frame the last one wins.
func Build(tracked map[int][]detections.Detection) map[int]map[int]string {
	labels := make(map[int]map[int]string)
	for frame, dets := range tracked {
		for _, d := range dets {
			if d.Tank == detections.NoTank {
				continue
			}
			perTank, ok := labels[d.Tank]
			if !ok {
				perTank = make(map[int]string)
				labels[d.Tank] = perTank
			}
			perTank[frame] = d.ClassName
		}
	}
	return labels
}

// Segment splits the frame labels of a tank into segments, closing one
// whenever the label changes or a frame is missing.
func Segment(labels map[int]string, tank int) []Segment {
	if len(labels) == 0 {
		return nil
	}
	frames := make([]int, 0, len(labels))
	for f := range labels {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	var segs []Segment
	cur := Segment{Tank: tank, Start: frames[0], End: frames[0], ClassName: labels[frames[0]]}
	for _, f := range frames[1:] {
		label := labels[f]
		if label == cur.ClassName && f == cur.End+1 {
			cur.End = f
			continue
		}
		segs = append(segs, cur)
		cur = Segment{Tank: tank, Start: f, End: f, ClassName: label}
	}
	return append(segs, cur)
}

// SegmentAll segments every tank.
func SegmentAll(tracked map[int][]detections.Detection) map[int][]Segment {
	out := make(map[int][]Segment)
	for tank, labels := range Build(tracked) {
		out[tank] = Segment(labels, tank)
	}
	return out
}

// Clip returns the segments that have started by frame, cut at frame.
func Clip(segs []Segment, frame int) []Segment {
	var out []Segment
	for _, s := range segs {
		if s.Start > frame {
			break
		}
		if s.End > frame {
			s.End = frame
		}
		out = append(out, s)
	}
	return out
}

// Reconstruct expands segments back into frame labels.
func Reconstruct(segs []Segment) map[int]string {
	labels := make(map[int]string)
	for _, s := range segs {
		for f := s.Start; f <= s.End; f++ {
			labels[f] = s.ClassName
		}
	}
	return labels
}
