// This file contains methods that are useful for filtering out detections
// before they reach a tracking strategy.
package tracking

import (
	"strings"

	"github.com/viam-modules/tank-tracking/detections"
)

// ClassFilter drops detections by class and confidence. An empty chosen
// map keeps every class. Otherwise only the listed classes are kept, each
// reaching its own minimum, and every detection must reach MinConfidence.
// Class names are lower case.
type ClassFilter struct {
	Chosen        map[string]float64 `json:"chosen_labels"`
	MinConfidence float64            `json:"min_confidence"`
}

// Empty reports whether the filter keeps everything.
func (cf ClassFilter) Empty() bool {
	return len(cf.Chosen) == 0 && cf.MinConfidence <= 0
}

// Apply returns the detections that pass the filter.
func (cf ClassFilter) Apply(dets []detections.Detection) []detections.Detection {
	if cf.Empty() {
		return dets
	}
	out := make([]detections.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Conf < cf.MinConfidence {
			continue
		}
		if len(cf.Chosen) > 0 {
			minConf, ok := cf.Chosen[strings.ToLower(d.ClassName)]
			if !ok || d.Conf < minConf {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

type filtered struct {
	Strategy
	filter ClassFilter
}

// WithFilter wraps a strategy so that it only sees detections passing cf.
func WithFilter(s Strategy, cf ClassFilter) Strategy {
	if cf.Empty() {
		return s
	}
	return &filtered{Strategy: s, filter: cf}
}

func (f *filtered) Update(frame int, dets []detections.Detection) []detections.Detection {
	return f.Strategy.Update(frame, f.filter.Apply(dets))
}

func (f *filtered) Idle() bool {
	return idle(f.Strategy)
}
