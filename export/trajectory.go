package export

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/grid"
)

// TrajectoryOptions controls the trajectory image.
type TrajectoryOptions struct {
	// FPS converts frame gaps into seconds.
	FPS float64
	// SampleRate keeps every n-th frame.
	SampleRate int
	// TimeGap in seconds; a longer gap between samples starts a new polyline.
	TimeGap float64
	// Background is drawn under the paths when set.
	Background image.Image
}

// Trajectory draws the grid and one polyline per animal path.
func Trajectory(path string, tracked map[int][]detections.Detection, m *grid.Mapper, opts TrajectoryOptions) error {
	width, height := m.Size()
	p := framePlot(width, height, opts.Background)
	if err := addGrid(p, m, height, color.RGBA{R: 90, G: 90, B: 90, A: 255}); err != nil {
		return err
	}

	tankColors := TankColors(m.NumTanks())
	paths := sampledPaths(tracked, opts.SampleRate)
	drawn := 0
	for _, key := range sortedPathKeys(paths) {
		if len(paths[key]) < 2 || key.tank < 1 || key.tank > len(tankColors) {
			continue
		}
		c := tankColors[key.tank-1]
		for i, run := range splitPath(paths[key], opts.FPS, opts.TimeGap) {
			xys := make(plotter.XYs, len(run))
			for j, s := range run {
				xys[j] = toPlot(height, s.x, s.y)
			}
			line, err := plotter.NewLine(xys)
			if err != nil {
				return errors.Wrapf(err, "tank %d", key.tank)
			}
			line.LineStyle = draw.LineStyle{Color: c, Width: vg.Points(1.5)}
			p.Add(line)
			if i == 0 {
				p.Legend.Add(pathLabel(key), line)
			}
			drawn++
		}
	}
	if drawn == 0 {
		return ErrNoData
	}
	p.Legend.Top = true
	if err := savePNG(p, width, height, path); err != nil {
		return errors.Wrapf(err, "cannot save %q", path)
	}
	return nil
}

func pathLabel(k pathKey) string {
	if k.track == detections.NoTrack {
		return fmt.Sprintf("Tank %d", k.tank)
	}
	return fmt.Sprintf("Tank %d #%d", k.tank, k.track)
}

// splitPath cuts a path wherever consecutive samples are more than gap
// seconds apart. Runs of a single point are dropped.
func splitPath(samples []sample, fps, gap float64) [][]sample {
	if fps <= 0 {
		fps = 30
	}
	var runs [][]sample
	start := 0
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && float64(samples[i].frame-samples[i-1].frame)/fps <= gap {
			continue
		}
		if i-start >= 2 {
			runs = append(runs, samples[start:i])
		}
		start = i
	}
	return runs
}
