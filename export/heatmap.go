package export

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"github.com/viam-modules/tank-tracking/detections"
)

// DefaultBinSize is the heatmap cell size in pixels.
const DefaultBinSize = 8

// HeatmapOptions controls the heatmap image.
type HeatmapOptions struct {
	Width, Height int
	BinSize       int
	SampleRate    int
	// Alpha is the opacity of the density layer.
	Alpha      float64
	Background image.Image
}

// Density counts centroids per bin. Rows run from the top of the frame.
type Density struct {
	counts  *mat.Dense
	binSize int
	height  int
	max     float64
}

// NewDensity bins the centroids of every sampleRate-th frame.
func NewDensity(tracked map[int][]detections.Detection, width, height, binSize, sampleRate int) *Density {
	if binSize < 1 {
		binSize = DefaultBinSize
	}
	if sampleRate < 1 {
		sampleRate = 1
	}
	cols := (width + binSize - 1) / binSize
	rows := (height + binSize - 1) / binSize
	d := &Density{
		counts:  mat.NewDense(max(rows, 1), max(cols, 1), nil),
		binSize: binSize,
		height:  height,
	}
	for frame, dets := range tracked {
		if frame%sampleRate != 0 {
			continue
		}
		for _, det := range dets {
			if !det.HasCentroid || det.Tank == detections.NoTank {
				continue
			}
			c := int(math.Floor(det.CX / float64(binSize)))
			r := int(math.Floor(det.CY / float64(binSize)))
			if c < 0 || c >= cols || r < 0 || r >= rows {
				continue
			}
			v := d.counts.At(r, c) + 1
			d.counts.Set(r, c, v)
			if v > d.max {
				d.max = v
			}
		}
	}
	return d
}

// Peak is the highest bin count.
func (d *Density) Peak() float64 { return d.max }

// Count returns the raw count of the bin holding pixel (x, y).
func (d *Density) Count(x, y float64) float64 {
	rows, cols := d.counts.Dims()
	c, r := int(x)/d.binSize, int(y)/d.binSize
	if c < 0 || c >= cols || r < 0 || r >= rows {
		return 0
	}
	return d.counts.At(r, c)
}

// Dims implements plotter.GridXYZ.
func (d *Density) Dims() (c, r int) {
	rows, cols := d.counts.Dims()
	return cols, rows
}

// Z implements plotter.GridXYZ: counts normalised to the maximum, empty bins
// as NaN so that they stay transparent. Row 0 is the bottom of the frame.
func (d *Density) Z(c, r int) float64 {
	rows, _ := d.counts.Dims()
	v := d.counts.At(rows-1-r, c)
	if v == 0 || d.max == 0 {
		return math.NaN()
	}
	return v / d.max
}

// X implements plotter.GridXYZ.
func (d *Density) X(c int) float64 {
	return (float64(c) + 0.5) * float64(d.binSize)
}

// Y implements plotter.GridXYZ in the flipped plot space.
func (d *Density) Y(r int) float64 {
	rows, _ := d.counts.Dims()
	return float64(d.height) - (float64(rows-1-r)+0.5)*float64(d.binSize)
}

// Heatmap draws the centroid density over the background frame.
func Heatmap(path string, tracked map[int][]detections.Detection, opts HeatmapOptions) error {
	d := NewDensity(tracked, opts.Width, opts.Height, opts.BinSize, opts.SampleRate)
	if d.Peak() == 0 {
		return ErrNoData
	}
	alpha := opts.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 0.6
	}
	cm := moreland.ExtendedBlackBody()
	cm.SetMin(0)
	cm.SetMax(1)
	cm.SetAlpha(alpha)

	p := framePlot(opts.Width, opts.Height, opts.Background)
	hm := plotter.NewHeatMap(d, cm.Palette(255))
	hm.Min, hm.Max = 0, 1
	hm.NaN = color.Transparent
	hm.Rasterized = true
	p.Add(hm)
	if err := savePNG(p, opts.Width, opts.Height, path); err != nil {
		return errors.Wrapf(err, "cannot save %q", path)
	}
	return nil
}
