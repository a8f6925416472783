// Package export writes the per-video artifacts derived from the tracked
// stream: enriched and wide CSV files, a per-tank workbook, trajectory and
// heatmap images.
package export

import (
	"image/color"
	"math"

	"github.com/pkg/errors"

	"github.com/viam-modules/tank-tracking/detections"
)

// ErrNoData is returned when there is nothing to write.
var ErrNoData = errors.New("no tracked detections to export")

// DefaultColors is the ten colour cycle assigned to class labels.
var DefaultColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	{R: 127, G: 127, B: 127, A: 255},
	{R: 188, G: 189, B: 34, A: 255},
	{R: 23, G: 190, B: 207, A: 255},
}

var unknownColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}

// Palette maps class labels to colours.
type Palette struct {
	classes []string
	colors  map[string]color.RGBA
}

// NewPalette assigns colours to the classes of the tracked stream in the
// order they first appear, frames ascending then row order.
func NewPalette(tracked map[int][]detections.Detection) Palette {
	p := Palette{colors: make(map[string]color.RGBA)}
	for _, frame := range detections.SortedKeys(tracked) {
		for _, d := range tracked[frame] {
			if _, ok := p.colors[d.ClassName]; ok {
				continue
			}
			p.colors[d.ClassName] = DefaultColors[len(p.classes)%len(DefaultColors)]
			p.classes = append(p.classes, d.ClassName)
		}
	}
	return p
}

// Classes returns the labels in colour order.
func (p Palette) Classes() []string {
	return p.classes
}

// Color returns the colour of a class, grey for unknown classes.
func (p Palette) Color(class string) color.RGBA {
	if c, ok := p.colors[class]; ok {
		return c
	}
	return unknownColor
}

// TankColors returns n well separated colours, one per tank.
func TankColors(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(max(n, 1))
		r, g, b := hslToRGB(hue, 0.75, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL (all in [0,1]) to RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	r = uint8(math.Round(hueToRGB(p, q, h+1.0/3) * 255))
	g = uint8(math.Round(hueToRGB(p, q, h) * 255))
	b = uint8(math.Round(hueToRGB(p, q, h-1.0/3) * 255))
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
