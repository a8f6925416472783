package export

import (
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/viam-modules/tank-tracking/grid"
)

// framePlot returns an axis-less plot whose data space is the video frame,
// with y flipped so that plotY = height - pixelY. The background, when not
// nil, fills the frame.
func framePlot(width, height int, background image.Image) *plot.Plot {
	p := plot.New()
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Min, p.X.Max = 0, float64(width)
	p.Y.Min, p.Y.Max = 0, float64(height)
	if background != nil {
		p.Add(plotter.NewImage(background, 0, 0, float64(width), float64(height)))
	} else {
		p.BackgroundColor = color.White
	}
	return p
}

// toPlot converts pixel coordinates into the framePlot data space.
func toPlot(height int, x, y float64) plotter.XY {
	return plotter.XY{X: x, Y: float64(height) - y}
}

// addGrid draws the tank outlines.
func addGrid(p *plot.Plot, m *grid.Mapper, height int, c color.Color) error {
	for _, l := range m.GridLines() {
		line, err := plotter.NewLine(plotter.XYs{
			toPlot(height, l[0].X, l[0].Y),
			toPlot(height, l[1].X, l[1].Y),
		})
		if err != nil {
			return err
		}
		line.LineStyle = draw.LineStyle{Color: c, Width: vg.Points(float64(m.LineThickness()) * 0.75)}
		p.Add(line)
	}
	return nil
}

// savePNG writes the plot with one image pixel per frame pixel.
func savePNG(p *plot.Plot, width, height int, path string) error {
	w := vg.Length(width) * vg.Inch / vgimg.DefaultDPI
	h := vg.Length(height) * vg.Inch / vgimg.DefaultDPI
	return p.Save(w, h, path)
}
