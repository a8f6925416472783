package video

import (
	"context"
	"image"
	"image/color"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/export"
	"github.com/viam-modules/tank-tracking/timeline"
)

var (
	gridColor   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	textColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	stripColor  = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	cursorColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	bandColor   = color.RGBA{A: 255}
)

// Annotate copies src to dst frame by frame, drawing the tracked detections
// and, depending on rc, the grid and a band with the class legend and the
// per-tank timeline. progress is called after every written frame with the
// number of frames written so far. On cancellation the frames written so
// far are kept, the output is closed and the context error is returned.
func Annotate(
	ctx context.Context,
	src, dst string,
	rc *export.RenderContext,
	progress func(done, total int),
) (written int, err error) {
	capture, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return 0, errors.Wrapf(err, "could not open video %q", src)
	}
	defer capture.Close()
	if !capture.IsOpened() {
		return 0, errors.Errorf("could not open video %q", src)
	}

	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))
	fps := rc.FPS
	if fps <= 0 {
		fps = capture.Get(gocv.VideoCaptureFPS)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	total := rc.TotalFrames
	if total <= 0 {
		total = int(capture.Get(gocv.VideoCaptureFrameCount))
	}
	layout := rc.Layout(width, height)
	codec := rc.Codec
	if codec == "" {
		codec = export.DefaultCodec
	}

	writer, err := gocv.VideoWriterFile(dst, codec, fps, width, height+layout.BandHeight, true)
	if err != nil {
		return 0, errors.Wrapf(err, "could not create video %q", dst)
	}
	defer func() {
		if cerr := writer.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "could not close video %q", dst)
		}
	}()
	if !writer.IsOpened() {
		return 0, errors.Errorf("could not create video %q with codec %s", dst, codec)
	}

	frame := gocv.NewMat()
	defer frame.Close()
	canvas := gocv.NewMat()
	defer canvas.Close()

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		if layout.BandHeight > 0 {
			gocv.CopyMakeBorder(frame, &canvas, 0, layout.BandHeight, 0, 0, gocv.BorderConstant, bandColor)
		} else {
			frame.CopyTo(&canvas)
		}
		if rc.DrawGrid {
			drawGrid(&canvas, rc)
		}
		drawDetections(&canvas, rc, rc.Tracked[idx])
		if layout.BandHeight > 0 {
			drawLegend(&canvas, rc, layout)
			drawTimeline(&canvas, rc, layout, idx, total)
		}
		if err := writer.Write(canvas); err != nil {
			return written, errors.Wrapf(err, "could not write frame %d of %q", idx, dst)
		}
		written++
		if progress != nil {
			progress(written, total)
		}
	}
	return written, nil
}

func drawGrid(img *gocv.Mat, rc *export.RenderContext) {
	thickness := rc.Mapper.LineThickness()
	for _, l := range rc.Mapper.GridLines() {
		gocv.Line(img, toPoint(l[0].X, l[0].Y), toPoint(l[1].X, l[1].Y), gridColor, thickness)
	}
	for tank := 1; tank <= rc.Mapper.NumTanks(); tank++ {
		c := rc.Mapper.CellPolygon(tank)[0]
		gocv.PutText(img, strconv.Itoa(tank), toPoint(c.X+4, c.Y+16), gocv.FontHersheySimplex, 0.5, gridColor, 1)
	}
}

func drawDetections(img *gocv.Mat, rc *export.RenderContext, dets []detections.Detection) {
	for _, d := range dets {
		c := rc.Palette.Color(d.ClassName)
		labelPos := toPoint(d.CX+6, d.CY-6)
		if d.HasBox {
			rect := image.Rect(int(d.X1), int(d.Y1), int(d.X2), int(d.Y2))
			gocv.Rectangle(img, rect, c, 2)
			labelPos = image.Point{X: rect.Min.X, Y: rect.Min.Y - 6}
			if labelPos.Y < 12 {
				labelPos.Y = rect.Max.Y + 14
			}
		}
		if d.HasCentroid {
			gocv.Circle(img, toPoint(d.CX, d.CY), 3, c, -1)
		}
		gocv.PutText(img, export.Label(d), labelPos, gocv.FontHersheySimplex, 0.45, c, 1)
	}
}

func drawLegend(img *gocv.Mat, rc *export.RenderContext, l export.Layout) {
	x, y := l.LegendOrigin()
	for _, class := range rc.Palette.Classes() {
		c := rc.Palette.Color(class)
		gocv.Rectangle(img, image.Rect(x, y-10, x+12, y+2), c, -1)
		x += 16
		gocv.PutText(img, class, image.Point{X: x, Y: y}, gocv.FontHersheySimplex, 0.45, textColor, 1)
		size := gocv.GetTextSize(class, gocv.FontHersheySimplex, 0.45, 1)
		x += size.X + 14
		if x >= l.FrameWidth {
			break
		}
	}
}

func drawTimeline(img *gocv.Mat, rc *export.RenderContext, l export.Layout, frame, total int) {
	x0, x1 := l.StripSpan()
	for tank := 1; tank <= l.NumTanks; tank++ {
		top, bottom := l.Row(tank)
		if l.RowHeight >= 8 {
			gocv.PutText(img, "T"+strconv.Itoa(tank), image.Point{X: 8, Y: bottom}, gocv.FontHersheySimplex, 0.35, textColor, 1)
		}
		gocv.Rectangle(img, image.Rect(x0, top, x1, bottom), stripColor, -1)
		for _, s := range timeline.Clip(rc.Segments[tank], frame) {
			sx0 := l.FrameX(s.Start, total)
			sx1 := l.FrameX(s.End+1, total)
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			gocv.Rectangle(img, image.Rect(sx0, top, sx1, bottom), rc.Palette.Color(s.ClassName), -1)
		}
	}
	cx := l.FrameX(frame, total)
	top, _ := l.Row(1)
	_, bottom := l.Row(l.NumTanks)
	gocv.Line(img, image.Point{X: cx, Y: top}, image.Point{X: cx, Y: bottom}, cursorColor, 1)
}

func toPoint(x, y float64) image.Point {
	return image.Point{X: int(x + 0.5), Y: int(y + 0.5)}
}

