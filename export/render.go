package export

import (
	"fmt"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/grid"
	"github.com/viam-modules/tank-tracking/timeline"
)

// DefaultCodec is the FourCC of annotated videos.
const DefaultCodec = "mp4v"

// Band layout of annotated videos, in pixels.
const (
	legendHeight  = 28
	minRowHeight  = 4
	maxRowHeight  = 16
	labelWidth    = 64
	bandMargin    = 8
	maxBandFactor = 2
)

// RenderContext is everything the video annotator needs for one job. It is
// built once before the frame loop and never modified.
type RenderContext struct {
	Mapper       *grid.Mapper
	Tracked      map[int][]detections.Detection
	Palette      Palette
	Segments     map[int][]timeline.Segment
	DrawGrid     bool
	DrawOverlays bool
	Codec        string
	FPS          float64
	TotalFrames  int
}

// NewRenderContext derives the palette and timeline segments of a tracked stream.
func NewRenderContext(
	m *grid.Mapper,
	tracked map[int][]detections.Detection,
	fps float64,
	totalFrames int,
	drawGrid, drawOverlays bool,
) *RenderContext {
	return &RenderContext{
		Mapper:       m,
		Tracked:      tracked,
		Palette:      NewPalette(tracked),
		Segments:     timeline.SegmentAll(tracked),
		DrawGrid:     drawGrid,
		DrawOverlays: drawOverlays,
		Codec:        DefaultCodec,
		FPS:          fps,
		TotalFrames:  totalFrames,
	}
}

// Layout places the legend and the per-tank timeline strips in a band under
// the frame.
type Layout struct {
	FrameWidth, FrameHeight int
	BandHeight              int
	RowHeight               int
	NumTanks                int
}

// Layout returns the band geometry for a frame size. Without overlays the
// band is empty.
func (rc *RenderContext) Layout(width, height int) Layout {
	l := Layout{FrameWidth: width, FrameHeight: height, NumTanks: rc.Mapper.NumTanks()}
	if !rc.DrawOverlays || l.NumTanks == 0 {
		return l
	}
	room := height/maxBandFactor - legendHeight - bandMargin
	row := room / l.NumTanks
	if row > maxRowHeight {
		row = maxRowHeight
	}
	if row < minRowHeight {
		row = minRowHeight
	}
	l.RowHeight = row
	l.BandHeight = legendHeight + l.NumTanks*row + bandMargin
	return l
}

// LegendOrigin is the baseline of the legend text.
func (l Layout) LegendOrigin() (int, int) {
	return bandMargin, l.FrameHeight + legendHeight - bandMargin
}

// Row returns the vertical span of a tank's strip.
func (l Layout) Row(tank int) (top, bottom int) {
	top = l.FrameHeight + legendHeight + (tank-1)*l.RowHeight
	return top, top + l.RowHeight - 1
}

// StripSpan returns the horizontal span of the timeline strips.
func (l Layout) StripSpan() (x0, x1 int) {
	return labelWidth, l.FrameWidth - bandMargin
}

// FrameX maps a frame index onto the strip.
func (l Layout) FrameX(frame, totalFrames int) int {
	x0, x1 := l.StripSpan()
	if totalFrames <= 1 {
		return x0
	}
	if frame < 0 {
		frame = 0
	}
	if frame >= totalFrames {
		frame = totalFrames - 1
	}
	return x0 + frame*(x1-x0)/(totalFrames-1)
}

// Label is the text drawn next to a detection: class and track id, or
// class and confidence for untracked detections.
func Label(d detections.Detection) string {
	if d.TrackID != detections.NoTrack {
		return fmt.Sprintf("%s #%d", d.ClassName, d.TrackID)
	}
	return fmt.Sprintf("%s %.2f", d.ClassName, d.Conf)
}
