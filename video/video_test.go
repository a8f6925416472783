package video

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"go.viam.com/test"

	"github.com/viam-modules/tank-tracking/detections"
	"github.com/viam-modules/tank-tracking/export"
	"github.com/viam-modules/tank-tracking/grid"
)

const (
	testWidth  = 160
	testHeight = 120
	testFrames = 12
	testCodec  = "MJPG"
)

// writeTestVideo renders a moving square, or skips when no codec is available.
func writeTestVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")
	writer, err := gocv.VideoWriterFile(path, testCodec, 10, testWidth, testHeight, true)
	if err != nil || !writer.IsOpened() {
		t.Skip("no video codec available")
	}
	frame := gocv.NewMatWithSize(testHeight, testWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i := 0; i < testFrames; i++ {
		frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
		gocv.Rectangle(&frame, image.Rect(10+5*i, 40, 30+5*i, 60), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
		test.That(t, writer.Write(frame), test.ShouldBeNil)
	}
	test.That(t, writer.Close(), test.ShouldBeNil)
	return path
}

func renderContext(t *testing.T, overlays bool) *export.RenderContext {
	t.Helper()
	m, err := grid.NewMapper(grid.Settings{
		Grid:      &grid.GridSettings{Cols: 2, Rows: 1, LineThickness: 1},
		Transform: &grid.GridTransform{CenterX: 0.5, CenterY: 0.5, ScaleX: 1, ScaleY: 1},
	}, testWidth, testHeight)
	test.That(t, err, test.ShouldBeNil)
	tracked := map[int][]detections.Detection{}
	for i := 0; i < testFrames; i++ {
		x := 20 + 5*float64(i)
		tracked[i] = []detections.Detection{{
			Frame: i, ClassName: "swim", Conf: 0.9, TrackID: 1, Tank: 1,
			X1: x - 10, Y1: 40, X2: x + 10, Y2: 60, HasBox: true,
			CX: x, CY: 50, HasCentroid: true,
		}}
	}
	rc := export.NewRenderContext(m, tracked, 10, testFrames, true, overlays)
	rc.Codec = testCodec
	return rc
}

func TestProbe(t *testing.T) {
	path := writeTestVideo(t)
	info, err := Probe(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Width, test.ShouldEqual, testWidth)
	test.That(t, info.Height, test.ShouldEqual, testHeight)
	test.That(t, info.FPS, test.ShouldBeGreaterThan, 0)

	img, err := FirstFrame(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, testWidth)

	_, err = Probe(filepath.Join(t.TempDir(), "missing.avi"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAnnotate(t *testing.T) {
	src := writeTestVideo(t)
	dst := filepath.Join(t.TempDir(), "clip_annotated.avi")
	rc := renderContext(t, true)
	var calls int
	written, err := Annotate(context.Background(), src, dst, rc, func(done, total int) {
		calls++
		test.That(t, done, test.ShouldEqual, calls)
		test.That(t, total, test.ShouldEqual, testFrames)
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldEqual, testFrames)

	info, err := Probe(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Width, test.ShouldEqual, testWidth)
	test.That(t, info.Height, test.ShouldEqual, testHeight+rc.Layout(testWidth, testHeight).BandHeight)
}

func TestAnnotateCancelled(t *testing.T) {
	src := writeTestVideo(t)
	dst := filepath.Join(t.TempDir(), "clip_annotated.avi")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	written, err := Annotate(ctx, src, dst, renderContext(t, false), func(done, total int) {
		if done == 3 {
			cancel()
		}
	})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, written, test.ShouldEqual, 3)

	// the truncated output is closed and readable
	info, err := Probe(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Height, test.ShouldEqual, testHeight)
	img, err := FirstFrame(dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, testHeight)
}
