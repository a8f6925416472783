// Package video reads source videos and writes annotated copies with gocv.
package video

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultFPS is assumed when a container does not report a frame rate.
const DefaultFPS = 30.0

// Info describes a video stream.
type Info struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// Probe opens a video and reads its geometry, frame rate and frame count.
func Probe(path string) (Info, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return Info{}, errors.Wrapf(err, "could not open video %q", path)
	}
	defer capture.Close()
	if !capture.IsOpened() {
		return Info{}, errors.Errorf("could not open video %q", path)
	}
	info := Info{
		Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        capture.Get(gocv.VideoCaptureFPS),
		FrameCount: int(capture.Get(gocv.VideoCaptureFrameCount)),
	}
	if info.FPS <= 0 {
		info.FPS = DefaultFPS
	}
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, errors.Errorf("video %q reports no frame size", path)
	}
	return info, nil
}

// FirstFrame decodes the first frame of a video.
func FirstFrame(path string) (image.Image, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open video %q", path)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	if ok := capture.Read(&frame); !ok || frame.Empty() {
		return nil, errors.Errorf("could not read the first frame of %q", path)
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrapf(err, "could not convert the first frame of %q", path)
	}
	return img, nil
}
