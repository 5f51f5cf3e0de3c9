// Package capture wraps gocv cameras, video files and video writers
// behind small interfaces so the processing code can run against fakes.
package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultFPS is used when a container does not report its frame rate.
const DefaultFPS = 30.0

var (
	// ErrOpen is returned when a camera or video file cannot be opened.
	ErrOpen = errors.New("could not open capture source")
	// ErrCreate is returned when an output video cannot be created.
	ErrCreate = errors.New("could not create video writer")
)

// Source yields frames one at a time. *gocv.VideoCapture satisfies it.
type Source interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

// Sink receives frames. *gocv.VideoWriter satisfies it.
type Sink interface {
	Write(img gocv.Mat) error
	Close() error
}

// Properties describes the geometry and timing of a video source.
type Properties struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int // As reported by the container, 0 when unknown
}

// OpenCamera opens a capture device by index.
func OpenCamera(device int) (Source, error) {
	cam, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		if cam != nil {
			cam.Close()
		}
		return nil, fmt.Errorf("%w: camera %d: %v", ErrOpen, device, err)
	}
	if !cam.IsOpened() {
		cam.Close()
		return nil, fmt.Errorf("%w: camera %d", ErrOpen, device)
	}
	return cam, nil
}

// OpenVideo opens a video file and reads its properties.
func OpenVideo(path string) (Source, Properties, error) {
	video, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if video != nil {
			video.Close()
		}
		return nil, Properties{}, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	if !video.IsOpened() {
		video.Close()
		return nil, Properties{}, fmt.Errorf("%w: %s", ErrOpen, path)
	}

	props := Properties{
		Width:      int(video.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(video.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        video.Get(gocv.VideoCaptureFPS),
		FrameCount: int(video.Get(gocv.VideoCaptureFrameCount)),
	}
	if props.Width <= 0 || props.Height <= 0 {
		video.Close()
		return nil, Properties{}, fmt.Errorf("%w: %s: invalid frame size %dx%d", ErrOpen, path, props.Width, props.Height)
	}
	if props.FPS <= 0 {
		props.FPS = DefaultFPS
	}
	if props.FrameCount < 0 {
		props.FrameCount = 0
	}

	return video, props, nil
}

// CreateVideo opens a color video writer with the given codec tag, size and rate.
func CreateVideo(path, codec string, props Properties) (Sink, error) {
	if len(codec) != 4 {
		return nil, fmt.Errorf("%w: codec tag %q must have 4 characters", ErrCreate, codec)
	}

	writer, err := gocv.VideoWriterFile(path, codec, props.FPS, props.Width, props.Height, true)
	if err != nil {
		if writer != nil {
			writer.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCreate, path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("%w: %s", ErrCreate, path)
	}
	return writer, nil
}
