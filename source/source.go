// Package source reads video frames from cameras, streams and files
package source

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// ErrNotOpened is returned when the video source could not be opened
var ErrNotOpened = errors.New("video source not opened")

// maxEmptyReads is the number of consecutive empty frames tolerated before
// the stream is considered ended
const maxEmptyReads = 30

// Source supplies frames in capture order
type Source interface {
	// Read decodes the next frame into img.  io.EOF is returned when no
	// more frames are available.
	Read(img *gocv.Mat) error
	// Close releases the source
	Close() error
}

// Capture is a Source reading from an RTSP/HTTP stream, a video file or a
// local camera device
type Capture struct {
	cap  *gocv.VideoCapture
	name string
}

// Open opens the location, which is a stream URL, a file path or a numeric
// camera device id
func Open(location string) (*Capture, error) {

	var (
		vc  *gocv.VideoCapture
		err error
	)

	if id, convErr := strconv.Atoi(location); convErr == nil {
		vc, err = gocv.VideoCaptureDevice(id)
	} else {
		vc, err = gocv.VideoCaptureFile(location)
	}

	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrNotOpened, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, ErrNotOpened
	}

	return &Capture{
		cap:  vc,
		name: location,
	}, nil
}

// Read decodes the next frame.  Empty frames are skipped.
func (c *Capture) Read(img *gocv.Mat) error {

	for i := 0; i < maxEmptyReads; i++ {

		if ok := c.cap.Read(img); !ok {
			return io.EOF
		}

		if !img.Empty() {
			return nil
		}
	}

	log.Warn().Int("reads", maxEmptyReads).Msg("Video source returned only empty frames")

	return io.EOF
}

// FrameRate returns the frame rate reported by the source, zero if unknown
func (c *Capture) FrameRate() float64 {
	return c.cap.Get(gocv.VideoCaptureFPS)
}

// Size returns the frame width and height reported by the source
func (c *Capture) Size() (int, int) {
	return int(c.cap.Get(gocv.VideoCaptureFrameWidth)),
		int(c.cap.Get(gocv.VideoCaptureFrameHeight))
}

// Close releases the capture device
func (c *Capture) Close() error {
	return c.cap.Close()
}

// Buffer is a Source replaying frames held in memory
type Buffer struct {
	frames []gocv.Mat
	pos    int
}

// NewBuffer returns a Source reading copies of the given frames in order.
// The Buffer takes ownership of the frames.
func NewBuffer(frames []gocv.Mat) *Buffer {
	return &Buffer{frames: frames}
}

// Load reads every frame of a video file into memory
func Load(location string) (*Buffer, error) {

	c, err := Open(location)

	if err != nil {
		return nil, err
	}

	defer c.Close()

	var frames []gocv.Mat

	for {
		img := gocv.NewMat()

		if err := c.Read(&img); err != nil {
			img.Close()
			break
		}

		frames = append(frames, img)
	}

	return NewBuffer(frames), nil
}

// Read copies the next frame into img
func (b *Buffer) Read(img *gocv.Mat) error {

	if b.pos >= len(b.frames) {
		return io.EOF
	}

	b.frames[b.pos].CopyTo(img)
	b.pos++

	return nil
}

// Rewind restarts playback from the first frame
func (b *Buffer) Rewind() {
	b.pos = 0
}

// Len returns the number of buffered frames
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Close releases the buffered frames
func (b *Buffer) Close() error {

	var errs []error

	for _, f := range b.frames {
		errs = append(errs, f.Close())
	}

	b.frames = nil

	return errors.Join(errs...)
}
