package display

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// MJPEG serves the most recent frame to HTTP clients as a multipart JPEG
// stream.  Frames are encoded on Show and handed to client goroutines
// through a shared buffer, a slow client skips frames.
type MJPEG struct {
	quality int

	mu    sync.Mutex
	frame []byte
	// updated is closed and replaced when a new frame is stored
	updated chan struct{}
	done    chan struct{}
	closed  bool
}

// NewMJPEG returns an MJPEG stream encoding frames at the given JPEG quality
func NewMJPEG(quality int) *MJPEG {

	if quality <= 0 || quality > 100 {
		quality = 80
	}

	return &MJPEG{
		quality: quality,
		updated: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Show encodes the frame and publishes it to connected clients
func (m *MJPEG) Show(img gocv.Mat) error {

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, m.quality})

	if err != nil {
		return fmt.Errorf("error encoding frame: %w", err)
	}

	defer buf.Close()

	// the native buffer is freed on Close so keep a Go copy
	data := append([]byte(nil), buf.GetBytes()...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.frame = data
	close(m.updated)
	m.updated = make(chan struct{})

	return nil
}

// latest returns the current frame and the channel signalling the next one
func (m *MJPEG) latest() ([]byte, chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame, m.updated
}

// ServeHTTP streams frames to the client until it disconnects or the stream
// is closed
func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	log.Info().Str("remote", r.RemoteAddr).Msg("New stream client connected")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	flusher, _ := w.(http.Flusher)

	for {
		frame, next := m.latest()

		if frame != nil {
			if err := writePart(w, frame); err != nil {
				log.Debug().Err(err).Msg("Stream client write failed")
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			log.Info().Str("remote", r.RemoteAddr).Msg("Stream client disconnected")
			return
		case <-m.done:
			return
		case <-next:
		}
	}
}

// writePart writes one JPEG part of the multipart stream
func writePart(w http.ResponseWriter, frame []byte) error {

	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}

	if _, err := w.Write(frame); err != nil {
		return err
	}

	_, err := w.Write([]byte("\r\n"))

	return err
}

// Quit implements Display, a stream never asks to stop
func (m *MJPEG) Quit() bool {
	return false
}

// Close disconnects all clients
func (m *MJPEG) Close() error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}

	return nil
}
