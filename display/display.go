// Package display shows annotated frames to an operator and reports when
// they ask to quit
package display

import (
	"errors"

	"gocv.io/x/gocv"
)

// Display presents annotated frames
type Display interface {
	// Show presents the frame
	Show(img gocv.Mat) error
	// Quit reports if the operator asked to stop
	Quit() bool
	// Close releases the display
	Close() error
}

// QuitKey is the key that stops processing from a Window
const QuitKey = 'q'

// Window shows frames in a desktop window
type Window struct {
	win  *gocv.Window
	quit bool
}

// NewWindow opens a window with the given title
func NewWindow(title string) *Window {
	return &Window{
		win: gocv.NewWindow(title),
	}
}

// Show draws the frame and polls the keyboard for one millisecond
func (w *Window) Show(img gocv.Mat) error {

	w.win.IMShow(img)

	if key := w.win.WaitKey(1); key&0xFF == QuitKey {
		w.quit = true
	}

	return nil
}

// Quit returns true once the quit key was pressed
func (w *Window) Quit() bool {
	return w.quit
}

// Close destroys the window
func (w *Window) Close() error {
	return w.win.Close()
}

// Headless is a Display that discards frames
type Headless struct{}

// Show implements Display
func (Headless) Show(gocv.Mat) error { return nil }

// Quit implements Display
func (Headless) Quit() bool { return false }

// Close implements Display
func (Headless) Close() error { return nil }

// Multi shows frames on several displays
type Multi []Display

// Show presents the frame on every display
func (m Multi) Show(img gocv.Mat) error {

	var errs []error

	for _, d := range m {
		errs = append(errs, d.Show(img))
	}

	return errors.Join(errs...)
}

// Quit reports if any display asked to stop
func (m Multi) Quit() bool {

	for _, d := range m {
		if d.Quit() {
			return true
		}
	}

	return false
}

// Close closes every display
func (m Multi) Close() error {

	var errs []error

	for _, d := range m {
		errs = append(errs, d.Close())
	}

	return errors.Join(errs...)
}
