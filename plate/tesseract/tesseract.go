// Package tesseract implements plate.Recognizer with the Tesseract OCR engine
package tesseract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// Options configures the Tesseract client
type Options struct {
	// Language is the trained data language, eg: "eng"
	Language string
	// Whitelist limits recognition to the given characters, empty allows all
	Whitelist string
}

// Recognizer reads text from plate images.  Tesseract runs in single word
// page segmentation mode with the default LSTM engine.  A Recognizer is not
// safe for concurrent use.
type Recognizer struct {
	client *gosseract.Client
}

// New creates a Tesseract client with the given options
func New(opts Options) (*Recognizer, error) {

	client := gosseract.NewClient()

	if opts.Language != "" {
		if err := client.SetLanguage(opts.Language); err != nil {
			client.Close()
			return nil, fmt.Errorf("error setting OCR language: %w", err)
		}
	}

	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		client.Close()
		return nil, fmt.Errorf("error setting page segmentation mode: %w", err)
	}

	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("error setting character whitelist: %w", err)
		}
	}

	return &Recognizer{
		client: client,
	}, nil
}

// Recognize returns the raw text found in the image
func (r *Recognizer) Recognize(img gocv.Mat) (string, error) {

	if img.Empty() {
		return "", fmt.Errorf("plate image is empty")
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)

	if err != nil {
		return "", fmt.Errorf("error encoding plate image: %w", err)
	}

	defer buf.Close()

	if err := r.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("error setting OCR image: %w", err)
	}

	text, err := r.client.Text()

	if err != nil {
		return "", fmt.Errorf("error recognising text: %w", err)
	}

	return text, nil
}

// Close releases the Tesseract client
func (r *Recognizer) Close() error {
	return r.client.Close()
}
