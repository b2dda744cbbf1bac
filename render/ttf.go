package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"unicode"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// TTFont draws text with a TrueType font.  Hershey fonts only cover Latin
// characters so a TTFont is needed to show plates in other scripts.
type TTFont struct {
	font *sfnt.Font
	face font.Face
	buf  sfnt.Buffer
}

// ErrMissingGlyph is returned by Draw when the font has no glyph for a
// character of the text
var ErrMissingGlyph = errors.New("font has no glyph")

// LoadTTF loads a TrueType or OpenType font file
func LoadTTF(path string, size float64) (*TTFont, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	return ParseTTF(data, size)
}

// ParseTTF creates a font face from font file contents
func ParseTTF(data []byte, size float64) (*TTFont, error) {

	f, err := opentype.Parse(data)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return &TTFont{font: f, face: face}, nil
}

// Draw writes text onto the BGR image with its baseline starting at x, y.
// Only the text's bounding region is copied through an RGBA buffer.  Nothing
// is drawn if any character is missing from the font.
func (t *TTFont) Draw(img *gocv.Mat, text string, x, y int, clr color.RGBA) error {

	if img.Channels() != 3 {
		return fmt.Errorf("expected 3 channel image, got %d", img.Channels())
	}

	if err := t.Supports(text); err != nil {
		return err
	}

	bounds, _ := font.BoundString(t.face, text)

	region := image.Rect(
		x+bounds.Min.X.Floor(), y+bounds.Min.Y.Floor(),
		x+bounds.Max.X.Ceil(), y+bounds.Max.Y.Ceil(),
	).Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if region.Empty() {
		return nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(rgba, rgba.Bounds(), image.Transparent, image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(clr),
		Face: t.face,
		Dot: fixed.Point26_6{
			X: fixed.I(x - region.Min.X),
			Y: fixed.I(y - region.Min.Y),
		},
	}
	dr.DrawString(text)

	// blend the glyph pixels over the image using their alpha
	roi := img.Region(region)
	defer roi.Close()

	for py := 0; py < region.Dy(); py++ {
		for px := 0; px < region.Dx(); px++ {

			c := rgba.RGBAAt(px, py)

			if c.A == 0 {
				continue
			}

			a := float64(c.A) / 255
			b := roi.GetVecbAt(py, px)

			roi.SetUCharAt(py, px*3, blend(b[0], c.B, a))
			roi.SetUCharAt(py, px*3+1, blend(b[1], c.G, a))
			roi.SetUCharAt(py, px*3+2, blend(b[2], c.R, a))
		}
	}

	return nil
}

// Supports returns ErrMissingGlyph if a non space character of text has no
// glyph in the font
func (t *TTFont) Supports(text string) error {

	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}

		idx, err := t.font.GlyphIndex(&t.buf, r)

		if err != nil {
			return fmt.Errorf("error looking up glyph %q: %w", r, err)
		}

		// index 0 is the .notdef glyph
		if idx == 0 {
			return fmt.Errorf("%w: %q", ErrMissingGlyph, r)
		}
	}

	return nil
}

// Close releases the font face
func (t *TTFont) Close() error {
	return t.face.Close()
}

// blend mixes the premultiplied source channel over dst
func blend(dst, src uint8, alpha float64) uint8 {
	return uint8(math.Min(float64(src)+float64(dst)*(1-alpha), 255))
}
