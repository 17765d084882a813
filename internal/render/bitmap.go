package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/i474232898/paperdash/internal/theme"
)

// Mode is the pixel packing a panel expects.
type Mode string

const (
	// Mono packs 8 pixels per byte, MSB first; a set bit is white.
	Mono Mode = "mono"
	// BWRY packs 4 pixels per byte, MSB first, 2 bits each.
	BWRY Mode = "bwry"
)

// Two-bit colour codes used by BWRY.
const (
	CodeBlack  byte = 0
	CodeWhite  byte = 1
	CodeYellow byte = 2
	CodeRed    byte = 3
)

var (
	black  = color.RGBA{A: 0xff}
	white  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	yellow = color.RGBA{R: 0xff, G: 0xff, A: 0xff}
	red    = color.RGBA{R: 0xff, A: 0xff}

	bwryPalette = color.Palette{black, white, yellow, red}
	monoPalette = color.Palette{black, white}
)

// ParseMode accepts the theme mode names.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Mono, BWRY:
		return Mode(s), nil
	}
	return "", fmt.Errorf("render: unknown mode %q", s)
}

// Bitmap is a packed frame plus the quantised image it was packed from.
type Bitmap struct {
	Width  int
	Height int
	Mode   Mode
	Data   []byte
	// Image holds exactly the colours encoded in Data.
	Image *image.Paletted
}

// BytesPerRow is the packed row stride.
func (b *Bitmap) BytesPerRow() int { return rowBytes(b.Width, b.Mode) }

func rowBytes(width int, mode Mode) int {
	if mode == BWRY {
		return (width + 3) / 4
	}
	return (width + 7) / 8
}

// Normalize crops src to the top-left w×h region. Missing area is white.
func Normalize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	if src != nil {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	}
	return dst
}

// Pack quantises img to the mode's palette and packs it.
func Pack(img image.Image, mode Mode) *Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pal := monoPalette
	if mode == BWRY {
		pal = bwryPalette
	}

	q := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			q.SetColorIndex(x, y, uint8(nearest(c, mode)))
		}
	}
	return &Bitmap{Width: w, Height: h, Mode: mode, Data: packPaletted(q, mode), Image: q}
}

// nearest returns the palette index (equal to the wire code) for c.
func nearest(c color.Color, mode Mode) byte {
	if mode == Mono {
		r, g, b, _ := c.RGBA()
		// ITU-R 601 luma, threshold at mid grey.
		y := (299*r + 587*g + 114*b) / 1000
		if y >= 0x8000 {
			return CodeWhite
		}
		return CodeBlack
	}
	return byte(bwryPalette.Index(c))
}

func packPaletted(q *image.Paletted, mode Mode) []byte {
	w, h := q.Rect.Dx(), q.Rect.Dy()
	stride := rowBytes(w, mode)
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := data[y*stride : (y+1)*stride]
		for x := 0; x < w; x++ {
			code := q.ColorIndexAt(x, y)
			if mode == Mono {
				if code == CodeWhite {
					row[x/8] |= 0x80 >> uint(x%8)
				}
				continue
			}
			shift := uint(6 - 2*(x%4))
			row[x/4] |= (code & 0x03) << shift
		}
	}
	return data
}

// Rotate180 returns a new bitmap turned upside down.
func (b *Bitmap) Rotate180() *Bitmap {
	w, h := b.Width, b.Height
	q := image.NewPaletted(image.Rect(0, 0, w, h), b.Image.Palette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			q.SetColorIndex(w-1-x, h-1-y, b.Image.ColorIndexAt(x, y))
		}
	}
	return &Bitmap{Width: w, Height: h, Mode: b.Mode, Data: packPaletted(q, b.Mode), Image: q}
}

// PNG encodes the quantised frame.
func (b *Bitmap) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.Image); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// modeFor maps a validated theme to its packing mode.
func modeFor(t theme.Theme) Mode {
	if t.Mode == theme.ModeBWRY {
		return BWRY
	}
	return Mono
}
