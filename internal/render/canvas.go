package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/i474232898/paperdash/internal/dashboard"
	"github.com/i474232898/paperdash/internal/theme"
)

const (
	margin    = 16
	columnGap = 16
)

// CanvasRenderer draws the layout directly with the Go fonts. It needs no
// browser and is the fallback when Chromium is missing.
type CanvasRenderer struct {
	theme   theme.Theme
	clock   font.Face
	heading font.Face
	body    font.Face
	bold    font.Face
	small   font.Face
}

func NewCanvasRenderer(t theme.Theme) (*CanvasRenderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse regular font: %w", err)
	}
	boldFont, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse bold font: %w", err)
	}

	r := &CanvasRenderer{theme: t}
	faces := []struct {
		dst  *font.Face
		f    *opentype.Font
		size float64
	}{
		{&r.clock, boldFont, t.Fonts.Clock},
		{&r.heading, boldFont, t.Fonts.Heading},
		{&r.body, regular, t.Fonts.Body},
		{&r.bold, boldFont, t.Fonts.Body},
		{&r.small, regular, t.Fonts.Small},
	}
	for _, fc := range faces {
		face, err := opentype.NewFace(fc.f, &opentype.FaceOptions{Size: fc.size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("render: font face %.0fpt: %w", fc.size, err)
		}
		*fc.dst = face
	}
	return r, nil
}

func (r *CanvasRenderer) Name() string { return "canvas" }

// canvas is the per-frame drawing state.
type canvas struct {
	img                        *image.RGBA
	text, muted, accent, alert color.Color
}

func (r *CanvasRenderer) Render(ctx context.Context, c dashboard.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := r.theme
	cv := &canvas{
		img:    image.NewRGBA(image.Rect(0, 0, t.Render.Width, t.Render.Height)),
		text:   t.Color(t.Palette.Text),
		muted:  t.Color(t.Palette.Muted),
		accent: t.Color(t.Palette.Accent),
		alert:  t.Color(t.Palette.Alert),
	}
	draw.Draw(cv.img, cv.img.Bounds(), image.NewUniform(t.Color(t.Palette.Background)), image.Point{}, draw.Src)

	w, h := t.Width, t.Height
	col := (w - 2*margin - columnGap) / 2
	left, right := margin, margin+col+columnGap

	// Header.
	y := margin + ascent(r.clock)
	cv.write(r.clock, cv.text, left, y, c.Time)
	cv.write(r.heading, cv.text, left+width(r.clock, c.Time)+columnGap, y, c.Date)
	y += 8
	cv.hline(margin, w-margin, y, 2, cv.text)
	top := y + 8

	// Weather, left column.
	y = top + ascent(r.clock)
	temp := c.Weather.Temp + "°"
	cv.write(r.clock, cv.text, left, y, temp)
	descColor := cv.text
	if !c.Weather.Available {
		descColor = cv.alert
	}
	cv.write(r.heading, descColor, left+width(r.clock, temp)+8, y, fit(r.heading, c.Weather.Desc, col-width(r.clock, temp)-8))
	y += lineHeight(r.body) + 4
	cv.write(r.body, cv.text, left, y, fmt.Sprintf("Wind %s   Gust %s", c.Weather.Wind, c.Weather.Gust))
	y += lineHeight(r.body)
	cv.write(r.body, cv.text, left, y, fmt.Sprintf("UV %s   Rain %s", c.Weather.UV, c.Weather.Rain))
	y += 8
	slotW := (col - 2*8) / 3
	for i, f := range c.Weather.Forecast {
		if i == 3 {
			break
		}
		x := left + i*(slotW+8)
		cv.forecast(r, image.Rect(x, y, x+slotW, y+3*lineHeight(r.small)+28), f)
	}

	// Departures, right column.
	y = top + ascent(r.heading)
	cv.write(r.heading, cv.accent, right, y, "Departures")
	y += 6
	cv.hline(right, right+col, y, 1, cv.text)
	for _, d := range c.Transit {
		y += lineHeight(r.body) + 2
		cv.write(r.bold, cv.text, right, y, d.Route)
		cv.write(r.body, cv.text, right+56, y, fit(r.body, d.Destination, col-56-64))
		cv.write(r.body, cv.text, right+col-width(r.body, d.Due), y, d.Due)
	}

	// Calendar, full width.
	y = top + 196
	cv.write(r.heading, cv.accent, left, y, "Upcoming")
	y += 6
	cv.hline(left, w-margin, y, 1, cv.text)
	if c.CalendarNote != "" {
		y += lineHeight(r.body)
		cv.write(r.body, cv.muted, left, y, c.CalendarNote)
	}
	for _, ev := range c.Calendar {
		y += lineHeight(r.body)
		when := ev.Date + " " + ev.Time
		cv.write(r.bold, cv.text, left, y, when)
		cv.write(r.body, cv.text, left+220, y, ev.Summary)
	}

	// Footer grows upwards from the bottom edge.
	y = h - margin/2
	cv.write(r.small, cv.muted, left, y, c.System)
	cv.write(r.small, cv.muted, w-margin-width(r.small, c.Footer), y, c.Footer)
	y -= lineHeight(r.small) + 2
	cv.hline(margin, w-margin, y-ascent(r.small)-2, 1, cv.text)
	lines := wrap(r.small, c.Fact, w-2*margin)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	for i := len(lines) - 1; i >= 0; i-- {
		cv.write(r.small, cv.text, left, y, lines[i])
		y -= lineHeight(r.small)
	}
	for i := len(c.News) - 1; i >= 0; i-- {
		hl := c.News[i]
		y -= 2
		cv.write(r.bold, cv.accent, left, y, hl.Source)
		x := left + width(r.bold, hl.Source) + 8
		cv.write(r.body, cv.text, x, y, fit(r.body, hl.Title, w-margin-x))
		y -= lineHeight(r.body)
	}
	return cv.img, nil
}

func (cv *canvas) forecast(r *CanvasRenderer, box image.Rectangle, f dashboard.Forecast) {
	cv.rect(box, cv.text)
	cx := box.Min.X + box.Dx()/2
	y := box.Min.Y + ascent(r.small) + 2
	cv.write(r.small, cv.text, cx-width(r.small, f.Label)/2, y, f.Label)
	cv.icon(f.Icon, cx, y+14)
	y += 28 + lineHeight(r.small)
	line := f.Temp + " " + f.Rain
	cv.write(r.small, cv.text, cx-width(r.small, line)/2, y, line)
}

func (cv *canvas) icon(name string, cx, cy int) {
	switch name {
	case "sun":
		cv.disc(cx, cy, 8, cv.alert)
	case "rain":
		cv.cloud(cx, cy-2)
		for i := -1; i <= 1; i++ {
			cv.vline(cx+i*5, cy+6, cy+12, cv.accent)
		}
	case "snow":
		cv.cloud(cx, cy-2)
		for i := -1; i <= 1; i++ {
			cv.disc(cx+i*6, cy+9, 1, cv.text)
		}
	default:
		cv.cloud(cx, cy)
	}
}

func (cv *canvas) cloud(cx, cy int) {
	cv.disc(cx-5, cy+1, 5, cv.text)
	cv.disc(cx+1, cy-2, 7, cv.text)
	cv.disc(cx+7, cy+2, 4, cv.text)
}

func (cv *canvas) write(face font.Face, c color.Color, x, y int, s string) {
	if s == "" {
		return
	}
	d := font.Drawer{Dst: cv.img, Src: image.NewUniform(c), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(s)
}

func (cv *canvas) hline(x0, x1, y, thick int, c color.Color) {
	draw.Draw(cv.img, image.Rect(x0, y, x1, y+thick), image.NewUniform(c), image.Point{}, draw.Src)
}

func (cv *canvas) vline(x, y0, y1 int, c color.Color) {
	draw.Draw(cv.img, image.Rect(x, y0, x+1, y1), image.NewUniform(c), image.Point{}, draw.Src)
}

func (cv *canvas) rect(r image.Rectangle, c color.Color) {
	cv.hline(r.Min.X, r.Max.X, r.Min.Y, 1, c)
	cv.hline(r.Min.X, r.Max.X, r.Max.Y-1, 1, c)
	cv.vline(r.Min.X, r.Min.Y, r.Max.Y, c)
	cv.vline(r.Max.X-1, r.Min.Y, r.Max.Y, c)
}

func (cv *canvas) disc(cx, cy, radius int, c color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				cv.img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

func width(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func ascent(face font.Face) int {
	return face.Metrics().Ascent.Ceil()
}

func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

// fit shortens s with ".." until it is at most max pixels wide.
func fit(face font.Face, s string, max int) string {
	if width(face, s) <= max {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && width(face, string(r)+"..") > max {
		r = r[:len(r)-1]
	}
	return string(r) + ".."
}

// wrap breaks s into lines no wider than max pixels. A single word wider
// than max gets a line of its own.
func wrap(face font.Face, s string, max int) []string {
	var (
		lines []string
		cur   []string
	)
	for _, word := range strings.Fields(s) {
		next := strings.Join(append(cur, word), " ")
		if width(face, next) > max && len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = []string{word}
			continue
		}
		cur = append(cur, word)
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}
