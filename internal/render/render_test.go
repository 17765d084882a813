package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/paperdash/internal/dashboard"
	"github.com/i474232898/paperdash/internal/news"
	"github.com/i474232898/paperdash/internal/theme"
	"github.com/i474232898/paperdash/internal/transit"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func sampleContext() dashboard.Context {
	return dashboard.Context{
		Date: "Saturday, 01 June",
		Time: "14:05",
		Weather: dashboard.Weather{
			Available: true, Temp: "18", Desc: "Clouds", Wind: "19kt E", Gust: "25kt", UV: "3", Rain: "40%",
			Forecast: []dashboard.Forecast{
				{Label: "3pm", Temp: "17°", Rain: "10%", Icon: "cloud"},
				{Label: "4pm", Temp: "16°", Rain: "60%", Icon: "rain"},
				{Label: "5pm", Temp: "15°", Rain: "0%", Icon: "sun"},
			},
		},
		Transit:      []transit.Departure{{Route: "333", Destination: "Bondi Beach", Due: "14:12"}},
		CalendarNote: "No upcoming events",
		News:         []news.Headline{{Source: "ABC", Code: "abc", Title: "A <b>bold</b> headline"}},
		Fact:         "Octopuses have three hearts and blue blood.",
		System:       "pi up 1h 0m | load 0.50 | mem 40%",
		Footer:       "Data fetched @ 14:05:09",
		Theme:        theme.Default(),
	}
}

func TestPackMono(t *testing.T) {
	img := filled(10, 2, color.White)
	img.Set(0, 0, color.Black)
	img.Set(9, 1, color.Black)

	b := Pack(img, Mono)
	assert.Equal(t, 2, b.BytesPerRow())
	require.Len(t, b.Data, 4)
	// Row 0: first pixel black, rest white; the two trailing pad bits stay 0.
	assert.Equal(t, []byte{0x7f, 0xc0, 0xff, 0x80}, b.Data)
}

func TestPackBWRY(t *testing.T) {
	img := filled(5, 1, color.White)
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.RGBA{R: 0xff, G: 0xff, A: 0xff})
	img.Set(2, 0, color.RGBA{R: 0xff, A: 0xff})
	img.Set(3, 0, color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff})

	b := Pack(img, BWRY)
	assert.Equal(t, 2, b.BytesPerRow())
	// black=00 yellow=10 red=11 white=01 | white=01 then padding.
	assert.Equal(t, []byte{0b00101101, 0b01000000}, b.Data)
}

func TestNormalizeCropsAndPads(t *testing.T) {
	big := filled(800, 600, color.Black)
	out := Normalize(big, 800, 480)
	assert.Equal(t, image.Rect(0, 0, 800, 480), out.Bounds())
	assert.Equal(t, color.RGBA{A: 0xff}, out.RGBAAt(799, 479))

	small := filled(100, 100, color.Black)
	out = Normalize(small, 200, 200)
	assert.Equal(t, color.RGBA{A: 0xff}, out.RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, out.RGBAAt(150, 150))
}

func TestRotate180(t *testing.T) {
	img := filled(8, 2, color.White)
	img.Set(0, 0, color.Black)

	b := Pack(img, Mono).Rotate180()
	assert.Equal(t, []byte{0xff, 0xfe}, b.Data)
	assert.Equal(t, uint8(CodeBlack), b.Image.ColorIndexAt(7, 1))
}

func TestBitmapPNG(t *testing.T) {
	b := Pack(filled(16, 8, color.White), Mono)
	raw, err := b.PNG()
	require.NoError(t, err)
	img, err := png.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}

type stubRenderer struct {
	img image.Image
	err error
}

func (s stubRenderer) Name() string { return "stub" }

func (s stubRenderer) Render(context.Context, dashboard.Context) (image.Image, error) {
	return s.img, s.err
}

func TestPipelineCropsToPanel(t *testing.T) {
	p := NewPipeline(stubRenderer{img: filled(800, 600, color.White)}, theme.Default(), quietLogger())
	b, err := p.Render(context.Background(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, 800, b.Width)
	assert.Equal(t, 480, b.Height)
	assert.Equal(t, Mono, b.Mode)
	assert.Equal(t, b.Mode, p.Mode())
	assert.Len(t, b.Data, 100*480)
}

func TestPipelineBWRYTheme(t *testing.T) {
	th, err := theme.Load("bwry")
	require.NoError(t, err)
	p := NewPipeline(stubRenderer{img: filled(800, 600, color.White)}, th, quietLogger())
	b, err := p.Render(context.Background(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, BWRY, b.Mode)
	assert.Equal(t, BWRY, p.Mode())
	assert.Len(t, b.Data, 200*480)
}

func TestPipelineRendererError(t *testing.T) {
	p := NewPipeline(stubRenderer{err: errors.New("chromium crashed")}, theme.Default(), quietLogger())
	_, err := p.Render(context.Background(), sampleContext())
	assert.ErrorContains(t, err, "chromium crashed")

	p = NewPipeline(stubRenderer{}, theme.Default(), quietLogger())
	_, err = p.Render(context.Background(), sampleContext())
	assert.ErrorIs(t, err, ErrEmptyRender)
}

func TestCanvasRenderer(t *testing.T) {
	r, err := NewCanvasRenderer(theme.Default())
	require.NoError(t, err)

	img, err := r.Render(context.Background(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())

	b := Pack(Normalize(img, 800, 480), Mono)
	var black int
	for _, by := range b.Data {
		for i := 0; i < 8; i++ {
			if by&(0x80>>i) == 0 {
				black++
			}
		}
	}
	assert.Greater(t, black, 1000, "something was drawn")
}

func TestHTMLRendererMarkupEscapes(t *testing.T) {
	r, err := NewHTMLRenderer("chromium", theme.Default())
	require.NoError(t, err)

	out, err := r.Markup(sampleContext())
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, "14:05")
	assert.Contains(t, html, "Bondi Beach")
	assert.Contains(t, html, "A &lt;b&gt;bold&lt;/b&gt; headline")
	assert.Contains(t, html, "No upcoming events")
}

func TestHTMLRendererRunsChromium(t *testing.T) {
	r, err := NewHTMLRenderer("/opt/chromium", theme.Default())
	require.NoError(t, err)

	var gotArgs []string
	r.WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "/opt/chromium", name)
		gotArgs = args
		for _, a := range args {
			if path, ok := strings.CutPrefix(a, "--screenshot="); ok {
				f, err := os.Create(path)
				require.NoError(t, err)
				defer f.Close()
				require.NoError(t, png.Encode(f, filled(800, 600, color.White)))
			}
		}
		return nil, nil
	})

	img, err := r.Render(context.Background(), sampleContext())
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dy())
	assert.Contains(t, gotArgs, "--window-size=800,600")
	assert.Contains(t, gotArgs, "--hide-scrollbars")
	assert.Contains(t, gotArgs, "--force-device-scale-factor=1")
}

func TestHTMLRendererChromiumFailure(t *testing.T) {
	r, err := NewHTMLRenderer("chromium", theme.Default())
	require.NoError(t, err)
	r.WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("no display"), errors.New("exit status 1")
	})

	_, err = r.Render(context.Background(), sampleContext())
	assert.ErrorContains(t, err, "no display")
}

func TestFindChromiumMissing(t *testing.T) {
	_, err := FindChromium("/definitely/not/here/chromium")
	assert.ErrorIs(t, err, ErrNoBrowser)
}
