// Package theme describes how a frame looks: panel geometry, colour mode,
// palette and font sizes. Two themes are built in; others are read from YAML.
package theme

import (
	"embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed themes/*.yml
var builtin embed.FS

var ErrUnknownTheme = errors.New("unknown theme")

const (
	ModeMono = "mono"
	ModeBWRY = "bwry"
)

type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Palette holds CSS-style hex colours.
type Palette struct {
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
	Muted      string `yaml:"muted"`
	Accent     string `yaml:"accent"`
	Alert      string `yaml:"alert"`
}

type Fonts struct {
	Family  string  `yaml:"family"`
	Clock   float64 `yaml:"clock"`
	Heading float64 `yaml:"heading"`
	Body    float64 `yaml:"body"`
	Small   float64 `yaml:"small"`
}

type Theme struct {
	Name    string  `yaml:"name"`
	Mode    string  `yaml:"mode"`
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Render  Size    `yaml:"render"`
	Palette Palette `yaml:"palette"`
	Fonts   Fonts   `yaml:"fonts"`
	// Template optionally points at an html/template file replacing the built-in layout.
	Template string `yaml:"template"`
}

// Load resolves "mono", "bwry" or a path to a YAML file.
func Load(nameOrPath string) (Theme, error) {
	name := strings.TrimSpace(nameOrPath)
	if name == "" {
		name = ModeMono
	}

	var (
		raw []byte
		err error
	)
	if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
		raw, err = os.ReadFile(name)
	} else {
		raw, err = builtin.ReadFile("themes/" + name + ".yml")
		if err != nil {
			return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
		}
	}
	if err != nil {
		return Theme{}, fmt.Errorf("theme: read %s: %w", name, err)
	}
	return Parse(raw)
}

// Parse decodes a theme and fills unset fields from the mono theme.
func Parse(raw []byte) (Theme, error) {
	t := Default()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Theme{}, fmt.Errorf("theme: decode: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// Default is the built-in mono theme.
func Default() Theme {
	return Theme{
		Name:   ModeMono,
		Mode:   ModeMono,
		Width:  800,
		Height: 480,
		Render: Size{Width: 800, Height: 600},
		Palette: Palette{
			Background: "#ffffff",
			Text:       "#000000",
			Muted:      "#000000",
			Accent:     "#000000",
			Alert:      "#000000",
		},
		Fonts: Fonts{Family: "sans-serif", Clock: 64, Heading: 20, Body: 16, Small: 13},
	}
}

func (t Theme) Validate() error {
	if t.Mode != ModeMono && t.Mode != ModeBWRY {
		return fmt.Errorf("theme %s: mode must be %s or %s, got %q", t.Name, ModeMono, ModeBWRY, t.Mode)
	}
	if t.Width <= 0 || t.Height <= 0 || t.Render.Width <= 0 || t.Render.Height <= 0 {
		return fmt.Errorf("theme %s: sizes must be positive", t.Name)
	}
	for _, c := range []string{t.Palette.Background, t.Palette.Text, t.Palette.Muted, t.Palette.Accent, t.Palette.Alert} {
		if _, err := ParseColor(c); err != nil {
			return fmt.Errorf("theme %s: %w", t.Name, err)
		}
	}
	return nil
}

// Color returns a palette entry; the theme has been validated so errors cannot occur.
func (t Theme) Color(hex string) color.RGBA {
	c, _ := ParseColor(hex)
	return c
}

// ParseColor reads "#rgb" or "#rrggbb".
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
