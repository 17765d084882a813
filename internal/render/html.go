package render

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/i474232898/paperdash/internal/dashboard"
	"github.com/i474232898/paperdash/internal/theme"
)

var (
	//go:embed templates/dashboard.html.tmpl
	defaultTemplate string
	//go:embed templates/style.css
	defaultCSS string
)

var ErrNoBrowser = errors.New("render: chromium not found")

// ChromiumPaths are probed in order when no binary is configured.
var ChromiumPaths = []string{
	"chromium",
	"chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/lib/chromium-browser/chromium-browser",
	"google-chrome",
}

// FindChromium returns the first candidate found on PATH or on disk.
func FindChromium(candidates ...string) (string, error) {
	if len(candidates) == 0 {
		candidates = ChromiumPaths
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", ErrNoBrowser
}

// CommandRunner executes a process and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// HTMLRenderer fills an HTML template and screenshots it with headless Chromium.
type HTMLRenderer struct {
	browser string
	theme   theme.Theme
	tmpl    *template.Template
	run     CommandRunner
}

// NewHTMLRenderer parses the theme's template, or the built-in one when the
// theme names none.
func NewHTMLRenderer(browser string, t theme.Theme) (*HTMLRenderer, error) {
	src := defaultTemplate
	if t.Template != "" {
		raw, err := os.ReadFile(t.Template)
		if err != nil {
			return nil, fmt.Errorf("render: read template: %w", err)
		}
		src = string(raw)
	}
	tmpl, err := template.New("dashboard").Funcs(template.FuncMap{"glyph": glyph}).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("render: parse template: %w", err)
	}
	return &HTMLRenderer{browser: browser, theme: t, tmpl: tmpl, run: execRunner}, nil
}

// WithRunner replaces the process runner; used by tests.
func (r *HTMLRenderer) WithRunner(run CommandRunner) *HTMLRenderer {
	r.run = run
	return r
}

func (r *HTMLRenderer) Name() string { return "chromium" }

// Markup executes the template for c.
func (r *HTMLRenderer) Markup(c dashboard.Context) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		C     dashboard.Context
		Theme theme.Theme
		CSS   template.CSS
	}{C: c, Theme: r.theme, CSS: template.CSS(defaultCSS)}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render: execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) Render(ctx context.Context, c dashboard.Context) (image.Image, error) {
	markup, err := r.Markup(c)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "paperdash-render-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	page := filepath.Join(dir, "index.html")
	shot := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(page, markup, 0o600); err != nil {
		return nil, err
	}

	w, h := r.theme.Render.Width, r.theme.Render.Height
	args := []string{
		"--headless",
		"--no-sandbox",
		"--disable-gpu",
		"--hide-scrollbars",
		"--force-device-scale-factor=1",
		"--window-size=" + strconv.Itoa(w) + "," + strconv.Itoa(h),
		"--screenshot=" + shot,
		"file://" + page,
	}
	if out, err := r.run(ctx, r.browser, args...); err != nil {
		return nil, fmt.Errorf("chromium: %w: %s", err, bytes.TrimSpace(out))
	}

	f, err := os.Open(shot)
	if err != nil {
		return nil, fmt.Errorf("chromium wrote no screenshot: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func glyph(icon string) string {
	switch icon {
	case "sun":
		return "☀"
	case "rain":
		return "☂"
	case "snow":
		return "❄"
	default:
		return "☁"
	}
}
