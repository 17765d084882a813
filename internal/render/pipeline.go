// Package render turns a dashboard.Context into a packed panel bitmap.
//
// A Renderer draws an oversized RGB image; the Pipeline crops it to the panel,
// quantises it to the theme's colours and packs it for the wire.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/dashboard"
	"github.com/i474232898/paperdash/internal/theme"
)

var ErrEmptyRender = errors.New("render: renderer returned no image")

// Renderer draws one frame. The image may be larger than the panel.
type Renderer interface {
	Name() string
	Render(ctx context.Context, c dashboard.Context) (image.Image, error)
}

type Pipeline struct {
	renderer Renderer
	theme    theme.Theme
	log      logrus.FieldLogger
}

func NewPipeline(r Renderer, t theme.Theme, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{renderer: r, theme: t, log: log}
}

// Name reports the renderer in use.
func (p *Pipeline) Name() string { return p.renderer.Name() }

// Theme is the theme frames are packed for.
func (p *Pipeline) Theme() theme.Theme { return p.theme }

// Mode is the packing every frame from this pipeline uses.
func (p *Pipeline) Mode() Mode { return modeFor(p.theme) }

// Render draws, normalises and packs one frame.
func (p *Pipeline) Render(ctx context.Context, c dashboard.Context) (*Bitmap, error) {
	start := time.Now()
	img, err := p.renderer.Render(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", p.renderer.Name(), err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyRender
	}

	b := img.Bounds()
	if b.Dx() < p.theme.Width || b.Dy() < p.theme.Height {
		p.log.WithField("renderer", p.renderer.Name()).
			Warnf("render: image %dx%d smaller than panel %dx%d, padding", b.Dx(), b.Dy(), p.theme.Width, p.theme.Height)
	}

	bm := Pack(Normalize(img, p.theme.Width, p.theme.Height), modeFor(p.theme))
	p.log.WithFields(logrus.Fields{
		"renderer": p.renderer.Name(),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Debug("render: frame ready")
	return bm, nil
}
