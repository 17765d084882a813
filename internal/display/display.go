// Package display hands finished frames to the panel.
package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/render"
)

const (
	ModeAuto = "auto"
	ModeEPD  = "epd"
	ModeNoop = "noop"

	// SPIDevice is the node the Waveshare HAT appears on.
	SPIDevice = "/dev/spidev0.0"
)

// Panel models the epd sink can drive.
const (
	Panel7in5V2 = "7in5_v2"
	Panel7in5H  = "7in5h"
)

var ErrUnsupportedFrame = errors.New("display: frame does not match panel")

// PanelMode is the frame packing a panel model accepts.
func PanelMode(panel string) (render.Mode, error) {
	switch panel {
	case Panel7in5V2:
		return render.Mono, nil
	case Panel7in5H:
		return render.BWRY, nil
	}
	return "", fmt.Errorf("display: unknown panel %q", panel)
}

// PanelFor picks the panel model for a frame mode.
func PanelFor(m render.Mode) string {
	if m == render.BWRY {
		return Panel7in5H
	}
	return Panel7in5V2
}

// Options apply to a single Show call.
type Options struct {
	// Clear runs a full white/black refresh before drawing to remove ghosting.
	Clear bool
}

// Sink receives one frame per cycle.
type Sink interface {
	Name() string
	Show(ctx context.Context, b *render.Bitmap, opts Options) error
	Close() error
}

// NoopSink stands in for the panel on machines without one. It keeps the
// last frame so callers can inspect it.
type NoopSink struct {
	log logrus.FieldLogger

	mu    sync.Mutex
	last  *render.Bitmap
	shown int
}

func NewNoopSink(log logrus.FieldLogger) *NoopSink {
	return &NoopSink{log: log}
}

func (n *NoopSink) Name() string { return ModeNoop }

func (n *NoopSink) Show(_ context.Context, b *render.Bitmap, opts Options) error {
	n.mu.Lock()
	n.last = b
	n.shown++
	n.mu.Unlock()
	n.log.WithFields(logrus.Fields{"width": b.Width, "height": b.Height, "mode": b.Mode, "clear": opts.Clear}).
		Info("display: simulation mode, frame not sent")
	return nil
}

// Last returns the most recent frame and how many frames were shown.
func (n *NoopSink) Last() (*render.Bitmap, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last, n.shown
}

func (n *NoopSink) Close() error { return nil }

// Rotating turns every frame 180 degrees before passing it on, for panels
// mounted upside down.
type Rotating struct {
	Sink
}

func (r Rotating) Show(ctx context.Context, b *render.Bitmap, opts Options) error {
	return r.Sink.Show(ctx, b.Rotate180(), opts)
}

// Probe picks the sink once at startup. An empty panel is chosen to match
// frame; a panel that cannot show frame is rejected before any cycle runs. In
// auto mode a missing SPI device or a failing driver init falls back to the
// simulation sink.
func Probe(mode, panel string, frame render.Mode, rotate bool, log logrus.FieldLogger) (Sink, error) {
	if panel == "" {
		panel = PanelFor(frame)
	}
	want, err := PanelMode(panel)
	if err != nil {
		return nil, err
	}
	if want != frame {
		return nil, fmt.Errorf("%w: panel %s takes %s frames, theme renders %s", ErrUnsupportedFrame, panel, want, frame)
	}

	var sink Sink
	switch mode {
	case ModeNoop:
		sink = NewNoopSink(log)
	case ModeEPD:
		if sink, err = openPanel(panel); err != nil {
			return nil, err
		}
	case ModeAuto, "":
		sink = probeAuto(panel, log)
	default:
		return nil, errors.New("display: unknown mode " + mode)
	}
	log.WithField("sink", sink.Name()).Info("display: selected")
	if rotate {
		return Rotating{Sink: sink}, nil
	}
	return sink, nil
}

func openPanel(panel string) (Sink, error) {
	if panel == Panel7in5H {
		dev, err := OpenEPD7in5H(DefaultPins)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	dev, err := OpenEPD7in5V2(DefaultPins)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func probeAuto(panel string, log logrus.FieldLogger) Sink {
	if _, err := os.Stat(SPIDevice); err != nil {
		log.Warnf("display: %s not present, running in simulation mode", SPIDevice)
		return NewNoopSink(log)
	}
	dev, err := openPanel(panel)
	if err != nil {
		log.WithError(err).Warn("display: panel init failed, running in simulation mode")
		return NewNoopSink(log)
	}
	return dev
}
