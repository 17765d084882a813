package display

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/paperdash/internal/render"
)

// EPD7in5V2 drives the Waveshare 7.5" V2 black/white panel.
type EPD7in5V2 struct {
	link
}

// OpenEPD7in5V2 opens the panel on the default SPI port.
func OpenEPD7in5V2(p Pins) (*EPD7in5V2, error) {
	l, err := openLink(p)
	if err != nil {
		return nil, err
	}
	l.statusCmd = 0x71
	return &EPD7in5V2{link: l}, nil
}

// NewEPD7in5V2 wires a driver to already opened lines.
func NewEPD7in5V2(bus Bus, reset, dc OutputPin, busy InputPin) *EPD7in5V2 {
	l := newLink(bus, reset, dc, busy)
	l.statusCmd = 0x71
	return &EPD7in5V2{link: l}
}

func (d *EPD7in5V2) Name() string { return ModeEPD + ":" + Panel7in5V2 }

// Show wakes the panel, optionally clears it, draws b and puts the panel back
// into deep sleep.
func (d *EPD7in5V2) Show(ctx context.Context, b *render.Bitmap, opts Options) error {
	if b.Mode != render.Mono || b.Width != epdWidth || b.Height != epdHeight {
		return fmt.Errorf("%w: got %dx%d %s, want %dx%d mono", ErrUnsupportedFrame, b.Width, b.Height, b.Mode, epdWidth, epdHeight)
	}
	if err := d.init(ctx); err != nil {
		return err
	}
	if opts.Clear {
		if err := d.clear(ctx); err != nil {
			return err
		}
	}

	// The controller wants 1 for black, the bitmap stores 1 for white.
	frame := make([]byte, len(b.Data))
	for i, v := range b.Data {
		frame[i] = ^v
	}
	if err := d.command(0x13, frame...); err != nil {
		return err
	}
	if err := d.refresh(ctx); err != nil {
		return err
	}
	return d.deepSleep(ctx)
}

func (d *EPD7in5V2) Close() error { return d.close() }

func (d *EPD7in5V2) init(ctx context.Context) error {
	if err := d.wake(); err != nil {
		return err
	}
	err := d.run([]step{
		{0x06, []byte{0x17, 0x17, 0x28, 0x17}}, // booster soft start
		{0x01, []byte{0x07, 0x07, 0x28, 0x17}}, // power setting
		{0x04, nil},                            // power on
	})
	if err != nil {
		return err
	}
	d.sleep(100 * time.Millisecond)
	if err := d.waitIdle(ctx); err != nil {
		return err
	}

	return d.run([]step{
		{0x00, []byte{0x1f}},                   // panel setting, KW mode
		{0x61, []byte{0x03, 0x20, 0x01, 0xe0}}, // resolution 800x480
		{0x15, []byte{0x00}},
		{0x50, []byte{0x10, 0x07}}, // vcom and data interval
		{0x60, []byte{0x22}},       // tcon
	})
}

func (d *EPD7in5V2) clear(ctx context.Context) error {
	n := epdWidth / 8 * epdHeight
	if err := d.command(0x10, filled(n, 0xff)...); err != nil {
		return err
	}
	if err := d.command(0x13, make([]byte, n)...); err != nil {
		return err
	}
	return d.refresh(ctx)
}

func (d *EPD7in5V2) refresh(ctx context.Context) error {
	if err := d.command(0x12); err != nil {
		return err
	}
	d.sleep(100 * time.Millisecond)
	return d.waitIdle(ctx)
}

func (d *EPD7in5V2) deepSleep(ctx context.Context) error {
	if err := d.command(0x50, 0xf7); err != nil {
		return err
	}
	if err := d.command(0x02); err != nil {
		return err
	}
	if err := d.waitIdle(ctx); err != nil {
		return err
	}
	return d.command(0x07, 0xa5)
}
