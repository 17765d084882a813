package display

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/paperdash/internal/render"
)

// whiteQuad is four white pixels in the panel's 2-bit encoding.
const whiteQuad = 0x55

// EPD7in5H drives the Waveshare 7.5" (H) black/white/yellow/red panel. It
// takes BWRY bitmaps as packed: the render codes are the controller's codes.
type EPD7in5H struct {
	link
}

// OpenEPD7in5H opens the panel on the default SPI port.
func OpenEPD7in5H(p Pins) (*EPD7in5H, error) {
	l, err := openLink(p)
	if err != nil {
		return nil, err
	}
	return &EPD7in5H{link: l}, nil
}

// NewEPD7in5H wires a driver to already opened lines.
func NewEPD7in5H(bus Bus, reset, dc OutputPin, busy InputPin) *EPD7in5H {
	return &EPD7in5H{link: newLink(bus, reset, dc, busy)}
}

func (d *EPD7in5H) Name() string { return ModeEPD + ":" + Panel7in5H }

func (d *EPD7in5H) Show(ctx context.Context, b *render.Bitmap, opts Options) error {
	if b.Mode != render.BWRY || b.Width != epdWidth || b.Height != epdHeight {
		return fmt.Errorf("%w: got %dx%d %s, want %dx%d bwry", ErrUnsupportedFrame, b.Width, b.Height, b.Mode, epdWidth, epdHeight)
	}
	if err := d.init(ctx); err != nil {
		return err
	}
	if opts.Clear {
		if err := d.command(0x10, filled(epdWidth/4*epdHeight, whiteQuad)...); err != nil {
			return err
		}
		if err := d.refresh(ctx); err != nil {
			return err
		}
	}
	if err := d.command(0x10, b.Data...); err != nil {
		return err
	}
	if err := d.refresh(ctx); err != nil {
		return err
	}
	return d.deepSleep(ctx)
}

func (d *EPD7in5H) Close() error { return d.close() }

func (d *EPD7in5H) init(ctx context.Context) error {
	if err := d.wake(); err != nil {
		return err
	}
	if err := d.waitIdle(ctx); err != nil {
		return err
	}
	d.sleep(30 * time.Millisecond)

	// Vendor init sequence for the (H) controller, ending in power on.
	err := d.run([]step{
		{0xaa, []byte{0x49, 0x55, 0x20, 0x08, 0x09, 0x18}},
		{0x01, []byte{0x3f}},
		{0x00, []byte{0x5f, 0x69}},
		{0x05, []byte{0x40, 0x1f, 0x1f, 0x2c}},
		{0x08, []byte{0x6f, 0x1f, 0x1f, 0x22}},
		{0x06, []byte{0x6f, 0x1f, 0x17, 0x17}},
		{0x03, []byte{0x00, 0x54, 0x00, 0x44}},
		{0x60, []byte{0x02, 0x00}},
		{0x30, []byte{0x08}},
		{0x50, []byte{0x3f}},
		{0x61, []byte{0x03, 0x20, 0x01, 0xe0}},
		{0xe3, []byte{0x2f}},
		{0x84, []byte{0x01}},
		{0x04, nil},
	})
	if err != nil {
		return err
	}
	return d.waitIdle(ctx)
}

func (d *EPD7in5H) refresh(ctx context.Context) error {
	if err := d.command(0x12, 0x00); err != nil {
		return err
	}
	return d.waitIdle(ctx)
}

func (d *EPD7in5H) deepSleep(ctx context.Context) error {
	if err := d.command(0x02, 0x00); err != nil {
		return err
	}
	if err := d.waitIdle(ctx); err != nil {
		return err
	}
	return d.command(0x07, 0xa5)
}
