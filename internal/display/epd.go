package display

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Both supported panels are 800x480.
	epdWidth  = 800
	epdHeight = 480
	// spidev refuses transfers above 4 KiB.
	maxChunk = 4096
)

var errBusyTimeout = errors.New("display: panel stayed busy")

// Pins names the GPIO lines of the Waveshare e-Paper HAT.
type Pins struct {
	Reset string
	DC    string
	Busy  string
	Power string // optional, newer HAT revisions only
}

// DefaultPins are the BCM lines of the Waveshare HAT.
var DefaultPins = Pins{Reset: "GPIO17", DC: "GPIO25", Busy: "GPIO24", Power: "GPIO18"}

// Bus is the part of spi.Conn the driver needs.
type Bus interface {
	Tx(w, r []byte) error
}

// OutputPin and InputPin are the parts of gpio.PinIO the driver needs.
type OutputPin interface {
	Out(l gpio.Level) error
}

type InputPin interface {
	Read() gpio.Level
}

// link is the SPI and GPIO plumbing shared by the Waveshare drivers.
type link struct {
	bus   Bus
	reset OutputPin
	dc    OutputPin
	busy  InputPin
	power OutputPin
	port  spi.PortCloser

	sleep       func(time.Duration)
	busyTimeout time.Duration
	// statusCmd, when non-zero, is sent before every busy read.
	statusCmd byte
}

// openLink initialises periph, opens the default SPI port and looks up the pins.
func openLink(p Pins) (link, error) {
	if _, err := host.Init(); err != nil {
		return link{}, fmt.Errorf("display: periph init: %w", err)
	}
	port, err := spireg.Open("")
	if err != nil {
		return link{}, fmt.Errorf("display: open spi: %w", err)
	}
	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return link{}, fmt.Errorf("display: connect spi: %w", err)
	}

	lookup := func(name string) (gpio.PinIO, error) {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("display: gpio %s not found", name)
		}
		return pin, nil
	}
	rst, err := lookup(p.Reset)
	if err != nil {
		port.Close()
		return link{}, err
	}
	dc, err := lookup(p.DC)
	if err != nil {
		port.Close()
		return link{}, err
	}
	busy, err := lookup(p.Busy)
	if err != nil {
		port.Close()
		return link{}, err
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		port.Close()
		return link{}, fmt.Errorf("display: busy pin: %w", err)
	}

	l := newLink(conn, rst, dc, busy)
	l.port = port
	if p.Power != "" {
		if pwr := gpioreg.ByName(p.Power); pwr != nil {
			l.power = pwr
		}
	}
	return l, nil
}

func newLink(bus Bus, reset, dc OutputPin, busy InputPin) link {
	return link{
		bus:         bus,
		reset:       reset,
		dc:          dc,
		busy:        busy,
		sleep:       time.Sleep,
		busyTimeout: 40 * time.Second,
	}
}

// wake powers the HAT and pulses the reset line.
func (l *link) wake() error {
	if l.power != nil {
		if err := l.power.Out(gpio.High); err != nil {
			return err
		}
	}
	for _, step := range []struct {
		level gpio.Level
		wait  time.Duration
	}{{gpio.High, 20 * time.Millisecond}, {gpio.Low, 2 * time.Millisecond}, {gpio.High, 20 * time.Millisecond}} {
		if err := l.reset.Out(step.level); err != nil {
			return fmt.Errorf("display: reset: %w", err)
		}
		l.sleep(step.wait)
	}
	return nil
}

type step struct {
	cmd  byte
	data []byte
}

func (l *link) run(steps []step) error {
	for _, s := range steps {
		if err := l.command(s.cmd, s.data...); err != nil {
			return err
		}
	}
	return nil
}

func (l *link) close() error {
	if l.power != nil {
		_ = l.power.Out(gpio.Low)
	}
	if l.port != nil {
		return l.port.Close()
	}
	return nil
}

// waitIdle polls the busy line, which is low while the controller works.
func (l *link) waitIdle(ctx context.Context) error {
	deadline := time.Now().Add(l.busyTimeout)
	for {
		if l.statusCmd != 0 {
			if err := l.command(l.statusCmd); err != nil {
				return err
			}
		}
		if l.busy.Read() == gpio.High {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return errBusyTimeout
		}
		l.sleep(20 * time.Millisecond)
	}
}

// command sends cmd with DC low, then data with DC high in spidev-sized chunks.
func (l *link) command(cmd byte, data ...byte) error {
	if err := l.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := l.bus.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("display: command 0x%02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := l.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := min(len(data), maxChunk)
		if err := l.bus.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("display: data for 0x%02x: %w", cmd, err)
		}
		data = data[n:]
	}
	return nil
}

// filled returns n copies of v.
func filled(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}
