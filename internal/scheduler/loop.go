// Package scheduler runs the render cycle on a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/cache"
	"github.com/i474232898/paperdash/internal/dashboard"
	"github.com/i474232898/paperdash/internal/display"
	"github.com/i474232898/paperdash/internal/render"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/store"
)

const (
	DefaultTargetInterval = 5 * time.Minute
	DefaultCooldown       = 60 * time.Second
)

var ErrRender = errors.New("render failed")

// Clock abstracts time so the cadence can be tested.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// SleepFor is how long to wait after a cycle that took elapsed.
func SleepFor(target, elapsed time.Duration) time.Duration {
	if d := target - elapsed; d > 0 {
		return d
	}
	return 0
}

type Refresher interface {
	Refresh(ctx context.Context, now time.Time) cache.Snapshot
}

type Renderer interface {
	Name() string
	Render(ctx context.Context, c dashboard.Context) (*render.Bitmap, error)
}

type FrameSaver interface {
	Save(f store.Frame)
}

// ClearFlag hands out pending full-clear requests.
type ClearFlag interface {
	Take() bool
	Request()
}

type Options struct {
	TargetInterval time.Duration
	Cooldown       time.Duration
	Dashboard      dashboard.Options
	// PreviewPath, when set, receives a PNG of every rendered frame.
	PreviewPath string
}

// Loop is the single sequential render loop.
type Loop struct {
	cache    Refresher
	renderer Renderer
	sink     display.Sink
	frames   FrameSaver
	clear    ClearFlag
	clock    Clock
	opts     Options
	log      logrus.FieldLogger
}

// New creates a Loop. frames and clear may be nil.
func New(c Refresher, r Renderer, sink display.Sink, frames FrameSaver, clear ClearFlag, opts Options, log logrus.FieldLogger) *Loop {
	if opts.TargetInterval <= 0 {
		opts.TargetInterval = DefaultTargetInterval
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	return &Loop{
		cache:    c,
		renderer: r,
		sink:     sink,
		frames:   frames,
		clear:    clear,
		clock:    SystemClock,
		opts:     opts,
		log:      log,
	}
}

// WithClock replaces the wall clock; used by tests.
func (l *Loop) WithClock(c Clock) *Loop {
	l.clock = c
	return l
}

// Run cycles until ctx is cancelled. Cancellation is only observed while
// sleeping: a cycle in progress always completes.
func (l *Loop) Run(ctx context.Context) error {
	l.log.WithFields(logrus.Fields{
		"interval": l.opts.TargetInterval,
		"renderer": l.renderer.Name(),
		"sink":     l.sink.Name(),
	}).Info("scheduler: loop started")

	for {
		if ctx.Err() != nil {
			break
		}
		start := l.clock.Now()
		_, err := l.safeCycle(context.WithoutCancel(ctx), start)
		wait := SleepFor(l.opts.TargetInterval, l.clock.Now().Sub(start))
		if err != nil {
			l.log.WithError(err).Errorf("scheduler: cycle failed, cooling down for %s", l.opts.Cooldown)
			wait = l.opts.Cooldown
		} else {
			l.log.Infof("scheduler: update complete, sleeping for %s", wait.Round(time.Second))
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			break
		}
	}
	l.log.Info("scheduler: interrupted, loop stopped")
	return nil
}

// RunOnce performs a single cycle and reports its outcome.
func (l *Loop) RunOnce(ctx context.Context) (store.Frame, error) {
	return l.safeCycle(ctx, l.clock.Now())
}

func (l *Loop) safeCycle(ctx context.Context, now time.Time) (frame store.Frame, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panicked: %v", p)
			l.log.WithField("stack", string(debug.Stack())).Error("scheduler: recovered panic")
		}
	}()
	return l.cycle(ctx, now)
}

// cycle runs refresh, build, render and display once. A render failure skips
// the display and is returned; a display failure is only logged.
func (l *Loop) cycle(ctx context.Context, now time.Time) (frame store.Frame, err error) {
	id := uuid.New()
	log := l.log.WithField("cycle", id.String())
	start := l.clock.Now()

	snap := l.cache.Refresh(ctx, now)
	dctx := dashboard.Build(snap, now, l.opts.Dashboard)

	frame = store.Frame{
		ID:       id,
		At:       now,
		Renderer: l.renderer.Name(),
		Sources:  statuses(snap),
	}
	defer func() {
		frame.Elapsed = l.clock.Now().Sub(start)
		if l.frames != nil {
			l.frames.Save(frame)
		}
	}()

	bm, err := l.renderer.Render(ctx, dctx)
	if err != nil {
		frame.RenderErr = err.Error()
		return frame, fmt.Errorf("%w: %v", ErrRender, err)
	}
	frame.Mode = string(bm.Mode)
	frame.Width, frame.Height = bm.Width, bm.Height

	png, err := bm.PNG()
	if err != nil {
		log.WithError(err).Warn("scheduler: png encode failed")
	} else {
		frame.PNG = png
		if l.opts.PreviewPath != "" {
			if err := writeAtomic(l.opts.PreviewPath, png); err != nil {
				log.WithError(err).Warn("scheduler: preview write failed")
			}
		}
	}

	fullClear := l.clear != nil && l.clear.Take()
	if err := l.sink.Show(ctx, bm, display.Options{Clear: fullClear}); err != nil {
		frame.SinkErr = err.Error()
		log.WithError(err).Error("scheduler: display update failed")
		if fullClear {
			// Try the clear again next cycle.
			l.clear.Request()
		}
	}
	log.WithField("clear", fullClear).Debug("scheduler: cycle done")
	return frame, nil
}

func statuses(s cache.Snapshot) map[string]source.Status {
	return map[string]source.Status{
		"weather":  s.Weather.Status(),
		"calendar": s.Calendar.Status(),
		"news":     s.News.Status(),
		"transit":  s.Transit.Status(),
		"system":   s.System.Status(),
	}
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".paperdash-*.png")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
