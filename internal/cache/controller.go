// Package cache owns the dashboard's last-known state and decides which
// sources are polled on each cycle.
//
// Weather, calendar and news form the slow bucket and are refreshed at most
// once per SlowInterval. Transit and system status form the fast bucket and
// are refreshed every cycle. A failed slow refresh never replaces a slot that
// once held a good value.
package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/calendar"
	"github.com/i474232898/paperdash/internal/news"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/sysinfo"
	"github.com/i474232898/paperdash/internal/transit"
	"github.com/i474232898/paperdash/internal/weather"
)

const (
	DefaultSlowInterval  = 30 * time.Minute
	DefaultSourceTimeout = 15 * time.Second
)

// Snapshot is the merged view of every source. It is handed out by value.
type Snapshot struct {
	Weather  source.Record[weather.Report]
	Calendar source.Record[[]calendar.Event]
	News     source.Record[[]news.Headline]
	Transit  source.Record[[]transit.Departure]
	System   source.Record[sysinfo.Status]
	// SlowRefreshedAt is the last time at least one slow source returned Ok.
	// Zero until that happens.
	SlowRefreshedAt time.Time
}

// Sources are the adapters the controller polls. A nil adapter is reported
// as disabled.
type Sources struct {
	Weather  source.Adapter[weather.Report]
	Calendar source.Adapter[[]calendar.Event]
	News     source.Adapter[[]news.Headline]
	Transit  source.Adapter[[]transit.Departure]
	System   source.Adapter[sysinfo.Status]
}

// Options tune the cadence.
type Options struct {
	SlowInterval  time.Duration
	SourceTimeout time.Duration
	// MaxStaleness expires a slow slot whose last success is older than this
	// and whose latest refresh failed. Zero keeps stale values forever.
	MaxStaleness time.Duration
}

// Controller is not safe for concurrent use; the main loop is its only caller.
type Controller struct {
	src  Sources
	opts Options
	log  logrus.FieldLogger
	snap Snapshot
}

func New(src Sources, opts Options, log logrus.FieldLogger) *Controller {
	if opts.SlowInterval <= 0 {
		opts.SlowInterval = DefaultSlowInterval
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Controller{src: src, opts: opts, log: log}
}

// Snapshot returns the current state without polling anything.
func (c *Controller) Snapshot() Snapshot { return c.snap }

// SlowDue reports whether the slow bucket will be polled by Refresh(now).
func (c *Controller) SlowDue(now time.Time) bool {
	return c.snap.SlowRefreshedAt.IsZero() || now.Sub(c.snap.SlowRefreshedAt) >= c.opts.SlowInterval
}

// Refresh polls the due sources and returns the updated snapshot. Each
// adapter call runs under its own SourceTimeout.
func (c *Controller) Refresh(ctx context.Context, now time.Time) Snapshot {
	if c.SlowDue(now) {
		okW := refreshSlow(ctx, c, c.src.Weather, &c.snap.Weather, now)
		okC := refreshSlow(ctx, c, c.src.Calendar, &c.snap.Calendar, now)
		okN := refreshSlow(ctx, c, c.src.News, &c.snap.News, now)
		if okW || okC || okN {
			c.snap.SlowRefreshedAt = now
		} else {
			c.log.Warn("cache: every slow source failed, retrying next cycle")
		}
	}

	c.snap.Transit = refreshFast(ctx, c, c.src.Transit, now)
	c.snap.System = refreshFast(ctx, c, c.src.System, now)
	return c.snap
}

func refreshFast[T any](ctx context.Context, c *Controller, a source.Adapter[T], now time.Time) source.Record[T] {
	rec := fetchOrDisabled(ctx, a, now, c.opts.SourceTimeout)
	if !rec.OK() {
		c.log.WithField("source", nameOf(a)).WithField("reason", rec.Reason().String()).Warn("cache: source unavailable")
	}
	return rec
}

// refreshSlow polls one slow source. An Ok result replaces the slot. A failure
// replaces the slot only when the slot holds no good value, so a disabled or
// failed source is still reported as such; otherwise the stale value stays
// unless it is older than MaxStaleness.
func refreshSlow[T any](ctx context.Context, c *Controller, a source.Adapter[T], slot *source.Record[T], now time.Time) bool {
	rec := fetchOrDisabled(ctx, a, now, c.opts.SourceTimeout)
	if rec.OK() {
		*slot = rec
		return true
	}

	entry := c.log.WithField("source", nameOf(a)).WithField("reason", rec.Reason().String())
	if !slot.OK() {
		entry.Warn("cache: source unavailable")
		*slot = rec
		return false
	}
	if c.opts.MaxStaleness > 0 && now.Sub(slot.FetchedAt()) > c.opts.MaxStaleness {
		entry.Warn("cache: source unavailable, cached value expired")
		*slot = source.Unavailable[T](source.Reason{
			Kind:   source.ReasonExpired,
			Detail: "last good value from " + slot.FetchedAt().Format(time.RFC3339),
		})
		return false
	}
	entry.Info("cache: source unavailable, keeping cached value")
	return false
}

func fetchOrDisabled[T any](ctx context.Context, a source.Adapter[T], now time.Time, timeout time.Duration) source.Record[T] {
	if a == nil {
		return source.Disabled[T]("not configured")
	}
	return source.Call(ctx, a, now, timeout)
}

func nameOf[T any](a source.Adapter[T]) string {
	if a == nil {
		return "unset"
	}
	return a.Name()
}
