package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// ClearScheduler raises a flag once a day asking the next cycle for a full
// panel clear. The job only flips the flag; the cycle itself stays on the
// loop goroutine.
type ClearScheduler struct {
	scheduler *gocron.Scheduler
	at        string
	pending   atomic.Bool
	log       logrus.FieldLogger
}

// NewClearScheduler creates a ClearScheduler firing daily at "HH:MM" in zone.
// An empty at disables the job. The flag starts raised so the first frame
// after boot is drawn on a clean panel.
func NewClearScheduler(at string, zone *time.Location, log logrus.FieldLogger) *ClearScheduler {
	if zone == nil {
		zone = time.UTC
	}
	c := &ClearScheduler{
		scheduler: gocron.NewScheduler(zone),
		at:        at,
		log:       log,
	}
	c.pending.Store(true)
	return c
}

// Start schedules the daily job and starts the underlying scheduler.
func (c *ClearScheduler) Start() error {
	if c.at == "" {
		c.log.Info("scheduler: full clear disabled")
		return nil
	}

	_, err := c.scheduler.Every(1).Day().At(c.at).Do(c.Request)
	if err != nil {
		return fmt.Errorf("scheduler: full clear at %q: %w", c.at, err)
	}

	c.scheduler.StartAsync()
	c.log.WithField("at", c.at).Info("scheduler: daily full clear scheduled")
	return nil
}

// Request raises the clear flag.
func (c *ClearScheduler) Request() {
	c.pending.Store(true)
}

// Take reports whether a clear was requested and lowers the flag.
func (c *ClearScheduler) Take() bool {
	return c.pending.Swap(false)
}

// Stop stops the scheduler and cancels any future jobs.
func (c *ClearScheduler) Stop() {
	if c.scheduler != nil && c.scheduler.IsRunning() {
		c.scheduler.Stop()
	}
}
