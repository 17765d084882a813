package weather

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/paperdash/internal/source"
)

// Chain tries providers in order and keeps the first successful report.
type Chain struct {
	providers []Provider
	log       logrus.FieldLogger
}

// NewChain creates a new Chain.
func NewChain(log logrus.FieldLogger, providers ...Provider) *Chain {
	return &Chain{providers: providers, log: log}
}

func (c *Chain) Name() string { return "weather" }

// Fetch returns the first Ok report. When every provider fails, the first
// real failure wins over any disabled provider, so an outage of a keyless
// provider is not reported as a missing key. Disabled is returned only when
// every provider is disabled.
func (c *Chain) Fetch(ctx context.Context, now time.Time) source.Record[Report] {
	if len(c.providers) == 0 {
		return source.Disabled[Report]("no weather providers configured")
	}

	var first, failed source.Record[Report]
	var sawFailure bool
	for i, p := range c.providers {
		rec := source.Call(ctx, p, now, 0)
		if rec.OK() {
			return rec
		}
		c.log.WithField("provider", p.Name()).Warnf("weather: provider unavailable: %s", rec.Reason())
		if i == 0 {
			first = rec
		}
		if !sawFailure && rec.Reason().Kind != source.ReasonDisabled {
			failed, sawFailure = rec, true
		}
	}
	if sawFailure {
		return failed
	}
	return first
}
