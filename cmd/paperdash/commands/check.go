package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/paperdash/internal/calendar"
	"github.com/i474232898/paperdash/internal/display"
	"github.com/i474232898/paperdash/internal/news"
	"github.com/i474232898/paperdash/internal/printer"
	"github.com/i474232898/paperdash/internal/source"
	"github.com/i474232898/paperdash/internal/sysinfo"
	"github.com/i474232898/paperdash/internal/transit"
	"github.com/i474232898/paperdash/internal/weather"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every data source and the display once",
	Long: `Call each configured source once, bypassing the cache, and print whether
it answered. Disabled sources are shown but do not fail the check.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	d, err := wire()
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now()
	timeout := d.cfg.SourceTimeout

	printer.Step("Sources\n")
	failed := 0
	failed += probe(ctx, d.sources.Weather, now, timeout, func(r weather.Report) string {
		return fmt.Sprintf("%s %d°C %s", r.Provider, r.TempC, r.Condition)
	})
	failed += probe(ctx, d.sources.Transit, now, timeout, func(rows []transit.Departure) string {
		if len(rows) == 0 {
			return "no departures"
		}
		return fmt.Sprintf("%d departures, next %s %s", len(rows), rows[0].Route, rows[0].Due)
	})
	failed += probe(ctx, d.sources.Calendar, now, timeout, func(evs []calendar.Event) string {
		return fmt.Sprintf("%d upcoming events", len(evs))
	})
	failed += probe(ctx, d.sources.News, now, timeout, func(hs []news.Headline) string {
		return fmt.Sprintf("%d headlines", len(hs))
	})
	failed += probe(ctx, d.sources.System, now, timeout, func(s sysinfo.Status) string {
		return s.Line()
	})

	printer.Step("Output\n")
	printer.Check("renderer", true, false, d.pipeline.Name()+" ("+d.theme.Name+")")
	switch d.cfg.Display {
	case display.ModeNoop:
		printer.Check("display", false, true, "disabled: DISPLAY_SINK=noop")
	default:
		if _, err := os.Stat(display.SPIDevice); err != nil {
			printer.Check("display", false, d.cfg.Display == display.ModeAuto, display.SPIDevice+" not present")
		} else {
			printer.Check("display", true, false, display.SPIDevice)
		}
	}

	if failed > 0 {
		return printer.Error(fmt.Sprintf("%d source(s) failed", failed), "", []string{
			"Re-run with LOG_LEVEL=debug for request details",
		})
	}
	printer.Success("All enabled sources answered\n")
	return nil
}

// probe calls a once, outside the cache, and prints its outcome. It returns 1 on failure.
func probe[T any](ctx context.Context, a source.Adapter[T], now time.Time, timeout time.Duration, summary func(T) string) int {
	rec := source.Call(ctx, a, now, timeout)
	if v, ok := rec.Value(); ok {
		printer.Check(a.Name(), true, false, summary(v))
		return 0
	}
	r := rec.Reason()
	disabled := r.Kind == source.ReasonDisabled
	printer.Check(a.Name(), false, disabled, r.String())
	if disabled {
		return 0
	}
	return 1
}
