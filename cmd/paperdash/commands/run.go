package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/paperdash/internal/api/http"
	"github.com/i474232898/paperdash/internal/display"
	"github.com/i474232898/paperdash/internal/printer"
	"github.com/i474232898/paperdash/internal/scheduler"
	"github.com/i474232898/paperdash/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh and redraw the panel until interrupted",
	Long: `Run the dashboard loop: refresh sources, render a frame and push it to the
display, then sleep until the next cycle is due. SIGINT or SIGTERM stops the
loop after the current cycle.

When PREVIEW_ADDR is set, recent frames are served over HTTP:
  GET /api/v1/frame/latest      latest frame as PNG
  GET /api/v1/frames?limit=N    recent frame metadata
  GET /api/v1/frames/history    frames between ?from and ?to`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	d, err := wire()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := display.Probe(d.cfg.Display, d.cfg.Panel, d.pipeline.Mode(), d.cfg.Rotate180, d.log)
	if err != nil {
		return printer.Error("Display could not be opened", err.Error(), []string{
			"Enable SPI with raspi-config and reboot",
			"Set DISPLAY_SINK=noop to run without a panel",
		})
	}
	defer closeSink(sink, d.log)

	clearFlag := scheduler.NewClearScheduler(d.cfg.FullClearAt, d.cfg.Zone, d.log)
	if err := clearFlag.Start(); err != nil {
		return printer.Error("Full clear could not be scheduled", err.Error(), []string{
			"Set FULL_CLEAR_AT to a 24h time such as 03:00, or to an empty value",
		})
	}
	defer clearFlag.Stop()

	frames := store.NewMemoryStore(d.cfg.StoreMaxHistory, 0)
	if d.cfg.PreviewAddr != "" {
		go func() {
			if err := httpapi.Serve(ctx, d.cfg.PreviewAddr, frames, d.log); err != nil {
				d.log.WithError(err).Error("preview: server stopped")
			}
		}()
	}

	loop := scheduler.New(d.cache, d.pipeline, sink, frames, clearFlag, scheduler.Options{
		TargetInterval: d.cfg.CycleInterval,
		Cooldown:       d.cfg.ErrorCooldown,
		Dashboard:      d.dashboardOptions(),
		PreviewPath:    d.cfg.PreviewPath,
	}, d.log)
	return loop.Run(ctx)
}
