package commands

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/paperdash/internal/display"
	"github.com/i474232898/paperdash/internal/printer"
	"github.com/i474232898/paperdash/internal/scheduler"
	"github.com/i474232898/paperdash/internal/source"
)

var (
	onceNoDisplay bool
	onceOut       string
	onceClear     bool
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Render a single frame and exit",
	Long: `Render one frame with fresh data and exit.

Examples:
  # Preview without touching the panel
  paperdash once --no-display --out frame.png

  # Push one frame with a full clear first
  paperdash once --clear`,
	RunE: runOnce,
}

func init() {
	onceCmd.Flags().BoolVar(&onceNoDisplay, "no-display", false, "Render without sending the frame to the panel")
	onceCmd.Flags().StringVarP(&onceOut, "out", "o", "", "Write the frame as PNG to this path (defaults to PREVIEW_PATH)")
	onceCmd.Flags().BoolVar(&onceClear, "clear", false, "Fully clear the panel before drawing")

	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	d, err := wire()
	if err != nil {
		return err
	}

	var sink display.Sink
	if onceNoDisplay {
		sink = display.NewNoopSink(d.log)
	} else if sink, err = display.Probe(d.cfg.Display, d.cfg.Panel, d.pipeline.Mode(), d.cfg.Rotate180, d.log); err != nil {
		return printer.Error("Display could not be opened", err.Error(), []string{
			"Pass --no-display to render without a panel",
		})
	}
	defer closeSink(sink, d.log)

	var clearFlag scheduler.ClearFlag
	if onceClear {
		// Never started: only the initially raised flag is used.
		clearFlag = scheduler.NewClearScheduler("", d.cfg.Zone, d.log)
	}

	out := onceOut
	if out == "" {
		out = d.cfg.PreviewPath
	}
	loop := scheduler.New(d.cache, d.pipeline, sink, nil, clearFlag, scheduler.Options{
		Dashboard:   d.dashboardOptions(),
		PreviewPath: out,
	}, d.log)

	frame, err := loop.RunOnce(context.Background())
	reportSources(frame.Sources)
	if err != nil {
		return printer.Error("Frame could not be rendered", err.Error(), nil)
	}

	printer.Success("Frame %s rendered by %s in %s\n", frame.ID.String()[:8], frame.Renderer, frame.Elapsed.Round(time.Millisecond))
	if out != "" {
		printer.Info("  preview: %s\n", out)
	}
	if frame.SinkErr != "" {
		return printer.Error("Display update failed", frame.SinkErr, nil)
	}
	return nil
}

// reportSources prints one line per source status, sorted by name.
func reportSources(st map[string]source.Status) {
	names := make([]string, 0, len(st))
	for n := range st {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := st[n]
		detail := s.Reason
		if s.OK {
			detail = "fetched " + s.FetchedAt.Format("15:04:05")
		}
		printer.Check(n, s.OK, strings.HasPrefix(s.Reason, string(source.ReasonDisabled)), detail)
	}
}
