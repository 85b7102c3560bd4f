package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/luki/hotcpu/internal/aggregate"
	"github.com/luki/hotcpu/internal/chart"
	"github.com/luki/hotcpu/internal/sensor"
	"github.com/luki/hotcpu/internal/source"
)

func onceCommand() *cli.Command {
	return &cli.Command{
		Name:  "once",
		Usage: "poll every source once and print the result",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the snapshot as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			_, s := loadSettings(c)

			agg := aggregate.New(source.Defaults(source.ProbeHostNames()))
			if err := agg.Open(); err != nil {
				log.WithError(err).Warn("primary sensor source unavailable")
			}
			snap := agg.Poll(s.Thresholds())
			if err := agg.Close(); err != nil {
				log.WithError(err).Debug("close sources")
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSnapshot(os.Stdout, snap, palette(s), s.HiddenSensorIDs)
			return nil
		},
	}
}

func printSnapshot(w io.Writer, snap *sensor.Snapshot, p chart.Palette, hidden []string) {
	bold := lipgloss.NewStyle().Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	t := snap.Tier()
	fmt.Fprintf(w, "%s  %s\n",
		lipgloss.NewStyle().Foreground(p.Color(t)).Bold(true).Render(snap.Summary()),
		dim.Render(t.String()))
	if snap.Degraded() {
		return
	}

	for _, g := range snap.Visible(hidden) {
		fmt.Fprintf(w, "\n%s %s  %s\n", g.Glyph, bold.Render(g.Name), dim.Render(g.Source))
		for _, r := range g.Sorted() {
			fmt.Fprintf(w, "  %-24s %s  %s\n", r.Name, p.RenderTempValue(r.Temp, snap.Thresholds), dim.Render(r.ID))
		}
	}
}
