package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-skywatch/internal/report"
	"github.com/litescript/ls-skywatch/internal/state"
)

const (
	minInterval = 10 * time.Second
	maxInterval = time.Hour
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reprint tonight's table at an interval without the TUI",
	Long: `watch refreshes tonight's session every --interval and prints the table
followed by any status changes since the previous run. The night rolls over
at dawn, so the small hours still report the evening before. Repeat refreshes within a night are served from the
session cache and only re-derive positions.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "refresh interval (default from config, 1m)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), v, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval == 0 {
		interval = a.manager.RefreshInterval()
	}
	interval = clampInterval(interval)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	var (
		seen  time.Time
		first = true
	)

	once := func() {
		date := currentNight(time.Now(), a.obs, time.Local)
		snap, _, err := a.refresh(ctx, date)
		if err != nil {
			a.log.Error("refresh failed: %v", err)
			return
		}
		report.WriteSummaryTable(out, snap.Session, time.Local)
		if first {
			// The first cycle's transitions are from the empty catalog.
			seen = latestEvent(snap.Events)
			first = false
			return
		}
		seen = writeNewEvents(out, snap.Events, seen)
	}

	once()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fmt.Fprintln(out)
			once()
		}
	}
}

// writeNewEvents prints status changes newer than since and returns the
// newest timestamp printed.
func writeNewEvents(out io.Writer, events []state.Event, since time.Time) time.Time {
	newest := since
	for _, e := range events {
		if !e.Timestamp.After(since) || e.Type != state.EventStatusChanged {
			continue
		}
		fmt.Fprintf(out, "%s  %s: %s → %s\n", e.Timestamp.In(time.Local).Format("15:04"), e.Object, e.From, e.To)
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
	}
	return newest
}

func latestEvent(events []state.Event) time.Time {
	var t time.Time
	for _, e := range events {
		if e.Timestamp.After(t) {
			t = e.Timestamp
		}
	}
	return t
}

func clampInterval(d time.Duration) time.Duration {
	switch {
	case d < minInterval:
		return minInterval
	case d > maxInterval:
		return maxInterval
	}
	return d
}
