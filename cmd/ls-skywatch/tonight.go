package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-skywatch/internal/report"
)

var tonightCmd = &cobra.Command{
	Use:   "tonight",
	Short: "Print the night's objects and their visibility",
	Example: `  ls-skywatch tonight --lat 37.7749 --lon -122.4194
  ls-skywatch tonight --date 2024-12-21 --weather
  ls-skywatch tonight --json > tonight.json`,
	Args: cobra.NoArgs,
	RunE: runTonight,
}

func init() {
	tonightCmd.Flags().String("date", "", "night to compute, YYYY-MM-DD (default today)")
	tonightCmd.Flags().Bool("json", false, "write the session as JSON")
	tonightCmd.Flags().Bool("weather", false, "include an Open-Meteo sky quality rating")
	rootCmd.AddCommand(tonightCmd)
}

func runTonight(cmd *cobra.Command, _ []string) error {
	// The root command falls back here without these flags defined.
	dateStr, _ := cmd.Flags().GetString("date")
	asJSON, _ := cmd.Flags().GetBool("json")
	withWeather, _ := cmd.Flags().GetBool("weather")

	date, err := parseDate(dateStr, time.Now(), time.Local)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), v, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if dateStr == "" {
		date = currentNight(time.Now(), a.obs, time.Local)
	}

	snap, failed, err := a.refresh(cmd.Context(), date)
	if err != nil {
		return err
	}
	sess := snap.Session

	out := cmd.OutOrStdout()
	if asJSON {
		var export *report.SessionExport
		if withWeather {
			rating, _ := a.rating(cmd.Context(), sess.Night.Window)
			export = report.ExportSession(sess, rating, failed)
		} else {
			export = report.ExportSession(sess, nil, failed)
		}
		return export.WriteJSON(out)
	}

	report.WriteNightPlan(out, sess.Night, sess.Observer, time.Local)
	if withWeather {
		if rating, current := a.rating(cmd.Context(), sess.Night.Window); rating != nil {
			report.WriteWeather(out, *rating, *current)
		}
	}
	fmt.Fprintln(out)
	report.WriteSummaryTable(out, sess, time.Local)

	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d objects could not be fetched; showing last known data where available\n", len(failed))
	}
	return nil
}
