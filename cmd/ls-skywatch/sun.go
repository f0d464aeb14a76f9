package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/config"
	"github.com/litescript/ls-skywatch/internal/report"
)

var sunCmd = &cobra.Command{
	Use:   "sun",
	Short: "Print the observing window and polar condition for a night",
	Long: `sun prints dusk and dawn for the night starting on --date, the twilight
level the window was found at, and whether the Sun never sets or never rises
there. It needs no network access.`,
	Args: cobra.NoArgs,
	RunE: runSun,
}

func init() {
	sunCmd.Flags().String("date", "", "night to compute, YYYY-MM-DD (default today)")
	rootCmd.AddCommand(sunCmd)
}

func runSun(cmd *cobra.Command, _ []string) error {
	dateStr, _ := cmd.Flags().GetString("date")
	now := time.Now()
	date, err := parseDate(dateStr, now, time.Local)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	obs, err := cfg.Observer()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report.WriteNightPlan(out, astro.PlanNight(date, obs), obs, time.Local)
	fmt.Fprintf(out, "%-12s %+.1f°\n", "Sun now", astro.SunAltitude(obs, now))
	return nil
}
