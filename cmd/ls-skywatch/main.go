// Command ls-skywatch shows which planets, stars and satellites are up
// tonight from a given location.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/litescript/ls-skywatch/internal/config"
	"github.com/litescript/ls-skywatch/internal/ui"
	"github.com/litescript/ls-skywatch/internal/version"
)

var (
	cfgFile string
	v       = config.New()
)

// rootCmd starts the TUI when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:     "ls-skywatch",
	Short:   "What's up in the sky tonight, from where you stand.",
	Version: version.Version,
	Long: `ls-skywatch computes tonight's observing window for your location and
classifies planets, the Moon, bright stars and the ISS as visible, not yet
risen, already set or below the horizon.

Ephemerides come from JPL Horizons and an ISS pass feed; fixed stars are
computed locally. Set your location with --lat/--lon, SKYWATCH_LOCATION_LAT
and SKYWATCH_LOCATION_LON, or location.lat/location.lon in ~/.ls-skywatch.yaml.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runTUI,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ls-skywatch.yaml)")
	flags.String("lat", "", "observer latitude in decimal degrees, north positive")
	flags.String("lon", "", "observer longitude in decimal degrees, east positive")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flags.String("cache", "", "SQLite session cache file (default keeps sessions in memory)")

	for key, flag := range map[string]string{
		"location.lat": "lat",
		"location.lon": "lon",
		"log.level":    "log-level",
		"metrics.addr": "metrics-addr",
		"cache.path":   "cache",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// runTUI starts the interactive view. Without a terminal on stdout it
// prints tonight's table instead.
func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runTonight(cmd, args)
	}

	a, err := newApp(cmd.Context(), v, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	// Log lines would tear the alt screen.
	a.log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := ui.New(ctx, a.manager, a.obs, time.Now(), time.Local)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
