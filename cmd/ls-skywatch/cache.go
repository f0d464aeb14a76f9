package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-skywatch/internal/cache"
	"github.com/litescript/ls-skywatch/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the SQLite session cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions from the cache file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		if cfg.CachePath == "" {
			return errors.New("no cache file configured (set --cache or cache.path)")
		}

		store, err := cache.OpenSQLite(cfg.CachePath)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired sessions from %s\n", n, cfg.CachePath)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
