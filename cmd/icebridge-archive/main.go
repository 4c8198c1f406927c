// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the icebridge-archive CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/icebridge-archive/internal/secrets"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds Earthdata credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the icebridge-archive CLI.
var rootCmd = &cobra.Command{
	Use:   "icebridge-archive",
	Short: "Mirror and reconcile NASA IceBridge flight data",
	Long: `icebridge-archive maintains a local mirror of NASA IceBridge flight
data from NSIDC. Each stage is a subcommand: index builds a parsed frame
index from the remote folder listing, fetch downloads granules and their
sidecars, validate checks fetched files against their sidecar checksums,
reconcile applies the special-case rules the archive layout needs, and
catalog tracks everything in a local SQLite database.

Flights are addressed by site and date, e.g. "GR 20091016" for the
Greenland flight of October 16th 2009.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./icebridge-archive.yaml or ~/.config/icebridge-archive/config.yaml)")
	rootCmd.PersistentFlags().String("archive-dir", "archive", "local archive root, one subdirectory per flight")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("icebridge-archive")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "icebridge-archive"))
		}
	}

	viper.SetEnvPrefix("ICEBRIDGE_ARCHIVE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// parseFlight turns the leading "<site> <date>" arguments into a Flight.
func parseFlight(args []string) (types.Flight, error) {
	if len(args) < 2 {
		return types.Flight{}, fmt.Errorf("provide a site (AN or GR) and a date (YYYYMMDD, optional letter suffix)")
	}
	site := types.Site(args[0])
	if !site.Valid() {
		return types.Flight{}, fmt.Errorf("unknown site %q: use AN or GR", args[0])
	}
	date, err := types.ParseFlightDate(args[1])
	if err != nil {
		return types.Flight{}, err
	}
	return types.Flight{Site: site, Date: date}, nil
}

// archiveDir reads the shared archive-dir flag, falling back to config.
func archiveDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("archive-dir")
	if dir == "" {
		dir = viper.GetString("archive_dir")
	}
	if dir == "" {
		dir = "archive"
	}
	return dir
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
