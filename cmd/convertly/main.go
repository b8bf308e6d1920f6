// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the convertly CLI. It drives batch
// uploads against a remote conversion service and keeps a history of runs.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/convertly/internal/secrets"
	"github.com/pdiddy/convertly/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the convertly CLI.
var rootCmd = &cobra.Command{
	Use:   "convertly",
	Short: "Batch uploads to a file conversion service",
	Long: `convertly sends files to a remote conversion service and tracks each
upload until it settles. Workflows cover image compression, Word and Excel
conversion, and PDF compress, rotate, split, merge and export.

Use "convertly workflows" to list them and "convertly run" to start a batch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", os.Stderr)
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./convertly.yaml or ~/.config/convertly/convertly.yaml)")
	rootCmd.PersistentFlags().String("service", "", "conversion service base URL")
	rootCmd.PersistentFlags().Duration("timeout", 0, "HTTP request timeout")
	_ = viper.BindPFlag("service.base_url", rootCmd.PersistentFlags().Lookup("service"))
	_ = viper.BindPFlag("service.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load(".env")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("convertly")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "convertly"))
		}
	}

	viper.SetEnvPrefix("CONVERTLY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	viper.SetDefault("service.base_url", types.DefaultBaseURL)
	viper.SetDefault("service.timeout", types.DefaultTimeout)
	viper.SetDefault("service.user_agent", types.DefaultUserAgent)
	viper.SetDefault("service.api_token", "")
	viper.SetDefault("service.rate_limit_retries", 0)
	viper.SetDefault("batch.concurrency", 0)
	viper.SetDefault("batch.provisional_progress", types.DefaultProvisionalProgress)
	viper.SetDefault("history.dir", "")
	viper.SetDefault("metrics.textfile", "")
	viper.SetDefault("archive.bucket", "")
	viper.SetDefault("archive.prefix", "")
	viper.SetDefault("archive.region", "")
	viper.SetDefault("archive.endpoint", "")
	viper.SetDefault("archive.access_key_id", "")
	viper.SetDefault("archive.secret_access_key", "")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration: config file, then
// environment and flags, then secret files for credentials still unset.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg.WithDefaults(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
