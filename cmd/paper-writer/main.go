// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-writer CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/secrets"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is built once from viper before any subcommand runs.
	cfg types.Config

	// logger is the process logger; subcommands pass it to components.
	logger = zap.NewNop()

	// loadedSecrets resolves API keys from the environment and secrets dir.
	loadedSecrets *secrets.Set
)

// rootCmd is the base command for the paper-writer CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-writer",
	Short: "Draft research papers from a title and a seed description",
	Long: `paper-writer turns a title and a short description into an outline,
searches for sources per section, fetches and normalizes every referenced
document, and asks a model for a citation from each one.

The write command runs the whole pipeline. The locators, fetch and normalize
commands expose single stages; runs inspects the history of past runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l

		c, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = c

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if s.Len() > 0 {
			logger.Debug("loaded secrets", zap.String("dir", dir), zap.Int("count", s.Len()))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-writer.yaml or ~/.config/paper-writer/paper-writer.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of secret files, one key per file")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-writer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-writer"))
		}
	}

	viper.SetEnvPrefix("PAPER_WRITER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zc.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
