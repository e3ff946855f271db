package main

import (
	"fmt"
	"os"

	"github.com/aretw0/otec/internal/cli"
	"github.com/aretw0/otec/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "otec",
	Short: "otec is an operational transformation engine",
	Long: `otec integrates concurrent edits to shared documents using operational
transformation, keeping every operation in a replayable log.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "otec.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("store", "", "Log store backend: memory, file or redis")
	rootCmd.PersistentFlags().String("dir", "", "Directory of the file store")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	if v, _ := cmd.Flags().GetString("dir"); v != "" {
		cfg.Store.Dir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, cfg.Validate()
}

// openEnv resolves configuration, logger and backend for a command.
func openEnv(cmd *cobra.Command) (*engineEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	backend, err := cli.OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &engineEnv{cfg: cfg, logger: logger, backend: backend}, nil
}
