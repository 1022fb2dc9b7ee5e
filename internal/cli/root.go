// Package cli implements the docqa command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/logger"
)

var version = "dev"

var (
	cfgPath string
	verbose bool

	appConfig *config.AppConfig
	appLog    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes documents (txt, md, csv, pdf) into a local vector store
and answers questions grounded in the most similar chunks.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/docqa/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output, including every pipeline message")
	rootCmd.Version = version
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// ExecuteContext runs the root command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgPath == "" {
		appConfig, _, err = config.LoadDefault()
	} else {
		appConfig, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := appConfig.Log.Level
	if verbose {
		level = "debug"
	}
	appLog, err = logger.New(logger.Options{Level: level, Format: appConfig.Log.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	return nil
}
