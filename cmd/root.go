package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgverify/internal/logger"
)

var (
	// ConfigFile is the path to the YAML configuration.
	ConfigFile string
	// LogLevel overrides the configured log level.
	LogLevel string

	// rootCmd is the base command for pgverify.
	rootCmd = &cobra.Command{
		Use:   "pgverify",
		Short: "Backup catalog management and validation",
		Long: `pgverify manages a filesystem catalog of point-in-time database
backups and validates that a chosen backup, together with its chain of
incrementals, is intact and usable for restore.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// flags are parsed by now, so the level override is visible
			_, err := logger.Init(LogLevel)
			return err
		},
	}
)

// Execute runs the root command.
func Execute() {
	defer logger.Cleanup()

	// an interrupt must abort validation mid-file, not after it
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Global().Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "./configs/config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().
		StringVar(&LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
