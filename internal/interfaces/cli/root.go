// Package cli implements the forgeff command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
)

var (
	flagLogLevel  string
	flagLogFormat string

	rootLog logging.Logger
)

// NewRootCommand builds the forgeff command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "forgeff",
		Short: "SMIRNOFF force-field fitting toolkit",
		Long: `forgeff fits SMIRNOFF force-field parameters against reference
geometries and gradients, and inspects how parameters label molecules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			v.SetEnvPrefix("FORGEFF")
			v.AutomaticEnv()
			if flagLogLevel == "" {
				flagLogLevel = v.GetString("LOG_LEVEL")
			}
			if flagLogFormat == "" {
				flagLogFormat = "console"
			}
			log, err := logging.NewLogger(logging.LogConfig{
				Level:  flagLogLevel,
				Format: flagLogFormat,
			})
			if err != nil {
				return err
			}
			rootLog = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (console|json)")

	root.AddCommand(newFitCommand())
	root.AddCommand(newLintCommand())
	root.AddCommand(newParamsCommand())
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
