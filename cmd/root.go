package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/marklab/marksman/internal/config"
	"github.com/marklab/marksman/internal/logging"
)

var (
	cfgFile      string
	flagLogLevel string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "marksman",
		Short: "Automated grading and feedback for student submissions",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "marking.yaml", "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override configured log level (debug, info, warn, error)")
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newScoresCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// loadConfig loads the config file and builds the logger, honoring a
// --log-level override.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Logging.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logging.New(cfg.Logging.Mode, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
