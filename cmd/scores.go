package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marklab/marksman/internal/runner"
	"github.com/marklab/marksman/internal/score"
)

var flagScoresTaskName string

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Re-extract scores from saved model responses",
		Long:  "Reads the intermediate responses saved by a previous run, rebuilds scores_summary.json without any model calls, and prints the summary table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			task, ok := cfg.Tasks[flagScoresTaskName]
			if !ok {
				return fmt.Errorf("task %q not found in config (known: %s)",
					flagScoresTaskName, strings.Join(cfg.TaskNames(), ", "))
			}
			rc := &runner.RunContext{
				Config:   cfg,
				Task:     task,
				TaskName: flagScoresTaskName,
				Log:      log,
			}
			summary, err := rc.ExtractScores()
			if err != nil {
				return err
			}
			fmt.Println()
			return score.WriteTable(os.Stdout, summary)
		},
	}
	cmd.Flags().StringVar(&flagScoresTaskName, "task-name", "", "task to extract scores for (required)")
	cmd.MarkFlagRequired("task-name")
	return cmd
}
