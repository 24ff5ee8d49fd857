package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marklab/marksman/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file for problems",
		Long:  "Loads the config and runs the same validation the run command uses: task and module definitions, schema names, module_output chain order and tool entries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("%s: OK (%d tasks, %d tools)\n", cfgFile, len(cfg.Tasks), len(cfg.Tools))
			return nil
		},
	}
}
