package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marklab/marksman/internal/submission"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tasks and discovered submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			fmt.Println("Tasks:")
			for _, name := range cfg.TaskNames() {
				task := cfg.Tasks[name]
				ids := make([]string, len(task.Modules))
				for i, m := range task.Modules {
					ids[i] = m.ID
				}
				fmt.Printf("  - %s (modules: %s)\n", name, strings.Join(ids, ", "))
			}

			fmt.Println("\nSubmissions:")
			for _, name := range cfg.TaskNames() {
				subs, err := submission.Discover(cfg.SubmissionsDir, name, log)
				if err != nil {
					fmt.Printf("  %s: none (%v)\n", name, err)
					continue
				}
				fmt.Printf("  %s: %d\n", name, len(subs))
				for _, s := range subs {
					fmt.Printf("    - %s %s\n", s.Student.ID, s.Student.Name)
				}
			}
			return nil
		},
	}
}
