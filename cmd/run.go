package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/feedback"
	"github.com/marklab/marksman/internal/llm"
	"github.com/marklab/marksman/internal/report"
	"github.com/marklab/marksman/internal/runner"
	"github.com/marklab/marksman/internal/score"
)

var (
	flagTaskName       string
	flagSubmissionsDir string
	flagModel          string
	flagTestTimeout    int
	flagSkipTests      bool
	flagSkipFeedback   bool
	flagWorkers        int
	flagFeedbackFormat string
	flagTemperature    float64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grade a task's submissions and generate feedback",
		RunE:  runGrading,
	}
	cmd.Flags().StringVar(&flagTaskName, "task-name", "", "task to grade (required)")
	cmd.MarkFlagRequired("task-name")
	cmd.Flags().StringVar(&flagSubmissionsDir, "submissions-dir", "", "override configured submissions directory")
	cmd.Flags().StringVar(&flagModel, "model", "", "override configured model")
	cmd.Flags().IntVar(&flagTestTimeout, "test-timeout", 0, "per-problem test timeout in seconds")
	cmd.Flags().BoolVar(&flagSkipTests, "skip-tests", false, "skip test execution and quality checks")
	cmd.Flags().BoolVar(&flagSkipFeedback, "skip-feedback", false, "skip feedback generation")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "max submissions graded concurrently")
	cmd.Flags().StringVar(&flagFeedbackFormat, "feedback-format", "markdown", "report format (markdown, html or text)")
	cmd.Flags().Float64Var(&flagTemperature, "temperature", -1, "override configured sampling temperature")
	return cmd
}

func runGrading(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	task, ok := cfg.Tasks[flagTaskName]
	if !ok {
		return fmt.Errorf("task %q not found in config (known: %s)",
			flagTaskName, strings.Join(cfg.TaskNames(), ", "))
	}
	format, err := report.ParseFormat(flagFeedbackFormat)
	if err != nil {
		return err
	}
	if flagSubmissionsDir != "" {
		cfg.SubmissionsDir = flagSubmissionsDir
	}
	if flagTestTimeout > 0 {
		cfg.TestTimeoutSeconds = flagTestTimeout
	}
	workers := cfg.Workers
	if flagWorkers > 0 {
		workers = flagWorkers
	}

	if !flagSkipTests {
		if _, err := exec.LookPath(cfg.Python); err != nil {
			return fmt.Errorf("python interpreter %q not found (use --skip-tests to grade without running tests)", cfg.Python)
		}
	}

	var client feedback.Chatter
	if !flagSkipFeedback {
		if cfg.LLM.EnvFile != "" {
			if err := llm.LoadEnv(cfg.LLM.EnvFile); err != nil {
				log.Warn("could not load env file", zap.Error(err))
			}
		}
		model := cfg.LLM.Model
		if flagModel != "" {
			model = flagModel
		}
		temperature := cfg.LLM.Temperature
		if flagTemperature >= 0 {
			temperature = flagTemperature
		}
		client = llm.NewClient(llm.Options{
			Model:       model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		}, log)
	}

	rc := &runner.RunContext{
		Config:       cfg,
		Task:         task,
		TaskName:     flagTaskName,
		RunID:        uuid.NewString(),
		Workers:      workers,
		SkipTests:    flagSkipTests,
		SkipFeedback: flagSkipFeedback,
		Format:       format,
		Client:       client,
		Log:          log,
	}
	summary, err := rc.Run(cmd.Context())
	if err != nil {
		return err
	}
	if summary != nil {
		fmt.Println()
		return score.WriteTable(os.Stdout, summary)
	}
	return nil
}
