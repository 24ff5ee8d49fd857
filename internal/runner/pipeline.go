package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/collect"
	"github.com/marklab/marksman/internal/config"
	"github.com/marklab/marksman/internal/feedback"
	"github.com/marklab/marksman/internal/pyenv"
	"github.com/marklab/marksman/internal/quality"
	"github.com/marklab/marksman/internal/report"
	"github.com/marklab/marksman/internal/result"
	"github.com/marklab/marksman/internal/score"
	"github.com/marklab/marksman/internal/submission"
	"github.com/marklab/marksman/internal/testrun"
)

// RunContext carries everything one grading run needs. Workers share it
// read-only; per-student state lives in each job.
type RunContext struct {
	Config       *config.Config
	Task         config.Task
	TaskName     string
	RunID        string
	Workers      int
	SkipTests    bool
	SkipFeedback bool
	Format       report.Format
	Client       feedback.Chatter
	Log          *zap.Logger
}

// Run grades every discovered submission, then extracts scores from
// whatever intermediates exist. Individual student failures are recorded
// and logged, never fatal to the run.
func (rc *RunContext) Run(ctx context.Context) (*score.Summary, error) {
	subs, err := submission.Discover(rc.Config.SubmissionsDir, rc.TaskName, rc.Log)
	if err != nil {
		return nil, err
	}
	rc.Log.Info("starting run",
		zap.String("task", rc.TaskName),
		zap.String("run_id", rc.RunID),
		zap.Int("submissions", len(subs)),
		zap.Int("workers", rc.Workers))

	jobs := make([]Job, 0, len(subs))
	for _, sub := range subs {
		sub := sub // per-iteration copy: go directive is 1.21, pre-1.22 loop semantics
		jobs = append(jobs, Job{Name: sub.Student.ID, Run: func() error {
			return rc.processOne(ctx, sub)
		}})
	}
	for _, fail := range RunPool(rc.Workers, jobs) {
		rc.Log.Error("submission processing failed",
			zap.String("student_id", fail.Name),
			zap.Error(fail.Err))
	}

	summary, err := rc.ExtractScores()
	if err != nil {
		rc.Log.Warn("score extraction skipped", zap.Error(err))
		return nil, nil
	}
	return summary, nil
}

// ExtractScores reprocesses the task's saved intermediates into
// scores_summary.json. It only depends on what is on disk, so it also
// backs the standalone scores command.
func (rc *RunContext) ExtractScores() (*score.Summary, error) {
	extractor := &score.Extractor{
		ResultsDir: rc.Config.ResultsDir,
		Hints:      score.MaxScoreHints(rc.Task.Modules),
		Log:        rc.Log,
	}
	summary, err := extractor.ExtractTask(rc.TaskName)
	if err != nil {
		return nil, err
	}
	path, err := result.WriteScoresSummary(rc.Config.ResultsDir, rc.TaskName, summary)
	if err != nil {
		return nil, err
	}
	rc.Log.Info("scores summary written",
		zap.String("path", path),
		zap.Int("students", summary.TotalStudents))
	return summary, nil
}

// processOne runs the full stage sequence for a single student. Stages
// degrade independently: a broken archive writes an error marker, a
// failed test run or module call is recorded in its artifact, and later
// stages keep going on whatever survived.
func (rc *RunContext) processOne(ctx context.Context, sub submission.Submission) error {
	log := rc.Log.With(
		zap.String("student_id", sub.Student.ID),
		zap.String("task", rc.TaskName))
	log.Info("processing submission", zap.String("student_name", sub.Student.Name))

	staged, err := submission.Stage(sub, "", log)
	if err != nil {
		if _, werr := result.WriteErrorResults(rc.Config.ResultsDir,
			sub.Student.Name, sub.Student.ID, rc.TaskName, rc.RunID, err.Error()); werr != nil {
			log.Error("writing error marker failed", zap.Error(werr))
		}
		return fmt.Errorf("staging: %w", err)
	}
	defer staged.Cleanup(log)

	outcomes := make(map[string]*testrun.Outcome)
	qualityResults := make(map[string]map[string]quality.Result)

	if !rc.SkipTests {
		runner := &testrun.Runner{
			Python:       rc.Config.Python,
			TestCasesDir: rc.Config.TestCasesDir,
			Timeout:      time.Duration(rc.Config.TestTimeoutSeconds) * time.Second,
			Log:          log,
		}
		if err := runner.CopyDataFiles(staged.WorkDir); err != nil {
			log.Warn("copying data files failed", zap.Error(err))
		}
		if !rc.Config.SkipPackageInstall {
			resolver := &pyenv.Resolver{Python: rc.Config.Python, Log: log}
			resolver.Resolve(ctx, staged.WorkDir, stagedSource(staged))
		}

		checker := quality.NewRunner(rc.Config.Tools, log)
		testsFile := &result.TestResultsFile{
			Metadata: result.NewMetadata(sub.Student.Name, sub.Student.ID, rc.TaskName, rc.RunID, "test_results"),
			Problems: make(map[string]result.TestProblem),
		}
		qualityFile := &result.QualityResultsFile{
			Metadata: result.NewMetadata(sub.Student.Name, sub.Student.ID, rc.TaskName, rc.RunID, "quality_results"),
			Problems: make(map[string]result.QualityProblem),
		}
		for _, f := range staged.Runnable() {
			outcome := runner.Run(ctx, f.ProblemID, f.WorkPath, staged.WorkDir)
			checks := checker.Check(ctx, f.WorkPath)
			outcomes[f.ProblemID] = outcome
			qualityResults[f.ProblemID] = checks

			testsFile.Problems[f.ProblemID] = result.TestProblem{
				SolutionPath: f.OriginalPath,
				TestResults:  outcome,
			}
			qualityFile.Problems[f.ProblemID] = result.QualityProblem{
				SolutionPath:   f.OriginalPath,
				QualityResults: checks,
			}
		}
		if _, err := result.WriteTestResults(rc.Config.ResultsDir, testsFile); err != nil {
			log.Error("writing test results failed", zap.Error(err))
		}
		if _, err := result.WriteQualityResults(rc.Config.ResultsDir, qualityFile); err != nil {
			log.Error("writing quality results failed", zap.Error(err))
		}
	}

	if rc.SkipFeedback {
		log.Info("feedback generation skipped")
		return nil
	}

	bundle := collect.New(rc.TaskName, staged, outcomes, qualityResults, log)
	executor := &feedback.Executor{Client: rc.Client, ResultsDir: rc.Config.ResultsDir, Log: log}
	outputs := executor.Run(ctx, bundle, rc.Task.Modules)

	markdown := report.Assemble(rc.TaskName, staged.Student, outputs, rc.Task.Report)
	path, err := report.Write(rc.Config.FeedbackDir, rc.TaskName, staged.Student, markdown, rc.Format)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	log.Info("feedback report written", zap.String("path", path))
	return nil
}

// stagedSource concatenates the staged scripts for import scanning.
func stagedSource(staged *submission.Staged) string {
	var b strings.Builder
	for _, f := range staged.Runnable() {
		data, err := os.ReadFile(f.WorkPath)
		if err != nil {
			continue
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String()
}
