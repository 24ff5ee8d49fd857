package result

import (
	"time"

	"github.com/marklab/marksman/internal/quality"
	"github.com/marklab/marksman/internal/testrun"
)

// Metadata heads every per-student artifact so files stay interpretable
// after they are copied out of the results tree.
type Metadata struct {
	StudentName string `json:"student_name"`
	StudentID   string `json:"student_id"`
	TaskName    string `json:"task_name"`
	Timestamp   string `json:"timestamp"`
	RunID       string `json:"run_id,omitempty"`
	ResultType  string `json:"result_type"`
}

func NewMetadata(studentName, studentID, taskName, runID, resultType string) Metadata {
	return Metadata{
		StudentName: studentName,
		StudentID:   studentID,
		TaskName:    taskName,
		Timestamp:   time.Now().Format(time.RFC3339),
		RunID:       runID,
		ResultType:  resultType,
	}
}

// TestProblem records one problem's test run, keyed by problem id in
// TestResultsFile.Problems.
type TestProblem struct {
	SolutionPath string           `json:"solution_path"`
	TestResults  *testrun.Outcome `json:"test_results,omitempty"`
}

// TestResultsFile is the per-student test artifact. Error is set when the
// whole run for the student failed before any problem was attempted.
type TestResultsFile struct {
	Metadata Metadata               `json:"metadata"`
	Problems map[string]TestProblem `json:"problems"`
	Error    string                 `json:"error,omitempty"`
}

type QualityProblem struct {
	SolutionPath   string                    `json:"solution_path"`
	QualityResults map[string]quality.Result `json:"quality_results"`
}

type QualityResultsFile struct {
	Metadata Metadata                  `json:"metadata"`
	Problems map[string]QualityProblem `json:"problems"`
	Error    string                    `json:"error,omitempty"`
}

// Intermediate is the raw record of one module's model exchange, persisted
// before any parsing so failed calls stay reviewable and scores can be
// re-extracted offline.
type Intermediate struct {
	ModuleID           string `json:"module_id"`
	StudentID          string `json:"student_id"`
	StudentName        string `json:"student_name,omitempty"`
	TaskName           string `json:"task_name"`
	LLMCallSuccess     bool   `json:"llm_call_success"`
	SystemPrompt       string `json:"system_prompt"`
	UserPrompt         string `json:"user_prompt"`
	RawResponseContent string `json:"raw_response_content"`
	ErrorMessage       string `json:"error_message,omitempty"`
}
