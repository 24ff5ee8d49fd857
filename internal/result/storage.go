package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SafeName makes a student name usable inside a file name.
func SafeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// StudentFilePath is the per-student artifact path:
// <resultsDir>/<task>/<Name>_<id>_<task>_<resultType>.json.
func StudentFilePath(resultsDir, task string, md Metadata, resultType string) string {
	name := fmt.Sprintf("%s_%s_%s_%s.json", SafeName(md.StudentName), md.StudentID, task, resultType)
	return filepath.Join(resultsDir, task, name)
}

func WriteTestResults(resultsDir string, f *TestResultsFile) (string, error) {
	path := StudentFilePath(resultsDir, f.Metadata.TaskName, f.Metadata, "test_results")
	return path, writeJSON(path, f)
}

func WriteQualityResults(resultsDir string, f *QualityResultsFile) (string, error) {
	path := StudentFilePath(resultsDir, f.Metadata.TaskName, f.Metadata, "quality_results")
	return path, writeJSON(path, f)
}

// WriteErrorResults records a student whose run broke before producing any
// per-problem results, so a zero score stays distinguishable from an empty
// submission.
func WriteErrorResults(resultsDir, studentName, studentID, task, runID, reason string) (string, error) {
	f := &TestResultsFile{
		Metadata: NewMetadata(studentName, studentID, task, runID, "error"),
		Problems: map[string]TestProblem{},
		Error:    reason,
	}
	path := StudentFilePath(resultsDir, task, f.Metadata, "error_results")
	return path, writeJSON(path, f)
}

func IntermediateDir(resultsDir, task, studentID string) string {
	return filepath.Join(resultsDir, "intermediate_responses", task, studentID)
}

func IntermediatePath(resultsDir string, rec *Intermediate) string {
	return filepath.Join(IntermediateDir(resultsDir, rec.TaskName, rec.StudentID), rec.ModuleID+"_intermediate.json")
}

func WriteIntermediate(resultsDir string, rec *Intermediate) (string, error) {
	path := IntermediatePath(resultsDir, rec)
	return path, writeJSON(path, rec)
}

func ReadIntermediate(path string) (*Intermediate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading intermediate: %w", err)
	}
	var rec Intermediate
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing intermediate %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// IntermediateStudents lists student ids that have saved intermediates for
// the task, sorted.
func IntermediateStudents(resultsDir, task string) ([]string, error) {
	dir := filepath.Join(resultsDir, "intermediate_responses", task)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading intermediates dir %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// IntermediateFiles lists one student's *_intermediate.json paths, sorted.
func IntermediateFiles(resultsDir, task, studentID string) ([]string, error) {
	dir := IntermediateDir(resultsDir, task, studentID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading intermediates dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_intermediate.json") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func ScoresSummaryPath(resultsDir, task string) string {
	return filepath.Join(resultsDir, task, "scores_summary.json")
}

func WriteScoresSummary(resultsDir, task string, summary any) (string, error) {
	path := ScoresSummaryPath(resultsDir, task)
	return path, writeJSON(path, summary)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating results dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
