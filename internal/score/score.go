package score

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/config"
	"github.com/marklab/marksman/internal/llm"
	"github.com/marklab/marksman/internal/result"
)

// ModuleScore is one module's extracted score.
type ModuleScore struct {
	ModuleID      string  `json:"module_id"`
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	Justification string  `json:"justification"`
	Success       bool    `json:"success"`
}

// StudentSummary aggregates one student's module scores. Totals count
// successfully extracted modules only, so a failed module reads as 0/0
// with its reason in ExtractionErrors rather than silently passing.
type StudentSummary struct {
	StudentID        string        `json:"student_id"`
	StudentName      string        `json:"student_name"`
	TaskName         string        `json:"task_name"`
	TotalScore       float64       `json:"total_score"`
	MaxTotalScore    float64       `json:"max_total_score"`
	Percentage       float64       `json:"percentage"`
	ModuleScores     []ModuleScore `json:"module_scores"`
	ExtractionErrors []string      `json:"extraction_errors"`
}

// Summary is the scores_summary.json payload. Students are sorted by id,
// so re-extraction over the same intermediates is byte-identical.
type Summary struct {
	TotalStudents int              `json:"total_students"`
	Students      []StudentSummary `json:"students"`
}

const justificationLimit = 500

// Extractor turns saved intermediate responses into score summaries.
// It is stateless with respect to the run that produced the files, which
// is what lets `marksman scores` reprocess old results.
type Extractor struct {
	ResultsDir string
	Hints      map[string]float64
	Log        *zap.Logger
}

// ExtractTask reads every student's intermediates for the task and builds
// the summary.
func (e *Extractor) ExtractTask(task string) (*Summary, error) {
	students, err := result.IntermediateStudents(e.ResultsDir, task)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Students: []StudentSummary{}}
	for _, studentID := range students {
		summary.Students = append(summary.Students, e.extractStudent(task, studentID))
	}
	summary.TotalStudents = len(summary.Students)
	return summary, nil
}

func (e *Extractor) extractStudent(task, studentID string) StudentSummary {
	ss := StudentSummary{
		StudentID:        studentID,
		TaskName:         task,
		ModuleScores:     []ModuleScore{},
		ExtractionErrors: []string{},
	}
	files, err := result.IntermediateFiles(e.ResultsDir, task, studentID)
	if err != nil {
		ss.ExtractionErrors = append(ss.ExtractionErrors, err.Error())
		return ss
	}
	for _, path := range files {
		rec, err := result.ReadIntermediate(path)
		if err != nil {
			ss.ExtractionErrors = append(ss.ExtractionErrors,
				fmt.Sprintf("Error processing %s: %v", filepath.Base(path), err))
			continue
		}
		moduleID := rec.ModuleID
		if moduleID == "" {
			moduleID = strings.TrimSuffix(filepath.Base(path), "_intermediate.json")
		}
		if ss.StudentName == "" {
			ss.StudentName = rec.StudentName
		}
		if !rec.LLMCallSuccess {
			ss.ExtractionErrors = append(ss.ExtractionErrors, "LLM call failed for module "+moduleID)
			continue
		}
		ss.ModuleScores = append(ss.ModuleScores,
			ExtractModuleScore(rec.RawResponseContent, moduleID, e.Hints[moduleID]))
	}

	for _, ms := range ss.ModuleScores {
		if ms.Success {
			ss.TotalScore += ms.Score
			ss.MaxTotalScore += ms.MaxScore
		}
	}
	if ss.MaxTotalScore > 0 {
		ss.Percentage = ss.TotalScore / ss.MaxTotalScore * 100
	}
	e.Log.Info("extracted scores",
		zap.String("student_id", studentID),
		zap.Float64("total", ss.TotalScore),
		zap.Float64("max", ss.MaxTotalScore))
	return ss
}

// ExtractModuleScore pulls a score out of one raw model response.
// Structured JSON wins; otherwise ordered text patterns are tried, and a
// response with no recognizable score is an explicit failure, never a
// default pass. maxHint <= 0 means no configured hint.
func ExtractModuleScore(content, moduleID string, maxHint float64) ModuleScore {
	trimmed := strings.TrimSpace(llm.StripFences(content))
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			if raw, present := obj["score"]; present {
				val, err := toFloat(raw)
				if err != nil {
					return ModuleScore{
						ModuleID:      moduleID,
						MaxScore:      maxScoreFor(content, moduleID, maxHint),
						Justification: fmt.Sprintf("Error extracting score: %v", err),
					}
				}
				just := "No justification provided"
				if j, ok := obj["justification"].(string); ok && j != "" {
					just = j
				}
				return ModuleScore{
					ModuleID:      moduleID,
					Score:         val,
					MaxScore:      maxScoreFor(content, moduleID, maxHint),
					Justification: just,
					Success:       true,
				}
			}
		}
	}

	for _, re := range scorePatterns {
		m := re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		val, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return ModuleScore{
			ModuleID:      moduleID,
			Score:         val,
			MaxScore:      maxScoreFor(content, moduleID, maxHint),
			Justification: truncate(content, justificationLimit),
			Success:       true,
		}
	}

	return ModuleScore{
		ModuleID:      moduleID,
		MaxScore:      maxScoreFor(content, moduleID, maxHint),
		Justification: "No clear score found in response",
	}
}

// MaxScoreHints derives each module's maximum from its user prompt
// template, falling back to a default keyed off the module id.
func MaxScoreHints(modules []config.Module) map[string]float64 {
	hints := make(map[string]float64, len(modules))
	for _, mod := range modules {
		hint := 0.0
		for _, re := range maxHintPatterns {
			m := re.FindStringSubmatch(mod.UserPromptTemplate)
			if m == nil {
				continue
			}
			if val, err := strconv.ParseFloat(m[1], 64); err == nil {
				hint = val
				break
			}
		}
		if hint <= 0 {
			hint = categoryDefault(mod.ID)
		}
		hints[mod.ID] = hint
	}
	return hints
}

func maxScoreFor(content, moduleID string, hint float64) float64 {
	if hint > 0 {
		return hint
	}
	for _, re := range maxInferPatterns {
		ms := re.FindAllStringSubmatch(content, -1)
		if len(ms) == 0 {
			continue
		}
		// Later mentions tend to be the total, so take the last match.
		if val, err := strconv.ParseFloat(ms[len(ms)-1][1], 64); err == nil {
			return val
		}
	}
	return categoryDefault(moduleID)
}

func categoryDefault(moduleID string) float64 {
	switch {
	case strings.Contains(moduleID, "data_loading") || strings.Contains(moduleID, "visualization"):
		return 5
	case strings.Contains(moduleID, "model") || strings.Contains(moduleID, "optimization"):
		return 10
	case strings.Contains(moduleID, "analysis"):
		return 5
	case strings.Contains(moduleID, "documentation"):
		return 15
	}
	return 10
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		val, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not numeric", n)
		}
		return val, nil
	default:
		return 0, fmt.Errorf("score has unsupported type %T", v)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
