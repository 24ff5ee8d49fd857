package feedback

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/collect"
	"github.com/marklab/marksman/internal/config"
	"github.com/marklab/marksman/internal/llm"
	"github.com/marklab/marksman/internal/result"
)

// Chatter is the model call surface. *llm.Client satisfies it; tests
// substitute a stub.
type Chatter interface {
	Chat(ctx context.Context, system, user string, schema *llm.Schema) (string, error)
}

const defaultSystemPrompt = "You are a helpful teaching assistant providing feedback on a specific part of a student's assignment."

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Output is one module's outcome. Content always holds the text later
// modules and the report see: the cleaned model response on success, a
// failure marker otherwise.
type Output struct {
	ModuleID   string
	OK         bool
	Structured map[string]any
	Content    string
}

// Executor runs a task's module chain for one student.
type Executor struct {
	Client     Chatter
	ResultsDir string
	Log        *zap.Logger
}

// Run executes the modules in config order. Every model exchange is
// persisted as an intermediate record before any parsing, so failed calls
// stay reviewable and scores can be re-extracted offline. A failed module
// never aborts the chain; its failure text flows to any later module that
// references it.
func (e *Executor) Run(ctx context.Context, bundle *collect.Bundle, modules []config.Module) map[string]Output {
	outputs := make(map[string]Output, len(modules))
	chain := make(map[string]string, len(modules))
	for _, mod := range modules {
		out := e.runModule(ctx, bundle, mod, chain)
		outputs[mod.ID] = out
		chain[mod.ID] = out.Content
	}
	return outputs
}

func (e *Executor) runModule(ctx context.Context, bundle *collect.Bundle, mod config.Module, chain map[string]string) Output {
	log := e.Log.With(
		zap.String("student_id", bundle.Student.ID),
		zap.String("module_id", mod.ID),
		zap.String("stage", "feedback"))

	vars := bundle.Gather(mod.RequiredData, chain)

	systemTmpl := mod.SystemPromptTemplate
	if systemTmpl == "" {
		systemTmpl = defaultSystemPrompt
	}
	system, missing := Render(systemTmpl, vars)
	user, alsoMissing := Render(mod.UserPromptTemplate, vars)
	missing = append(missing, alsoMissing...)

	schemaName := mod.OutputModel
	if schemaName == "" {
		schemaName = "TextFeedback"
	}
	schema, _ := llm.LookupSchema(schemaName)
	if schema != nil {
		system += "\n\n" + schema.Instruction()
	}

	if len(missing) > 0 {
		log.Error("prompt variables missing", zap.Strings("missing", missing))
		e.persist(bundle, mod.ID, system, user, "", false,
			fmt.Sprintf("missing prompt variables: %s", strings.Join(missing, ", ")))
		return Output{
			ModuleID: mod.ID,
			Content:  fmt.Sprintf("Error: Configuration error for prompt variables (missing key: '%s').", missing[0]),
		}
	}

	content, err := e.Client.Chat(ctx, system, user, schema)
	if err != nil {
		log.Error("model call failed", zap.Error(err))
		e.persist(bundle, mod.ID, system, user, "", false, err.Error())
		return Output{
			ModuleID: mod.ID,
			Content:  "Error generating feedback for this module: " + err.Error(),
		}
	}
	e.persist(bundle, mod.ID, system, user, content, true, "")

	cleaned := llm.StripFences(content)
	structured, err := schema.Validate(cleaned)
	if err != nil {
		log.Error("response failed schema validation",
			zap.String("output_model", schemaName), zap.Error(err))
		return Output{
			ModuleID: mod.ID,
			Content:  "Error: Could not parse LLM response. Raw output: " + content,
		}
	}

	log.Info("module feedback generated")
	return Output{
		ModuleID:   mod.ID,
		OK:         true,
		Structured: structured,
		Content:    cleaned,
	}
}

// persist writes the intermediate record. Failure to save never fails the
// module; the chain output is still usable, only offline re-extraction
// loses this exchange.
func (e *Executor) persist(bundle *collect.Bundle, moduleID, system, user, content string, ok bool, errMsg string) {
	rec := &result.Intermediate{
		ModuleID:           moduleID,
		StudentID:          bundle.Student.ID,
		StudentName:        bundle.Student.Name,
		TaskName:           bundle.TaskName,
		LLMCallSuccess:     ok,
		SystemPrompt:       system,
		UserPrompt:         user,
		RawResponseContent: content,
		ErrorMessage:       errMsg,
	}
	if path, err := result.WriteIntermediate(e.ResultsDir, rec); err != nil {
		e.Log.Error("saving intermediate response failed",
			zap.String("student_id", bundle.Student.ID),
			zap.String("module_id", moduleID),
			zap.Error(err))
	} else {
		e.Log.Debug("saved intermediate response", zap.String("path", path))
	}
}

// Render substitutes {name} placeholders and reports the ones vars does
// not cover. Placeholders survive in the rendered text so the saved
// prompt shows exactly what was left unfilled.
func Render(tmpl string, vars map[string]string) (rendered string, missing []string) {
	rendered = placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		missing = append(missing, key)
		return m
	})
	return rendered, missing
}
