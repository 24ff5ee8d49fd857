// Package collect gathers everything known about one submission (code,
// prose, test outcomes, quality results, earlier module outputs) and
// resolves the data specifiers that prompt templates reference.
package collect

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/extract"
	"github.com/marklab/marksman/internal/quality"
	"github.com/marklab/marksman/internal/submission"
	"github.com/marklab/marksman/internal/testrun"
)

// Bundle is the resolved data for one student and task. Maps are keyed by
// base filename (code, markdown, documents) or problem id (outcomes,
// quality).
type Bundle struct {
	TaskName  string
	Student   submission.Student
	Code      map[string]string
	Markdown  map[string]string
	Documents map[string]string
	Outcomes  map[string]*testrun.Outcome
	Quality   map[string]map[string]quality.Result

	log *zap.Logger
}

// New extracts content from every source file of a staged submission up
// front. Extraction failures become inline placeholders rather than
// errors: a corrupt PDF should cost the student that document's content,
// not the whole run.
func New(taskName string, staged *submission.Staged, outcomes map[string]*testrun.Outcome, qual map[string]map[string]quality.Result, log *zap.Logger) *Bundle {
	b := &Bundle{
		TaskName:  taskName,
		Student:   staged.Student,
		Code:      map[string]string{},
		Markdown:  map[string]string{},
		Documents: map[string]string{},
		Outcomes:  outcomes,
		Quality:   qual,
		log:       log,
	}
	for _, src := range staged.Sources {
		name := filepath.Base(src)
		switch extract.KindOf(src) {
		case extract.KindCode:
			code, err := extract.Code(src)
			if err != nil {
				log.Warn("failed to read code file", zap.String("file", name), zap.Error(err))
				continue
			}
			b.Code[name] = code
		case extract.KindNotebook:
			if code, err := extract.Code(src); err == nil && strings.TrimSpace(code) != "" {
				b.Code[name] = code
			}
			md, err := extract.Markdown(src)
			if err != nil {
				log.Warn("failed to read notebook markdown", zap.String("file", name), zap.Error(err))
				continue
			}
			if strings.TrimSpace(md) != "" {
				b.Markdown[name] = md
			}
		case extract.KindDocument:
			text, err := extract.DocumentText(src)
			if err != nil {
				log.Warn("failed to extract document", zap.String("file", name), zap.Error(err))
				text = fmt.Sprintf("[Could not extract text from %s: %v]", name, err)
			}
			b.Documents[name] = text
		case extract.KindText:
			text, err := extract.ReadText(src)
			if err != nil {
				log.Warn("failed to read text file", zap.String("file", name), zap.Error(err))
				continue
			}
			b.Documents[name] = text
		}
	}
	return b
}

// Resolve maps one data specifier to its content. moduleOutputs carries
// the rendered outputs of earlier modules in the chain.
func (b *Bundle) Resolve(specifier string, moduleOutputs map[string]string) (string, bool) {
	switch {
	case specifier == "all_code":
		if len(b.Code) == 0 {
			return "", false
		}
		return joinSorted(b.Code, "\n\n"), true
	case specifier == "all_markdown_content":
		if len(b.Markdown) == 0 {
			return "", false
		}
		return joinSorted(b.Markdown, "\n\n---\n\n"), true
	}

	kind, key, found := strings.Cut(specifier, ":")
	if !found {
		return "", false
	}
	switch kind {
	case "code_file":
		return lookupFile(b.Code, key)
	case "markdown_file":
		return lookupFile(b.Markdown, key)
	case "document_file":
		return lookupFile(b.Documents, key)
	case "test_group":
		outcome, ok := b.Outcomes[key]
		if !ok {
			return "", false
		}
		return dumpJSON(outcome)
	case "quality_group":
		results, ok := b.Quality[key]
		if !ok {
			return "", false
		}
		return dumpJSON(results)
	case "module_output":
		out, ok := moduleOutputs[key]
		return out, ok
	default:
		return "", false
	}
}

// Gather resolves a module's required_data map into template variables.
// Unresolvable specifiers get an explicit inline placeholder, so prompts
// render with visible gaps instead of the module failing. The implicit
// variables task_name, user_name and user_id are always present.
func (b *Bundle) Gather(required map[string]string, moduleOutputs map[string]string) map[string]string {
	vars := map[string]string{
		"task_name": b.TaskName,
		"user_name": b.Student.Name,
		"user_id":   b.Student.ID,
	}
	for placeholder, spec := range required {
		value, ok := b.Resolve(spec, moduleOutputs)
		if !ok {
			b.log.Warn("data specifier not resolvable",
				zap.String("placeholder", placeholder),
				zap.String("specifier", spec))
			value = "[Data not found for specifier: " + spec + "]"
		}
		vars[placeholder] = value
	}
	return vars
}

// lookupFile finds content by exact base name first, then treats the key
// as a glob over the known names in sorted order.
func lookupFile(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	if !strings.ContainsAny(key, "*?[") {
		return "", false
	}
	for _, name := range sortedKeys(m) {
		if ok, err := path.Match(key, name); err == nil && ok {
			return m[name], true
		}
	}
	return "", false
}

func joinSorted(m map[string]string, sep string) string {
	parts := make([]string, 0, len(m))
	for _, name := range sortedKeys(m) {
		parts = append(parts, m[name])
	}
	return strings.Join(parts, sep)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dumpJSON(v any) (string, bool) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", false
	}
	return string(data), true
}
