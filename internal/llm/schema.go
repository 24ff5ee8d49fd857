package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Field describes one property of an output schema.
type Field struct {
	Name     string
	Type     string // "string", "number", or "array" (of strings)
	Required bool
}

// Schema is a named output contract for module responses. TextField names
// the property holding the human-readable payload, if the schema has one.
type Schema struct {
	Name      string
	Fields    []Field
	TextField string
}

var registry = map[string]*Schema{
	"TextFeedback": {
		Name: "TextFeedback",
		Fields: []Field{
			{Name: "feedback_text", Type: "string", Required: true},
		},
		TextField: "feedback_text",
	},
	"ScoreFeedback": {
		Name: "ScoreFeedback",
		Fields: []Field{
			{Name: "score", Type: "number", Required: true},
			{Name: "justification", Type: "string", Required: true},
			{Name: "max_score", Type: "number"},
			{Name: "strengths", Type: "array"},
			{Name: "improvements", Type: "array"},
		},
		TextField: "justification",
	},
}

// LookupSchema returns the registered schema for name.
func LookupSchema(name string) (*Schema, bool) {
	s, ok := registry[name]
	return s, ok
}

// SchemaNames lists registered schema names in sorted order.
func SchemaNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONSchema renders the schema as a JSON-schema object suitable for both
// the response_format request field and the prompt instruction.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		switch f.Type {
		case "array":
			props[f.Name] = map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			}
		default:
			props[f.Name] = map[string]any{"type": f.Type}
		}
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// Instruction returns the text appended to a module's system prompt so the
// model emits a bare JSON object matching the schema.
func (s *Schema) Instruction() string {
	data, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return "Your response MUST be a single, valid JSON object that conforms to the following JSON schema. " +
		"Do not include any text before or after the JSON object.\nJSON Schema:\n" + string(data)
}

// StripFences removes markdown code-fence wrapping that models often add
// around JSON payloads.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// Validate parses raw (already fence-stripped) as a JSON object and checks
// required fields and field types against the schema. Unknown extra fields
// are tolerated.
func (s *Schema) Validate(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	for _, f := range s.Fields {
		v, present := obj[f.Name]
		if !present {
			if f.Required {
				return nil, fmt.Errorf("missing required field %q", f.Name)
			}
			continue
		}
		switch f.Type {
		case "string":
			if _, ok := v.(string); !ok {
				return nil, fmt.Errorf("field %q: expected string, got %T", f.Name, v)
			}
		case "number":
			if _, ok := v.(float64); !ok {
				return nil, fmt.Errorf("field %q: expected number, got %T", f.Name, v)
			}
		case "array":
			if _, ok := v.([]any); !ok {
				return nil, fmt.Errorf("field %q: expected array, got %T", f.Name, v)
			}
		}
	}
	return obj, nil
}
