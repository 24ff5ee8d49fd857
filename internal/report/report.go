package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/marklab/marksman/internal/config"
	"github.com/marklab/marksman/internal/feedback"
	"github.com/marklab/marksman/internal/result"
	"github.com/marklab/marksman/internal/submission"
)

// Format selects the on-disk rendering of a feedback report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
)

// ParseFormat accepts the --feedback-format flag values. Empty means
// markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown feedback format %q (markdown, html or text)", s)
}

func (f Format) ext() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatText:
		return ".txt"
	}
	return ".md"
}

// Assemble builds the student's report from module outputs per the task's
// report_structure: rendered header, one titled section per configured
// module, footer. A header that cannot render (empty template or unknown
// placeholder) degrades to a minimal built-in one rather than aborting.
func Assemble(taskName string, student submission.Student, outputs map[string]feedback.Output, rs config.ReportStructure) string {
	vars := map[string]string{
		"user_name": student.Name,
		"user_id":   student.ID,
		"task_name": taskName,
	}

	header := ""
	if rs.Header != "" {
		if rendered, missing := feedback.Render(rs.Header, vars); len(missing) == 0 {
			header = rendered
		}
	}
	if header == "" {
		header = fmt.Sprintf("# Feedback for %s (%s) - %s", student.Name, student.ID, taskName)
	}

	sections := make([]string, 0, len(rs.Sections))
	for _, sec := range rs.Sections {
		title := sec.Title
		if title == "" {
			title = "### " + sec.ModuleID + "\n"
		}
		sections = append(sections, title+"\n"+sectionContent(sec.ModuleID, outputs))
	}

	return header + "\n\n" + strings.Join(sections, "\n\n") + "\n\n" + rs.Footer
}

func sectionContent(moduleID string, outputs map[string]feedback.Output) string {
	out, ok := outputs[moduleID]
	if !ok {
		return fmt.Sprintf("Content for module '%s' not generated or in unknown format.", moduleID)
	}
	if out.OK {
		if text, ok := out.Structured["feedback_text"].(string); ok {
			return text
		}
		if data, err := json.MarshalIndent(out.Structured, "", "  "); err == nil {
			return string(data)
		}
	}
	return out.Content
}

// Write renders the assembled markdown in the requested format and saves
// it under <feedbackDir>/<task>/.
func Write(feedbackDir, taskName string, student submission.Student, markdown string, format Format) (string, error) {
	content := markdown
	if format == FormatHTML {
		content = ToHTML(fmt.Sprintf("Feedback for %s", student.Name), markdown)
	}
	name := fmt.Sprintf("%s_%s_%s_feedback%s", result.SafeName(student.Name), student.ID, taskName, format.ext())
	path := filepath.Join(feedbackDir, taskName, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating feedback dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// ToHTML converts report markdown into a standalone HTML page. Markdown
// that goldmark rejects is preserved verbatim inside a <pre> block.
func ToHTML(title, markdown string) string {
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := gm.Convert([]byte(markdown), &buf); err != nil {
		buf.Reset()
		buf.WriteString("<pre>")
		buf.WriteString(html.EscapeString(markdown))
		buf.WriteString("</pre>\n")
	}
	return fmt.Sprintf(htmlShell, html.EscapeString(title), buf.String())
}
