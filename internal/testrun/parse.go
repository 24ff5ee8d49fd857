package testrun

import (
	"regexp"
	"strings"
)

const maxFailureExcerpts = 10

var blockTitleRe = regexp.MustCompile(`^_+\s+(.+?)\s+_+$`)

// ParseOutput scans captured pytest -v output for test counts, the
// summary line and failure excerpts. The scan is tolerant: sections may
// be missing or reordered, unknown lines are ignored, and the counting
// invariant TotalTests == PassedTests + FailedTests always holds.
func ParseOutput(output string) Parsed {
	var p Parsed
	var failedNames []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			p.SummaryLine = trimmed
		}
		if !strings.Contains(line, "::") || !strings.Contains(line, "test_") {
			continue
		}
		// Skip short-summary recap lines ("FAILED file::test - msg");
		// the -v detail lines above them already counted the test.
		if strings.HasPrefix(trimmed, "PASSED") || strings.HasPrefix(trimmed, "FAILED") || strings.HasPrefix(trimmed, "ERROR") {
			continue
		}
		switch {
		case strings.Contains(line, "PASSED"):
			p.PassedTests++
		case strings.Contains(line, "FAILED"), strings.Contains(line, "ERROR"):
			p.FailedTests++
			if name := testName(line); name != "" {
				failedNames = append(failedNames, name)
			}
		}
	}
	p.TotalTests = p.PassedTests + p.FailedTests
	p.Failures = failureExcerpts(output, failedNames)
	return p
}

// testName pulls the bare test name out of a -v detail line like
// "test_problem1.py::test_add PASSED [ 50%]".
func testName(line string) string {
	idx := strings.LastIndex(line, "::")
	if idx < 0 {
		return ""
	}
	rest := line[idx+2:]
	if cut := strings.IndexAny(rest, " \t"); cut >= 0 {
		rest = rest[:cut]
	}
	return strings.TrimSpace(rest)
}

// failureExcerpts locates each failed test's block in the FAILURES section
// and extracts a short excerpt: the first assertion line ("E ...") and the
// opening lines of the block.
func failureExcerpts(output string, failedNames []string) []Failure {
	if len(failedNames) == 0 {
		return nil
	}
	if len(failedNames) > maxFailureExcerpts {
		failedNames = failedNames[:maxFailureExcerpts]
	}
	blocks := failureBlocks(output)
	failures := make([]Failure, 0, len(failedNames))
	for _, name := range failedNames {
		f := Failure{Name: name}
		for title, block := range blocks {
			if !strings.Contains(title, name) {
				continue
			}
			for _, line := range block {
				if strings.HasPrefix(strings.TrimSpace(line), "E ") {
					f.Message = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "E "))
					break
				}
			}
			limit := len(block)
			if limit > 5 {
				limit = 5
			}
			f.Context = append(f.Context, block[:limit]...)
			break
		}
		failures = append(failures, f)
	}
	return failures
}

// failureBlocks splits the FAILURES section into per-test blocks keyed by
// the "___ test_name ___" title line.
func failureBlocks(output string) map[string][]string {
	lines := strings.Split(output, "\n")
	inSection := false
	var title string
	blocks := map[string][]string{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "=") {
			if strings.Contains(trimmed, "FAILURES") {
				inSection = true
				title = ""
				continue
			}
			if inSection {
				// Next ==== section header ends the FAILURES section.
				break
			}
			continue
		}
		if !inSection {
			continue
		}
		if m := blockTitleRe.FindStringSubmatch(trimmed); m != nil {
			title = m[1]
			continue
		}
		if title != "" && trimmed != "" {
			blocks[title] = append(blocks[title], line)
		}
	}
	return blocks
}
