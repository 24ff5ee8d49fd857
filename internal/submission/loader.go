// Package submission discovers student submissions in a Moodle bulk-download
// tree and stages their files into disposable workspaces for grading.
package submission

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/extract"
)

type Student struct {
	ID   string
	Name string
}

// Submission is one student's submission directory for a task.
type Submission struct {
	Student Student
	Dir     string
}

// excludedDirs are tool droppings that must never contribute files.
var excludedDirs = []string{"__MACOSX", ".ipynb_checkpoints"}

// Discover lists submission folders under <submissionsDir>/<taskName> and
// parses student identity from each folder name. Folders that do not look
// like submissions, or whose name cannot be parsed, are logged and skipped
// so one odd export never blocks the rest of the cohort.
func Discover(submissionsDir, taskName string, log *zap.Logger) ([]Submission, error) {
	taskDir := filepath.Join(submissionsDir, taskName)
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, fmt.Errorf("reading submissions dir %s: %w", taskDir, err)
	}
	var subs []Submission
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Name()), "submission") {
			continue
		}
		student, ok := ParseFolderName(e.Name())
		if !ok {
			log.Warn("skipping folder with unparsable name", zap.String("folder", e.Name()))
			continue
		}
		subs = append(subs, Submission{
			Student: student,
			Dir:     filepath.Join(taskDir, e.Name()),
		})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Student.ID < subs[j].Student.ID })
	log.Info("discovered submissions",
		zap.String("task", taskName),
		zap.Int("count", len(subs)))
	return subs, nil
}

// ParseFolderName extracts the student id and display name from a Moodle
// export folder. Handled shapes:
//
//	z1234567_submission_Jane Doe__assignsubmission_file
//	z1234567_Jane Doe_assignsubmission_file_
//
// The id must start with "z"; underscores in the name become spaces.
func ParseFolderName(folder string) (Student, bool) {
	base, _, _ := strings.Cut(folder, "_assignsubmission_file")

	var idPart, namePart string
	if before, after, found := strings.Cut(base, "_submission_"); found {
		idPart, namePart = before, after
	} else if before, after, found := strings.Cut(base, "_"); found && isZID(before) {
		idPart, namePart = before, after
	}

	if idPart == "" || namePart == "" || !strings.HasPrefix(idPart, "z") {
		return Student{}, false
	}
	name := strings.TrimSpace(strings.ReplaceAll(namePart, "_", " "))
	if name == "" {
		return Student{}, false
	}
	return Student{ID: idPart, Name: name}, true
}

func isZID(s string) bool {
	if len(s) < 2 || s[0] != 'z' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// discoverFiles walks dir collecting recognized submission files, skipping
// excluded directories. Paths come back sorted for stable staging order.
func discoverFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, excluded := range excludedDirs {
				if d.Name() == excluded {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if extract.Recognized(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
