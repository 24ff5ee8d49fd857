package submission

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/marklab/marksman/internal/extract"
)

// maxArchiveEntrySize caps a single expanded zip entry (100 MB).
const maxArchiveEntrySize = 100 << 20

// StagedFile is one submission file copied into the workspace. For
// notebooks, WorkPath points at the converted .py script while
// OriginalPath keeps the .ipynb for content extraction.
type StagedFile struct {
	OriginalPath string
	WorkPath     string
	ProblemID    string
	Kind         extract.Kind
}

// Staged is a submission prepared for grading: archives expanded, files
// copied into a disposable workspace, notebooks converted to scripts.
// Sources lists every discovered original file, including notebooks that
// could not be staged for execution, so content collection sees them all.
type Staged struct {
	Student          Student
	SourceDir        string
	WorkDir          string
	Files            []StagedFile
	Sources          []string
	SkippedNotebooks []string
}

// Stage prepares sub for grading. Archives found in the submission are
// expanded in place and deleted on success (corrupt ones are logged and
// left alone). Every recognized file is then copied into a fresh
// workspace under workRoot (the system temp directory when workRoot is
// empty), preserving relative paths. Staged notebooks
// are rewritten as runnable .py scripts; a notebook with no code is
// recorded in SkippedNotebooks rather than staged.
func Stage(sub Submission, workRoot string, log *zap.Logger) (*Staged, error) {
	expandArchives(sub.Dir, log)

	files, err := discoverFiles(sub.Dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no gradeable files in %s", sub.Dir)
	}

	if workRoot != "" {
		if err := os.MkdirAll(workRoot, 0o755); err != nil {
			return nil, fmt.Errorf("creating work root: %w", err)
		}
	}
	workDir, err := os.MkdirTemp(workRoot, "marksman-"+sub.Student.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	staged := &Staged{
		Student:   sub.Student,
		SourceDir: sub.Dir,
		WorkDir:   workDir,
		Sources:   files,
	}
	for _, src := range files {
		rel, err := filepath.Rel(sub.Dir, src)
		if err != nil {
			rel = filepath.Base(src)
		}
		dest := filepath.Join(workDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			staged.Cleanup(log)
			return nil, fmt.Errorf("staging %s: %w", rel, err)
		}

		if extract.KindOf(src) == extract.KindNotebook {
			script, err := extract.Code(src)
			if err != nil || strings.TrimSpace(script) == "" {
				log.Warn("notebook has no extractable code, skipping",
					zap.String("file", rel), zap.Error(err))
				staged.SkippedNotebooks = append(staged.SkippedNotebooks, rel)
				continue
			}
			dest = strings.TrimSuffix(dest, filepath.Ext(dest)) + ".py"
			if err := os.WriteFile(dest, []byte(script), 0o644); err != nil {
				staged.Cleanup(log)
				return nil, fmt.Errorf("staging %s: %w", rel, err)
			}
		} else if err := copyFile(src, dest); err != nil {
			staged.Cleanup(log)
			return nil, fmt.Errorf("staging %s: %w", rel, err)
		}

		staged.Files = append(staged.Files, StagedFile{
			OriginalPath: src,
			WorkPath:     dest,
			ProblemID:    ProblemID(src),
			Kind:         extract.KindOf(src),
		})
	}
	log.Info("staged submission",
		zap.String("student_id", sub.Student.ID),
		zap.String("workdir", workDir),
		zap.Int("files", len(staged.Files)))
	return staged, nil
}

// Runnable returns the staged files that can be executed under pytest,
// i.e. code and converted notebooks with a detected problem id.
func (s *Staged) Runnable() []StagedFile {
	var out []StagedFile
	for _, f := range s.Files {
		if f.ProblemID == "" {
			continue
		}
		if f.Kind == extract.KindCode || f.Kind == extract.KindNotebook {
			out = append(out, f)
		}
	}
	return out
}

// Cleanup removes the workspace. Safe to call more than once; failure is
// logged, never propagated.
func (s *Staged) Cleanup(log *zap.Logger) {
	if s.WorkDir == "" {
		return
	}
	if err := os.RemoveAll(s.WorkDir); err != nil {
		log.Warn("failed to remove workspace", zap.String("workdir", s.WorkDir), zap.Error(err))
		return
	}
	s.WorkDir = ""
}

var problemPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:problem|q|question|task)[_\s]?(\d+[a-zA-Z]?)\b`),
	regexp.MustCompile(`(\d+[a-zA-Z]?)$`),
	regexp.MustCompile(`^(\d+[a-zA-Z]?)`),
}

// ProblemID extracts the problem identifier from a file name, trying
// word-prefixed forms ("problem_1", "Q2b"), then a trailing number, then a
// leading one. Empty when nothing matches; such files are staged for
// imports but never executed.
func ProblemID(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	for _, re := range problemPatterns {
		if m := re.FindStringSubmatch(stem); m != nil {
			return m[1]
		}
	}
	return ""
}

// expandArchives finds zip files in the submission, expands each next to
// the archive and deletes the archive on success. A corrupt archive is
// logged and left in place; its contents simply never take part.
func expandArchives(dir string, log *zap.Logger) {
	var archives []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			for _, excluded := range excludedDirs {
				if d.Name() == excluded {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			archives = append(archives, path)
		}
		return nil
	})
	for _, archive := range archives {
		if err := unzip(archive, filepath.Dir(archive)); err != nil {
			log.Warn("skipping bad archive", zap.String("archive", archive), zap.Error(err))
			continue
		}
		if err := os.Remove(archive); err != nil {
			log.Warn("failed to delete expanded archive", zap.String("archive", archive), zap.Error(err))
		}
	}
}

func unzip(archive, destDir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	root := filepath.Clean(destDir)
	for _, f := range r.File {
		dest := filepath.Join(root, filepath.Clean(f.Name))
		// Reject entries that escape the destination.
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes archive root", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := extractZipEntry(f, dest); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	n, err := io.Copy(out, io.LimitReader(rc, maxArchiveEntrySize+1))
	if err != nil {
		return err
	}
	if n > maxArchiveEntrySize {
		return fmt.Errorf("entry exceeds %d byte limit", maxArchiveEntrySize)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
