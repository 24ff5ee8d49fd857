package submission_test

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/marklab/marksman/internal/submission"
)

func TestParseFolderName(t *testing.T) {
	tests := []struct {
		folder   string
		wantID   string
		wantName string
		ok       bool
	}{
		{"z1234567_submission_Jane Doe__assignsubmission_file", "z1234567", "Jane Doe", true},
		{"z7654321_Student Two_assignsubmission_file_", "z7654321", "Student Two", true},
		{"z5550001_submission_Ana_Maria_Silva__assignsubmission_file", "z5550001", "Ana Maria Silva", true},
		{"z99_submission_B", "z99", "B", true},
		{"a1234567_Student_assignsubmission_file", "", "", false},
		{"not a submission folder", "", "", false},
		{"z1234567", "", "", false},
		{"_submission_No Id", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			student, ok := submission.ParseFolderName(tt.folder)
			if ok != tt.ok {
				t.Fatalf("ParseFolderName(%q) ok = %v, want %v", tt.folder, ok, tt.ok)
			}
			if !ok {
				return
			}
			if student.ID != tt.wantID {
				t.Errorf("id = %q, want %q", student.ID, tt.wantID)
			}
			if student.Name != tt.wantName {
				t.Errorf("name = %q, want %q", student.Name, tt.wantName)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	taskDir := filepath.Join(root, "assignment1")
	for _, folder := range []string{
		"z2000000_submission_Second Student__assignsubmission_file",
		"z1000000_submission_First Student__assignsubmission_file",
		"resources", // not a submission folder
		"mystery_submission_folder",
	} {
		if err := os.MkdirAll(filepath.Join(taskDir, folder), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	subs, err := submission.Discover(root, "assignment1", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].Student.ID != "z1000000" || subs[1].Student.ID != "z2000000" {
		t.Errorf("submissions not sorted by id: %v, %v", subs[0].Student.ID, subs[1].Student.ID)
	}
	if subs[0].Student.Name != "First Student" {
		t.Errorf("unexpected name: %q", subs[0].Student.Name)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := submission.Discover(t.TempDir(), "no-such-task", zaptest.NewLogger(t))
	if err == nil {
		t.Fatal("expected error for missing task dir")
	}
}
