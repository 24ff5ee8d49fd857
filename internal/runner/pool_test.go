package runner_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/marklab/marksman/internal/runner"
)

func TestPool(t *testing.T) {
	var count atomic.Int32
	jobs := make([]runner.Job, 10)
	for i := range jobs {
		jobs[i] = runner.Job{
			Name: fmt.Sprintf("job%d", i),
			Run: func() error {
				count.Add(1)
				return nil
			},
		}
	}
	errs := runner.RunPool(3, jobs)
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if count.Load() != 10 {
		t.Errorf("expected 10 jobs, got %d", count.Load())
	}
}

func TestPoolWithErrors(t *testing.T) {
	jobs := []runner.Job{
		{Name: "a", Run: func() error { return nil }},
		{Name: "b", Run: func() error { return fmt.Errorf("fail") }},
		{Name: "c", Run: func() error { return nil }},
	}
	errs := runner.RunPool(2, jobs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if errs[0].Name != "b" {
		t.Errorf("expected failure attributed to job b, got %q", errs[0].Name)
	}
	if got := errs[0].Error(); got != "b: fail" {
		t.Errorf("unexpected error string %q", got)
	}
}

func TestPoolConcurrencyLimit(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0

	jobs := make([]runner.Job, 8)
	for i := range jobs {
		jobs[i] = runner.Job{
			Name: fmt.Sprintf("job%d", i),
			Run: func() error {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			},
		}
	}
	runner.RunPool(2, jobs)
	if peak > 2 {
		t.Errorf("expected at most 2 concurrent jobs, observed %d", peak)
	}
}
