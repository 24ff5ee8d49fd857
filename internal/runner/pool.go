package runner

import "sync"

// Job is one unit of pool work, named so a failure can be attributed to
// the student it belongs to.
type Job struct {
	Name string
	Run  func() error
}

// JobError is a failed job together with its name.
type JobError struct {
	Name string
	Err  error
}

func (e JobError) Error() string { return e.Name + ": " + e.Err.Error() }

// RunPool executes jobs with at most maxWorkers concurrently. Returns all failures.
func RunPool(maxWorkers int, jobs []Job) []JobError {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var (
		mu   sync.Mutex
		errs []JobError
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, maxWorkers)

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j Job) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := j.Run(); err != nil {
				mu.Lock()
				errs = append(errs, JobError{Name: j.Name, Err: err})
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()
	return errs
}
