// Package worker spreads a fixed list of jobs over a bounded number of
// goroutines and collects one result per job.
package worker

import (
	"context"
	"sync"
)

// Result is the outcome of one job.
type Result[J, R any] struct {
	Job      J
	Value    R
	Err      error
	WorkerID int
}

// Summary counts finished jobs.
type Summary struct {
	Succeeded int
	Failed    int
}

// Manager runs jobs with a fixed number of workers.
type Manager struct {
	workerCount int
	// onResult, if set, is called from the collecting goroutine for every
	// finished job, in completion order.
	onResult func(done, total int, err error)
}

// NewManager creates a manager with workerCount workers (at least one).
func NewManager(workerCount int) *Manager {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Manager{workerCount: workerCount}
}

// WithProgress registers a callback invoked after every job.
func (m *Manager) WithProgress(fn func(done, total int, err error)) *Manager {
	m.onResult = fn
	return m
}

// Process runs fn for every job and returns the results in completion order.
// Jobs still queued when ctx is cancelled are reported with ctx.Err() and
// fn is not called for them.
func Process[J, R any](ctx context.Context, m *Manager, jobs []J, fn func(ctx context.Context, job J) (R, error)) ([]Result[J, R], Summary) {
	jobChan := make(chan J, len(jobs))
	for _, j := range jobs {
		jobChan <- j
	}
	close(jobChan)

	resultsChan := make(chan Result[J, R], len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < m.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				res := Result[J, R]{Job: job, WorkerID: workerID}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Value, res.Err = fn(ctx, job)
				}
				resultsChan <- res
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Single reader, so counting needs no locking.
	results := make([]Result[J, R], 0, len(jobs))
	var sum Summary
	for res := range resultsChan {
		if res.Err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
		results = append(results, res)
		if m.onResult != nil {
			m.onResult(len(results), len(jobs), res.Err)
		}
	}
	return results, sum
}
