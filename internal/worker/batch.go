package worker

import (
	"context"
)

// FuncJob adapts a function to Job
type FuncJob func(ctx context.Context) Result

func (f FuncJob) Execute(ctx context.Context) Result {
	return f(ctx)
}

// Run executes jobs on a pool of the given size and returns every result.
// Submission happens on a separate goroutine so the bounded result channel
// is always being drained.
func Run(ctx context.Context, workers int, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	go func() {
		for _, job := range jobs {
			pool.Submit(job)
		}
	}()

	defer pool.Shutdown()

	results := make([]Result, 0, len(jobs))
	for len(results) < len(jobs) {
		select {
		case result := <-pool.results:
			results = append(results, result)
		case <-ctx.Done():
			return results
		}
	}

	return results
}
