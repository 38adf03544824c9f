package worker

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type indexedResult struct {
	index int
	err   error
}

func (r indexedResult) GetError() error { return r.err }

func TestRun_CollectsEveryResult(t *testing.T) {
	var jobs []Job
	for i := 0; i < 25; i++ {
		i := i
		jobs = append(jobs, FuncJob(func(ctx context.Context) Result {
			if i%5 == 0 {
				return indexedResult{index: i, err: errors.New("bad batch")}
			}
			return indexedResult{index: i}
		}))
	}

	results := Run(context.Background(), 3, jobs)
	if len(results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(results))
	}

	var indexes []int
	failures := 0
	for _, r := range results {
		ir := r.(indexedResult)
		indexes = append(indexes, ir.index)
		if r.GetError() != nil {
			failures++
		}
	}
	sort.Ints(indexes)
	for i, idx := range indexes {
		if idx != i {
			t.Fatalf("missing result for job %d", i)
		}
	}
	if failures != 5 {
		t.Errorf("expected 5 failures, got %d", failures)
	}
}

func TestRun_Empty(t *testing.T) {
	if got := Run(context.Background(), 2, nil); got != nil {
		t.Errorf("expected nil for no jobs, got %v", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := FuncJob(func(ctx context.Context) Result {
		<-ctx.Done()
		return indexedResult{err: ctx.Err()}
	})

	done := make(chan []Result)
	go func() { done <- Run(ctx, 1, []Job{block, block, block}) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		if len(res) > 3 {
			t.Errorf("unexpected result count %d", len(res))
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
