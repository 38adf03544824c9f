package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchResult struct {
	start int
	err   error
}

func (r batchResult) GetError() error { return r.err }

func TestNewPool_ClampsWorkers(t *testing.T) {
	p := NewPool(context.Background(), 0)
	defer p.Shutdown()
	assert.Equal(t, 1, p.workers)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	jobs := make([]Job, 12)
	for i := range jobs {
		start := i * 15
		jobs[i] = FuncJob(func(ctx context.Context) Result {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return batchResult{start: start}
		})
	}

	results := Run(context.Background(), 3, jobs)
	require.Len(t, results, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestPool_SubmitAfterShutdownReturns(t *testing.T) {
	p := NewPool(context.Background(), 1)
	p.Start()
	p.Shutdown()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Submit(FuncJob(func(ctx context.Context) Result { return batchResult{} }))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}
}

func TestPool_ParentCancelStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel atomic.Bool
	started := make(chan struct{})

	p := NewPool(ctx, 2)
	p.Start()
	p.Submit(FuncJob(func(ctx context.Context) Result {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return batchResult{err: ctx.Err()}
	}))

	<-started
	cancel()
	p.Shutdown()
	assert.True(t, sawCancel.Load())
}
