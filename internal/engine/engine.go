package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/webfleet-io/webfleet/internal/logging"
)

const defaultParallelism = 4

// Step is one unit of provisioning work with explicit dependencies on
// other steps by name. Steps with no ordering relation run
// concurrently.
type Step struct {
	Name      string
	DependsOn []string
	Timeout   time.Duration
	Run       func(ctx context.Context) error
}

// Event reports step progress to an optional callback.
type Event struct {
	Step     string
	Status   string // "started", "completed", "failed", "skipped"
	Duration time.Duration
	Err      error
}

// Callback receives progress events. It is called from worker
// goroutines and must be safe for concurrent use.
type Callback func(Event)

// Runner executes a step graph once. There is no plan/diff phase: the
// graph either runs to completion or stops at the first failure, with
// downstream steps skipped.
type Runner struct {
	Parallelism int
	Retry       *RetryPolicy
	Callback    Callback
}

// NewRunner returns a Runner with defaults.
func NewRunner() *Runner {
	return &Runner{Parallelism: defaultParallelism, Retry: DefaultRetryPolicy()}
}

// Run executes the steps respecting dependency order. Independent steps
// run in parallel under a semaphore. A step whose dependency failed or
// was skipped is skipped; the first failure is returned after all
// in-flight steps finish.
func (r *Runner) Run(ctx context.Context, steps []*Step) error {
	sorted, err := sortSteps(steps)
	if err != nil {
		return err
	}

	parallelism := r.Parallelism
	if parallelism < 1 {
		parallelism = defaultParallelism
	}

	emit := func(ev Event) {
		if r.Callback != nil {
			r.Callback(ev)
		}
	}

	completed := make(map[string]bool)
	failed := make(map[string]bool)
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	var firstErr error
	sem := make(chan struct{}, parallelism)

	var wg sync.WaitGroup
	for _, step := range sorted {
		wg.Add(1)
		go func(s *Step) {
			defer wg.Done()

			mu.Lock()
			for {
				if firstErr != nil {
					failed[s.Name] = true
					mu.Unlock()
					cond.Broadcast()
					return
				}
				ready := true
				depFailed := false
				for _, dep := range s.DependsOn {
					if failed[dep] {
						depFailed = true
						break
					}
					if !completed[dep] {
						ready = false
						break
					}
				}
				if depFailed {
					failed[s.Name] = true
					mu.Unlock()
					emit(Event{Step: s.Name, Status: "skipped"})
					cond.Broadcast()
					return
				}
				if ready {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("provisioning cancelled: %w", err)
				}
				failed[s.Name] = true
				mu.Unlock()
				cond.Broadcast()
				return
			}

			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			emit(Event{Step: s.Name, Status: "started"})
			logging.Debug("running step", "step", s.Name)

			err := r.runStep(ctx, s)

			mu.Lock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("step %s: %w", s.Name, err)
				}
				failed[s.Name] = true
				mu.Unlock()
				emit(Event{Step: s.Name, Status: "failed", Duration: time.Since(start), Err: err})
				cond.Broadcast()
				return
			}
			completed[s.Name] = true
			mu.Unlock()
			emit(Event{Step: s.Name, Status: "completed", Duration: time.Since(start)})
			cond.Broadcast()
		}(step)
	}

	wg.Wait()
	return firstErr
}

func (r *Runner) runStep(ctx context.Context, s *Step) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return RetryWithBackoff(ctx, r.Retry, func() error {
		return s.Run(ctx)
	}, IsTransientError)
}
