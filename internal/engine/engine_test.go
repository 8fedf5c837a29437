package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects completion order from concurrently running steps.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *recorder) indexOf(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func noRetry() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRunner_RespectsDependencies(t *testing.T) {
	rec := &recorder{}
	mk := func(name string, deps ...string) *Step {
		return &Step{
			Name:      name,
			DependsOn: deps,
			Run: func(ctx context.Context) error {
				rec.add(name)
				return nil
			},
		}
	}

	r := NewRunner()
	r.Retry = noRetry()
	err := r.Run(context.Background(), []*Step{
		mk("network"),
		mk("security-group", "network"),
		mk("instance", "network", "security-group"),
	})
	require.NoError(t, err)

	assert.Less(t, rec.indexOf("network"), rec.indexOf("security-group"))
	assert.Less(t, rec.indexOf("security-group"), rec.indexOf("instance"))
}

func TestRunner_IndependentStepsRunConcurrently(t *testing.T) {
	var running, peak int32
	block := func(ctx context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}

	r := NewRunner()
	r.Retry = noRetry()
	err := r.Run(context.Background(), []*Step{
		{Name: "a", Run: block},
		{Name: "b", Run: block},
		{Name: "c", Run: block},
	})
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "independent steps should overlap")
}

func TestRunner_SkipsDependentsOfFailedStep(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Bool

	var events []Event
	var mu sync.Mutex

	r := NewRunner()
	r.Retry = noRetry()
	r.Callback = func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}

	err := r.Run(context.Background(), []*Step{
		{Name: "a", Run: func(ctx context.Context) error { return boom }},
		{Name: "b", DependsOn: []string{"a"}, Run: func(ctx context.Context) error {
			ran.Store(true)
			return nil
		}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran.Load(), "dependent of failed step must not run")

	statuses := map[string]string{}
	mu.Lock()
	for _, ev := range events {
		statuses[ev.Step+"/"+ev.Status] = ev.Status
	}
	mu.Unlock()
	assert.Contains(t, statuses, "a/failed")
	assert.Contains(t, statuses, "b/skipped")
}

func TestRunner_FirstErrorWins(t *testing.T) {
	first := errors.New("first")

	r := NewRunner()
	r.Retry = noRetry()
	err := r.Run(context.Background(), []*Step{
		{Name: "fail", Run: func(ctx context.Context) error { return first }},
		{Name: "later", DependsOn: []string{"fail"}, Run: func(ctx context.Context) error { return errors.New("second") }},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.Contains(t, err.Error(), "step fail")
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner()
	r.Retry = noRetry()
	err := r.Run(ctx, []*Step{
		{Name: "a", Run: func(c context.Context) error { return nil }},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_StepTimeout(t *testing.T) {
	r := NewRunner()
	r.Retry = noRetry()
	err := r.Run(context.Background(), []*Step{
		{
			Name:    "slow",
			Timeout: 20 * time.Millisecond,
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
