package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExecutor struct {
	calls atomic.Int32
	last  atomic.Value
	err   error
}

func (e *countingExecutor) Execute(_ context.Context, name string) error {
	e.calls.Add(1)
	e.last.Store(name)
	return e.err
}

func TestSchedulerTicks(t *testing.T) {
	exec := &countingExecutor{err: errors.New("ignored")}
	s := NewScheduler("@every 1s", "stock:check-low", exec, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return exec.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, "stock:check-low", exec.last.Load())
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewScheduler("every minute please", "stock:check-low", &countingExecutor{}, nil)
	assert.Error(t, s.Start())
}
