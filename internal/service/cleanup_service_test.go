package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) DeleteExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 3, p.err
}

func TestCleanupService_RunsImmediatelyAndOnTick(t *testing.T) {
	p := &countingPruner{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewCleanupService(p, 10*time.Millisecond).Start(ctx)

	assert.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	stopped := p.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, p.calls.Load(), "no runs after cancellation")
}

func TestCleanupService_RunOnceSurvivesErrors(t *testing.T) {
	p := &countingPruner{err: errors.New("db down")}
	NewCleanupService(p, 0).RunOnce(context.Background())
	assert.EqualValues(t, 1, p.calls.Load())
}
