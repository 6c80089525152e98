package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/ascent/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromotionScheduler_RejectsBadSchedule(t *testing.T) {
	f := setupWorkerFixture(t)

	_, err := NewPromotionScheduler(f.worker(), "every now and then", f.clock, nil)
	assert.Error(t, err)
}

func TestPromotionScheduler_RunsWorkerUntilStopped(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	step := f.createChain(t, "Scheduled", testutil.WithSchedule(trigger, "list-A"))

	s, err := NewPromotionScheduler(f.worker(), "@every 1s", f.clock, nil)
	require.NoError(t, err)
	s.Start()
	s.Start() // second Start is ignored

	assert.False(t, s.Next().IsZero())
	require.Eventually(t, func() bool {
		return !f.staged(t, step.ID)
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx), "stopping twice is harmless")

	assert.Len(t, f.listTasks(t, "list-A"), 1)
}

func TestPromotionScheduler_StopWithoutStart(t *testing.T) {
	f := setupWorkerFixture(t)

	s, err := NewPromotionScheduler(f.worker(), "", f.clock, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Stop(context.Background()))
}
