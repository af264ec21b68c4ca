package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenance_RejectsBadSchedule(t *testing.T) {
	m := NewMaintenance(zerolog.Nop())

	err := m.AddJob("every now and then", "sweep", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")
}

func TestMaintenance_RunsJobsUntilCancelled(t *testing.T) {
	m := NewMaintenance(zerolog.Nop())

	var runs atomic.Int32
	require.NoError(t, m.AddJob("@every 1s", "count", func() { runs.Add(1) }))
	require.NoError(t, m.AddJob("@every 1s", "boom", func() { panic("job failed") }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("maintenance did not stop")
	}
}
