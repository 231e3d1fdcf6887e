package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
	"github.com/pollenguard/allergy-risk/internal/scheduler"
)

type fakePruner struct {
	pruned     int64
	err        error
	calls      int
	lastCutoff time.Time
}

func (f *fakePruner) PruneAlerts(_ context.Context, olderThan time.Time) (int64, error) {
	f.calls++
	f.lastCutoff = olderThan
	return f.pruned, f.err
}

func newScheduler(pruner *fakePruner, retention time.Duration) *scheduler.Scheduler {
	return scheduler.New(pruner, retention, time.Hour, slog.Default(), observability.NewMetricsForTesting())
}

func TestScheduler_SweepUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	pruner := &fakePruner{pruned: 3}
	s := newScheduler(pruner, 30*24*time.Hour)

	s.Sweep(context.Background())

	assert.Equal(t, 1, pruner.calls)
	assert.Equal(t, now.Add(-30*24*time.Hour), pruner.lastCutoff)
}

func TestScheduler_SweepFailureIsAbsorbed(t *testing.T) {
	pruner := &fakePruner{err: errors.New("database is locked")}
	s := newScheduler(pruner, time.Hour)

	s.Sweep(context.Background())

	assert.Equal(t, 1, pruner.calls)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newScheduler(&fakePruner{}, time.Hour)

	require.NoError(t, s.Start())
	s.Stop()
}
