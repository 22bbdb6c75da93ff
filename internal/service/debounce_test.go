package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	fired []string
}

func (h *recordingHandler) HandleTriggerFired(ctx context.Context, tenantID, phone string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fired = append(h.fired, key(tenantID, phone))
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fired)
}

func TestScheduleCoalescesBurst(t *testing.T) {
	triggers := newMockTriggerRepo()
	svc := NewDebounceService(triggers, &recordingHandler{})
	ctx := context.Background()

	require.NoError(t, svc.Schedule(ctx, "t1", "5511999", 5*time.Second))
	first, err := triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, svc.Schedule(ctx, "t1", "5511999", 5*time.Second))
	second, err := triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID, "re-arming must not create a second trigger")
	assert.True(t, second.ScheduledAt.After(first.ScheduledAt) || second.ScheduledAt.Equal(first.ScheduledAt))
	svc.Stop()
}

func TestFireProcessesAtMostOnce(t *testing.T) {
	triggers := newMockTriggerRepo()
	handler := &recordingHandler{}
	svc := NewDebounceService(triggers, handler)
	ctx := context.Background()

	_, err := triggers.Upsert(ctx, "t1", "5511999", time.Now().Add(-time.Second))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Fire(ctx, "t1", "5511999"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, handler.count(), "racing firings must settle on exactly one claim")
}

func TestFireSkipsRearmedTrigger(t *testing.T) {
	triggers := newMockTriggerRepo()
	handler := &recordingHandler{}
	svc := NewDebounceService(triggers, handler)
	ctx := context.Background()

	// Scheduled well past the tolerance window: a newer message re-armed it.
	_, err := triggers.Upsert(ctx, "t1", "5511999", time.Now().Add(5*time.Second))
	require.NoError(t, err)

	require.NoError(t, svc.Fire(ctx, "t1", "5511999"))

	assert.Equal(t, 0, handler.count())
	remaining, err := triggers.FindUnprocessed(ctx, "t1", "5511999")
	require.NoError(t, err)
	assert.NotNil(t, remaining, "re-armed trigger must stay pending for its own firing")
}

func TestFireWithNoPendingTrigger(t *testing.T) {
	triggers := newMockTriggerRepo()
	handler := &recordingHandler{}
	svc := NewDebounceService(triggers, handler)

	require.NoError(t, svc.Fire(context.Background(), "t1", "5511999"))
	assert.Equal(t, 0, handler.count())
}

func TestFireWithinToleranceProceeds(t *testing.T) {
	triggers := newMockTriggerRepo()
	handler := &recordingHandler{}
	svc := NewDebounceService(triggers, handler)
	ctx := context.Background()

	// Slightly in the future but inside the tolerance window: the timer
	// fired a hair early, which must still count.
	_, err := triggers.Upsert(ctx, "t1", "5511999", time.Now().Add(100*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, svc.Fire(ctx, "t1", "5511999"))
	assert.Equal(t, 1, handler.count())
}
