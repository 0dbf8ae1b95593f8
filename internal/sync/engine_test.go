package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planea-app/planea-go/internal/entity"
	"github.com/planea-app/planea-go/internal/remote"
)

func newTestEngine(t *testing.T, cfg EngineConfig) (*Engine, *fakeGateway, *Store, *StateStore) {
	t.Helper()

	store, state := newTestStore(t)
	gw := newFakeGateway()
	engine := NewEngine(store, state, gw, cfg, testLogger(t))

	return engine, gw, store, state
}

func TestEngine_PullOnceRejectsOverlap(t *testing.T) {
	engine, gw, _, _ := newTestEngine(t, EngineConfig{})
	ctx := context.Background()

	gw.fetchStarted = make(chan struct{}, 8)
	gw.fetchRelease = make(chan struct{})

	done := make(chan error, 1)

	go func() {
		_, err := engine.PullOnce(ctx)
		done <- err
	}()

	// Wait until the first pull is inside a fetch.
	select {
	case <-gw.fetchStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("first pull never started fetching")
	}

	_, err := engine.PullOnce(ctx)
	assert.ErrorIs(t, err, ErrPullInProgress)

	close(gw.fetchRelease)
	require.NoError(t, <-done)

	// With the first pull finished, a new pull is allowed again.
	_, err = engine.PullOnce(ctx)
	assert.NoError(t, err)
}

func TestEngine_RunPushesAfterDebounce(t *testing.T) {
	engine, gw, store, _ := newTestEngine(t, EngineConfig{
		PullInterval: time.Hour,
		PushDebounce: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = engine.Run(ctx) }()

	task := entity.NewTask("Water plants")
	require.NoError(t, store.Set(ctx, entity.KindTask, task))

	assert.Eventually(t, func() bool {
		return len(gw.upsertCalls()) == 1
	}, 5*time.Second, 10*time.Millisecond, "local edit should trigger a debounced push")
}

func TestEngine_WakeTriggersPull(t *testing.T) {
	engine, gw, _, _ := newTestEngine(t, EngineConfig{
		PullInterval: time.Hour,
		PushDebounce: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = engine.Run(ctx) }()

	// Wait out the startup pull, then stage a row and wake.
	assert.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.fetches) >= len(entity.Kinds())
	}, 5*time.Second, 10*time.Millisecond)

	engine.Wake()

	assert.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.fetches) >= 2*len(entity.Kinds())
	}, 5*time.Second, 10*time.Millisecond, "wake should run a second pull")
}

// TestEngine_RunFlushesDirtyBacklogOnStartup simulates a restart: ids left
// dirty by a previous session must be pushed without any new local edit.
func TestEngine_RunFlushesDirtyBacklogOnStartup(t *testing.T) {
	state := newTestState(t)
	ctx := context.Background()

	// A previous session persists an edit but exits before pushing it.
	prev := NewStore(state, testLogger(t))
	task := entity.NewTask("Carried over")
	require.NoError(t, prev.Set(ctx, entity.KindTask, task))

	store := NewStore(state, testLogger(t))
	require.NoError(t, store.Bootstrap(ctx))

	gw := newFakeGateway()
	engine := NewEngine(store, state, gw, EngineConfig{
		PullInterval: time.Hour,
		PushDebounce: time.Hour,
	}, testLogger(t))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() { _ = engine.Run(runCtx) }()

	assert.Eventually(t, func() bool {
		return len(gw.upsertCalls()) == 1
	}, 5*time.Second, 10*time.Millisecond, "startup should flush the persisted backlog")

	assert.Eventually(t, func() bool {
		ids, err := state.DirtyIDs(ctx, entity.KindTask)
		return err == nil && len(ids) == 0
	}, 5*time.Second, 10*time.Millisecond, "acknowledged backlog push clears the dirty mark")
}

// TestEngine_RunRetriesFailedPushOnTick verifies that an id left dirty by a
// failed push is retried on a later pull tick, not only after a new edit.
func TestEngine_RunRetriesFailedPushOnTick(t *testing.T) {
	engine, gw, store, state := newTestEngine(t, EngineConfig{
		PullInterval: 25 * time.Millisecond,
		PushDebounce: 5 * time.Millisecond,
	})
	ctx := context.Background()

	gw.mu.Lock()
	gw.writeErr = &remote.StoreError{StatusCode: 500, Err: remote.ErrServerError}
	gw.mu.Unlock()

	task := entity.NewTask("Retry me")
	require.NoError(t, store.Set(ctx, entity.KindTask, task))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() { _ = engine.Run(runCtx) }()

	// Let at least one tick pass while the gateway is failing.
	assert.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.fetches) >= 2*len(entity.Kinds())
	}, 5*time.Second, 5*time.Millisecond)

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	require.Len(t, ids, 1, "failed push keeps the id dirty")

	gw.mu.Lock()
	gw.writeErr = nil
	gw.mu.Unlock()

	assert.Eventually(t, func() bool {
		return len(gw.upsertCalls()) == 1
	}, 5*time.Second, 5*time.Millisecond, "a later tick retries the dirty id")
}

func TestEngine_StatusReportsDirtyAndWatermarks(t *testing.T) {
	engine, _, store, state := newTestEngine(t, EngineConfig{})
	ctx := context.Background()

	task := entity.NewTask("Unsynced")
	require.NoError(t, store.Set(ctx, entity.KindTask, task))
	require.NoError(t, state.SaveWatermark(ctx, entity.KindTask, "17"))

	status, err := engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.DirtyCounts[entity.KindTask])
	assert.Equal(t, "17", status.Watermarks[entity.KindTask])
	assert.Empty(t, status.Watermarks[entity.KindGoal])
}

// TestEngine_LocalEditSurvivesStalePull walks the full cycle: a local
// expense edit, a concurrent pull carrying an older remote copy of the same
// row, and the push that finally lands the local edit.
func TestEngine_LocalEditSurvivesStalePull(t *testing.T) {
	engine, gw, store, state := newTestEngine(t, EngineConfig{})
	ctx := context.Background()

	editedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return editedAt }

	rent := entity.NewTask("Pay rent")
	rent.ID = "t1"
	rent.Type = entity.TypeExpense
	rent.AmountEUR = 500
	rent.Recurrence.Date = "2024-03-01"
	require.NoError(t, store.Set(ctx, entity.KindTask, rent))

	// A background pull brings an older copy of t1 where the amount was
	// still 999. It must not clobber the local edit.
	stale := entity.NewTask("Pay rent")
	stale.ID = "t1"
	stale.Type = entity.TypeExpense
	stale.AmountEUR = 999
	staleMillis := editedAt.Add(-time.Minute).UnixMilli()
	stale.CreatedAt = staleMillis
	stale.UpdatedAt = staleMillis

	stalePayload, err := entity.Canonicalize(entity.KindTask, stale, editedAt.Add(-time.Minute))
	require.NoError(t, err)

	gw.rows["tasks"] = []remote.Row{{
		ID:              "t1",
		Payload:         stalePayload,
		ClientUpdatedAt: staleMillis,
		ServerRevision:  40,
	}}

	report, err := engine.PullOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failed())

	got, ok := store.Get(entity.KindTask, "t1")
	require.True(t, ok)
	assert.Equal(t, 500.0, got.(*entity.Task).AmountEUR)

	// The row is still dirty, so the next push sends the local edit.
	pushReport, err := engine.PushOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pushReport.Pushed)

	calls := gw.upsertCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "t1", calls[0].ID)
	assert.Equal(t, editedAt.UnixMilli(), calls[0].ClientUpdatedAt)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Payload, &wire))
	assert.Equal(t, "GASTO", wire["type"])
	assert.Equal(t, "2024-03-01", wire["date"])

	extra, ok := wire["extra"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 500.0, extra["amountEUR"])

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Empty(t, ids, "acknowledged push clears the dirty mark")
}
