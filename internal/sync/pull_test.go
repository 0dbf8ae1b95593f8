package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planea-app/planea-go/internal/entity"
	"github.com/planea-app/planea-go/internal/remote"
)

func newTestPuller(t *testing.T) (*Puller, *fakeGateway, *Store, *StateStore) {
	t.Helper()

	store, state := newTestStore(t)
	gw := newFakeGateway()
	puller := NewPuller(gw, store, state, testLogger(t))

	return puller, gw, store, state
}

func TestPuller_AppliesRowsAndAdvancesWatermark(t *testing.T) {
	puller, gw, store, state := newTestPuller(t)
	ctx := context.Background()

	gw.rows["tasks"] = []remote.Row{
		remoteTaskRow(t, "t2", "Second", 2000, 12),
		remoteTaskRow(t, "t1", "First", 1000, 11),
	}

	report, err := puller.Pull(ctx)
	require.NoError(t, err)

	var taskResult KindPull

	for _, k := range report.Kinds {
		if k.Kind == entity.KindTask {
			taskResult = k
		}
	}

	assert.Equal(t, 2, taskResult.Fetched)
	assert.Equal(t, 2, taskResult.Applied)
	assert.NoError(t, taskResult.Err)
	assert.Equal(t, "12", taskResult.Watermark)

	wm, err := state.Watermark(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Equal(t, "12", wm)

	assert.Equal(t, 2, store.Count(entity.KindTask))
}

func TestPuller_EmptyPullDoesNotAdvanceWatermark(t *testing.T) {
	puller, _, _, state := newTestPuller(t)
	ctx := context.Background()

	require.NoError(t, state.SaveWatermark(ctx, entity.KindTask, "5"))

	_, err := puller.Pull(ctx)
	require.NoError(t, err)

	wm, err := state.Watermark(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Equal(t, "5", wm, "an all-empty pull must not move the watermark")
}

func TestPuller_FetchUsesSavedWatermark(t *testing.T) {
	puller, gw, _, state := newTestPuller(t)
	ctx := context.Background()

	require.NoError(t, state.SaveWatermark(ctx, entity.KindGoal, "33"))

	_, err := puller.Pull(ctx)
	require.NoError(t, err)

	assert.Contains(t, gw.fetches, "goals@33")
	assert.Contains(t, gw.fetches, "tasks@")
}

func TestPuller_PartialFailureIsolation(t *testing.T) {
	puller, gw, store, state := newTestPuller(t)
	ctx := context.Background()

	gw.fetchErrs["tasks"] = errors.New("backend down")
	gw.rows["goals"] = []remote.Row{goalRow(t, "g1", 1500, 7)}

	report, err := puller.Pull(ctx)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, entity.KindTask, failed[0].Kind)

	// The healthy kind still applied and advanced.
	assert.Equal(t, 1, store.Count(entity.KindGoal))

	wm, err := state.Watermark(ctx, entity.KindGoal)
	require.NoError(t, err)
	assert.Equal(t, "7", wm)

	// The failed kind's watermark stays put for a retry.
	wm, err = state.Watermark(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Empty(t, wm)
}

func TestPuller_TombstoneRemovesLocalCopy(t *testing.T) {
	puller, gw, store, _ := newTestPuller(t)
	ctx := context.Background()

	local := entity.NewTask("Edited locally")
	local.ID = "t1"
	require.NoError(t, store.Set(ctx, entity.KindTask, local))

	deletedAt := int64(1)

	// Tombstone with an older timestamp than the local edit still deletes.
	gw.rows["tasks"] = []remote.Row{{
		ID:              "t1",
		ClientUpdatedAt: deletedAt,
		ServerRevision:  20,
		DeletedAt:       &deletedAt,
	}}

	report, err := puller.Pull(ctx)
	require.NoError(t, err)

	_, ok := store.Get(entity.KindTask, "t1")
	assert.False(t, ok, "deletes always win over local edits")

	for _, k := range report.Kinds {
		if k.Kind == entity.KindTask {
			assert.Equal(t, 1, k.Deleted)
		}
	}
}

func TestPuller_StaleRemoteRowSkipped(t *testing.T) {
	puller, gw, store, _ := newTestPuller(t)
	ctx := context.Background()

	store.nowFunc = func() time.Time { return time.UnixMilli(5000) }

	local := entity.NewTask("Newer local")
	local.ID = "t1"
	require.NoError(t, store.Set(ctx, entity.KindTask, local))

	gw.rows["tasks"] = []remote.Row{remoteTaskRow(t, "t1", "Older remote", 4000, 9)}

	report, err := puller.Pull(ctx)
	require.NoError(t, err)

	got, ok := store.Get(entity.KindTask, "t1")
	require.True(t, ok)
	assert.Equal(t, "Newer local", got.(*entity.Task).Title)

	for _, k := range report.Kinds {
		if k.Kind == entity.KindTask {
			assert.Equal(t, 1, k.Skipped)
			assert.Equal(t, "9", k.Watermark, "skipped rows still advance the watermark")
		}
	}
}

func TestPuller_RowsAppliedInRevisionOrder(t *testing.T) {
	puller, gw, store, _ := newTestPuller(t)
	ctx := context.Background()

	// Same id twice in one batch, out of order: revision 10 carries the
	// newer timestamp and must land last.
	gw.rows["tasks"] = []remote.Row{
		remoteTaskRow(t, "t1", "Final", 2000, 10),
		remoteTaskRow(t, "t1", "Intermediate", 1000, 9),
	}

	_, err := puller.Pull(ctx)
	require.NoError(t, err)

	got, ok := store.Get(entity.KindTask, "t1")
	require.True(t, ok)
	assert.Equal(t, "Final", got.(*entity.Task).Title)
}

func goalRow(t *testing.T, id string, updatedAt, revision int64) remote.Row {
	t.Helper()

	goal := entity.NewGoal("Emergency fund")
	goal.ID = id
	goal.CreatedAt = updatedAt
	goal.UpdatedAt = updatedAt

	payload, err := entity.Canonicalize(entity.KindGoal, goal, time.UnixMilli(updatedAt))
	require.NoError(t, err)

	return remote.Row{ID: id, Payload: payload, ClientUpdatedAt: updatedAt, ServerRevision: revision}
}
