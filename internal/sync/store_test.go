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

var storeTestNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// --- local edit tests ---

func TestStore_SetMarksDirtyAndPersists(t *testing.T) {
	store, state := newTestStore(t)
	store.nowFunc = fixedClock(storeTestNow)
	ctx := context.Background()

	task := entity.NewTask("Pay rent")
	task.Type = entity.TypeExpense
	task.AmountEUR = 500

	require.NoError(t, store.Set(ctx, entity.KindTask, task))

	got, ok := store.Get(entity.KindTask, task.ID)
	require.True(t, ok)
	assert.Equal(t, storeTestNow.UnixMilli(), got.UpdatedAtMillis())

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, ids)

	payload, updatedAt, err := state.Snapshot(ctx, entity.KindTask, task.ID)
	require.NoError(t, err)
	assert.Equal(t, storeTestNow.UnixMilli(), updatedAt)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(payload, &wire))
	assert.Equal(t, "GASTO", wire["type"])
}

func TestStore_SetFiresLocalEditHook(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var edits []string

	store.SetOnLocalEdit(func(kind entity.Kind, id string) {
		edits = append(edits, string(kind)+"/"+id)
	})

	task := entity.NewTask("Call plumber")
	require.NoError(t, store.Set(ctx, entity.KindTask, task))

	require.Len(t, edits, 1)
	assert.Equal(t, "tasks/"+task.ID, edits[0])
}

func TestStore_DeleteMarksDirtyForTombstone(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()

	task := entity.NewTask("Old task")
	require.NoError(t, store.Set(ctx, entity.KindTask, task))
	require.NoError(t, state.ClearDirty(ctx, entity.KindTask, task.ID))

	require.NoError(t, store.Delete(ctx, entity.KindTask, task.ID))

	_, ok := store.Get(entity.KindTask, task.ID)
	assert.False(t, ok)

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, ids)

	_, _, err = state.Snapshot(ctx, entity.KindTask, task.ID)
	assert.Error(t, err)
}

func TestStore_DeleteUnknownIDStillMarksDirty(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, entity.KindTask, "never-seen"))

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Equal(t, []string{"never-seen"}, ids)
}

// --- remote apply tests ---

func remoteTaskRow(t *testing.T, id, title string, updatedAt int64, revision int64) remote.Row {
	t.Helper()

	task := entity.NewTask(title)
	task.ID = id
	task.CreatedAt = updatedAt
	task.UpdatedAt = updatedAt

	payload, err := entity.Canonicalize(entity.KindTask, task, time.UnixMilli(updatedAt))
	require.NoError(t, err)

	return remote.Row{
		ID:              id,
		Payload:         payload,
		ClientUpdatedAt: updatedAt,
		ServerRevision:  revision,
	}
}

func TestStore_ApplyRemoteUpsertDoesNotMarkDirty(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()

	var edits int

	store.SetOnLocalEdit(func(entity.Kind, string) { edits++ })

	row := remoteTaskRow(t, "t1", "From server", 1000, 1)

	applied, err := store.ApplyRemoteUpsert(ctx, entity.KindTask, row)
	require.NoError(t, err)
	assert.True(t, applied)

	_, ok := store.Get(entity.KindTask, "t1")
	assert.True(t, ok)

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Empty(t, ids, "remote apply must not mark dirty")
	assert.Zero(t, edits, "remote apply must not fire the local edit hook")
}

func TestStore_ApplyRemoteUpsertLastWriteWins(t *testing.T) {
	store, _ := newTestStore(t)
	store.nowFunc = fixedClock(storeTestNow)
	ctx := context.Background()

	local := entity.NewTask("Local title")
	local.ID = "t1"
	require.NoError(t, store.Set(ctx, entity.KindTask, local))

	localMillis := storeTestNow.UnixMilli()

	// Older remote row loses.
	applied, err := store.ApplyRemoteUpsert(ctx, entity.KindTask, remoteTaskRow(t, "t1", "Stale", localMillis-1, 1))
	require.NoError(t, err)
	assert.False(t, applied)

	// Equal timestamp loses too; only strictly newer wins.
	applied, err = store.ApplyRemoteUpsert(ctx, entity.KindTask, remoteTaskRow(t, "t1", "Tie", localMillis, 2))
	require.NoError(t, err)
	assert.False(t, applied)

	got, _ := store.Get(entity.KindTask, "t1")
	assert.Equal(t, "Local title", got.(*entity.Task).Title)

	// Strictly newer remote row wins.
	applied, err = store.ApplyRemoteUpsert(ctx, entity.KindTask, remoteTaskRow(t, "t1", "Fresh", localMillis+1, 3))
	require.NoError(t, err)
	assert.True(t, applied)

	got, _ = store.Get(entity.KindTask, "t1")
	assert.Equal(t, "Fresh", got.(*entity.Task).Title)
}

func TestStore_ApplyRemoteDeleteWinsOverLocalEdit(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()

	task := entity.NewTask("Doomed")
	require.NoError(t, store.Set(ctx, entity.KindTask, task))

	require.NoError(t, store.ApplyRemoteDelete(ctx, entity.KindTask, task.ID))

	_, ok := store.Get(entity.KindTask, task.ID)
	assert.False(t, ok)

	ids, err := state.DirtyIDs(ctx, entity.KindTask)
	require.NoError(t, err)
	assert.Empty(t, ids, "remote delete clears the dirty mark so the edit is not resurrected")
}

// --- bootstrap tests ---

func TestStore_BootstrapRestoresEntitiesAndLevels(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()

	parent := entity.NewTask("Parent")
	child := entity.NewTask("Child")
	child.ParentID = parent.ID

	require.NoError(t, store.Set(ctx, entity.KindTask, parent))
	require.NoError(t, store.Set(ctx, entity.KindTask, child))

	goal := entity.NewGoal("Save money")
	require.NoError(t, store.Set(ctx, entity.KindGoal, goal))

	fresh := NewStore(state, testLogger(t))
	require.NoError(t, fresh.Bootstrap(ctx))

	assert.Equal(t, 2, fresh.Count(entity.KindTask))
	assert.Equal(t, 1, fresh.Count(entity.KindGoal))

	tasks := fresh.Tasks()
	assert.Equal(t, 0, tasks[parent.ID].Level)
	assert.Equal(t, 1, tasks[child.ID].Level)
}

func TestStore_BootstrapSkipsCorruptSnapshot(t *testing.T) {
	store, state := newTestStore(t)
	ctx := context.Background()

	good := entity.NewTask("Good")
	require.NoError(t, store.Set(ctx, entity.KindTask, good))
	require.NoError(t, state.SaveSnapshot(ctx, entity.KindTask, "bad", json.RawMessage(`{not json`), 1))

	fresh := NewStore(state, testLogger(t))
	require.NoError(t, fresh.Bootstrap(ctx))

	assert.Equal(t, 1, fresh.Count(entity.KindTask))
}

// --- level and ordering tests ---

func TestStore_SetRecomputesLevels(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	parent := entity.NewTask("Parent")
	require.NoError(t, store.Set(ctx, entity.KindTask, parent))

	child := entity.NewTask("Child")
	child.ParentID = parent.ID
	child.Level = 99 // bogus incoming level, must be recomputed
	require.NoError(t, store.Set(ctx, entity.KindTask, child))

	tasks := store.Tasks()
	assert.Equal(t, 1, tasks[child.ID].Level)

	// Reparenting the child to a cycle floors it at level 0.
	reparented := tasks[child.ID]
	reparented.ParentID = child.ID
	require.NoError(t, store.Set(ctx, entity.KindTask, reparented))

	assert.Equal(t, 0, store.Tasks()[child.ID].Level)
}

func TestStore_RenumberSiblings(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	orders := []float64{3.75, 1.5, 2.25}
	ids := make([]string, len(orders))

	for i, o := range orders {
		task := entity.NewTask("Task")
		task.Order = o
		ids[i] = task.ID
		require.NoError(t, store.Set(ctx, entity.KindTask, task))
	}

	require.NoError(t, store.RenumberSiblings(ctx, ""))

	tasks := store.Tasks()
	assert.Equal(t, 3.0, tasks[ids[0]].Order)
	assert.Equal(t, 1.0, tasks[ids[1]].Order)
	assert.Equal(t, 2.0, tasks[ids[2]].Order)
}

// TestStore_RenumberSiblingsIncludesOrphans: a task whose parent id no
// longer exists is treated as a root, the same normalization the children
// index applies, so renumbering the root set covers it.
func TestStore_RenumberSiblingsIncludesOrphans(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	root := entity.NewTask("Root")
	root.Order = 7.5
	require.NoError(t, store.Set(ctx, entity.KindTask, root))

	orphan := entity.NewTask("Orphan")
	orphan.ParentID = "gone"
	orphan.Order = 2.5
	require.NoError(t, store.Set(ctx, entity.KindTask, orphan))

	require.NoError(t, store.RenumberSiblings(ctx, ""))

	tasks := store.Tasks()
	assert.Equal(t, 1.0, tasks[orphan.ID].Order)
	assert.Equal(t, 2.0, tasks[root.ID].Order)
}

func TestStore_ListSortedByID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		acct := entity.NewAccount("Cuenta " + id)
		acct.ID = id
		require.NoError(t, store.Set(ctx, entity.KindAccount, acct))
	}

	list := store.List(entity.KindAccount)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].EntityID())
	assert.Equal(t, "b", list[1].EntityID())
	assert.Equal(t, "c", list[2].EntityID())
}
