package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	stdsync "sync"
	"time"

	"github.com/planea-app/planea-go/internal/entity"
	"github.com/planea-app/planea-go/internal/remote"
)

// Store is the in-memory collection of hydrated entities per kind. Every
// mutation flows through it: local edits are canonicalized, persisted to the
// snapshot table, and marked dirty; remote rows applied during a pull follow
// the same write path but hold the applying-remote guard so they are never
// marked dirty or echoed back to the server.
type Store struct {
	mu             stdsync.Mutex
	entities       map[entity.Kind]map[string]entity.Entity
	applyingRemote bool

	state   *StateStore
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests

	onLocalEdit func(kind entity.Kind, id string)
}

// NewStore creates an empty Store backed by state. Call Bootstrap to load
// persisted snapshots before first use.
func NewStore(state *StateStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	entities := make(map[entity.Kind]map[string]entity.Entity, len(entity.Kinds()))
	for _, kind := range entity.Kinds() {
		entities[kind] = make(map[string]entity.Entity)
	}

	return &Store{
		entities: entities,
		state:    state,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// SetOnLocalEdit registers the callback fired after every local mutation.
// The engine uses it to schedule a debounced push. The callback runs outside
// the store lock.
func (s *Store) SetOnLocalEdit(fn func(kind entity.Kind, id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLocalEdit = fn
}

// Bootstrap hydrates every persisted snapshot into memory and recomputes
// derived task levels. Rows that fail to hydrate are logged and skipped so
// one corrupt snapshot cannot block startup.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range entity.Kinds() {
		payloads, err := s.state.LoadSnapshots(ctx, kind)
		if err != nil {
			return err
		}

		for id, payload := range payloads {
			e, err := entity.Hydrate(kind, payload)
			if err != nil {
				s.logger.Warn("skipping corrupt snapshot",
					slog.String("kind", string(kind)),
					slog.String("id", id),
					slog.String("error", err.Error()),
				)

				continue
			}

			s.entities[kind][e.EntityID()] = e
		}

		s.logger.Debug("snapshots loaded",
			slog.String("kind", string(kind)),
			slog.Int("count", len(s.entities[kind])),
		)
	}

	s.recomputeTaskLevelsLocked()

	return nil
}

// applyRemote runs fn with the applying-remote guard held. Writes made
// through writeLocked and removeLocked while the guard is up skip the dirty
// mark and the local-edit hook, so pulled rows are never echoed back to the
// server. Callers must hold s.mu; calls do not nest.
func (s *Store) applyRemote(fn func() error) error {
	s.applyingRemote = true
	defer func() { s.applyingRemote = false }()

	return fn()
}

// writeLocked is the single write path for both local edits and remote
// applies: it updates memory, persists the snapshot, and, unless the
// applying-remote guard is up, marks the id dirty. Returns whether the
// caller should fire the local-edit hook. Callers must hold s.mu.
func (s *Store) writeLocked(ctx context.Context, kind entity.Kind, id string, payload json.RawMessage, e entity.Entity, updatedAt int64) (bool, error) {
	s.entities[kind][id] = e
	if kind == entity.KindTask {
		s.recomputeTaskLevelsLocked()
	}

	if err := s.state.SaveSnapshot(ctx, kind, id, payload, updatedAt); err != nil {
		return false, err
	}

	if s.applyingRemote {
		return false, nil
	}

	if err := s.state.MarkDirty(ctx, kind, id); err != nil {
		return false, err
	}

	return true, nil
}

// removeLocked mirrors writeLocked for deletes. Callers must hold s.mu.
func (s *Store) removeLocked(ctx context.Context, kind entity.Kind, id string) (bool, error) {
	delete(s.entities[kind], id)
	if kind == entity.KindTask {
		s.recomputeTaskLevelsLocked()
	}

	if err := s.state.DeleteSnapshot(ctx, kind, id); err != nil {
		return false, err
	}

	if s.applyingRemote {
		return false, nil
	}

	if err := s.state.MarkDirty(ctx, kind, id); err != nil {
		return false, err
	}

	return true, nil
}

// Set records a local edit: the entity is canonicalized (which refreshes its
// update timestamp), stored in memory, persisted, and marked dirty.
func (s *Store) Set(ctx context.Context, kind entity.Kind, e entity.Entity) error {
	s.mu.Lock()

	payload, err := entity.Canonicalize(kind, e, s.nowFunc())
	if err != nil {
		s.mu.Unlock()
		return err
	}

	// Re-hydrate so the in-memory copy carries the refreshed timestamps and
	// the same degradations the wire form does.
	hydrated, err := entity.Hydrate(kind, payload)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	id := hydrated.EntityID()

	notify, err := s.writeLocked(ctx, kind, id, payload, hydrated, hydrated.UpdatedAtMillis())
	if err != nil {
		s.mu.Unlock()
		return err
	}

	fn := s.onLocalEdit
	s.mu.Unlock()

	if notify && fn != nil {
		fn(kind, id)
	}

	return nil
}

// Delete records a local delete: the entity is dropped from memory and the
// snapshot table, and its id is marked dirty so the next push sends a
// tombstone. Deleting an unknown id is not an error; the tombstone is pushed
// regardless.
func (s *Store) Delete(ctx context.Context, kind entity.Kind, id string) error {
	s.mu.Lock()

	notify, err := s.removeLocked(ctx, kind, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	fn := s.onLocalEdit
	s.mu.Unlock()

	if notify && fn != nil {
		fn(kind, id)
	}

	return nil
}

// ApplyRemoteUpsert merges one remote row into the store using last-write-
// wins on the client update timestamp. The remote copy is applied when there
// is no local copy or when its timestamp is strictly later than the local
// one; otherwise the local copy is kept untouched (and stays dirty, so the
// next push sends it). Returns whether the remote row was applied.
func (s *Store) ApplyRemoteUpsert(ctx context.Context, kind entity.Kind, row remote.Row) (bool, error) {
	e, err := entity.Hydrate(kind, row.Payload)
	if err != nil {
		return false, fmt.Errorf("sync: hydrating remote row %s/%s: %w", kind, row.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if local, ok := s.entities[kind][row.ID]; ok && row.ClientUpdatedAt <= local.UpdatedAtMillis() {
		return false, nil
	}

	// Persist the remote payload byte-for-byte; re-encoding would refresh
	// timestamps and defeat the merge comparison on the next pull.
	err = s.applyRemote(func() error {
		_, err := s.writeLocked(ctx, kind, row.ID, row.Payload, e, row.ClientUpdatedAt)
		return err
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// ApplyRemoteDelete removes an id in response to a remote tombstone. Deletes
// always win: the local copy is dropped even if it has unpushed edits, and
// the id is cleared from the dirty set so the edit is not resurrected by the
// next push.
func (s *Store) ApplyRemoteDelete(ctx context.Context, kind entity.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyRemote(func() error {
		if _, err := s.removeLocked(ctx, kind, id); err != nil {
			return err
		}

		return s.state.ClearDirty(ctx, kind, id)
	})
}

// Get returns the hydrated entity for an id, if present.
func (s *Store) Get(kind entity.Kind, id string) (entity.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[kind][id]

	return e, ok
}

// List returns every entity of a kind, ordered by id for determinism.
func (s *Store) List(kind entity.Kind) []entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Entity, 0, len(s.entities[kind]))
	for _, e := range s.entities[kind] {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })

	return out
}

// Count returns the number of entities held for a kind.
func (s *Store) Count(kind entity.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entities[kind])
}

// Tasks returns the task arena keyed by id. The map is a copy; the tasks
// are shared pointers and must not be mutated by callers.
func (s *Store) Tasks() map[string]*entity.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tasksLocked()
}

func (s *Store) tasksLocked() map[string]*entity.Task {
	tasks := make(map[string]*entity.Task, len(s.entities[entity.KindTask]))

	for id, e := range s.entities[entity.KindTask] {
		if t, ok := e.(*entity.Task); ok {
			tasks[id] = t
		}
	}

	return tasks
}

// recomputeTaskLevelsLocked rebuilds the derived depth levels from parent
// pointers. Levels are never trusted from storage or the wire.
func (s *Store) recomputeTaskLevelsLocked() {
	entity.RecomputeLevels(s.tasksLocked())
}

// RenumberSiblings rewrites the fractional sort keys of parentID's children
// to 1..n when midpoint insertion has exhausted float precision. Siblings
// are selected through the children index, so tasks whose parent no longer
// exists are renumbered with the root set rather than skipped. Every
// renumbered task is a local edit and goes through the normal Set path.
func (s *Store) RenumberSiblings(ctx context.Context, parentID string) error {
	s.mu.Lock()

	tasks := s.tasksLocked()
	index := entity.ChildrenIndex(tasks)

	siblings := make([]*entity.Task, 0, len(index[parentID]))
	for _, id := range index[parentID] {
		siblings = append(siblings, tasks[id])
	}

	entity.RenumberSiblings(siblings)
	s.mu.Unlock()

	for _, t := range siblings {
		if err := s.Set(ctx, entity.KindTask, t); err != nil {
			return err
		}
	}

	return nil
}
