package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/planea-app/planea-go/internal/entity"
	"github.com/planea-app/planea-go/internal/remote"
)

// Pusher flushes the dirty set to the remote store. Each dirty id is pushed
// as an upsert of its stored canonical payload, or as a tombstone when the
// entity is gone locally. An id leaves the dirty set only after the server
// acknowledged it, so a crash mid-push re-sends rather than loses edits.
type Pusher struct {
	gateway Gateway
	store   *Store
	state   *StateStore
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// NewPusher wires a Pusher over the gateway, store, and persistent state.
func NewPusher(gateway Gateway, store *Store, state *StateStore, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pusher{
		gateway: gateway,
		store:   store,
		state:   state,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Push runs one push pass over every kind's dirty ids. Per-row failures are
// counted and the row stays dirty for the next pass; a terminal error such
// as an expired session aborts the pass immediately since every remaining
// row would fail the same way.
func (p *Pusher) Push(ctx context.Context) (*PushReport, error) {
	report := &PushReport{}

	for _, kind := range entity.Kinds() {
		ids, err := p.state.DirtyIDs(ctx, kind)
		if err != nil {
			return report, err
		}

		for _, id := range ids {
			err := p.pushOne(ctx, kind, id, report)
			if err == nil {
				if clearErr := p.state.ClearDirty(ctx, kind, id); clearErr != nil {
					return report, clearErr
				}

				continue
			}

			report.Failed++

			p.logger.Warn("push failed",
				slog.String("kind", string(kind)),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)

			if remote.IsTerminal(err) {
				report.Terminal = err
				return report, err
			}
		}
	}

	return report, nil
}

// pushOne sends a single dirty id. An id with no live local entity, or one
// whose entity carries the deleted flag, is pushed as a tombstone; a
// tombstone for an id the server never saw still succeeds.
func (p *Pusher) pushOne(ctx context.Context, kind entity.Kind, id string, report *PushReport) error {
	e, ok := p.store.Get(kind, id)
	if !ok || e.Tombstoned() {
		if err := p.gateway.TombstoneUpsert(ctx, string(kind), id, p.nowFunc().UnixMilli()); err != nil {
			return err
		}

		report.Tombstoned++

		return nil
	}

	payload, updatedAt, err := p.state.Snapshot(ctx, kind, id)
	if err != nil {
		return err
	}

	if err := p.gateway.Upsert(ctx, string(kind), id, payload, updatedAt); err != nil {
		return err
	}

	report.Pushed++

	return nil
}
