package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	stdsync "sync"
	"testing"

	"github.com/planea-app/planea-go/internal/remote"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// newTestState creates a StateStore backed by a temp directory, registering
// cleanup with t.Cleanup.
func newTestState(t *testing.T) *StateStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "state.db")

	state, err := NewStateStore(dbPath, testLogger(t))
	if err != nil {
		t.Fatalf("NewStateStore(%q): %v", dbPath, err)
	}

	t.Cleanup(func() {
		if err := state.Close(); err != nil {
			t.Errorf("Close(): %v", err)
		}
	})

	return state
}

// newTestStore creates a Store over a fresh StateStore.
func newTestStore(t *testing.T) (*Store, *StateStore) {
	t.Helper()

	state := newTestState(t)
	store := NewStore(state, testLogger(t))

	return store, state
}

type upsertCall struct {
	Kind            string
	ID              string
	Payload         json.RawMessage
	ClientUpdatedAt int64
	Deleted         bool
}

// fakeGateway is a scriptable Gateway: rows and errors per kind for
// FetchSince, a recorded call log and optional injected error for the
// write side.
type fakeGateway struct {
	mu stdsync.Mutex

	rows      map[string][]remote.Row
	fetchErrs map[string]error
	fetches   []string

	upserts  []upsertCall
	writeErr error

	// fetchStarted/fetchRelease gate FetchSince for overlap tests.
	fetchStarted chan struct{}
	fetchRelease chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rows:      make(map[string][]remote.Row),
		fetchErrs: make(map[string]error),
	}
}

func (g *fakeGateway) FetchSince(ctx context.Context, kind, watermark string) ([]remote.Row, error) {
	g.mu.Lock()
	g.fetches = append(g.fetches, kind+"@"+watermark)
	started := g.fetchStarted
	release := g.fetchRelease
	rows := g.rows[kind]
	err := g.fetchErrs[kind]
	g.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return rows, err
}

func (g *fakeGateway) Upsert(ctx context.Context, kind, id string, payload json.RawMessage, clientUpdatedAt int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.writeErr != nil {
		return g.writeErr
	}

	g.upserts = append(g.upserts, upsertCall{
		Kind: kind, ID: id, Payload: payload, ClientUpdatedAt: clientUpdatedAt,
	})

	return nil
}

func (g *fakeGateway) TombstoneUpsert(ctx context.Context, kind, id string, clientUpdatedAt int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.writeErr != nil {
		return g.writeErr
	}

	g.upserts = append(g.upserts, upsertCall{
		Kind: kind, ID: id, ClientUpdatedAt: clientUpdatedAt, Deleted: true,
	})

	return nil
}

func (g *fakeGateway) upsertCalls() []upsertCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]upsertCall, len(g.upserts))
	copy(out, g.upserts)

	return out
}
