package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/planea-app/planea-go/internal/entity"
)

// SQL statements for sync state, grouped by table.
const (
	sqlUpsertSnapshot = `INSERT INTO snapshots (kind, id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
		 payload = excluded.payload,
		 updated_at = excluded.updated_at`

	sqlGetSnapshot = `SELECT payload, updated_at FROM snapshots
		WHERE kind = ? AND id = ?`

	sqlListSnapshots = `SELECT id, payload FROM snapshots WHERE kind = ?`

	sqlDeleteSnapshot = `DELETE FROM snapshots WHERE kind = ? AND id = ?`

	sqlMarkDirty = `INSERT INTO dirty (kind, id, marked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
		 marked_at = excluded.marked_at`

	sqlClearDirty = `DELETE FROM dirty WHERE kind = ? AND id = ?`

	sqlListDirty = `SELECT id FROM dirty WHERE kind = ? ORDER BY marked_at, id`

	sqlCountDirty = `SELECT kind, COUNT(*) FROM dirty GROUP BY kind`

	sqlGetWatermark = `SELECT watermark FROM watermarks WHERE kind = ?`

	sqlSaveWatermark = `INSERT INTO watermarks (kind, watermark, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
		 watermark = excluded.watermark,
		 updated_at = excluded.updated_at`
)

// StateStore is the sole writer to the sync database. It persists entity
// snapshots (the canonical serialized form of every live record), the dirty
// set of unpushed ids, and the per-kind pull watermarks. Each write is an
// individually durable SQLite statement, so a crash never loses more than
// the write in flight.
type StateStore struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests

	// Prepared statements for repeated queries, grouped by table.
	snapshotStmts  snapshotStatements
	dirtyStmts     dirtyStatements
	watermarkStmts watermarkStatements
}

type snapshotStatements struct {
	upsert, get, list, delete *sql.Stmt
}

type dirtyStatements struct {
	mark, clear, list *sql.Stmt
}

type watermarkStatements struct {
	get, save *sql.Stmt
}

// NewStateStore opens the SQLite database at dbPath, runs migrations, and
// prepares the repeated statements. Use ":memory:" for tests. The database
// uses WAL mode with synchronous=FULL for crash-safe durability.
func NewStateStore(dbPath string, logger *slog.Logger) (*StateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"+
			"&_pragma=journal_size_limit(67108864)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sync: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := applyMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &StateStore{db: db, logger: logger, nowFunc: time.Now}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sync state database ready", slog.String("db_path", dbPath))

	return s, nil
}

func (s *StateStore) prepareStatements(ctx context.Context) error {
	prep := func(query string) (*sql.Stmt, error) {
		stmt, err := s.db.PrepareContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("sync: preparing statement: %w", err)
		}

		return stmt, nil
	}

	var err error

	if s.snapshotStmts.upsert, err = prep(sqlUpsertSnapshot); err != nil {
		return err
	}

	if s.snapshotStmts.get, err = prep(sqlGetSnapshot); err != nil {
		return err
	}

	if s.snapshotStmts.list, err = prep(sqlListSnapshots); err != nil {
		return err
	}

	if s.snapshotStmts.delete, err = prep(sqlDeleteSnapshot); err != nil {
		return err
	}

	if s.dirtyStmts.mark, err = prep(sqlMarkDirty); err != nil {
		return err
	}

	if s.dirtyStmts.clear, err = prep(sqlClearDirty); err != nil {
		return err
	}

	if s.dirtyStmts.list, err = prep(sqlListDirty); err != nil {
		return err
	}

	if s.watermarkStmts.get, err = prep(sqlGetWatermark); err != nil {
		return err
	}

	if s.watermarkStmts.save, err = prep(sqlSaveWatermark); err != nil {
		return err
	}

	return nil
}

// Close releases the database handle.
func (s *StateStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sync: closing database: %w", err)
	}

	return nil
}

// --- snapshots ---

// SaveSnapshot persists the canonical payload for one entity.
func (s *StateStore) SaveSnapshot(ctx context.Context, kind entity.Kind, id string, payload json.RawMessage, updatedAt int64) error {
	if _, err := s.snapshotStmts.upsert.ExecContext(ctx, string(kind), id, string(payload), updatedAt); err != nil {
		return fmt.Errorf("sync: saving snapshot %s/%s: %w", kind, id, err)
	}

	return nil
}

// Snapshot returns the stored payload and updated_at for one entity.
// Returns sql.ErrNoRows wrapped when the snapshot does not exist.
func (s *StateStore) Snapshot(ctx context.Context, kind entity.Kind, id string) (json.RawMessage, int64, error) {
	var (
		payload   string
		updatedAt int64
	)

	err := s.snapshotStmts.get.QueryRowContext(ctx, string(kind), id).Scan(&payload, &updatedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("sync: loading snapshot %s/%s: %w", kind, id, err)
	}

	return json.RawMessage(payload), updatedAt, nil
}

// LoadSnapshots returns every stored payload for a kind, keyed by id.
func (s *StateStore) LoadSnapshots(ctx context.Context, kind entity.Kind) (map[string]json.RawMessage, error) {
	rows, err := s.snapshotStmts.list.QueryContext(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("sync: listing snapshots for %s: %w", kind, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)

	for rows.Next() {
		var id, payload string

		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("sync: scanning snapshot row: %w", err)
		}

		out[id] = json.RawMessage(payload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterating snapshot rows: %w", err)
	}

	return out, nil
}

// DeleteSnapshot removes the stored payload for one entity. Deleting an
// absent snapshot is not an error.
func (s *StateStore) DeleteSnapshot(ctx context.Context, kind entity.Kind, id string) error {
	if _, err := s.snapshotStmts.delete.ExecContext(ctx, string(kind), id); err != nil {
		return fmt.Errorf("sync: deleting snapshot %s/%s: %w", kind, id, err)
	}

	return nil
}

// --- dirty set ---

// MarkDirty records an id as having local changes awaiting push. Marking an
// already-dirty id refreshes its marked_at and is otherwise a no-op.
func (s *StateStore) MarkDirty(ctx context.Context, kind entity.Kind, id string) error {
	if _, err := s.dirtyStmts.mark.ExecContext(ctx, string(kind), id, s.nowFunc().UnixMilli()); err != nil {
		return fmt.Errorf("sync: marking dirty %s/%s: %w", kind, id, err)
	}

	return nil
}

// ClearDirty removes an id from the dirty set. Clearing an id that is not
// dirty is not an error.
func (s *StateStore) ClearDirty(ctx context.Context, kind entity.Kind, id string) error {
	if _, err := s.dirtyStmts.clear.ExecContext(ctx, string(kind), id); err != nil {
		return fmt.Errorf("sync: clearing dirty %s/%s: %w", kind, id, err)
	}

	return nil
}

// DirtyIDs returns the dirty ids for one kind, oldest mark first.
func (s *StateStore) DirtyIDs(ctx context.Context, kind entity.Kind) ([]string, error) {
	rows, err := s.dirtyStmts.list.QueryContext(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("sync: listing dirty ids for %s: %w", kind, err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sync: scanning dirty row: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterating dirty rows: %w", err)
	}

	return ids, nil
}

// DirtyCounts returns the number of dirty ids per kind. Kinds with no dirty
// ids are absent from the map.
func (s *StateStore) DirtyCounts(ctx context.Context) (map[entity.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, sqlCountDirty)
	if err != nil {
		return nil, fmt.Errorf("sync: counting dirty ids: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.Kind]int)

	for rows.Next() {
		var (
			kind  string
			count int
		)

		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("sync: scanning dirty count: %w", err)
		}

		counts[entity.Kind(kind)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterating dirty counts: %w", err)
	}

	return counts, nil
}

// --- watermarks ---

// Watermark returns the saved pull watermark for a kind, or empty string if
// no pull has completed yet.
func (s *StateStore) Watermark(ctx context.Context, kind entity.Kind) (string, error) {
	var watermark string

	err := s.watermarkStmts.get.QueryRowContext(ctx, string(kind)).Scan(&watermark)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("sync: getting watermark for %s: %w", kind, err)
	}

	return watermark, nil
}

// SaveWatermark persists the pull watermark for a kind.
func (s *StateStore) SaveWatermark(ctx context.Context, kind entity.Kind, watermark string) error {
	if _, err := s.watermarkStmts.save.ExecContext(ctx, string(kind), watermark, s.nowFunc().UnixMilli()); err != nil {
		return fmt.Errorf("sync: saving watermark for %s: %w", kind, err)
	}

	return nil
}
