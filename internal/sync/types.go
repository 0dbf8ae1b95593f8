// Package sync implements the local-first synchronization engine: an
// in-memory entity store backed by durable SQLite state, pull with
// last-writer-wins merging against per-kind watermarks, push of the dirty
// set, and the scheduler that ties them together.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/planea-app/planea-go/internal/entity"
	"github.com/planea-app/planea-go/internal/remote"
)

// ErrPullInProgress is returned when a pull is requested while another pull
// is still running. The caller should simply wait for the running pull.
var ErrPullInProgress = errors.New("sync: pull already in progress")

// Gateway is the slice of the remote store the engine needs. *remote.Client
// satisfies it.
type Gateway interface {
	FetchSince(ctx context.Context, kind, watermark string) ([]remote.Row, error)
	Upsert(ctx context.Context, kind, id string, payload json.RawMessage, clientUpdatedAt int64) error
	TombstoneUpsert(ctx context.Context, kind, id string, clientUpdatedAt int64) error
}

// KindPull is the outcome of pulling one kind. Err is set when the fetch or
// a local apply failed; the watermark only advances when Err is nil.
type KindPull struct {
	Kind      entity.Kind
	Fetched   int
	Applied   int
	Deleted   int
	Skipped   int
	Watermark string
	Err       error
}

// PullReport aggregates the per-kind outcomes of one pull pass.
type PullReport struct {
	Kinds []KindPull
}

// Failed returns the kinds whose pull failed.
func (r *PullReport) Failed() []KindPull {
	var failed []KindPull

	for _, k := range r.Kinds {
		if k.Err != nil {
			failed = append(failed, k)
		}
	}

	return failed
}

// PushReport aggregates the outcome of one push pass. Terminal is set when
// the pass was aborted by an error that retrying cannot fix, such as an
// expired session.
type PushReport struct {
	Pushed     int
	Tombstoned int
	Failed     int
	Terminal   error
}

// Status is a point-in-time snapshot of engine health for the CLI.
type Status struct {
	DirtyCounts map[entity.Kind]int
	Watermarks  map[entity.Kind]string
	LastPullAt  time.Time
	LastPushAt  time.Time
	LastError   error
}
