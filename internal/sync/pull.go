package sync

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/planea-app/planea-go/internal/entity"
	"github.com/planea-app/planea-go/internal/remote"
)

// Puller fetches remote rows newer than each kind's watermark and merges
// them into the store. Fetches fan out concurrently per kind; merges run
// sequentially so the store sees one coherent apply phase. One kind's
// failure never blocks the others, and a failed kind's watermark stays put
// so the next pull retries the same window.
type Puller struct {
	gateway Gateway
	store   *Store
	state   *StateStore
	logger  *slog.Logger
}

// NewPuller wires a Puller over the gateway, store, and persistent state.
func NewPuller(gateway Gateway, store *Store, state *StateStore, logger *slog.Logger) *Puller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Puller{gateway: gateway, store: store, state: state, logger: logger}
}

// Pull runs one full pull pass across every kind and reports the per-kind
// outcomes. The returned error is nil even when individual kinds failed;
// inspect the report for partial failures.
func (p *Puller) Pull(ctx context.Context) (*PullReport, error) {
	kinds := entity.Kinds()
	results := make([]KindPull, len(kinds))
	fetched := make([][]fetchedRow, len(kinds))

	g, gctx := errgroup.WithContext(ctx)

	for i, kind := range kinds {
		g.Go(func() error {
			results[i], fetched[i] = p.fetchKind(gctx, kind)
			return nil
		})
	}

	// Closures always return nil; errors live in the per-kind results.
	_ = g.Wait()

	for i, kind := range kinds {
		if results[i].Err != nil {
			p.logger.Warn("pull fetch failed",
				slog.String("kind", string(kind)),
				slog.String("error", results[i].Err.Error()),
			)

			continue
		}

		p.mergeKind(ctx, kind, fetched[i], &results[i])
	}

	return &PullReport{Kinds: results}, nil
}

type fetchedRow struct {
	row      remote.Row
	revision int64
}

func (p *Puller) fetchKind(ctx context.Context, kind entity.Kind) (KindPull, []fetchedRow) {
	result := KindPull{Kind: kind}

	since, err := p.state.Watermark(ctx, kind)
	if err != nil {
		result.Err = err
		return result, nil
	}

	result.Watermark = since

	rows, err := p.gateway.FetchSince(ctx, string(kind), since)
	if err != nil {
		result.Err = err
		return result, nil
	}

	result.Fetched = len(rows)

	out := make([]fetchedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, fetchedRow{row: r, revision: r.ServerRevision})
	}

	// Apply in ascending revision order regardless of server ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].revision < out[j].revision })

	return result, out
}

// mergeKind applies fetched rows oldest revision first and, when every row
// applied cleanly and at least one row arrived, advances the persisted
// watermark to the maximum revision seen. An empty fetch never moves the
// watermark: zero rows from a flaky backend must not skip a window.
func (p *Puller) mergeKind(ctx context.Context, kind entity.Kind, rows []fetchedRow, result *KindPull) {
	var maxRevision int64

	for _, fr := range rows {
		if fr.revision > maxRevision {
			maxRevision = fr.revision
		}

		if fr.row.Tombstoned() {
			if err := p.store.ApplyRemoteDelete(ctx, kind, fr.row.ID); err != nil {
				result.Err = err
				return
			}

			result.Deleted++

			continue
		}

		applied, err := p.store.ApplyRemoteUpsert(ctx, kind, fr.row)
		if err != nil {
			result.Err = err
			return
		}

		if applied {
			result.Applied++
		} else {
			result.Skipped++
		}
	}

	if len(rows) == 0 {
		return
	}

	watermark := strconv.FormatInt(maxRevision, 10)

	if err := p.state.SaveWatermark(ctx, kind, watermark); err != nil {
		result.Err = err
		return
	}

	result.Watermark = watermark

	p.logger.Debug("pull merged",
		slog.String("kind", string(kind)),
		slog.Int("fetched", result.Fetched),
		slog.Int("applied", result.Applied),
		slog.Int("deleted", result.Deleted),
		slog.Int("skipped", result.Skipped),
		slog.String("watermark", watermark),
	)
}
