package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/planea-app/planea-go/internal/entity"
)

// Default scheduling knobs, overridable from config.
const (
	DefaultPullInterval = 60 * time.Second
	DefaultPushDebounce = 2 * time.Second
)

// EngineConfig carries the scheduling knobs for an Engine.
type EngineConfig struct {
	PullInterval time.Duration
	PushDebounce time.Duration
}

// Engine ties the store, puller, and pusher together under one scheduling
// policy: a debounced push after every local edit, a periodic pull, and an
// immediate pull on Wake (for example when the app regains the foreground).
// At most one pull runs at a time; overlapping requests are dropped rather
// than queued, since the running pull already covers the requested window.
type Engine struct {
	store  *Store
	state  *StateStore
	puller *Puller
	pusher *Pusher
	logger *slog.Logger

	pullInterval time.Duration
	pushDebounce time.Duration

	pullInFlight atomic.Bool
	pushRequests chan struct{}
	wakeRequests chan struct{}

	statusMu   stdsync.Mutex
	lastPullAt time.Time
	lastPushAt time.Time
	lastErr    error
}

// NewEngine builds an Engine over the given parts and registers the store's
// local-edit hook so every mutation schedules a debounced push.
func NewEngine(store *Store, state *StateStore, gateway Gateway, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.PullInterval <= 0 {
		cfg.PullInterval = DefaultPullInterval
	}

	if cfg.PushDebounce <= 0 {
		cfg.PushDebounce = DefaultPushDebounce
	}

	e := &Engine{
		store:        store,
		state:        state,
		puller:       NewPuller(gateway, store, state, logger),
		pusher:       NewPusher(gateway, store, state, logger),
		logger:       logger,
		pullInterval: cfg.PullInterval,
		pushDebounce: cfg.PushDebounce,
		pushRequests: make(chan struct{}, 1),
		wakeRequests: make(chan struct{}, 1),
	}

	store.SetOnLocalEdit(func(entity.Kind, string) { e.RequestPush() })

	return e
}

// RequestPush schedules a push after the debounce window. Edits arriving
// inside the window coalesce into one push.
func (e *Engine) RequestPush() {
	select {
	case e.pushRequests <- struct{}{}:
	default:
	}
}

// Wake requests an immediate pull, used when the application regains
// visibility after being backgrounded.
func (e *Engine) Wake() {
	select {
	case e.wakeRequests <- struct{}{}:
	default:
	}
}

// Run drives the scheduling loop until ctx is cancelled. It pulls once at
// startup, then on every tick and Wake, and pushes one debounce window
// after the last local edit. The dirty set is durable across restarts and
// a failed push leaves its ids dirty, so startup and every tick also flush
// any dirty backlog rather than waiting for a new edit.
func (e *Engine) Run(ctx context.Context) error {
	e.pullAndRecord(ctx)
	e.pushBacklog(ctx)

	ticker := time.NewTicker(e.pullInterval)
	defer ticker.Stop()

	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
	)

	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-e.pushRequests:
			if debounce == nil {
				debounce = time.NewTimer(e.pushDebounce)
				debounceC = debounce.C

				continue
			}

			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}

			debounce.Reset(e.pushDebounce)

		case <-debounceC:
			debounce = nil
			debounceC = nil

			e.pushAndRecord(ctx)

		case <-ticker.C:
			e.pullAndRecord(ctx)
			e.pushBacklog(ctx)

		case <-e.wakeRequests:
			e.pullAndRecord(ctx)
		}
	}
}

// PullOnce runs a single pull pass. Returns ErrPullInProgress when another
// pull is already running.
func (e *Engine) PullOnce(ctx context.Context) (*PullReport, error) {
	if !e.pullInFlight.CompareAndSwap(false, true) {
		return nil, ErrPullInProgress
	}
	defer e.pullInFlight.Store(false)

	report, err := e.puller.Pull(ctx)
	if err != nil {
		return nil, err
	}

	e.statusMu.Lock()
	e.lastPullAt = time.Now()
	e.lastErr = nil

	if failed := report.Failed(); len(failed) > 0 {
		e.lastErr = failed[0].Err
	}
	e.statusMu.Unlock()

	return report, nil
}

// PushOnce runs a single push pass immediately, bypassing the debounce.
func (e *Engine) PushOnce(ctx context.Context) (*PushReport, error) {
	report, err := e.pusher.Push(ctx)

	e.statusMu.Lock()
	e.lastPushAt = time.Now()
	e.lastErr = err
	e.statusMu.Unlock()

	return report, err
}

func (e *Engine) pullAndRecord(ctx context.Context) {
	if _, err := e.PullOnce(ctx); err != nil && err != ErrPullInProgress {
		e.logger.Warn("scheduled pull failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) pushAndRecord(ctx context.Context) {
	if _, err := e.PushOnce(ctx); err != nil {
		e.logger.Warn("scheduled push failed", slog.String("error", err.Error()))
	}
}

// pushBacklog runs a push pass when the dirty set is non-empty. Covers ids
// persisted by a previous session and ids left dirty by a failed push.
func (e *Engine) pushBacklog(ctx context.Context) {
	counts, err := e.state.DirtyCounts(ctx)
	if err != nil {
		e.logger.Warn("checking dirty backlog", slog.String("error", err.Error()))
		return
	}

	for _, n := range counts {
		if n > 0 {
			e.pushAndRecord(ctx)
			return
		}
	}
}

// Status reports dirty counts, watermarks, and the most recent pass
// timestamps and error.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	counts, err := e.state.DirtyCounts(ctx)
	if err != nil {
		return Status{}, err
	}

	watermarks := make(map[entity.Kind]string, len(entity.Kinds()))

	for _, kind := range entity.Kinds() {
		wm, err := e.state.Watermark(ctx, kind)
		if err != nil {
			return Status{}, err
		}

		watermarks[kind] = wm
	}

	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	return Status{
		DirtyCounts: counts,
		Watermarks:  watermarks,
		LastPullAt:  e.lastPullAt,
		LastPushAt:  e.lastPushAt,
		LastError:   e.lastErr,
	}, nil
}
