package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
)

// changeChannel is the Postgres NOTIFY channel the migration triggers fire on
// every insert/delete against knowledge_base and memos.
const changeChannel = "orbit_changes"

// Watcher subscribes to collection change notifications over a dedicated
// connection. Each notification means "the collection changed, reload a full
// snapshot"; no payload diffing, the store is the single source of truth.
type Watcher struct {
	databaseURL string
	events      chan struct{}
	errs        chan error
}

func NewWatcher(databaseURL string) *Watcher {
	return &Watcher{
		databaseURL: databaseURL,
		// Capacity 1: pending signals coalesce, a reload already covers them.
		events: make(chan struct{}, 1),
		errs:   make(chan error, 1),
	}
}

// Events delivers one signal per batch of collection changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Errors surfaces subscription failures. The watcher keeps reconnecting after
// reporting one; consumers use it to flag degraded state, not to stop.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Run blocks listening for notifications until ctx is canceled. A lost
// connection is retried with a fixed backoff; every successful (re)connect
// emits a synthetic event so the consumer reloads anything it missed.
func (w *Watcher) Run(ctx context.Context) {
	const backoff = 3 * time.Second
	for {
		if err := w.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.reportError(err)
			log.Printf("store: change listener lost, retrying in %s: %v", backoff, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, w.databaseURL)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return fmt.Errorf("listen %s: %w", changeChannel, err)
	}

	// Changes may have landed while we were disconnected.
	w.signal()

	for {
		if _, err := conn.WaitForNotification(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		w.signal()
	}
}

func (w *Watcher) signal() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
