// Package persist keeps the canvas store durable: it observes store
// mutations and writes debounced snapshots to keyed storage, and restores
// the last snapshot at startup.
package persist

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arlide/mural/internal/apperr"
	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/checksum"
	"github.com/arlide/mural/internal/models"
	"github.com/arlide/mural/internal/snapshot"
)

// DefaultDebounce is the quiet period after the last store mutation before
// a snapshot is written.
const DefaultDebounce = 500 * time.Millisecond

// Gateway debounces store changes into durable snapshot writes.
//
// Concurrency model: a single internal loop (goroutine) owns the debounce
// timer and the last-written checksum. Store callbacks and Flush
// communicate with the loop through channels, so no mutexes are required.
// Write failures are logged and swallowed; the next change simply schedules
// a new attempt.
type Gateway struct {
	store    *canvas.Store
	db       snapshot.Provider
	logger   *slog.Logger
	debounce time.Duration

	changedCh chan struct{}
	flushCh   chan chan error
	stopCh    chan struct{}
	stopped   chan struct{}
	closed    atomic.Bool

	unsubscribe func()
}

// NewGateway creates a gateway observing store and starts its write loop.
// A non-positive debounce falls back to DefaultDebounce.
func NewGateway(store *canvas.Store, db snapshot.Provider, logger *slog.Logger, debounce time.Duration) *Gateway {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	g := &Gateway{
		store:     store,
		db:        db,
		logger:    logger,
		debounce:  debounce,
		changedCh: make(chan struct{}, 1),
		flushCh:   make(chan chan error),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	g.unsubscribe = store.Subscribe(func(canvas.Event) {
		select {
		case g.changedCh <- struct{}{}:
		default:
			// A change is already pending; the loop will pick up the
			// latest store state when it writes.
		}
	})
	go g.run()
	return g
}

// Restore loads the live snapshot and feeds it through the store's
// bulk-load path. A missing or unreadable record leaves the canvas empty;
// this is the safe degraded state, never a failure.
func (g *Gateway) Restore() {
	rec, err := g.db.Load(snapshot.LiveKey)
	if errors.Is(err, apperr.ErrNotFound) {
		g.logger.Info("persist: no snapshot, starting empty")
		return
	}
	if err != nil {
		g.logger.Warn("persist: restore failed, starting empty", slog.String("error", err.Error()))
		return
	}
	g.store.ReplaceAll(rec.Nodes, rec.Edges)
	g.logger.Info("persist: snapshot restored",
		slog.Int("nodes", len(rec.Nodes)),
		slog.Int("edges", len(rec.Edges)),
		slog.Int64("saved_at", rec.SavedAt))
}

// Flush writes the current canvas immediately, bypassing the debounce and
// cancelling any pending write. Used by import (explicit imports must be
// durable right away) and at shutdown.
func (g *Gateway) Flush() error {
	if g.closed.Load() {
		return nil
	}
	resp := make(chan error, 1)
	select {
	case g.flushCh <- resp:
	case <-g.stopped:
		return nil
	}
	select {
	case err := <-resp:
		return err
	case <-g.stopped:
		return nil
	}
}

// Close detaches the gateway from the store and cancels any pending write.
// No write occurs after Close returns.
func (g *Gateway) Close() {
	if g.closed.CompareAndSwap(false, true) {
		g.unsubscribe()
		close(g.stopCh)
	}
	<-g.stopped
}

func (g *Gateway) run() {
	defer close(g.stopped)

	// Trailing-edge debounce: every change restarts the quiet-period timer.
	var timer *time.Timer
	var timerCh <-chan time.Time
	lastSum := ""

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(g.debounce)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(g.debounce)
	}

	for {
		select {
		case <-g.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case <-g.changedCh:
			schedule()

		case <-timerCh:
			lastSum, _ = g.write(lastSum)

		case resp := <-g.flushCh:
			if timer != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			var err error
			lastSum, err = g.write(lastSum)
			resp <- err
		}
	}
}

// write snapshots the store, sanitizes every note, and saves one record
// under the fixed live key. Writes with a payload identical to the last
// successful one are skipped.
func (g *Gateway) write(lastSum string) (string, error) {
	notes, edges := g.store.Snapshot()
	notes = canvas.SanitizeAll(notes)

	payload, err := json.Marshal(struct {
		Nodes []models.Note `json:"nodes"`
		Edges []models.Edge `json:"edges"`
	}{notes, edges})
	if err != nil {
		g.logger.Error("persist: marshal snapshot failed", slog.String("error", err.Error()))
		return lastSum, err
	}
	sum := checksum.Sum(payload)
	if sum == lastSum {
		return lastSum, nil
	}

	if err := g.db.Save(snapshot.LiveKey, notes, edges, time.Now()); err != nil {
		g.logger.Warn("persist: snapshot write failed", slog.String("error", err.Error()))
		return lastSum, err
	}
	g.logger.Debug("persist: snapshot written",
		slog.Int("nodes", len(notes)),
		slog.Int("edges", len(edges)))
	return sum, nil
}
