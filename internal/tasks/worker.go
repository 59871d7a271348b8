package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tsheringpenjor/concierge/internal/agent"
	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/database"
	"github.com/tsheringpenjor/concierge/internal/sheets"
)

const (
	checkoutInterval = time.Hour
	reindexInterval  = 5 * time.Minute
	pruneInterval    = 24 * time.Hour

	// dedupRetentionDays bounds the processed-message table. WhatsApp does
	// not redeliver webhooks older than a day, so a week is plenty.
	dedupRetentionDays = 7
)

// Worker runs the periodic maintenance loops: releasing checked-out rooms,
// rebuilding the room index after spreadsheet edits, and pruning the
// webhook dedup table.
type Worker struct {
	store        *sheets.Store
	manager      *booking.Manager
	index        *agent.RoomIndex
	db           *database.DB
	checkoutHour int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(store *sheets.Store, manager *booking.Manager, index *agent.RoomIndex, db *database.DB, checkoutHour int) *Worker {
	return &Worker{
		store:        store,
		manager:      manager,
		index:        index,
		db:           db,
		checkoutHour: checkoutHour,
	}
}

// Start launches the maintenance loops.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	fmt.Println("Background tasks started")

	w.wg.Add(3)
	go w.loop(ctx, checkoutInterval, w.runCheckouts)
	go w.loop(ctx, reindexInterval, w.runReindex)
	go w.loop(ctx, pruneInterval, w.runPrune)
}

// Stop halts all loops and waits for in-flight runs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	fmt.Println("Background tasks stopped")
}

func (w *Worker) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	defer w.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

// runCheckouts frees rooms whose guests have left.
func (w *Worker) runCheckouts(ctx context.Context) {
	released, err := w.manager.ReleaseCheckouts(ctx, w.checkoutHour)
	if err != nil {
		fmt.Printf("Warning: checkout sweep failed: %v\n", err)
		return
	}
	if released > 0 {
		fmt.Printf("Checkout sweep released %d stays\n", released)
		if err := w.index.Rebuild(ctx); err != nil {
			fmt.Printf("Warning: reindex after checkout failed: %v\n", err)
		}
	}
}

// runReindex rebuilds the room index when the spreadsheet changed since the
// last pass.
func (w *Worker) runReindex(ctx context.Context) {
	if w.store.RecentInvalidations(reindexInterval) == 0 {
		return
	}
	if err := w.index.Rebuild(ctx); err != nil {
		fmt.Printf("Warning: scheduled reindex failed: %v\n", err)
	}
}

func (w *Worker) runPrune(ctx context.Context) {
	n, err := w.db.PruneProcessed(dedupRetentionDays)
	if err != nil {
		fmt.Printf("Warning: dedup prune failed: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Printf("Pruned %d old dedup records\n", n)
	}
}
