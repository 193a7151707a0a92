package worker

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/state"
)

// miningOperations waits for mining signals and runs one pass per
// signal until shutdown.
func (w *Worker) miningOperations() {
	w.evHandler("worker: mining: G started")
	defer w.evHandler("worker: mining: G completed")

	for {
		select {
		case <-w.startMining:
			if w.isShutdown() {
				return
			}
			w.runMiningOperation()
		case <-w.shut:
			return
		}
	}
}

// runMiningOperation performs one mining pass over the mempool. The
// pass is cancellable through the cancelMining signal and at shutdown.
func (w *Worker) runMiningOperation() {
	if w.state.MempoolCount() == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-w.cancelMining:
			cancel()
		case <-w.shut:
			cancel()
		case <-done:
		}
	}()
	defer close(done)

	memory := database.MemoryFragment{
		Type:        "memory",
		LocalPath:   filepath.Join(w.memoriesDir, time.Now().UTC().Format("20060102T150405.000000")),
		Description: "mined checkpoint",
		Owner:       w.state.MinerID(),
	}

	blocks, err := w.state.Mine(ctx, w.declaredStake, memory)
	if err != nil {
		if errors.Is(err, state.ErrNoTransactions) {
			return
		}

		w.evHandler("worker: mining: ERROR: %s", err)
		return
	}

	w.evHandler("worker: mining: pass complete: blocks[%d]", len(blocks))
}
