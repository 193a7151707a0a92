// Package mempool maintains the FIFO queue of pending transactions fed
// by the API and by gossip, and drained by mining.
package mempool

import (
	"sync"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
)

// Mempool represents the pending transaction queue. Admission order is
// preserved so mining drains transactions first-in first-out.
type Mempool struct {
	mu    sync.Mutex
	queue []database.Tx
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Submit appends a transaction to the queue. Validation happens before
// admission; the pool itself accepts anything it is handed.
func (mp *Mempool) Submit(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.queue = append(mp.queue, tx)
	return len(mp.queue)
}

// Drain atomically removes and returns the full queue. The swap happens
// under the lock; processing the returned slice does not.
func (mp *Mempool) Drain() []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	txs := mp.queue
	mp.queue = nil
	return txs
}

// Count returns the current number of pending transactions.
func (mp *Mempool) Count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.queue)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.queue = nil
}
