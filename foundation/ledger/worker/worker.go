// Package worker implements the background workflows for the node:
// the gossip listener, outbound block broadcast and mining signals.
package worker

import (
	"fmt"
	"net"
	"sync"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/state"
)

// Config represents the settings for starting the worker.
type Config struct {
	ListenPort    int
	DeclaredStake int64
	MemoriesDir   string
	EvHandler     state.EventHandler
}

// Worker manages the gossip and mining workflows for the node.
type Worker struct {
	state         *state.State
	listener      net.Listener
	declaredStake int64
	memoriesDir   string
	wg            sync.WaitGroup
	shut          chan struct{}
	startMining   chan bool
	cancelMining  chan bool
	broadcast     chan database.Block
	evHandler     state.EventHandler
}

// Run creates a worker, registers it with the state engine and starts
// the background goroutines. Failure to bind the gossip port is fatal.
func Run(st *state.State, cfg Config) (*Worker, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ListenPort))
	if err != nil {
		return nil, fmt.Errorf("bind gossip port %d: %w", cfg.ListenPort, err)
	}

	w := Worker{
		state:         st,
		listener:      listener,
		declaredStake: cfg.DeclaredStake,
		memoriesDir:   cfg.MemoriesDir,
		shut:          make(chan struct{}),
		startMining:   make(chan bool, 1),
		cancelMining:  make(chan bool, 1),
		broadcast:     make(chan database.Block, maxBroadcastQueue),
		evHandler:     ev,
	}

	st.Worker = &w

	operations := []func(){
		w.listenOperations,
		w.miningOperations,
		w.broadcastOperations,
	}

	g := len(operations)
	w.wg.Add(g)

	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	w.evHandler("worker: run: gossip listening on %s", listener.Addr())
	return &w, nil
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates all the background goroutines.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.SignalCancelMining()

	close(w.shut)
	w.listener.Close()
	w.wg.Wait()
}

// SignalStartMining requests a mining pass. A signal already pending
// means a pass will run anyway, so the request is dropped.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
}

// SignalCancelMining stops any mining pass in flight.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
}

// SignalBroadcast queues a block for fanout to the peer set. A full
// queue drops the block; peers recover it through later gossip.
func (w *Worker) SignalBroadcast(block database.Block) {
	select {
	case w.broadcast <- block:
	default:
		w.evHandler("worker: broadcast: queue full, dropping block[%s]", block.Hash)
	}
}

// Addr returns the bound address of the gossip listener.
func (w *Worker) Addr() net.Addr {
	return w.listener.Addr()
}

// isShutdown reports whether the worker has been asked to stop.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
