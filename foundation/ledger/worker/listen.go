package worker

import (
	"net"
	"sync"
	"time"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/dht"
)

// maxGossipPayload bounds a single inbound gossip message.
const maxGossipPayload = 4 * 1024

// readDeadline bounds how long one connection may dribble its payload.
const readDeadline = 5 * time.Second

// registryPruneSize is the handler count above which finished entries
// are swept from the connection registry.
const registryPruneSize = 100

// listenOperations runs the gossip accept loop until shutdown.
func (w *Worker) listenOperations() {
	w.evHandler("worker: listen: G started")
	defer w.evHandler("worker: listen: G completed")

	var mu sync.Mutex
	registry := make(map[uint64]bool)
	var nextID uint64

	for {
		conn, err := w.listener.Accept()
		if err != nil {
			if w.isShutdown() {
				return
			}

			w.evHandler("worker: listen: accept: ERROR: %s", err)
			continue
		}

		mu.Lock()
		id := nextID
		nextID++
		registry[id] = false

		if len(registry) > registryPruneSize {
			for k, done := range registry {
				if done {
					delete(registry, k)
				}
			}
		}
		mu.Unlock()

		go func(id uint64, conn net.Conn) {
			defer func() {
				conn.Close()
				mu.Lock()
				registry[id] = true
				mu.Unlock()
			}()

			w.handleConn(conn)
		}(id, conn)
	}
}

// handleConn processes one inbound gossip connection: either a
// bootstrap request, answered with the peer list, or a serialized
// block, dispatched to the sync path.
func (w *Worker) handleConn(conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(readDeadline))

	buf := make([]byte, maxGossipPayload)
	n, err := conn.Read(buf)
	if err != nil {
		w.evHandler("worker: listen: read: ERROR: %s", err)
		return
	}

	payload := string(buf[:n])

	if payload == dht.BootstrapRequest {
		w.handleBootstrap(conn)
		return
	}

	shardID, hash, err := database.PeekBlockIdentity(payload)
	if err != nil {
		w.evHandler("worker: listen: malformed payload dropped: %s", err)
		return
	}

	if w.state.HasBlock(shardID, hash) {
		return
	}

	block, err := database.ParseBlock(payload)
	if err != nil {
		w.evHandler("worker: listen: malformed block dropped: %s", err)
		return
	}

	if err := w.state.ProcessPeerBlock(block); err != nil {
		w.evHandler("worker: listen: block[%s]: %s", hash, err)
		return
	}

	// New chain state may unblock queued transactions.
	if w.state.MempoolCount() > 0 {
		w.SignalStartMining()
	}
}

// handleBootstrap answers a seed request with the known peer list.
func (w *Worker) handleBootstrap(conn net.Conn) {
	peers := w.state.Peers()
	if peers == nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(readDeadline))

	if _, err := conn.Write(dht.FormatPeerList(peers.Copy())); err != nil {
		w.evHandler("worker: listen: bootstrap reply: ERROR: %s", err)
		return
	}

	w.evHandler("worker: listen: served bootstrap: peers[%d]", peers.Count())
}
