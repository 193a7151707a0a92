package worker

import (
	"net"
	"sync"
	"time"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
)

const (
	// maxBroadcastQueue bounds blocks waiting for fanout.
	maxBroadcastQueue = 16

	// fanoutPeers is the number of DHT-nearest peers a block is sent to.
	fanoutPeers = 10

	// connectRetries is the per-peer connection attempt budget.
	connectRetries = 3

	// backoffStep grows the wait linearly between connection attempts.
	backoffStep = 100 * time.Millisecond
)

// broadcastOperations drains the broadcast queue until shutdown.
func (w *Worker) broadcastOperations() {
	w.evHandler("worker: broadcast: G started")
	defer w.evHandler("worker: broadcast: G completed")

	for {
		select {
		case block := <-w.broadcast:
			w.fanout(block)
		case <-w.shut:
			return
		}
	}
}

// fanout sends one block to the nearest peers. Every peer gets its own
// goroutine and all of them are joined before the next block is taken
// off the queue. A peer failing is logged, never fatal.
func (w *Worker) fanout(block database.Block) {
	peers := w.state.Peers()
	if peers == nil {
		return
	}

	targets := peers.FindNearest(w.state.NodeID(), fanoutPeers)
	if len(targets) == 0 {
		return
	}

	payload := []byte(block.Serialize())

	var wg sync.WaitGroup
	wg.Add(len(targets))

	for _, peer := range targets {
		go func(addr string) {
			defer wg.Done()

			if err := sendPayload(addr, payload); err != nil {
				w.evHandler("worker: broadcast: peer %s: %s", addr, err)
				return
			}

			w.evHandler("worker: broadcast: block[%s] -> %s", block.Hash, addr)
		}(peer.Addr())
	}

	wg.Wait()
}

// sendPayload connects with linear backoff retries and writes the
// framed block in one shot.
func sendPayload(addr string, payload []byte) error {
	var lastErr error

	for attempt := 1; attempt <= connectRetries; attempt++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * backoffStep)
			continue
		}

		_, err = conn.Write(payload)
		conn.Close()
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * backoffStep)
			continue
		}

		return nil
	}

	return lastErr
}
