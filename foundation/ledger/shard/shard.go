// Package shard implements the deterministic transaction to shard
// routing with a load-aware override.
package shard

import (
	"strconv"
	"sync"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
)

// rebalanceThreshold is the number of admissions a shard absorbs before
// the router starts steering new traffic to a lighter shard.
const rebalanceThreshold = 1_000

// Router assigns transactions to shards. The primary assignment is a
// pure function of the sender; the load override is advisory only and
// two nodes may legitimately disagree, the transaction fingerprint
// remains the authoritative identity.
type Router struct {
	maxShards int

	mu       sync.Mutex
	loads    map[string]int // Admissions per shard since startup.
	baseline map[string]int // Admission count at the last rebalance.
}

// NewRouter constructs a router over the specified number of shards.
func NewRouter(maxShards int) *Router {
	if maxShards < 1 {
		maxShards = 1
	}

	return &Router{
		maxShards: maxShards,
		loads:     make(map[string]int),
		baseline:  make(map[string]int),
	}
}

// Primary returns the deterministic shard for a sender: the first byte
// of the sender's SHA-256 modulo the shard count.
func (r *Router) Primary(sender string) string {
	hash := signature.Hash([]byte(sender))
	return strconv.Itoa(int(hash[0]) % r.maxShards)
}

// Assign selects the shard for a transaction. When the primary shard
// has absorbed more than the rebalance threshold since its last
// rebalance, the first shard with a strictly lower admission count
// takes the traffic instead.
func (r *Router) Assign(sender string) string {
	primary := r.Primary(sender)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loads[primary]-r.baseline[primary] <= rebalanceThreshold {
		return primary
	}

	for i := 0; i < r.maxShards; i++ {
		candidate := strconv.Itoa(i)
		if r.loads[candidate] < r.loads[primary] {
			r.baseline[primary] = r.loads[primary]
			return candidate
		}
	}

	return primary
}

// Admit records a successful admission into the specified shard. The
// counter update happens after admission so rejected transactions do
// not skew routing.
func (r *Router) Admit(shardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loads[shardID]++
}

// Load returns the admission count for a shard since startup.
func (r *Router) Load(shardID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loads[shardID]
}

// MaxShards returns the number of shards the router balances across.
func (r *Router) MaxShards() int {
	return r.maxShards
}
