package state

import (
	"fmt"
	"sort"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/dht"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
)

// ProcessPeerBlock validates and commits a block received from the
// overlay. Re-delivery of an already committed block is not an error;
// gossip fans out the same block along many paths.
func (s *State) ProcessPeerBlock(block database.Block) error {
	exists, err := s.storage.Exists(block.Hash)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ss := s.getShard(block.ShardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := s.validatePeerBlock(ss, block); err != nil {
		return fmt.Errorf("peer block rejected: %w", err)
	}

	if err := s.commitBlock(ss, block); err != nil {
		return err
	}

	s.evHandler("state: sync: shard[%s] accepted peer block[%d] hash[%s]", block.ShardID, block.Index, block.Hash)
	return nil
}

// ShardProof returns a digest of one shard's account state: the hex
// SHA-256 over the sorted account,balance pairs. Two nodes holding the
// same shard state produce the same proof.
func (s *State) ShardProof(shardID string) string {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	return shardProof(ss)
}

// shardProof computes the digest. Callers hold the shard lock.
func shardProof(ss *shardState) string {
	accounts := make([]string, 0, len(ss.balances))
	for account := range ss.balances {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	var concat []byte
	for _, account := range accounts {
		concat = append(concat, fmt.Sprintf("%s:%d;", account, ss.balances[account])...)
	}

	return signature.HashHex(concat)
}

// HasBlock reports whether a shard's chain already carries a block
// with the specified hash.
func (s *State) HasBlock(shardID string, hash string) bool {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	for i := len(ss.blocks) - 1; i >= 0; i-- {
		if ss.blocks[i].Hash == hash {
			return true
		}
	}

	return false
}

// NodeID returns the node identity the engine was configured with.
func (s *State) NodeID() string {
	return s.nodeID
}

// MinerID returns the reward beneficiary account.
func (s *State) MinerID() string {
	return s.minerID
}

// Peers returns the node's peer table. It is nil when the node runs
// without an overlay.
func (s *State) Peers() *dht.Table {
	return s.peers
}

// KnownPeers returns the number of peers in the table.
func (s *State) KnownPeers() int {
	if s.peers == nil {
		return 0
	}

	return s.peers.Count()
}
