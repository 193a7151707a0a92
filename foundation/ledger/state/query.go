package state

import (
	"sort"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
)

// GetBalance returns the account balance within one shard, in
// micro-units. Unknown accounts and untouched shards report zero.
func (s *State) GetBalance(account string, shardID string) int64 {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	return ss.balances[account]
}

// GetStake returns the staked amount for an account within one shard.
func (s *State) GetStake(account string, shardID string) int64 {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	return ss.stakes[account]
}

// ShardStatus is a point-in-time summary of one shard.
type ShardStatus struct {
	ShardID    string `json:"shard_id"`
	Blocks     int    `json:"blocks"`
	Difficulty int    `json:"difficulty"`
	TipHash    string `json:"tip_hash"`
}

// ShardStatuses returns a summary of every shard seen so far, ordered
// by shard id.
func (s *State) ShardStatuses() []ShardStatus {
	s.mu.Lock()
	shards := make([]*shardState, 0, len(s.shards))
	for _, ss := range s.shards {
		shards = append(shards, ss)
	}
	s.mu.Unlock()

	statuses := make([]ShardStatus, 0, len(shards))
	for _, ss := range shards {
		ss.mu.Lock()
		statuses = append(statuses, ShardStatus{
			ShardID:    ss.id,
			Blocks:     len(ss.blocks),
			Difficulty: ss.difficulty,
			TipHash:    ss.tip(),
		})
		ss.mu.Unlock()
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ShardID < statuses[j].ShardID })
	return statuses
}

// ShardBlocks returns a copy of one shard's chain.
func (s *State) ShardBlocks(shardID string) []database.Block {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	blocks := make([]database.Block, len(ss.blocks))
	copy(blocks, ss.blocks)
	return blocks
}

// LatestBlock returns the tip block of a shard and whether the shard
// has any blocks at all.
func (s *State) LatestBlock(shardID string) (database.Block, bool) {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if len(ss.blocks) == 0 {
		return database.Block{}, false
	}

	return ss.blocks[len(ss.blocks)-1], true
}

// BlocksTotal returns the number of committed blocks across all shards.
func (s *State) BlocksTotal() int {
	total := 0
	for _, status := range s.ShardStatuses() {
		total += status.Blocks
	}

	return total
}

// TotalMined returns the cumulative minted supply in micro-units.
func (s *State) TotalMined() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalMined
}

// BlockReward returns the current per-block reward in micro-units.
func (s *State) BlockReward() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.blockReward
}

// StakeReward returns the current staking bonus in micro-units.
func (s *State) StakeReward() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stakeReward
}

// Genesis returns the chain parameters the engine was started with.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// MaxShards returns the shard count the router balances across.
func (s *State) MaxShards() int {
	return s.router.MaxShards()
}

// ShardLoad returns the router's admission count for a shard.
func (s *State) ShardLoad(shardID string) int {
	return s.router.Load(shardID)
}

// AssignShard routes a sender through the load-aware router.
func (s *State) AssignShard(sender string) string {
	return s.router.Assign(sender)
}
