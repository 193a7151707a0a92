package state

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
)

// maxMiningAttempts bounds the proof search so a shard whose difficulty
// has outrun the proof space fails loudly instead of spinning forever.
const maxMiningAttempts = 1_000_000

// Mine drains the mempool, groups the pending transactions by shard and
// mines one block per non-empty shard concurrently. A shard that fails
// to mine is logged and skipped; the other shards still commit. The
// declared stake weight is carried in every mined block and gates the
// stake reward.
func (s *State) Mine(ctx context.Context, declaredStake int64, memory database.MemoryFragment) ([]database.Block, error) {
	txs := s.mempool.Drain()
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	byShard := make(map[string][]database.Tx)
	for _, tx := range txs {
		byShard[tx.ShardID] = append(byShard[tx.ShardID], tx)
	}

	shardIDs := make([]string, 0, len(byShard))
	for shardID := range byShard {
		shardIDs = append(shardIDs, shardID)
	}
	sort.Strings(shardIDs)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var mined []database.Block

	for _, shardID := range shardIDs {
		wg.Add(1)

		go func(shardID string, txs []database.Tx) {
			defer wg.Done()

			block, err := s.mineShard(ctx, shardID, txs, declaredStake, memory)
			if err != nil {
				s.evHandler("state: mine: shard[%s]: ERROR: %s", shardID, err)
				return
			}

			mu.Lock()
			mined = append(mined, block)
			mu.Unlock()

			if s.Worker != nil {
				s.Worker.SignalBroadcast(block)
			}
		}(shardID, byShard[shardID])
	}

	wg.Wait()

	if len(mined) == 0 {
		return nil, fmt.Errorf("mining produced no blocks")
	}

	sort.Slice(mined, func(i, j int) bool { return mined[i].ShardID < mined[j].ShardID })
	return mined, nil
}

// mineShard assembles, mines and commits one block for one shard. The
// shard lock is held only for the snapshot of the tip and for the final
// commit, never across the proof search.
func (s *State) mineShard(ctx context.Context, shardID string, txs []database.Tx, declaredStake int64, memory database.MemoryFragment) (database.Block, error) {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	index := len(ss.blocks)
	prevHash := ss.tip()
	difficulty := ss.difficulty
	actualStake := ss.stakes[s.minerID]
	ss.mu.Unlock()

	valid := s.selectValid(ss, txs)
	if len(valid) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	if memory.Owner == "" {
		memory.Owner = s.minerID
	}

	block, err := database.NewBlock(index, valid, memory, prevHash, difficulty, declaredStake, shardID)
	if err != nil {
		return database.Block{}, err
	}

	if err := mineBlock(ctx, &block, actualStake); err != nil {
		return database.Block{}, err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	// The shard may have advanced while the proof search ran. The mined
	// block is stale in that case and the transactions are lost with it;
	// callers resubmit.
	if block.PreviousHash != ss.tip() {
		return database.Block{}, fmt.Errorf("shard %s advanced during mining", shardID)
	}

	if err := s.commitBlock(ss, block); err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: mine: shard[%s] block[%d] hash[%s] txs[%d]", shardID, block.Index, block.Hash, len(block.Transactions))
	s.evHandler("state: checkpoint: shard[%s] proof[%s]", shardID, shardProof(ss))
	return block, nil
}

// selectValid filters the candidate transactions against current shard
// state: unknown-fingerprint, funded, and either system-signed genesis
// or carrying a verifiable signature. Rejected transactions are logged
// and dropped.
func (s *State) selectValid(ss *shardState, txs []database.Tx) []database.Tx {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	pending := make(map[string]int64)
	seen := make(map[string]struct{})
	valid := make([]database.Tx, 0, len(txs))

	for _, tx := range txs {
		fingerprint := tx.Fingerprint()
		if _, dup := seen[fingerprint]; dup {
			s.evHandler("state: mine: drop tx %s: duplicate in candidate set", fingerprint)
			continue
		}

		if err := s.checkTx(ss, tx, pending); err != nil {
			s.evHandler("state: mine: drop tx %s: %s", fingerprint, err)
			continue
		}

		seen[fingerprint] = struct{}{}
		pending[tx.Sender] += tx.Amount + tx.Fee
		valid = append(valid, tx)
	}

	return valid
}

// mineBlock performs the proof search: a random byte rendered in
// decimal is tried as the memory proof until the block hash clears the
// difficulty. Before the search begins, the declared stake weight is
// checked against the miner's actual stake.
func mineBlock(ctx context.Context, block *database.Block, actualStake int64) error {
	if block.StakeWeight > 0 && actualStake < block.StakeWeight {
		return ErrStakeTooLow
	}

	for attempt := 1; attempt <= maxMiningAttempts; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		block.MemoryProof = strconv.Itoa(rand.Intn(256))
		hash := block.ComputeHash()

		if database.HashSolved(block.Difficulty, hash) {
			block.Hash = hash
			return nil
		}
	}

	return ErrMiningExhausted
}

// commitBlock persists and applies a block. Callers hold the shard
// lock. The disk write happens before the in-memory append so a crash
// between the two replays cleanly.
func (s *State) commitBlock(ss *shardState, block database.Block) error {
	if err := s.storage.Write(block.Hash, []byte(block.Serialize())); err != nil {
		return err
	}

	ss.blocks = append(ss.blocks, block)
	s.applyBlock(ss, block)
	s.adjustDifficulty(ss)
	s.updateReward(len(ss.blocks))

	return nil
}

// applyBlock replays a block's effects onto shard balances and the
// global supply and fingerprint accounting. Callers hold the shard
// lock; the engine lock is taken nested for the global fields.
func (s *State) applyBlock(ss *shardState, block database.Block) {
	var fees int64

	for _, tx := range block.Transactions {
		if tx.Sender == systemAccount {
			ss.balances[tx.Receiver] += tx.Amount

			s.mu.Lock()
			s.processed[tx.Fingerprint()] = struct{}{}
			s.totalMined += tx.Amount
			s.mu.Unlock()
			continue
		}

		ss.balances[tx.Sender] -= tx.Amount + tx.Fee
		ss.balances[tx.Receiver] += tx.Amount
		fees += tx.Fee

		s.mu.Lock()
		s.processed[tx.Fingerprint()] = struct{}{}
		s.mu.Unlock()
	}

	if block.Index == 0 && block.ShardID == "0" && len(block.Transactions) > 0 {
		// The genesis grant carries no reward beyond the grant itself.
		return
	}

	s.mu.Lock()
	reward := s.blockReward
	if s.totalMined+reward > s.genesis.MaxSupply {
		reward = s.genesis.MaxSupply - s.totalMined
		if reward < 0 {
			reward = 0
		}
	}

	stakeBonus := int64(0)
	if block.StakeWeight > 0 {
		stakeBonus = s.stakeReward
		if s.totalMined+reward+stakeBonus > s.genesis.MaxSupply {
			stakeBonus = s.genesis.MaxSupply - s.totalMined - reward
			if stakeBonus < 0 {
				stakeBonus = 0
			}
		}
	}

	s.totalMined += reward + stakeBonus
	s.mu.Unlock()

	ss.balances[block.Memory.Owner] += reward + stakeBonus + fees
}

// UpdateReward applies the halving schedule against one shard's chain
// length and returns the current block reward.
func (s *State) UpdateReward(shardID string) int64 {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	height := len(ss.blocks)
	ss.mu.Unlock()

	s.updateReward(height)
	return s.BlockReward()
}

// updateReward halves the block reward and grows the stake reward five
// percent each time a shard's chain length crosses a halving interval.
func (s *State) updateReward(shardHeight int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shardHeight > 0 && shardHeight%s.genesis.HalvingInterval == 0 {
		s.blockReward /= 2
		s.stakeReward = s.stakeReward * 105 / 100
		s.evHandler("state: halving: shard height[%d] blockReward[%d] stakeReward[%d]", shardHeight, s.blockReward, s.stakeReward)
	}
}
