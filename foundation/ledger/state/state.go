// Package state is the core API for the sharded ledger and implements
// all the business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/dht"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/mempool"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/shard"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/storage"
)

// systemAccount is the synthetic sender used by the genesis grant. It is
// only ever valid inside block zero of a shard.
const systemAccount = "system"

// Core error variables surfaced by the engine.
var (
	ErrNoTransactions      = errors.New("no transactions in mempool")
	ErrDuplicateTx         = errors.New("transaction already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStakeTooLow         = errors.New("miner stake below declared stake weight")
	ErrMiningExhausted     = errors.New("mining attempts exhausted")
	ErrUnknownProposal     = errors.New("unknown proposal")
	ErrNotCrossShard       = errors.New("transaction routes to a single shard")
)

// =============================================================================

// EventHandler defines a function that is called when events occur in
// the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented
// by any package providing support for mining signals and block gossip.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalBroadcast(block database.Block)
}

// =============================================================================

// Config represents the configuration required to start the engine.
type Config struct {
	NodeID    string
	MinerID   string
	DBPath    string
	Genesis   genesis.Genesis
	Peers     *dht.Table
	EvHandler EventHandler
}

// shardState carries the per-shard chain and account state. Every field
// is guarded by the shard's own mutex; cross-shard transfers acquire
// two of these in lexicographic shard-id order.
type shardState struct {
	mu         sync.Mutex
	id         string
	blocks     []database.Block
	balances   map[string]int64
	stakes     map[string]int64
	difficulty int
}

// tip returns the hash of the last block, or the zero hash for an
// empty shard. Callers hold the shard lock.
func (ss *shardState) tip() string {
	if len(ss.blocks) == 0 {
		return "0"
	}

	return ss.blocks[len(ss.blocks)-1].Hash
}

// Proposal represents a governance proposal accruing stake-weighted votes.
type Proposal struct {
	ID          string `json:"id"`
	Proposer    string `json:"proposer"`
	Description string `json:"description"`
	Votes       int64  `json:"votes"` // Stake-weighted, micro-units.
}

// State manages the sharded ledger.
type State struct {
	nodeID    string
	minerID   string
	evHandler EventHandler
	genesis   genesis.Genesis

	// mu guards the shard map, the processed fingerprint set, the
	// mutable reward values, supply accounting and governance. It is
	// never held across mining, network or file I/O.
	mu          sync.Mutex
	shards      map[string]*shardState
	processed   map[string]struct{}
	blockReward int64
	stakeReward int64
	totalMined  int64
	proposals   map[string]*Proposal

	mempool *mempool.Mempool
	router  *shard.Router
	storage *storage.Store
	peers   *dht.Table

	Worker Worker
}

// New constructs the engine, opens the block store and either replays
// the persisted chain or seeds the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	strg, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	gen := cfg.Genesis
	if gen.MaxShards == 0 {
		gen = genesis.Default()
	}

	s := State{
		nodeID:      cfg.NodeID,
		minerID:     cfg.MinerID,
		evHandler:   ev,
		genesis:     gen,
		shards:      make(map[string]*shardState),
		processed:   make(map[string]struct{}),
		blockReward: gen.BlockReward,
		stakeReward: gen.StakeReward,
		proposals:   make(map[string]*Proposal),
		mempool:     mempool.New(),
		router:      shard.NewRouter(gen.MaxShards),
		storage:     strg,
		peers:       cfg.Peers,
	}

	restored, err := s.replay()
	if err != nil {
		strg.Close()
		return nil, err
	}

	if !restored {
		if err := s.seedGenesis(); err != nil {
			strg.Close()
			return nil, err
		}
	}

	// Balances declared in the genesis parameters are initial supply,
	// not mined coins. They are re-credited on every start because
	// replay rebuilds the balance tables from zero.
	if len(gen.Balances) > 0 {
		ss := s.getShard("0")
		ss.mu.Lock()
		for account, amount := range gen.Balances {
			ss.balances[account] += amount
		}
		ss.mu.Unlock()
	}

	return &s, nil
}

// Shutdown cleanly brings the engine down, flushing the block store.
func (s *State) Shutdown() error {
	defer s.storage.Close()

	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// getShard returns the state for a shard, creating it on first use.
func (s *State) getShard(shardID string) *shardState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, exists := s.shards[shardID]
	if !exists {
		ss = &shardState{
			id:         shardID,
			balances:   make(map[string]int64),
			stakes:     make(map[string]int64),
			difficulty: s.genesis.InitialDifficulty,
		}
		s.shards[shardID] = ss
	}

	return ss
}

// replay loads every persisted block and reapplies it to in-memory
// state, rebuilding balances, stakes and the fingerprint index. It
// reports whether any blocks were restored.
func (s *State) replay() (bool, error) {
	byShard := make(map[string][]database.Block)

	err := s.storage.ForEach(func(hash string, data []byte) error {
		block, err := database.ParseBlock(string(data))
		if err != nil {
			return fmt.Errorf("replay block %s: %w", hash, err)
		}

		byShard[block.ShardID] = append(byShard[block.ShardID], block)
		return nil
	})
	if err != nil {
		return false, err
	}

	if len(byShard) == 0 {
		return false, nil
	}

	shardIDs := make([]string, 0, len(byShard))
	for shardID := range byShard {
		shardIDs = append(shardIDs, shardID)
	}
	sort.Strings(shardIDs)

	for _, shardID := range shardIDs {
		blocks := byShard[shardID]
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })

		ss := s.getShard(shardID)
		ss.mu.Lock()
		for _, block := range blocks {
			if block.PreviousHash != ss.tip() {
				ss.mu.Unlock()
				return false, fmt.Errorf("replay shard %s: block %d does not link to tip", shardID, block.Index)
			}

			ss.blocks = append(ss.blocks, block)
			s.applyBlock(ss, block)
			s.updateReward(len(ss.blocks))
		}
		ss.difficulty = blocks[len(blocks)-1].Difficulty
		ss.mu.Unlock()

		s.evHandler("state: replay: shard[%s] blocks[%d]", shardID, len(blocks))
	}

	return true, nil
}

// genesisTime is the fixed timestamp of block zero, in microseconds.
const genesisTime = 1

// seedGenesis creates block zero in shard "0", crediting the genesis
// account. Every field of block zero is deterministic so independent
// nodes agree on its hash and can link gossiped blocks to it.
func (s *State) seedGenesis() error {
	grant, err := genesisGrantTx()
	if err != nil {
		return err
	}

	memory := database.MemoryFragment{
		Type:        "genesis",
		Description: "chain origin",
		Owner:       systemAccount,
	}

	block, err := database.NewBlock(0, []database.Tx{grant}, memory, "0", 1, 0, "0")
	if err != nil {
		return err
	}
	block.Timestamp = genesisTime

	for i := 0; ; i++ {
		block.MemoryProof = strconv.Itoa(i)
		hash := block.ComputeHash()
		if database.HashSolved(block.Difficulty, hash) {
			block.Hash = hash
			break
		}
	}

	ss := s.getShard("0")
	ss.mu.Lock()
	defer ss.mu.Unlock()

	return s.commitBlock(ss, block)
}

// genesisGrantTx builds the single transaction of block zero.
func genesisGrantTx() (database.Tx, error) {
	tx, err := database.NewTx(systemAccount, genesis.GenesisAccount, genesis.GenesisGrant, 0, "")
	if err != nil {
		return database.Tx{}, err
	}

	tx.ShardID = "0"
	tx.Timestamp = genesisTime
	return tx, nil
}
