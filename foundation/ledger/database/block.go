package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
)

// Block represents a group of transactions mined into one shard of the
// chain. StakeWeight is the stake the miner declared when producing the
// block and gates admission when non-zero.
type Block struct {
	Index        int            `json:"index"`
	Timestamp    int64          `json:"timestamp"` // Microseconds.
	Transactions []Tx           `json:"transactions"`
	Memory       MemoryFragment `json:"memory"`
	PreviousHash string         `json:"previous_hash"`
	Difficulty   int            `json:"difficulty"`
	MemoryProof  string         `json:"memory_proof"`
	StakeWeight  int64          `json:"stake_weight"`
	ShardID      string         `json:"shard_id"`
	Hash         string         `json:"hash"`
}

// NewBlock constructs a draft block on top of the specified previous
// hash. The hash field is not set until mining solves the proof.
func NewBlock(index int, txs []Tx, memory MemoryFragment, previousHash string, difficulty int, stakeWeight int64, shardID string) (Block, error) {
	if index < 0 {
		return Block{}, fmt.Errorf("%w: block index %d is negative", ErrInvalidEntity, index)
	}
	if difficulty < 1 {
		return Block{}, fmt.Errorf("%w: block difficulty %d below 1", ErrInvalidEntity, difficulty)
	}
	if previousHash == "" {
		return Block{}, fmt.Errorf("%w: previous hash is empty", ErrInvalidEntity)
	}
	if shardID == "" {
		return Block{}, fmt.Errorf("%w: shard id is empty", ErrInvalidEntity)
	}
	if err := memory.Validate(); err != nil {
		return Block{}, err
	}

	b := Block{
		Index:        index,
		Timestamp:    time.Now().UTC().UnixMicro(),
		Transactions: txs,
		Memory:       memory,
		PreviousHash: previousHash,
		Difficulty:   difficulty,
		StakeWeight:  stakeWeight,
		ShardID:      shardID,
	}

	return b, nil
}

// ComputeHash returns the SHA-256 hash over the block's identity fields.
// The stored hash must always recompute to this value.
func (b Block) ComputeHash() string {
	var sb strings.Builder

	sb.WriteString(strconv.Itoa(b.Index))
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	for _, tx := range b.Transactions {
		sb.WriteString(tx.Fingerprint())
	}
	sb.WriteString(b.Memory.RemoteURL)
	sb.WriteString(b.PreviousHash)
	sb.WriteString(b.MemoryProof)
	sb.WriteString(strconv.FormatInt(b.StakeWeight, 10))
	sb.WriteString(b.ShardID)

	return signature.HashHex([]byte(sb.String()))
}

// HashSolved checks a hash carries the required number of leading
// zero hex characters.
func HashSolved(difficulty int, hash string) bool {
	const match = "0000000000000000"

	if len(hash) != 64 || difficulty > len(match) {
		return false
	}

	return strings.HasPrefix(hash, match[:difficulty])
}

// =============================================================================

// Serialize renders the block in its wire form. The shard id and hash
// are the trailing fields so receivers can identify a block without
// parsing the full payload.
func (b Block) Serialize() string {
	txs := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = tx.Serialize()
	}

	fields := []string{
		strconv.Itoa(b.Index),
		strconv.FormatInt(b.Timestamp, 10),
		strings.Join(txs, ";"),
		b.Memory.serialize(),
		escapeField(b.PreviousHash),
		escapeField(b.MemoryProof),
		strconv.FormatInt(b.StakeWeight, 10),
		strconv.Itoa(b.Difficulty),
		escapeField(b.ShardID),
		escapeField(b.Hash),
	}

	return strings.Join(fields, "|")
}

// ParseBlock consumes the wire form of a block.
func ParseBlock(s string) (Block, error) {
	fields := strings.Split(s, "|")
	if len(fields) != 10 {
		return Block{}, fmt.Errorf("%w: block has %d fields, expected 10", ErrInvalidEntity, len(fields))
	}

	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return Block{}, fmt.Errorf("%w: block index: %v", ErrInvalidEntity, err)
	}

	timestamp, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Block{}, fmt.Errorf("%w: block timestamp: %v", ErrInvalidEntity, err)
	}

	var txs []Tx
	if fields[2] != "" {
		for _, raw := range strings.Split(fields[2], ";") {
			tx, err := ParseTx(raw)
			if err != nil {
				return Block{}, err
			}
			txs = append(txs, tx)
		}
	}

	memory, err := parseFragment(fields[3])
	if err != nil {
		return Block{}, err
	}

	stakeWeight, err := strconv.ParseInt(fields[6], 10, 64)
	if err != nil {
		return Block{}, fmt.Errorf("%w: block stake weight: %v", ErrInvalidEntity, err)
	}

	difficulty, err := strconv.Atoi(fields[7])
	if err != nil {
		return Block{}, fmt.Errorf("%w: block difficulty: %v", ErrInvalidEntity, err)
	}

	b := Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: txs,
		Memory:       memory,
		PreviousHash: unescapeField(fields[4]),
		MemoryProof:  unescapeField(fields[5]),
		StakeWeight:  stakeWeight,
		Difficulty:   difficulty,
		ShardID:      unescapeField(fields[8]),
		Hash:         unescapeField(fields[9]),
	}

	return b, nil
}

// PeekBlockIdentity reads the shard id and hash from the tail of a
// serialized block without a full parse. Gossip uses this to drop
// blocks the shard already holds.
func PeekBlockIdentity(s string) (shardID string, hash string, err error) {
	fields := strings.Split(s, "|")
	if len(fields) != 10 {
		return "", "", fmt.Errorf("%w: block has %d fields, expected 10", ErrInvalidEntity, len(fields))
	}

	return unescapeField(fields[8]), unescapeField(fields[9]), nil
}
