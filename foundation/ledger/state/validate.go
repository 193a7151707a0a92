package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
)

// checkTx decides whether a transaction may enter a block for the
// specified shard. The pending map carries amounts already reserved by
// earlier transactions in the same candidate set so a sender cannot
// double-spend inside one block. Callers hold the shard lock.
func (s *State) checkTx(ss *shardState, tx database.Tx, pending map[string]int64) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	fingerprint := tx.Fingerprint()

	s.mu.Lock()
	_, dup := s.processed[fingerprint]
	s.mu.Unlock()
	if dup {
		return ErrDuplicateTx
	}

	if tx.Sender == systemAccount {
		if len(ss.blocks) != 0 {
			return fmt.Errorf("system transactions are only valid in block zero")
		}
		return nil
	}

	if tx.Signature == "" {
		return fmt.Errorf("transaction %s is unsigned", fingerprint)
	}

	if err := tx.VerifySignature(); err != nil {
		return fmt.Errorf("transaction %s: %w", fingerprint, err)
	}

	available := ss.balances[tx.Sender] - pending[tx.Sender]
	if available < tx.Amount+tx.Fee {
		return ErrInsufficientBalance
	}

	if tx.Script != "" {
		if err := evalScript(tx.Script, available-tx.Amount-tx.Fee); err != nil {
			return err
		}
	}

	return nil
}

// evalScript evaluates the single supported predicate form,
// "balance>N" with N in decimal coins, against the sender's balance after
// the transfer debits.
func evalScript(script string, postBalance int64) error {
	rest, ok := strings.CutPrefix(script, "balance>")
	if !ok {
		return fmt.Errorf("unsupported script %q", script)
	}

	coins, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return fmt.Errorf("malformed script threshold %q: %w", rest, err)
	}

	if postBalance <= genesis.ToMicro(coins) {
		return fmt.Errorf("script %q not satisfied", script)
	}

	return nil
}

// validatePeerBlock checks a gossiped block against the current shard
// tip before it is committed. Callers hold the shard lock.
func (s *State) validatePeerBlock(ss *shardState, block database.Block) error {
	if block.Index != len(ss.blocks) {
		return fmt.Errorf("block %d out of order, next index is %d", block.Index, len(ss.blocks))
	}

	if block.PreviousHash != ss.tip() {
		return fmt.Errorf("block %d does not link to tip %s", block.Index, ss.tip())
	}

	if block.Hash != block.ComputeHash() {
		return fmt.Errorf("block %d hash mismatch", block.Index)
	}

	if !database.HashSolved(block.Difficulty, block.Hash) {
		return fmt.Errorf("block %d does not meet difficulty %d", block.Index, block.Difficulty)
	}

	pending := make(map[string]int64)
	for _, tx := range block.Transactions {
		if err := s.checkTx(ss, tx, pending); err != nil {
			return fmt.Errorf("block %d tx %s: %w", block.Index, tx.Fingerprint(), err)
		}

		if tx.Sender != systemAccount {
			pending[tx.Sender] += tx.Amount + tx.Fee
		}
	}

	return nil
}
