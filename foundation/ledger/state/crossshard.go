package state

import (
	"fmt"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
)

// HandleCrossShardTx atomically moves value between two shards. The
// source shard is the transaction's assigned shard; the destination is
// the receiver's routed shard. The fee is debited with the amount but
// credited nowhere, shrinking circulating supply. Both shard locks are
// taken in lexicographic shard-id order so concurrent transfers in
// opposite directions cannot deadlock.
func (s *State) HandleCrossShardTx(tx database.Tx) error {
	if tx.ShardID == "" {
		tx.ShardID = s.router.Assign(tx.Sender)
	}

	if err := tx.Validate(); err != nil {
		return err
	}

	fromID := tx.ShardID
	toID := s.router.Assign(tx.Receiver)
	if fromID == toID {
		return ErrNotCrossShard
	}

	fingerprint := tx.Fingerprint()

	s.mu.Lock()
	_, dup := s.processed[fingerprint]
	s.mu.Unlock()
	if dup {
		return ErrDuplicateTx
	}

	from := s.getShard(fromID)
	to := s.getShard(toID)

	first, second := from, to
	if second.id < first.id {
		first, second = second, first
	}

	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if tx.Signature == "" {
		return fmt.Errorf("transaction %s is unsigned", fingerprint)
	}

	if err := tx.VerifySignature(); err != nil {
		return fmt.Errorf("transaction %s: %w", fingerprint, err)
	}

	if from.balances[tx.Sender] < tx.Amount+tx.Fee {
		return ErrInsufficientBalance
	}

	from.balances[tx.Sender] -= tx.Amount + tx.Fee
	to.balances[tx.Receiver] += tx.Amount

	s.mu.Lock()
	s.processed[fingerprint] = struct{}{}
	s.mu.Unlock()

	s.evHandler("state: crossshard: tx[%s] %s -> %s amount[%d] fee[%d]", fingerprint, fromID, toID, tx.Amount, tx.Fee)
	return nil
}
