package state

import (
	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
)

// SubmitTransaction validates a transaction, routes it to a shard and
// queues it for mining. The assigned shard id is written back into the
// transaction before the fingerprint is recorded anywhere, so all nodes
// that accept the gossiped form agree on its identity.
func (s *State) SubmitTransaction(tx database.Tx) (database.Tx, error) {
	if tx.ShardID == "" {
		tx.ShardID = s.router.Assign(tx.Sender)
	}

	if err := tx.Validate(); err != nil {
		return database.Tx{}, err
	}

	fingerprint := tx.Fingerprint()

	s.mu.Lock()
	_, dup := s.processed[fingerprint]
	s.mu.Unlock()
	if dup {
		return database.Tx{}, ErrDuplicateTx
	}

	n := s.mempool.Submit(tx)
	s.router.Admit(tx.ShardID)

	s.evHandler("state: submit: tx[%s] shard[%s] mempool[%d]", fingerprint, tx.ShardID, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return tx, nil
}

// UpsertMempool queues a gossiped transaction without re-routing it;
// the shard id chosen by the submitting node is authoritative for the
// fingerprint.
func (s *State) UpsertMempool(tx database.Tx) error {
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

	s.mempool.Submit(tx)
	s.router.Admit(tx.ShardID)

	return nil
}

// MempoolCount returns the number of pending transactions.
func (s *State) MempoolCount() int {
	return s.mempool.Count()
}
