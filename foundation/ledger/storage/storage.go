// Package storage implements the persistent key-value store for block
// bodies. Blocks are keyed by their hash and carried in the canonical
// wire serialization.
package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// writeBufferSize is sized so bursts of mined blocks batch in memory
// before leveldb flushes a table to disk.
const writeBufferSize = 64 * opt.MiB

// Store provides access to the block database on disk.
type Store struct {
	db *leveldb.DB
}

// New opens the block database, creating it when missing. Writes are
// asynchronous until Close performs the final synced flush.
func New(path string) (*Store, error) {
	options := opt.Options{
		WriteBuffer: writeBufferSize,
		Compression: opt.SnappyCompression,
	}

	db, err := leveldb.OpenFile(path, &options)
	if err != nil {
		return nil, fmt.Errorf("open block database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close flushes outstanding writes with a synced write and releases
// the database.
func (s *Store) Close() error {

	// Force the write-ahead log to disk before releasing the handle so a
	// crash after shutdown cannot lose acknowledged blocks.
	if err := s.db.Write(new(leveldb.Batch), &opt.WriteOptions{Sync: true}); err != nil {
		s.db.Close()
		return fmt.Errorf("sync block database: %w", err)
	}

	return s.db.Close()
}

// Write persists a single serialized block under its hash.
func (s *Store) Write(hash string, data []byte) error {
	wo := opt.WriteOptions{Sync: false}
	if err := s.db.Put([]byte(hash), data, &wo); err != nil {
		return fmt.Errorf("write block %s: %w", hash, err)
	}

	return nil
}

// WriteBatch persists a set of serialized blocks in one batched write.
func (s *Store) WriteBatch(blocks map[string][]byte) error {
	batch := new(leveldb.Batch)
	for hash, data := range blocks {
		batch.Put([]byte(hash), data)
	}

	wo := opt.WriteOptions{Sync: false}
	if err := s.db.Write(batch, &wo); err != nil {
		return fmt.Errorf("write block batch: %w", err)
	}

	return nil
}

// Read returns the serialized block stored under the specified hash.
func (s *Store) Read(hash string) ([]byte, error) {
	data, err := s.db.Get([]byte(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("read block %s: %w", hash, err)
	}

	return data, nil
}

// Exists reports whether a block is stored under the specified hash.
func (s *Store) Exists(hash string) (bool, error) {
	has, err := s.db.Has([]byte(hash), nil)
	if err != nil {
		return false, fmt.Errorf("check block %s: %w", hash, err)
	}

	return has, nil
}

// ForEach walks every stored block. Iteration order is hash order, not
// chain order; callers reassemble shards by block index.
func (s *Store) ForEach(fn func(hash string, data []byte) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		data := make([]byte, len(iter.Value()))
		copy(data, iter.Value())

		if err := fn(string(iter.Key()), data); err != nil {
			return err
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterate block database: %w", err)
	}

	return nil
}
