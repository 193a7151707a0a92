package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/storage"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_Storage(t *testing.T) {
	t.Log("Given the need to persist blocks under their hash.")
	{
		t.Logf("\tTest 0:\tWhen writing and reading blocks back.")
		{
			store, err := storage.New(filepath.Join(t.TempDir(), "blocks.db"))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open the store: %v", failed, err)
			}
			defer store.Close()
			t.Logf("\t%s\tTest 0:\tShould be able to open the store.", success)

			if err := store.Write("hash-a", []byte("block-a")); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to write a block.", success)

			data, err := store.Read("hash-a")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the block back: %v", failed, err)
			}
			if string(data) != "block-a" {
				t.Fatalf("\t%s\tTest 0:\tShould read back the written body, got %q.", failed, data)
			}
			t.Logf("\t%s\tTest 0:\tShould read back the written body.", success)

			exists, err := store.Exists("hash-a")
			if err != nil || !exists {
				t.Fatalf("\t%s\tTest 0:\tShould report the block exists: %v", failed, err)
			}
			exists, err = store.Exists("hash-z")
			if err != nil || exists {
				t.Fatalf("\t%s\tTest 0:\tShould report an unknown hash missing: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report existence correctly.", success)
		}

		t.Logf("\tTest 1:\tWhen writing a batch and iterating the store.")
		{
			store, err := storage.New(filepath.Join(t.TempDir(), "blocks.db"))
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to open the store: %v", failed, err)
			}
			defer store.Close()

			batch := map[string][]byte{
				"hash-a": []byte("block-a"),
				"hash-b": []byte("block-b"),
				"hash-c": []byte("block-c"),
			}

			if err := store.WriteBatch(batch); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to write the batch: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to write the batch.", success)

			got := make(map[string]string)
			err = store.ForEach(func(hash string, data []byte) error {
				got[hash] = string(data)
				return nil
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to iterate the store: %v", failed, err)
			}

			if len(got) != len(batch) {
				t.Fatalf("\t%s\tTest 1:\tShould visit %d blocks, got %d.", failed, len(batch), len(got))
			}
			for hash, body := range batch {
				if got[hash] != string(body) {
					t.Fatalf("\t%s\tTest 1:\tShould visit block %s with its body.", failed, hash)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould visit every block with its body.", success)
		}

		t.Logf("\tTest 2:\tWhen reopening the store.")
		{
			path := filepath.Join(t.TempDir(), "blocks.db")

			store, err := storage.New(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to open the store: %v", failed, err)
			}
			if err := store.Write("hash-a", []byte("block-a")); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to write a block: %v", failed, err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to close the store: %v", failed, err)
			}

			store, err = storage.New(path)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to reopen the store: %v", failed, err)
			}
			defer store.Close()

			data, err := store.Read("hash-a")
			if err != nil || string(data) != "block-a" {
				t.Fatalf("\t%s\tTest 2:\tShould read the block after a reopen: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould read the block after a reopen.", success)
		}
	}
}
