package mempool_test

import (
	"fmt"
	"testing"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/mempool"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func newTestTx(t *testing.T, receiver string) database.Tx {
	t.Helper()

	tx, err := database.NewTx("alice", receiver, 10, 0, "")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create a transaction: %v", failed, err)
	}

	return tx
}

func Test_Mempool(t *testing.T) {
	t.Log("Given the need to queue pending transactions in order.")
	{
		t.Logf("\tTest 0:\tWhen submitting and draining transactions.")
		{
			mp := mempool.New()

			for i := 0; i < 5; i++ {
				n := mp.Submit(newTestTx(t, fmt.Sprintf("bob-%d", i)))
				if n != i+1 {
					t.Fatalf("\t%s\tTest 0:\tShould report %d queued, got %d.", failed, i+1, n)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould report the growing queue depth on submit.", success)

			if mp.Count() != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould count 5 pending, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould count 5 pending.", success)

			txs := mp.Drain()
			if len(txs) != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould drain 5 transactions, got %d.", failed, len(txs))
			}
			t.Logf("\t%s\tTest 0:\tShould drain 5 transactions.", success)

			for i, tx := range txs {
				if exp := fmt.Sprintf("bob-%d", i); tx.Receiver != exp {
					t.Fatalf("\t%s\tTest 0:\tShould drain in submission order, got %s at %d.", failed, tx.Receiver, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould drain in submission order.", success)

			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould be empty after the drain, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould be empty after the drain.", success)
		}

		t.Logf("\tTest 1:\tWhen truncating the pool.")
		{
			mp := mempool.New()
			mp.Submit(newTestTx(t, "bob"))
			mp.Submit(newTestTx(t, "carol"))

			mp.Truncate()

			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould be empty after truncate, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 1:\tShould be empty after truncate.", success)

			if txs := mp.Drain(); txs != nil {
				t.Fatalf("\t%s\tTest 1:\tShould drain nothing after truncate, got %d.", failed, len(txs))
			}
			t.Logf("\t%s\tTest 1:\tShould drain nothing after truncate.", success)
		}
	}
}
