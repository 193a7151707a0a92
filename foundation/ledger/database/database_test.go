package database_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_Transactions(t *testing.T) {
	type table struct {
		name     string
		sender   string
		receiver string
		amount   int64
		fee      int64
		script   string
		valid    bool
	}

	tt := []table{
		{name: "basic", sender: "alice", receiver: "bob", amount: 10_000_000, fee: 1_000_000, valid: true},
		{name: "zero amount", sender: "alice", receiver: "bob", amount: 0, fee: 0, valid: true},
		{name: "empty sender", sender: "", receiver: "bob", amount: 1, valid: false},
		{name: "empty receiver", sender: "alice", receiver: "", amount: 1, valid: false},
		{name: "self transfer", sender: "alice", receiver: "alice", amount: 1, valid: false},
		{name: "negative amount", sender: "alice", receiver: "bob", amount: -1, valid: false},
		{name: "fee above amount", sender: "alice", receiver: "bob", amount: 5, fee: 6, valid: false},
	}

	t.Log("Given the need to validate transaction construction.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s case.", testID, tst.name)
			{
				tx, err := database.NewTx(tst.sender, tst.receiver, tst.amount, tst.fee, tst.script)

				if tst.valid {
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to create the transaction: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to create the transaction.", success, testID)

					if tx.Timestamp <= 0 {
						t.Fatalf("\t%s\tTest %d:\tShould stamp a positive timestamp.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould stamp a positive timestamp.", success, testID)
					continue
				}

				if err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould reject the transaction.", failed, testID)
				}
				if !errors.Is(err, database.ErrInvalidEntity) {
					t.Fatalf("\t%s\tTest %d:\tShould reject with the invalid entity error: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould reject with the invalid entity error.", success, testID)
			}
		}
	}
}

func Test_TxWireRoundTrip(t *testing.T) {
	t.Log("Given the need to carry transactions over the wire.")
	{
		t.Logf("\tTest 0:\tWhen the fields contain framing delimiter bytes.")
		{
			tx, err := database.NewTx("ali|ce,one;two%", "bob|;,", 42_000_000, 1_500_000, "balance>1.5")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create the transaction: %v", failed, err)
			}
			tx.ShardID = "7"
			tx.Signature = "00ff|aa;bb,cc"

			parsed, err := database.ParseTx(tx.Serialize())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to parse the serialized form: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to parse the serialized form.", success)

			if !reflect.DeepEqual(tx, parsed) {
				t.Logf("\t\tTest 0:\tgot: %#v", parsed)
				t.Logf("\t\tTest 0:\texp: %#v", tx)
				t.Fatalf("\t%s\tTest 0:\tShould get back an equal transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back an equal transaction.", success)

			if tx.Fingerprint() != parsed.Fingerprint() {
				t.Fatalf("\t%s\tTest 0:\tShould preserve the fingerprint across the wire.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould preserve the fingerprint across the wire.", success)
		}

		t.Logf("\tTest 1:\tWhen two transactions differ only in one field.")
		{
			a, err := database.NewTx("alice", "bob", 10, 1, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to create the transaction: %v", failed, err)
			}

			b := a
			b.Amount = 11

			if a.Fingerprint() == b.Fingerprint() {
				t.Fatalf("\t%s\tTest 1:\tShould produce distinct fingerprints.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould produce distinct fingerprints.", success)
		}
	}
}

func Test_TxSigning(t *testing.T) {
	t.Log("Given the need to bind a transaction to its sender's key.")
	{
		t.Logf("\tTest 0:\tWhen signing with the sender's key.")
		{
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a key: %v", failed, err)
			}

			sender := signature.PublicKeyHex(&privateKey.PublicKey)

			tx, err := database.NewTx(sender, "bob", 10_000_000, 0, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create the transaction: %v", failed, err)
			}
			tx.ShardID = "0"

			signed, err := tx.Sign(privateKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign the transaction.", success)

			if err := signed.VerifySignature(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to verify the signature: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to verify the signature.", success)

			tampered := signed
			tampered.Amount = 99
			if err := tampered.VerifySignature(); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject a signature after the amount changes.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a signature after the amount changes.", success)
		}
	}
}

func Test_Blocks(t *testing.T) {
	t.Log("Given the need to carry blocks over the wire.")
	{
		t.Logf("\tTest 0:\tWhen serializing a mined block.")
		{
			tx, err := database.NewTx("alice", "bob", 10_000_000, 1_000_000, "")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create the transaction: %v", failed, err)
			}
			tx.ShardID = "3"

			memory := database.MemoryFragment{
				Type:        "memory",
				LocalPath:   "memories/20260101T000000",
				Description: "first; real, block|data",
				Owner:       "miner",
			}

			block, err := database.NewBlock(1, []database.Tx{tx}, memory, "aa00", 2, 5_000_000, "3")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create the block: %v", failed, err)
			}

			block.MemoryProof = "42"
			block.Hash = block.ComputeHash()

			parsed, err := database.ParseBlock(block.Serialize())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to parse the serialized form: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to parse the serialized form.", success)

			// The local path never travels over the wire, the fragment is
			// attached fresh on each node.
			block.Memory.LocalPath = ""

			if !reflect.DeepEqual(block, parsed) {
				t.Logf("\t\tTest 0:\tgot: %#v", parsed)
				t.Logf("\t\tTest 0:\texp: %#v", block)
				t.Fatalf("\t%s\tTest 0:\tShould get back an equal block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back an equal block.", success)

			if parsed.Hash != parsed.ComputeHash() {
				t.Fatalf("\t%s\tTest 0:\tShould re-hash to the stored hash after the round trip.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould re-hash to the stored hash after the round trip.", success)

			shardID, hash, err := database.PeekBlockIdentity(block.Serialize())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to peek the block identity: %v", failed, err)
			}
			if shardID != block.ShardID || hash != block.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould peek the shard id and hash from the tail.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould peek the shard id and hash from the tail.", success)
		}

		t.Logf("\tTest 1:\tWhen checking the difficulty prefix.")
		{
			hash := "0003" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56" // 64 chars.

			if !database.HashSolved(3, hash) {
				t.Fatalf("\t%s\tTest 1:\tShould accept a hash with three leading zeros at difficulty 3.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould accept a hash with three leading zeros at difficulty 3.", success)

			if database.HashSolved(4, hash) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the same hash at difficulty 4.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the same hash at difficulty 4.", success)

			if database.HashSolved(1, "000") {
				t.Fatalf("\t%s\tTest 1:\tShould reject a hash that is not 64 characters.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a hash that is not 64 characters.", success)
		}

		t.Logf("\tTest 2:\tWhen constructing an invalid block.")
		{
			memory := database.MemoryFragment{Type: "memory", Owner: "miner"}

			if _, err := database.NewBlock(1, nil, memory, "", 1, 0, "0"); !errors.Is(err, database.ErrInvalidEntity) {
				t.Fatalf("\t%s\tTest 2:\tShould reject an empty previous hash: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject an empty previous hash.", success)

			if _, err := database.NewBlock(1, nil, memory, "aa", 0, 0, "0"); !errors.Is(err, database.ErrInvalidEntity) {
				t.Fatalf("\t%s\tTest 2:\tShould reject a difficulty below one: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a difficulty below one.", success)
		}
	}
}
