package signature_test

import (
	"strings"
	"testing"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	t.Log("Given the need to sign and verify transaction fingerprints.")
	{
		t.Logf("\tTest 0:\tWhen handling a freshly generated key pair.")
		{
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to generate a private key: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to generate a private key.", success)

			fingerprint := signature.HashHex([]byte("transfer of record"))

			sig, err := signature.Sign(fingerprint, privateKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign the fingerprint: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign the fingerprint.", success)

			sender := signature.PublicKeyHex(&privateKey.PublicKey)

			if err := signature.Verify(sender, fingerprint, sig); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to verify the signature: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to verify the signature.", success)

			recovered, err := signature.RecoverSender(fingerprint, sig)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to recover the sender: %v", failed, err)
			}
			if recovered != sender {
				t.Logf("\t\tTest 0:\tgot: %s", recovered)
				t.Logf("\t\tTest 0:\texp: %s", sender)
				t.Fatalf("\t%s\tTest 0:\tShould recover the signing public key.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the signing public key.", success)
		}

		t.Logf("\tTest 1:\tWhen handling a tampered fingerprint.")
		{
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to generate a private key: %v", failed, err)
			}

			fingerprint := signature.HashHex([]byte("original payload"))
			sig, err := signature.Sign(fingerprint, privateKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign the fingerprint: %v", failed, err)
			}

			sender := signature.PublicKeyHex(&privateKey.PublicKey)
			tampered := signature.HashHex([]byte("tampered payload"))

			if err := signature.Verify(sender, tampered, sig); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a signature over different data.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a signature over different data.", success)
		}

		t.Logf("\tTest 2:\tWhen handling a signature from a different key.")
		{
			keyA, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to generate key A: %v", failed, err)
			}
			keyB, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to generate key B: %v", failed, err)
			}

			fingerprint := signature.HashHex([]byte("payload"))
			sig, err := signature.Sign(fingerprint, keyA)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to sign the fingerprint: %v", failed, err)
			}

			senderB := signature.PublicKeyHex(&keyB.PublicKey)

			if err := signature.Verify(senderB, fingerprint, sig); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject a signature that recovers to a different sender.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject a signature that recovers to a different sender.", success)
		}
	}
}

func Test_Hash(t *testing.T) {
	t.Log("Given the need to produce stable hex hashes.")
	{
		t.Logf("\tTest 0:\tWhen hashing the same data twice.")
		{
			h1 := signature.HashHex([]byte("stable"))
			h2 := signature.HashHex([]byte("stable"))

			if h1 != h2 {
				t.Fatalf("\t%s\tTest 0:\tShould get the same hash for the same data.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get the same hash for the same data.", success)

			if len(h1) != 64 {
				t.Fatalf("\t%s\tTest 0:\tShould get a 64 character hash, got %d.", failed, len(h1))
			}
			t.Logf("\t%s\tTest 0:\tShould get a 64 character hash.", success)

			if h1 != strings.ToLower(h1) {
				t.Fatalf("\t%s\tTest 0:\tShould get a lowercase hex hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get a lowercase hex hash.", success)
		}

		t.Logf("\tTest 1:\tWhen hashing different data.")
		{
			if signature.HashHex([]byte("a")) == signature.HashHex([]byte("b")) {
				t.Fatalf("\t%s\tTest 1:\tShould get different hashes for different data.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get different hashes for different data.", success)
		}
	}
}
