// Package signature provides the hashing and signing primitives used by the
// ledger. Transactions are signed with secp256k1 ECDSA and verified against
// the sender's public key.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents the hash value assigned to the previous hash
// field of a genesis block.
const ZeroHash = "0"

// ErrCrypto is the base error for any failure decoding keys or
// signature material.
var ErrCrypto = errors.New("crypto failure")

// ErrInvalidSignature is returned when a signature does not verify
// against the sender's public key.
var ErrInvalidSignature = errors.New("invalid signature")

// =============================================================================

// Hash returns the SHA-256 digest for the specified data.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashHex returns the SHA-256 digest for the specified data as a
// lowercase hex encoded string.
func HashHex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the fingerprint of a
// transaction. The signature is returned hex encoded in the 65 byte
// [R|S|V] format.
func Sign(fingerprint string, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the fingerprint for signing.
	data := stamp(fingerprint)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	return hex.EncodeToString(sig), nil
}

// Verify checks the specified signature was produced by the owner of the
// sender public key for the specified fingerprint.
func Verify(senderPub string, fingerprint string, signature string) error {
	pub, err := DecodePublicKey(senderPub)
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: decoding signature: %v", ErrCrypto, err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature length %d", ErrCrypto, len(sig))
	}

	// Drop the recovery id. Verification only needs the R|S portion.
	data := stamp(fingerprint)
	if !crypto.VerifySignature(crypto.FromECDSAPub(pub), data, sig[:crypto.RecoveryIDOffset]) {
		return ErrInvalidSignature
	}

	return nil
}

// RecoverSender extracts the public key that produced the specified
// signature over the specified fingerprint.
func RecoverSender(fingerprint string, signature string) (string, error) {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return "", fmt.Errorf("%w: decoding signature: %v", ErrCrypto, err)
	}

	pub, err := crypto.SigToPub(stamp(fingerprint), sig)
	if err != nil {
		return "", fmt.Errorf("%w: recovering public key: %v", ErrCrypto, err)
	}

	return PublicKeyHex(pub), nil
}

// =============================================================================

// PublicKeyHex encodes the specified public key in the uncompressed hex
// form used as the sender identity on the ledger.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(pub))
}

// DecodePublicKey converts a hex encoded uncompressed public key back
// into its ECDSA form.
func DecodePublicKey(senderPub string) (*ecdsa.PublicKey, error) {
	data, err := hex.DecodeString(senderPub)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding public key: %v", ErrCrypto, err)
	}

	pub, err := crypto.UnmarshalPubkey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal public key: %v", ErrCrypto, err)
	}

	return pub, nil
}

// =============================================================================

// stamp returns a 32 byte digest that represents the fingerprint with the
// Ahmiyat stamp embedded into the final hash. Signatures produced over
// stamped digests are unique to this chain.
func stamp(fingerprint string) []byte {
	stamp := []byte("\x19Ahmiyat Signed Message:\n32")
	fpHash := sha256.Sum256([]byte(fingerprint))

	final := sha256.Sum256(append(stamp, fpHash[:]...))
	return final[:]
}
