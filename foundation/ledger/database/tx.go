// Package database implements the transaction and block model for the
// ledger, including the canonical wire serialization used for
// fingerprinting, block hashing and peer gossip.
package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
)

// ErrInvalidEntity is returned when a transaction, fragment or block
// fails its invariants.
var ErrInvalidEntity = errors.New("invalid entity")

// =============================================================================

// Tx is the transactional information between two parties. Amounts and
// fees are fixed-point micro-units. The sender is the hex encoded
// uncompressed secp256k1 public key of the signing party.
type Tx struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    int64  `json:"amount"`
	Fee       int64  `json:"fee"`
	Script    string `json:"script,omitempty"`
	Signature string `json:"signature"`
	ShardID   string `json:"shard_id"`
	Timestamp int64  `json:"timestamp"` // Microseconds.
}

// NewTx constructs an unsigned transaction stamped with the current time.
// The shard id is assigned by the router before admission.
func NewTx(sender string, receiver string, amount int64, fee int64, script string) (Tx, error) {
	tx := Tx{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Fee:       fee,
		Script:    script,
		Timestamp: time.Now().UTC().UnixMicro(),
	}

	if err := tx.validateCore(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// validateCore checks the invariants that hold before shard assignment.
func (tx Tx) validateCore() error {
	switch {
	case tx.Sender == "":
		return fmt.Errorf("%w: sender is empty", ErrInvalidEntity)
	case tx.Receiver == "":
		return fmt.Errorf("%w: receiver is empty", ErrInvalidEntity)
	case tx.Sender == tx.Receiver:
		return fmt.Errorf("%w: sender and receiver are the same party", ErrInvalidEntity)
	case tx.Amount < 0 || tx.Amount > genesis.MaxSupply:
		return fmt.Errorf("%w: amount %d out of range", ErrInvalidEntity, tx.Amount)
	case tx.Fee < 0 || tx.Fee > tx.Amount:
		return fmt.Errorf("%w: fee %d out of range", ErrInvalidEntity, tx.Fee)
	case tx.Timestamp <= 0:
		return fmt.Errorf("%w: timestamp %d is not positive", ErrInvalidEntity, tx.Timestamp)
	}

	return nil
}

// Validate checks every transaction invariant including shard assignment.
func (tx Tx) Validate() error {
	if err := tx.validateCore(); err != nil {
		return err
	}

	if tx.ShardID == "" {
		return fmt.Errorf("%w: shard id is empty", ErrInvalidEntity)
	}

	return nil
}

// Fingerprint returns the SHA-256 identity of the transaction. The
// fingerprint is the key used for at-most-once application, so it covers
// every field a signer commits to.
func (tx Tx) Fingerprint() string {
	fields := []string{
		escapeField(tx.Sender),
		escapeField(tx.Receiver),
		strconv.FormatInt(tx.Amount, 10),
		strconv.FormatInt(tx.Fee, 10),
		escapeField(tx.Script),
		escapeField(tx.ShardID),
		strconv.FormatInt(tx.Timestamp, 10),
	}

	return signature.HashHex([]byte(strings.Join(fields, "|")))
}

// Sign produces a copy of the transaction carrying an ECDSA signature
// over the fingerprint.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (Tx, error) {
	sig, err := signature.Sign(tx.Fingerprint(), privateKey)
	if err != nil {
		return Tx{}, err
	}

	tx.Signature = sig
	return tx, nil
}

// VerifySignature checks the transaction's signature against the sender
// public key.
func (tx Tx) VerifySignature() error {
	if tx.Signature == "" {
		return fmt.Errorf("%w: transaction is not signed", ErrInvalidEntity)
	}

	return signature.Verify(tx.Sender, tx.Fingerprint(), tx.Signature)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	sender := tx.Sender
	if len(sender) > 16 {
		sender = sender[:16]
	}

	return fmt.Sprintf("%s>%s:%d", sender, tx.Receiver, tx.Amount)
}

// =============================================================================

// Serialize renders the transaction in its wire form.
func (tx Tx) Serialize() string {
	fields := []string{
		escapeField(tx.Sender),
		escapeField(tx.Receiver),
		strconv.FormatInt(tx.Amount, 10),
		strconv.FormatInt(tx.Fee, 10),
		escapeField(tx.Signature),
		escapeField(tx.Script),
		escapeField(tx.ShardID),
		strconv.FormatInt(tx.Timestamp, 10),
	}

	return strings.Join(fields, ",")
}

// ParseTx consumes the wire form of a transaction.
func ParseTx(s string) (Tx, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 8 {
		return Tx{}, fmt.Errorf("%w: transaction has %d fields, expected 8", ErrInvalidEntity, len(fields))
	}

	amount, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Tx{}, fmt.Errorf("%w: transaction amount: %v", ErrInvalidEntity, err)
	}

	fee, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Tx{}, fmt.Errorf("%w: transaction fee: %v", ErrInvalidEntity, err)
	}

	timestamp, err := strconv.ParseInt(fields[7], 10, 64)
	if err != nil {
		return Tx{}, fmt.Errorf("%w: transaction timestamp: %v", ErrInvalidEntity, err)
	}

	tx := Tx{
		Sender:    unescapeField(fields[0]),
		Receiver:  unescapeField(fields[1]),
		Amount:    amount,
		Fee:       fee,
		Signature: unescapeField(fields[4]),
		Script:    unescapeField(fields[5]),
		ShardID:   unescapeField(fields[6]),
		Timestamp: timestamp,
	}

	return tx, nil
}
