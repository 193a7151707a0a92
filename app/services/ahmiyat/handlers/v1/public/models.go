package public

import (
	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
)

// balance is the response form of a balance query. Amounts cross the
// API boundary as decimal coins.
type balance struct {
	Balance float64 `json:"balance"`
	Shard   string  `json:"shard"`
}

// newTx is the request form of a transaction submission.
type newTx struct {
	Sender    string  `json:"sender" validate:"required"`
	Receiver  string  `json:"receiver" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
	Fee       float64 `json:"fee" validate:"gte=0"`
	Script    string  `json:"script"`
	Signature string  `json:"signature"`
	ShardID   string  `json:"shardId"`
	Timestamp int64   `json:"timestamp"`
}

// toTx converts the API form into the ledger entity.
func (req newTx) toTx() (database.Tx, error) {
	tx, err := database.NewTx(req.Sender, req.Receiver, genesis.ToMicro(req.Amount), genesis.ToMicro(req.Fee), req.Script)
	if err != nil {
		return database.Tx{}, err
	}

	// A signed submission must keep the timestamp the signature covers.
	if req.Timestamp != 0 {
		tx.Timestamp = req.Timestamp
	}

	tx.Signature = req.Signature
	tx.ShardID = req.ShardID

	return tx, nil
}

// newProposal is the request form of a governance proposal.
type newProposal struct {
	Proposer    string `json:"proposer" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// newVote is the request form of a governance vote.
type newVote struct {
	Voter string `json:"voter" validate:"required"`
}
