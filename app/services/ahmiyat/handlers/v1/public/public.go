// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmiyat/ahmiyat/business/web/errs"
	"github.com/ahmiyat/ahmiyat/foundation/events"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/state"
	"github.com/ahmiyat/ahmiyat/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Balance returns an account's balance within a shard. A missing shard
// parameter defaults to shard "0".
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := r.URL.Query().Get("address")
	if address == "" {
		return errs.NewTrusted(fmt.Errorf("missing address parameter"), http.StatusBadRequest)
	}

	shardID := r.URL.Query().Get("shard")
	if shardID == "" {
		shardID = "0"
	}

	resp := balance{
		Balance: genesis.ToCoins(h.State.GetBalance(address, shardID)),
		Shard:   shardID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns a text summary of the node and its shards.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	shardID := r.URL.Query().Get("shard")

	var sb strings.Builder
	fmt.Fprintf(&sb, "node: %s\n", h.State.NodeID())
	fmt.Fprintf(&sb, "peers: %d\n", h.State.KnownPeers())
	fmt.Fprintf(&sb, "pending: %d\n", h.State.MempoolCount())
	fmt.Fprintf(&sb, "total mined: %.6f\n", genesis.ToCoins(h.State.TotalMined()))
	fmt.Fprintf(&sb, "block reward: %.6f\n", genesis.ToCoins(h.State.BlockReward()))

	for _, status := range h.State.ShardStatuses() {
		if shardID != "" && status.ShardID != shardID {
			continue
		}

		fmt.Fprintf(&sb, "shard %s: blocks[%d] difficulty[%d] tip[%s] load[%d]\n",
			status.ShardID, status.Blocks, status.Difficulty, status.TipHash, h.State.ShardLoad(status.ShardID))
	}

	return web.RespondText(ctx, w, sb.String(), http.StatusOK)
}

// Metrics renders the node gauges in the Prometheus text format.
func (h Handlers) Metrics(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var sb strings.Builder

	sb.WriteString("# TYPE blocks_total gauge\n")
	for _, status := range h.State.ShardStatuses() {
		fmt.Fprintf(&sb, "blocks_total{shard=%q} %d\n", status.ShardID, status.Blocks)
	}

	sb.WriteString("# TYPE pending_transactions gauge\n")
	fmt.Fprintf(&sb, "pending_transactions %d\n", h.State.MempoolCount())

	sb.WriteString("# TYPE total_mined_micro gauge\n")
	fmt.Fprintf(&sb, "total_mined_micro %d\n", h.State.TotalMined())

	sb.WriteString("# TYPE peers_known gauge\n")
	fmt.Fprintf(&sb, "peers_known %d\n", h.State.KnownPeers())

	return web.RespondText(ctx, w, sb.String(), http.StatusOK)
}

// SubmitTransaction queues a new transaction for mining.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req newTx
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx, err := req.toTx()
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	tx, err = h.State.SubmitTransaction(tx)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "fingerprint", tx.Fingerprint(), "shard", tx.ShardID)

	return web.RespondText(ctx, w, "Transaction queued", http.StatusOK)
}

// Genesis returns the chain parameters.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Proposals returns the governance proposals and their tallies.
func (h Handlers) Proposals(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Proposals(), http.StatusOK)
}

// ProposeUpgrade registers a governance proposal.
func (h Handlers) ProposeUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req newProposal
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	p, err := h.State.ProposeUpgrade(req.Proposer, req.Description)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, p, http.StatusCreated)
}

// VoteUpgrade adds a stake-weighted vote to a proposal.
func (h Handlers) VoteUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	proposalID := web.Param(r, "id")

	var req newVote
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	votes, err := h.State.VoteUpgrade(req.Voter, proposalID)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Votes int64 `json:"votes"`
	}{
		Votes: votes,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Subscribe(v.TraceID)
	defer h.Evts.Unsubscribe(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
