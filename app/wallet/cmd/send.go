package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/shard"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount float64
	fee    float64
	script string
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sender := signature.PublicKeyHex(&privateKey.PublicKey)

		// The shard has to be fixed before signing; the fingerprint the
		// signature covers includes it. The node publishes the shard
		// count, and the primary assignment is a pure function of the
		// sender, so the wallet can route locally.
		gen, err := fetchGenesis()
		if err != nil {
			log.Fatal(err)
		}

		shardID := shard.NewRouter(gen.MaxShards).Primary(sender)

		tx, err := database.NewTx(sender, to, genesis.ToMicro(amount), genesis.ToMicro(fee), script)
		if err != nil {
			log.Fatal(err)
		}

		tx.ShardID = shardID
		tx, err = tx.Sign(privateKey)
		if err != nil {
			log.Fatal(err)
		}

		payload := struct {
			Sender    string  `json:"sender"`
			Receiver  string  `json:"receiver"`
			Amount    float64 `json:"amount"`
			Fee       float64 `json:"fee"`
			Script    string  `json:"script,omitempty"`
			Signature string  `json:"signature"`
			ShardID   string  `json:"shardId"`
			Timestamp int64   `json:"timestamp"`
		}{
			Sender:    tx.Sender,
			Receiver:  tx.Receiver,
			Amount:    genesis.ToCoins(tx.Amount),
			Fee:       genesis.ToCoins(tx.Fee),
			Script:    tx.Script,
			Signature: tx.Signature,
			ShardID:   tx.ShardID,
			Timestamp: tx.Timestamp,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/tx", url), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("%s: %s\n", resp.Status, body)
	},
}

// fetchGenesis pulls the chain parameters from the node.
func fetchGenesis() (genesis.Genesis, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/genesis", url))
	if err != nil {
		return genesis.Genesis{}, err
	}
	defer resp.Body.Close()

	var gen genesis.Genesis
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return genesis.Genesis{}, err
	}

	return gen, nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Receiver address.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Float64VarP(&amount, "amount", "v", 0, "Amount to send, in coins.")
	sendCmd.Flags().Float64VarP(&fee, "fee", "c", 0, "Fee to offer, in coins.")
	sendCmd.Flags().StringVarP(&script, "script", "s", "", "Optional balance predicate.")
}
