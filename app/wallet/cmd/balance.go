package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var balanceShard string

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		account := signature.PublicKeyHex(&privateKey.PublicKey)
		fmt.Println("For Account:", account)

		resp, err := http.Get(fmt.Sprintf("%s/balance?address=%s&shard=%s", url, account, balanceShard))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		var result struct {
			Balance float64 `json:"balance"`
			Shard   string  `json:"shard"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%.6f (shard %s)\n", result.Balance, result.Shard)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	balanceCmd.Flags().StringVarP(&balanceShard, "shard", "s", "0", "Shard to query.")
}
