package cmd

import (
	"fmt"
	"log"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// addressCmd represents the address command.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the account address for this wallet.",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(signature.PublicKeyHex(&privateKey.PublicKey))
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
