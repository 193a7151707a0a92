package main

import "github.com/ahmiyat/ahmiyat/app/wallet/cmd"

func main() {
	cmd.Execute()
}
