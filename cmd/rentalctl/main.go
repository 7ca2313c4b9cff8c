package main

import (
	"os"

	"rental-platform-server/cmd/rentalctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
