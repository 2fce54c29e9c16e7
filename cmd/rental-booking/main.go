package main

import (
	"fmt"
	"os"

	"github.com/beesaferoot/rental-booking/internal/commands"
)

func main() {
	if err := commands.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
