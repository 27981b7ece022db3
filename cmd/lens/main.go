package main

import (
	"os"

	"github.com/lens-io/lens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
