package main

import (
	"os"

	"github.com/eddiefleurent/optionsim/cmd/optionsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
