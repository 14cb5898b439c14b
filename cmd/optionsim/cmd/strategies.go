package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/optionsim/internal/strategy"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the registered strategies",
	Run: func(_ *cobra.Command, _ []string) {
		for _, name := range strategy.List() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
