package cmd

import (
	"github.com/spf13/cobra"
)

var convergeCmd = &cobra.Command{
	Use:   "converge",
	Short: "Converge the topology in lock-step rounds and print the routing tables",
	Run: func(cmd *cobra.Command, args []string) {
		sim := converge(cmd)
		printRoutes(sim)
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(convergeCmd)
	addSimFlags(convergeCmd)
}
