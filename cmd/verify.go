package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Converges the topology and checks every table against a shortest path oracle",
	Run: func(cmd *cobra.Command, args []string) {
		sim := converge(cmd)
		mismatches := sim.Verify()
		if len(mismatches) == 0 {
			fmt.Println("All routing tables are optimal")
			return
		}
		for _, m := range mismatches {
			fmt.Println(m.String())
		}
		os.Exit(1)
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addSimFlags(verifyCmd)
}
