package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Writes the seven node sample topology",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(topologyPath); err == nil && !force {
			fmt.Printf("Warning: %s already exists, use --force to overwrite it\n", topologyPath)
			os.Exit(1)
		}
		if err := state.PathValidator(topologyPath); err != nil {
			panic(err)
		}
		cfg := state.SampleTopology()
		err := core.WriteTopology(topologyPath, &cfg)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Wrote %s\n", topologyPath)
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolP("force", "f", false, "overwrite an existing topology")
}
