package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	topologyPath = "topology.yaml"
	logPath      = ""
	verbose      = false
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dvsim",
	Short: "Distance-vector routing simulator",
	Long: `dvsim simulates a distance-vector routing protocol over a weighted network.
Nodes exchange distance vectors over a shared message bus and converge on shortest paths, with optional poison reverse.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Create Topologies",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&topologyPath, "topology", "c", topologyPath, "topology config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", verbose, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", logPath, "also write logs to this file")
}
