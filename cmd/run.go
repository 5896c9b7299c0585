package cmd

import (
	"os"

	"github.com/encodeous/dvsim/core"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation in real time",
	Long:  `Every node steps on its own timer and scripted events fire by tick. Runs until interrupted, or until the network is quiescent with --until-quiescent.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadTopology(cmd)
		quiescent, _ := cmd.Flags().GetBool("until-quiescent")
		debug, _ := cmd.Flags().GetString("debug")
		opts := core.RunOptions{
			Log:               logger,
			StopWhenQuiescent: quiescent,
			DebugAddr:         debug,
		}
		if trace, _ := cmd.Flags().GetBool("trace"); trace {
			opts.Trace = os.Stdout
		}
		sim, err := core.Start(cfg, opts)
		if err != nil {
			panic(err)
		}
		printRoutes(sim)
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("poison-reverse", false, "override poison_reverse from the topology")
	runCmd.Flags().BoolP("until-quiescent", "q", false, "stop once no messages are in flight")
	runCmd.Flags().Bool("trace", false, "print every vector, routing and message event to stdout")
	runCmd.Flags().String("debug", "", "serve metrics on this address, e.g. 127.0.0.1:6060")
}
