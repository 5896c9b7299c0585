package cmd

import (
	"fmt"
	"net/netip"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect <node>",
	Aliases: []string{"i"},
	Short:   "Prints the distance vector table of a node after convergence",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sim := converge(cmd)
		rs, err := sim.State(state.NodeId(args[0]))
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Println(rs.StringTable())
		fmt.Println()
		fmt.Println(rs.StringRoutes())
	},
	GroupID: "sim",
}

var traceCmd = &cobra.Command{
	Use:   "trace <src> <addr>",
	Short: "Follows the next hops a packet from src to addr would take",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		addr, err := netip.ParseAddr(args[1])
		if err != nil {
			panic(err)
		}
		sim := converge(cmd)
		path, err := sim.Trace(state.NodeId(args[0]), addr)
		for i, hop := range path {
			fmt.Printf("%d\t%s\n", i, hop)
		}
		if err != nil {
			fmt.Println("Error:", err.Error())
		}
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	addSimFlags(inspectCmd)
	rootCmd.AddCommand(traceCmd)
	addSimFlags(traceCmd)
}
