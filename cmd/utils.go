package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

// loadTopology reads the topology and applies the command line overrides.
func loadTopology(cmd *cobra.Command) (*state.TopologyCfg, *slog.Logger) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger, err := core.NewLogger("dvsim", level, logPath)
	if err != nil {
		panic(err)
	}
	cfg, err := core.ReadTopology(topologyPath)
	if err != nil {
		panic(err)
	}
	if cmd.Flags().Lookup("poison-reverse") != nil && cmd.Flags().Changed("poison-reverse") {
		cfg.PoisonReverse, _ = cmd.Flags().GetBool("poison-reverse")
	}
	return cfg, logger
}

// converge plays the topology and its events in lock-step rounds.
func converge(cmd *cobra.Command) *core.Simulation {
	cfg, logger := loadTopology(cmd)
	sim, err := core.NewSimulationFromConfig(cfg, logger)
	if err != nil {
		panic(err)
	}
	if verbose {
		sim.Subscribe(core.LogObserver{Log: logger})
	}
	maxRounds, _ := cmd.Flags().GetInt("max-rounds")
	rounds, err := sim.Play(cfg.Events, maxRounds)
	if err != nil {
		panic(err)
	}
	logger.Info("converged", "run", sim.RunId, "rounds", rounds)
	return sim
}

func printRoutes(sim *core.Simulation) {
	sb := strings.Builder{}
	for id, rs := range sortedSnapshot(sim) {
		sb.WriteString(fmt.Sprintf("== %s ==\n", id))
		sb.WriteString(rs.StringRoutes())
		sb.WriteString("\n")
	}
	fmt.Print(sb.String())
}

func sortedSnapshot(sim *core.Simulation) func(yield func(state.NodeId, *state.RouterState) bool) {
	snap := sim.Snapshot()
	return func(yield func(state.NodeId, *state.RouterState) bool) {
		for _, id := range sim.Nodes() {
			if !yield(id, snap[id]) {
				return
			}
		}
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("poison-reverse", false, "override poison_reverse from the topology")
	cmd.Flags().Int("max-rounds", state.DefaultMaxRounds, "give up after this many rounds")
}
