package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/encodeous/dvsim/state"
	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
)

var errShutdown = errors.New("received shutdown signal")

// ReadTopology loads, expands and validates a topology file.
func ReadTopology(topologyPath string) (*state.TopologyCfg, error) {
	var cfg state.TopologyCfg
	file, err := os.ReadFile(topologyPath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, err
	}
	state.ExpandTopologyConfig(&cfg)
	err = state.TopologyConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func WriteTopology(topologyPath string, cfg *state.TopologyCfg) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(topologyPath, bytes, 0600)
}

// NewLogger writes coloured logs to stderr, and plain text logs to logPath if it is set.
func NewLogger(prefix string, level slog.Level, logPath string) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slogmulti.Fanout(handlers...)), nil
}

type RunOptions struct {
	Log               *slog.Logger
	StopWhenQuiescent bool
	// DebugAddr serves /debug/metrics and /debug/vars when set
	DebugAddr string
	// Trace receives every vector, routing and message event when set
	Trace io.Writer
}

// Start runs the topology in real time until it is interrupted, or until it becomes
// quiescent if requested. It returns the simulation for inspection.
func Start(cfg *state.TopologyCfg, opts RunOptions) (*Simulation, error) {
	if opts.DebugAddr != "" {
		go func() {
			log.Println(http.ListenAndServe(opts.DebugAddr, nil))
		}()
	}
	sim, err := NewSimulationFromConfig(cfg, opts.Log)
	if err != nil {
		return nil, err
	}
	if opts.Log.Enabled(context.Background(), slog.LevelDebug) {
		sim.Subscribe(LogObserver{Log: opts.Log})
	}
	if opts.Trace != nil {
		stopTrace := TraceTo(sim, opts.Trace, 1024)
		defer stopTrace()
	}

	runner := NewRunner(context.Background(), sim, cfg.Events, opts.Log)
	runner.StopWhenQuiescent = opts.StopWhenQuiescent

	opts.Log.Info("dvsim has been initialized. To gracefully exit, send SIGINT or Ctrl+C.", "nodes", len(cfg.Nodes))

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			runner.Cancel(errShutdown)
		case <-runner.Context.Done():
			return
		}
	}()

	err = runner.Run()
	if err != nil && !errors.Is(err, errShutdown) {
		return sim, fmt.Errorf("simulation %s failed: %w", sim.RunId, err)
	}
	return sim, nil
}
