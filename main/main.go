// Command heuristune tunes Tetris heuristic weights with a genetic algorithm
// and benchmarks tuned weights.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "heuristune",
		Short:        "Tune linear heuristic weights with a parallel genetic algorithm",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file (env HEURISTUNE_* overrides it)")
	root.AddCommand(newTrainCmd(), newBenchCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
