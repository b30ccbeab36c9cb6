package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sw965/heuristune/config"
	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/tetris"
)

type benchOptions struct {
	weights  string
	games    int
	maxMoves int
	seed     uint64
	parallel int
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Play games with fixed weights and report rows cleared",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return runBench(cmd, cfg, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.weights, "weights", "w", "", "weights file written by train")
	f.IntVar(&opts.games, "games", 100, "games to play")
	f.IntVar(&opts.maxMoves, "max-moves", 0, "pieces per game (0 is the configured max_moves)")
	f.Uint64Var(&opts.seed, "seed", 1, "piece sequence seed")
	f.IntVar(&opts.parallel, "parallel", runtime.GOMAXPROCS(0), "games played at once")
	_ = cmd.MarkFlagRequired("weights")
	return cmd
}

func runBench(cmd *cobra.Command, cfg config.Config, opts benchOptions) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	wf, err := readWeights(opts.weights)
	if err != nil {
		return err
	}
	features := tetris.DefaultFeatures()
	weights, err := wf.genome(features)
	if err != nil {
		return err
	}

	pool := forkjoin.New(cfg.ForkJoin())
	defer pool.Close()
	player, err := tetris.NewPlayer(tetris.NewRules(), features, weights, pool)
	if err != nil {
		return err
	}

	maxMoves := opts.maxMoves
	if maxMoves <= 0 {
		maxMoves = cfg.Problem.MaxMoves
	}
	logger.Info("benchmark started",
		slog.String("run_id", wf.RunID),
		slog.Int("games", opts.games),
		slog.Int("max_moves", maxMoves),
	)
	result, err := tetris.Benchmark(player, opts.games, maxMoves, opts.seed, opts.parallel)
	if err != nil {
		return err
	}

	lost := 0
	for _, g := range result.Games {
		if g.Lost {
			lost++
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "games=%d lost=%d mean=%.3f stddev=%.3f min=%.0f max=%.0f\n",
		len(result.Games), lost, result.Mean, result.StdDev, result.Min, result.Max)
	return err
}
