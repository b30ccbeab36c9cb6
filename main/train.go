package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sw965/heuristune/config"
	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/ga"
	"github.com/sw965/heuristune/logging"
	"github.com/sw965/heuristune/metrics"
	"github.com/sw965/heuristune/tetris"
)

type trainOptions struct {
	out            string
	metricsAddr    string
	populationSize int
	maxGenerations int
	seed           uint64
	workers        int
}

func newTrainCmd() *cobra.Command {
	var opts trainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Evolve Tetris heuristic weights and write the best ones as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, &cfg); err != nil {
				return err
			}
			return runTrain(cmd, cfg, opts.out)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "weights output file (default stdout)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while training")
	f.IntVar(&opts.populationSize, "population", 0, "population size")
	f.IntVar(&opts.maxGenerations, "max-generations", 0, "stop after this many generations")
	f.Uint64Var(&opts.seed, "seed", 0, "engine seed (0 is random)")
	f.IntVar(&opts.workers, "workers", 0, "fork-join workers (0 is GOMAXPROCS)")
	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (o trainOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if f.Changed("population") {
		cfg.Engine.PopulationSize = o.populationSize
	}
	if f.Changed("max-generations") {
		cfg.Problem.MaxGenerations = o.maxGenerations
	}
	if f.Changed("seed") {
		cfg.Engine.Seed = o.seed
	}
	if f.Changed("workers") {
		cfg.Pool.Workers = o.workers
	}
	return cfg.Validate()
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	logCfg, err := cfg.Logging()
	if err != nil {
		return nil, err
	}
	logCfg.Writer = cmd.ErrOrStderr()
	return logging.New(logCfg), nil
}

func runTrain(cmd *cobra.Command, cfg config.Config, out string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	pool := forkjoin.New(cfg.ForkJoin())
	defer pool.Close()

	features := tetris.DefaultFeatures()
	problem, err := tetris.NewProblem(cfg.TetrisProblem(), tetris.NewRules(), features, pool)
	if err != nil {
		return err
	}
	gaCfg, err := cfg.GA()
	if err != nil {
		return err
	}
	engine, err := ga.NewEngine(gaCfg, problem.Domain(), pool)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, runID)
	last := time.Now()
	engine.ObserveFunc = func(s ga.GenerationStats) {
		now := time.Now()
		m.Observe(s, now.Sub(last))
		last = now
		logger.Info("generation",
			slog.Int("gen", s.Generation),
			slog.Float64("best", s.Best),
			slog.Float64("mean", s.Mean),
			slog.Float64("stddev", s.StdDev),
		)
	}

	logger.Info("training started",
		slog.Int("population", gaCfg.PopulationSize),
		slog.Int("workers", pool.Workers()),
		slog.Int("games", cfg.Problem.Games),
		slog.Float64("target_rows", cfg.Problem.TargetRows),
	)

	g, gctx := errgroup.WithContext(ctx)
	trainCtx, stop := context.WithCancel(gctx)
	defer stop()

	var result ga.Result
	g.Go(func() error {
		defer stop()
		r, err := engine.Run(trainCtx)
		result = r
		return err
	})
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("serving metrics", slog.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-trainCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("training failed", slog.Int("generations", result.Generations), slog.Any("err", err))
		return err
	}

	logger.Info("training finished",
		slog.Int("generations", result.Generations),
		slog.Float64("best", result.Best.Fitness),
		slog.Int("best_generation", result.BestGeneration),
	)

	wf := weightsFile{
		RunID:      runID,
		Features:   features.Names(),
		Weights:    result.Best.Genome,
		Fitness:    result.Best.Fitness,
		Generation: result.BestGeneration,
	}
	if out == "" {
		return writeWeights(cmd.OutOrStdout(), wf)
	}
	file, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := writeWeights(file, wf); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
