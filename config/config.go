// Package config loads heuristune settings with priority env > file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/ga"
	"github.com/sw965/heuristune/logging"
	"github.com/sw965/heuristune/tetris"
)

var ErrInvalid = errors.New("config: invalid")

const EnvPrefix = "HEURISTUNE_"

type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Pool    PoolConfig    `yaml:"pool"`
	Problem ProblemConfig `yaml:"problem"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type EngineConfig struct {
	PopulationSize int     `yaml:"population_size"`
	CrossoverRate  float64 `yaml:"crossover_rate"`
	MutationRate   float64 `yaml:"mutation_rate"`
	// Seed 0 seeds the engine randomly.
	Seed         uint64  `yaml:"seed"`
	Degenerate   string  `yaml:"degenerate"`
	RankPressure float64 `yaml:"rank_pressure"`
}

type PoolConfig struct {
	// Workers <= 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
	Grain   int `yaml:"grain"`
}

type ProblemConfig struct {
	Games          int     `yaml:"games"`
	MaxMoves       int     `yaml:"max_moves"`
	Seed           uint64  `yaml:"seed"`
	GeneMax        float32 `yaml:"gene_max"`
	TargetRows     float64 `yaml:"target_rows"`
	MaxGenerations int     `yaml:"max_generations"`
	Aggregate      string  `yaml:"aggregate"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	// Addr of the Prometheus endpoint. Empty disables it.
	Addr string `yaml:"addr"`
}

func Default() Config {
	e := ga.DefaultConfig()
	p := tetris.DefaultProblemConfig()
	return Config{
		Engine: EngineConfig{
			PopulationSize: e.PopulationSize,
			CrossoverRate:  e.CrossoverRate,
			MutationRate:   e.MutationRate,
			Seed:           e.Seed,
			Degenerate:     e.Degenerate.String(),
			RankPressure:   e.RankPressure,
		},
		Problem: ProblemConfig{
			Games:          p.Games,
			MaxMoves:       p.MaxMoves,
			Seed:           p.Seed,
			GeneMax:        p.GeneMax,
			TargetRows:     p.TargetRows,
			MaxGenerations: p.MaxGenerations,
			Aggregate:      p.Aggregate,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then the HEURISTUNE_* environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	ints := map[string]*int{
		"POPULATION_SIZE": &c.Engine.PopulationSize,
		"WORKERS":         &c.Pool.Workers,
		"GRAIN":           &c.Pool.Grain,
		"GAMES":           &c.Problem.Games,
		"MAX_MOVES":       &c.Problem.MaxMoves,
		"MAX_GENERATIONS": &c.Problem.MaxGenerations,
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, name, v, err)
			}
			*dst = i
		}
	}

	floats := map[string]*float64{
		"CROSSOVER_RATE": &c.Engine.CrossoverRate,
		"MUTATION_RATE":  &c.Engine.MutationRate,
		"RANK_PRESSURE":  &c.Engine.RankPressure,
		"TARGET_ROWS":    &c.Problem.TargetRows,
	}
	for name, dst := range floats {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, name, v, err)
			}
			*dst = f
		}
	}

	seeds := map[string]*uint64{
		"SEED":         &c.Engine.Seed,
		"PROBLEM_SEED": &c.Problem.Seed,
	}
	for name, dst := range seeds {
		if v, ok := lookup(EnvPrefix + name); ok {
			u, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, name, v, err)
			}
			*dst = u
		}
	}

	if v, ok := lookup(EnvPrefix + "GENE_MAX"); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: %sGENE_MAX=%q: %v", ErrInvalid, EnvPrefix, v, err)
		}
		c.Problem.GeneMax = float32(f)
	}

	strs := map[string]*string{
		"DEGENERATE":   &c.Engine.Degenerate,
		"AGGREGATE":    &c.Problem.Aggregate,
		"LOG_LEVEL":    &c.Log.Level,
		"METRICS_ADDR": &c.Metrics.Addr,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sLOG_JSON=%q: %v", ErrInvalid, EnvPrefix, v, err)
		}
		c.Log.JSON = b
	}
	return nil
}

func (c Config) Validate() error {
	e, err := c.GA()
	if err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: engine: %v", ErrInvalid, err)
	}
	if err := c.TetrisProblem().Validate(); err != nil {
		return fmt.Errorf("%w: problem: %v", ErrInvalid, err)
	}
	if _, err := c.Logging(); err != nil {
		return fmt.Errorf("%w: log: %v", ErrInvalid, err)
	}
	return nil
}

func (c Config) GA() (ga.Config, error) {
	policy, err := ga.ParseDegeneratePolicy(c.Engine.Degenerate)
	if err != nil {
		return ga.Config{}, fmt.Errorf("%w: engine: %v", ErrInvalid, err)
	}
	return ga.Config{
		PopulationSize: c.Engine.PopulationSize,
		CrossoverRate:  c.Engine.CrossoverRate,
		MutationRate:   c.Engine.MutationRate,
		Seed:           c.Engine.Seed,
		Degenerate:     policy,
		RankPressure:   c.Engine.RankPressure,
	}, nil
}

func (c Config) ForkJoin() forkjoin.Config {
	return forkjoin.Config{Workers: c.Pool.Workers, Grain: c.Pool.Grain}
}

func (c Config) TetrisProblem() tetris.ProblemConfig {
	return tetris.ProblemConfig{
		Games:          c.Problem.Games,
		MaxMoves:       c.Problem.MaxMoves,
		Seed:           c.Problem.Seed,
		GeneMax:        c.Problem.GeneMax,
		TargetRows:     c.Problem.TargetRows,
		MaxGenerations: c.Problem.MaxGenerations,
		Aggregate:      c.Problem.Aggregate,
	}
}

func (c Config) Logging() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{Level: level, JSON: c.Log.JSON, Service: "heuristune"}, nil
}
