package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sw965/heuristune/ga"
	"github.com/sw965/heuristune/tetris"
)

// weightsFile is what train writes and bench reads.
type weightsFile struct {
	RunID      string    `yaml:"run_id"`
	Features   []string  `yaml:"features"`
	Weights    []float32 `yaml:"weights"`
	Fitness    float64   `yaml:"fitness"`
	Generation int       `yaml:"generation"`
}

func writeWeights(w io.Writer, f weightsFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

func readWeights(path string) (weightsFile, error) {
	var f weightsFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse weights file %s: %w", path, err)
	}
	return f, nil
}

// genome checks that f was tuned for features and returns its weights.
func (f weightsFile) genome(features tetris.Features) (ga.Genome, error) {
	if !slices.Equal(f.Features, features.Names()) {
		return nil, fmt.Errorf("weights file features %v do not match %v", f.Features, features.Names())
	}
	if len(f.Weights) != len(features) {
		return nil, fmt.Errorf("%w: %d weights, %d features", tetris.ErrWeightsLength, len(f.Weights), len(features))
	}
	return ga.Genome(f.Weights), nil
}
