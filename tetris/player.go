package tetris

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/heuristune/forkjoin"
	"github.com/sw965/heuristune/ga"
	"github.com/sw965/heuristune/mathx"
	"gonum.org/v1/gonum/blas/blas32"
)

var ErrWeightsLength = errors.New("tetris: weights do not match features")

// Player picks the legal move whose outcome maximizes the dot product of
// Weights and the feature vector. Moves are scored in parallel on Pool.
type Player struct {
	Rules    *Rules
	Features Features
	Weights  ga.Genome
	Pool     *forkjoin.Pool
}

func NewPlayer(rules *Rules, features Features, weights ga.Genome, pool *forkjoin.Pool) (*Player, error) {
	if len(weights) != len(features) {
		return nil, fmt.Errorf("%w: %d weights, %d features", ErrWeightsLength, len(weights), len(features))
	}
	return &Player{Rules: rules, Features: features, Weights: weights, Pool: pool}, nil
}

type scoredMove struct {
	outcome Outcome
	score   float32
}

func (p *Player) score(o Outcome) float32 {
	if o.Lost {
		return math32.Inf(-1)
	}
	xs := make([]float32, len(p.Features))
	p.Features.Vector(o, xs)
	w := blas32.Vector{N: len(p.Weights), Inc: 1, Data: p.Weights}
	x := blas32.Vector{N: len(xs), Inc: 1, Data: xs}
	return blas32.Dot(w, x)
}

// PickMove returns the best move for piece on b and its outcome. Ties go to
// the earliest legal move. When every move loses, the first one is returned.
func (p *Player) PickMove(b Board, piece int) (Move, Outcome, error) {
	moves, err := p.Rules.LegalMoves(piece)
	if err != nil {
		return Move{}, Outcome{}, err
	}

	scored, err := forkjoin.Map(p.Pool, moves, func(m Move) (scoredMove, error) {
		o, err := p.Rules.Apply(b, piece, m)
		if err != nil {
			return scoredMove{}, err
		}
		return scoredMove{outcome: o, score: p.score(o)}, nil
	})
	if err != nil {
		return Move{}, Outcome{}, err
	}

	scores := make([]float32, len(scored))
	for i, s := range scored {
		scores[i] = s.score
	}
	idx := mathx.ArgMax(scores)
	if idx < 0 {
		// Every score was NaN.
		idx = 0
	}
	return moves[idx], scored[idx].outcome, nil
}

type GameResult struct {
	RowsCleared int
	Moves       int
	Lost        bool
}

// Play runs one game with uniformly random pieces until it is lost or
// maxMoves pieces were placed. maxMoves <= 0 means no limit.
func (p *Player) Play(rng *rand.Rand, maxMoves int) (GameResult, error) {
	var board Board
	var result GameResult
	for maxMoves <= 0 || result.Moves < maxMoves {
		piece := rng.IntN(p.Rules.NumPieces())
		_, o, err := p.PickMove(board, piece)
		if err != nil {
			return result, err
		}
		result.Moves++
		if o.Lost {
			result.Lost = true
			return result, nil
		}
		result.RowsCleared += o.RowsCleared
		board = o.Board
	}
	return result, nil
}
