// Package tetris is a Tetris simulation with a linear heuristic player. Its
// Problem exposes weight tuning for the player as a ga.Domain.
package tetris

import (
	"errors"
	"fmt"
)

const (
	Cols      = 10
	Rows      = 21
	NumPieces = 7
)

var (
	ErrInvalidPiece = errors.New("tetris: invalid piece")
	ErrInvalidMove  = errors.New("tetris: invalid move")
)

// Orientation is one rotation of a piece. Bottom[c] and Top[c] are the lowest
// filled cell and one past the highest filled cell of column c, measured from
// the piece's lowest row.
type Orientation struct {
	Width  int
	Height int
	Bottom []int
	Top    []int
}

type Piece struct {
	Orients []Orientation
}

type Move struct {
	Orient int
	Slot   int
}

// Rules is the immutable piece vocabulary shared by every game.
type Rules struct {
	pieces     []Piece
	legalMoves [][]Move
}

func NewRules() *Rules {
	pieces := []Piece{
		// O
		{Orients: []Orientation{
			{Width: 2, Height: 2, Bottom: []int{0, 0}, Top: []int{2, 2}},
		}},
		// I
		{Orients: []Orientation{
			{Width: 1, Height: 4, Bottom: []int{0}, Top: []int{4}},
			{Width: 4, Height: 1, Bottom: []int{0, 0, 0, 0}, Top: []int{1, 1, 1, 1}},
		}},
		// L
		{Orients: []Orientation{
			{Width: 2, Height: 3, Bottom: []int{0, 0}, Top: []int{3, 1}},
			{Width: 3, Height: 2, Bottom: []int{0, 1, 1}, Top: []int{2, 2, 2}},
			{Width: 2, Height: 3, Bottom: []int{2, 0}, Top: []int{3, 3}},
			{Width: 3, Height: 2, Bottom: []int{0, 0, 0}, Top: []int{1, 1, 2}},
		}},
		// J
		{Orients: []Orientation{
			{Width: 2, Height: 3, Bottom: []int{0, 0}, Top: []int{1, 3}},
			{Width: 3, Height: 2, Bottom: []int{0, 0, 0}, Top: []int{2, 1, 1}},
			{Width: 2, Height: 3, Bottom: []int{0, 2}, Top: []int{3, 3}},
			{Width: 3, Height: 2, Bottom: []int{1, 1, 0}, Top: []int{2, 2, 2}},
		}},
		// T
		{Orients: []Orientation{
			{Width: 2, Height: 3, Bottom: []int{0, 1}, Top: []int{3, 2}},
			{Width: 3, Height: 2, Bottom: []int{1, 0, 1}, Top: []int{2, 2, 2}},
			{Width: 2, Height: 3, Bottom: []int{1, 0}, Top: []int{2, 3}},
			{Width: 3, Height: 2, Bottom: []int{0, 0, 0}, Top: []int{1, 2, 1}},
		}},
		// S
		{Orients: []Orientation{
			{Width: 3, Height: 2, Bottom: []int{0, 0, 1}, Top: []int{1, 2, 2}},
			{Width: 2, Height: 3, Bottom: []int{1, 0}, Top: []int{3, 2}},
		}},
		// Z
		{Orients: []Orientation{
			{Width: 3, Height: 2, Bottom: []int{1, 0, 0}, Top: []int{2, 2, 1}},
			{Width: 2, Height: 3, Bottom: []int{0, 1}, Top: []int{2, 3}},
		}},
	}

	legalMoves := make([][]Move, len(pieces))
	for p, piece := range pieces {
		for o, orient := range piece.Orients {
			for slot := 0; slot <= Cols-orient.Width; slot++ {
				legalMoves[p] = append(legalMoves[p], Move{Orient: o, Slot: slot})
			}
		}
	}
	return &Rules{pieces: pieces, legalMoves: legalMoves}
}

func (r *Rules) NumPieces() int {
	return len(r.pieces)
}

// LegalMoves returns the moves for piece. The slice is shared and must not be
// modified.
func (r *Rules) LegalMoves(piece int) ([]Move, error) {
	if piece < 0 || piece >= len(r.pieces) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPiece, piece)
	}
	return r.legalMoves[piece], nil
}

func (r *Rules) orientation(piece int, m Move) (Orientation, error) {
	if piece < 0 || piece >= len(r.pieces) {
		return Orientation{}, fmt.Errorf("%w: %d", ErrInvalidPiece, piece)
	}
	orients := r.pieces[piece].Orients
	if m.Orient < 0 || m.Orient >= len(orients) {
		return Orientation{}, fmt.Errorf("%w: piece %d orient %d", ErrInvalidMove, piece, m.Orient)
	}
	o := orients[m.Orient]
	if m.Slot < 0 || m.Slot+o.Width > Cols {
		return Orientation{}, fmt.Errorf("%w: piece %d slot %d", ErrInvalidMove, piece, m.Slot)
	}
	return o, nil
}
