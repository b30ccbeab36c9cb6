package tetris

// Board is a value type: Apply returns a new board and never changes its
// argument. Row 0 is the bottom.
type Board struct {
	Field [Rows][Cols]bool
	Top   [Cols]int
}

type Outcome struct {
	Board       Board
	RowsCleared int
	Lost        bool
}

// Apply drops piece with move m onto b. The game is lost when the piece
// would reach the top row.
func (r *Rules) Apply(b Board, piece int, m Move) (Outcome, error) {
	o, err := r.orientation(piece, m)
	if err != nil {
		return Outcome{}, err
	}

	// Resting height of the piece's lowest row.
	height := b.Top[m.Slot] - o.Bottom[0]
	for c := 1; c < o.Width; c++ {
		height = max(height, b.Top[m.Slot+c]-o.Bottom[c])
	}

	if height+o.Height >= Rows {
		return Outcome{Board: b, Lost: true}, nil
	}

	for c := 0; c < o.Width; c++ {
		for h := height + o.Bottom[c]; h < height+o.Top[c]; h++ {
			b.Field[h][m.Slot+c] = true
		}
	}
	for c := 0; c < o.Width; c++ {
		b.Top[m.Slot+c] = height + o.Top[c]
	}

	cleared := 0
	for row := height + o.Height - 1; row >= height; row-- {
		full := true
		for c := 0; c < Cols; c++ {
			if !b.Field[row][c] {
				full = false
				break
			}
		}
		if !full {
			continue
		}

		cleared++
		for c := 0; c < Cols; c++ {
			for i := row; i < b.Top[c]; i++ {
				b.Field[i][c] = b.Field[i+1][c]
			}
			b.Top[c]--
			for b.Top[c] >= 1 && !b.Field[b.Top[c]-1][c] {
				b.Top[c]--
			}
		}
	}
	return Outcome{Board: b, RowsCleared: cleared}, nil
}

func (b Board) Holes() int {
	holes := 0
	for c := 0; c < Cols; c++ {
		for row := 0; row < b.Top[c]; row++ {
			if !b.Field[row][c] {
				holes++
			}
		}
	}
	return holes
}

func (b Board) MaxHeight() int {
	h := 0
	for _, t := range b.Top {
		h = max(h, t)
	}
	return h
}
