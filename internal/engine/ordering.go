package engine

import (
	"slices"

	"github.com/hailam/slowchess/internal/board"
)

// Victim values used for ordering. Minor pieces share a value here, and the
// king gets a large value even though legal play never captures it.
var captureOrderValue = [6]int{100, 300, 300, 500, 900, 10000}

const centerBonus = 20

// OrderScore ranks a move for search ordering: captures by victim value,
// plus a bonus for landing on one of the four center squares.
func OrderScore(b *board.Board, m board.Move) int {
	score := 0

	if victim := b.Get(m.To); victim != board.NoPiece {
		score += captureOrderValue[victim.Type()]
	}

	row, col := m.To.Row(), m.To.Col()
	if (row == 3 || row == 4) && (col == 3 || col == 4) {
		score += centerBonus
	}

	return score
}

type scoredMove struct {
	move  board.Move
	score int
}

// OrderMoves sorts moves by OrderScore, highest first. Equal scores keep
// their generation order.
func OrderMoves(b *board.Board, moves []board.Move) {
	scored := make([]scoredMove, len(moves))
	for i, m := range moves {
		scored[i] = scoredMove{move: m, score: OrderScore(b, m)}
	}
	slices.SortStableFunc(scored, func(x, y scoredMove) int {
		return y.score - x.score
	})
	for i := range scored {
		moves[i] = scored[i].move
	}
}
