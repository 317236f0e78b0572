// Package engine implements the chess AI: static evaluation, move ordering,
// negamax alpha-beta search and the difficulty policy on top of it.
package engine

import (
	"github.com/hailam/slowchess/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

// MateScore dominates any material sum.
const MateScore = 100000

const (
	checkBonus     = 50 // Opponent to move and in check
	mobilityWeight = 2  // Per legal move difference
)

// Piece values array for quick lookup
var pieceValues = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue}

// Piece-Square Tables (PST) for positional evaluation.
// Index is row*8 + col with row 0 = rank 8, written from White's side;
// Black pieces look up the mirrored square.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var pieceSquareTables = [6]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingMidgamePST}

// pieceScore returns material plus positional value for a piece on sq.
func pieceScore(p board.Piece, sq board.Square) int {
	pt := p.Type()
	if p.Color() == board.Black {
		sq = sq.Mirror()
	}
	return pieceValues[pt] + pieceSquareTables[pt][sq]
}

// Evaluate scores the board from perspective's point of view: material and
// piece-square values, a mate or check bonus, and mobility.
func Evaluate(b *board.Board, perspective board.Color) int {
	score := 0

	for sq := board.Square(0); sq < board.NoSquare; sq++ {
		p := b.Get(sq)
		if p == board.NoPiece {
			continue
		}
		if p.Color() == perspective {
			score += pieceScore(p, sq)
		} else {
			score -= pieceScore(p, sq)
		}
	}

	switch b.State {
	case board.Checkmate:
		if b.Turn != perspective {
			score += MateScore
		} else {
			score -= MateScore
		}
	case board.Check:
		if b.Turn != perspective {
			score += checkBonus
		}
	}

	return score + mobility(b, perspective)
}

// mobility returns the weighted legal-move difference between perspective
// and its opponent. Every piece is counted as if its side were to move.
func mobility(b *board.Board, perspective board.Color) int {
	ours, theirs := 0, 0
	for sq := board.Square(0); sq < board.NoSquare; sq++ {
		p := b.Get(sq)
		if p == board.NoPiece {
			continue
		}
		n := b.CountLegalMoves(sq, p.Color())
		if p.Color() == perspective {
			ours += n
		} else {
			theirs += n
		}
	}
	return (ours - theirs) * mobilityWeight
}

// EvaluateMaterial returns the material balance from perspective's side.
func EvaluateMaterial(b *board.Board, perspective board.Color) int {
	score := 0
	for sq := board.Square(0); sq < board.NoSquare; sq++ {
		p := b.Get(sq)
		if p == board.NoPiece {
			continue
		}
		if p.Color() == perspective {
			score += pieceValues[p.Type()]
		} else {
			score -= pieceValues[p.Type()]
		}
	}
	return score
}
