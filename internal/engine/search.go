package engine

import (
	"errors"
	"math"
	"sync/atomic"

	"github.com/hailam/slowchess/internal/board"
)

// Search constants
const (
	Infinity = math.MaxInt32
	MaxDepth = 5
)

// ErrSearchStopped is returned when a search is stopped before completion.
var ErrSearchStopped = errors.New("search stopped")

// RootResult is the outcome of a root search.
type RootResult struct {
	Move       board.Move
	Score      int
	Candidates []board.Move // All root moves in search order
	Nodes      uint64
}

// Searcher performs depth-limited negamax search with alpha-beta pruning.
// Every node works on its own clone of the board. A Searcher serves one
// search at a time; Stop may be called from any goroutine.
type Searcher struct {
	stopFlag atomic.Bool
	nodes    uint64
}

// NewSearcher creates a new searcher.
func NewSearcher() *Searcher {
	return &Searcher{}
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset resets the searcher for a new search.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// Minimax returns the negamax score of b for color c searched to depth.
// The score is from c's point of view.
func (s *Searcher) Minimax(b *board.Board, depth, alpha, beta int, c board.Color) int {
	s.nodes++

	if depth == 0 || b.State.IsOver() {
		return Evaluate(b, c)
	}
	if s.stopFlag.Load() {
		return 0
	}

	moves := b.AllLegalMoves(c)
	if len(moves) == 0 {
		if b.InCheck(c) {
			// Mated with plies left: shallower mates score lower.
			return -MateScore + (MaxDepth - depth)
		}
		return 0
	}

	OrderMoves(b, moves)

	bestScore := math.MinInt32
	for _, m := range moves {
		child := b.Clone()
		if err := child.MakeMoveAs(m.From, m.To, c); err != nil {
			continue
		}

		score := -s.Minimax(child, depth-1, -beta, -alpha, c.Other())

		bestScore = max(bestScore, score)
		alpha = max(alpha, score)
		if alpha >= beta {
			break
		}
	}

	return bestScore
}

// SearchRoot searches every legal move of color c and returns the best one.
// Ties go to the move searched first. ok is false when c has no legal moves.
func (s *Searcher) SearchRoot(b *board.Board, depth int, c board.Color) (result RootResult, ok bool, err error) {
	s.Reset()

	moves := b.AllLegalMoves(c)
	if len(moves) == 0 {
		return RootResult{Move: board.NoMove}, false, nil
	}

	OrderMoves(b, moves)

	result = RootResult{Move: moves[0], Score: math.MinInt32, Candidates: moves}
	for _, m := range moves {
		child := b.Clone()
		if err := child.MakeMoveAs(m.From, m.To, c); err != nil {
			continue
		}

		score := -s.Minimax(child, depth-1, -Infinity, Infinity, c.Other())
		if s.stopFlag.Load() {
			return RootResult{Move: board.NoMove}, false, ErrSearchStopped
		}

		if score > result.Score {
			result.Score = score
			result.Move = m
		}
	}

	result.Nodes = s.nodes
	return result, true, nil
}
