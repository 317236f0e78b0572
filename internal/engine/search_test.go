package engine

import (
	"math"
	"testing"

	"github.com/hailam/slowchess/internal/board"
)

// negamax is Minimax without pruning.
func negamax(b *board.Board, depth int, c board.Color) int {
	if depth == 0 || b.State.IsOver() {
		return Evaluate(b, c)
	}
	moves := b.AllLegalMoves(c)
	if len(moves) == 0 {
		if b.InCheck(c) {
			return -MateScore + (MaxDepth - depth)
		}
		return 0
	}
	OrderMoves(b, moves)

	best := math.MinInt32
	for _, m := range moves {
		child := b.Clone()
		if err := child.MakeMoveAs(m.From, m.To, c); err != nil {
			continue
		}
		best = max(best, -negamax(child, depth-1, c.Other()))
	}
	return best
}

func TestLeafIsEvaluate(t *testing.T) {
	for _, fen := range []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"R6k/6pp/8/8/8/8/8/K7 b - - 0 1",
	} {
		b := mustFEN(t, fen)
		s := NewSearcher()
		for _, c := range []board.Color{board.White, board.Black} {
			if got, want := s.Minimax(b, 0, -Infinity, Infinity, c), Evaluate(b, c); got != want {
				t.Errorf("%s: Minimax depth 0 for %v = %d, want %d", fen, c, got, want)
			}
		}
	}
}

func TestAlphaBetaMatchesNegamax(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		depth int
	}{
		{"start", board.StartFEN, 2},
		{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 2},
		{"rooks", "r3k2r/8/8/3Qq3/8/8/8/R3K2R w KQkq - 0 1", 3},
		{"pawn race", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustFEN(t, tt.fen)
			s := NewSearcher()
			result, ok, err := s.SearchRoot(b, tt.depth, b.Turn)
			if err != nil || !ok {
				t.Fatalf("SearchRoot: ok=%v err=%v", ok, err)
			}

			moves := b.AllLegalMoves(b.Turn)
			OrderMoves(b, moves)
			wantScore := math.MinInt32
			wantMove := board.NoMove
			for _, m := range moves {
				child := b.Clone()
				if err := child.MakeMoveAs(m.From, m.To, b.Turn); err != nil {
					t.Fatal(err)
				}
				if score := -negamax(child, tt.depth-1, b.Turn.Other()); score > wantScore {
					wantScore, wantMove = score, m
				}
			}

			if result.Score != wantScore || result.Move != wantMove {
				t.Errorf("alpha-beta = %v (%d), negamax = %v (%d)", result.Move, result.Score, wantMove, wantScore)
			}
			if result.Nodes == 0 {
				t.Error("no nodes counted")
			}
		})
	}
}

func TestFindsMateInOne(t *testing.T) {
	b := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	for depth := 1; depth <= 3; depth++ {
		s := NewSearcher()
		result, ok, err := s.SearchRoot(b, depth, board.White)
		if err != nil || !ok {
			t.Fatalf("depth %d: ok=%v err=%v", depth, ok, err)
		}
		if result.Move.String() != "a1a8" {
			t.Errorf("depth %d: best = %v, want a1a8", depth, result.Move)
		}
		if result.Score < MateScore/2 {
			t.Errorf("depth %d: score = %d, want a mate score", depth, result.Score)
		}
	}
}

func TestAvoidsMateInOne(t *testing.T) {
	// Black to move must make luft before Ra8 mates.
	b := mustFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1")
	s := NewSearcher()
	result, ok, err := s.SearchRoot(b, 2, board.Black)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if result.Score < -MateScore/2 {
		t.Errorf("score = %d, black walked into mate with %v", result.Score, result.Move)
	}
}

func TestSearchRootNoMoves(t *testing.T) {
	b := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if b.State != board.Stalemate {
		t.Fatalf("state = %v, want stalemate", b.State)
	}
	s := NewSearcher()
	result, ok, err := s.SearchRoot(b, 3, board.Black)
	if err != nil || ok {
		t.Errorf("ok=%v err=%v, want no result", ok, err)
	}
	if result.Move != board.NoMove {
		t.Errorf("move = %v, want NoMove", result.Move)
	}
}

func TestSearchRootCandidates(t *testing.T) {
	b := board.NewBoard()
	s := NewSearcher()
	result, ok, err := s.SearchRoot(b, 1, board.White)
	if err != nil || !ok {
		t.Fatal(err)
	}
	if len(result.Candidates) != 20 {
		t.Errorf("candidates = %d, want 20", len(result.Candidates))
	}
}

func TestStoppedSearcherReturnsZero(t *testing.T) {
	b := board.NewBoard()
	s := NewSearcher()
	s.Stop()
	if !s.IsStopped() {
		t.Fatal("IsStopped() = false after Stop")
	}
	if got := s.Minimax(b, 3, -Infinity, Infinity, board.White); got != 0 {
		t.Errorf("stopped Minimax = %d, want 0", got)
	}
	s.Reset()
	if s.IsStopped() || s.Nodes() != 0 {
		t.Error("Reset did not clear state")
	}
}
