package board

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 b - - 12 40",
	}
	for _, fen := range fens {
		b, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got := b.ToFEN(); got != fen {
			t.Errorf("ToFEN() = %q, want %q", got, fen)
		}
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq -",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9",
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("ParseFEN(%q) = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestSquareNotation(t *testing.T) {
	tests := []struct {
		s        string
		row, col int
	}{
		{"a8", 0, 0},
		{"h8", 0, 7},
		{"a1", 7, 0},
		{"e4", 4, 4},
		{"d5", 3, 3},
	}
	for _, tt := range tests {
		sq, err := ParseSquare(tt.s)
		if err != nil {
			t.Fatalf("ParseSquare(%q): %v", tt.s, err)
		}
		if sq.Row() != tt.row || sq.Col() != tt.col {
			t.Errorf("%s = (%d,%d), want (%d,%d)", tt.s, sq.Row(), sq.Col(), tt.row, tt.col)
		}
		if sq.String() != tt.s {
			t.Errorf("String() = %q, want %q", sq.String(), tt.s)
		}
		if sq.Mirror().Row() != 7-tt.row || sq.Mirror().Col() != tt.col {
			t.Errorf("Mirror(%s) = %s", tt.s, sq.Mirror())
		}
	}
	if _, err := ParseSquare("i1"); err == nil {
		t.Error("expected error for off-board square")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBoard()
	e2, _ := ParseSquare("e2")
	e4, _ := ParseSquare("e4")
	if err := b.MakeMove(e2, e4); err != nil {
		t.Fatal(err)
	}

	c1 := b.Clone()
	c2 := b.Clone()
	e7, _ := ParseSquare("e7")
	e5, _ := ParseSquare("e5")
	d7, _ := ParseSquare("d7")
	d5, _ := ParseSquare("d5")
	if err := c1.MakeMove(e7, e5); err != nil {
		t.Fatal(err)
	}
	if err := c2.MakeMove(d7, d5); err != nil {
		t.Fatal(err)
	}

	if len(b.History) != 1 || b.Turn != Black {
		t.Errorf("original mutated: history=%d turn=%v", len(b.History), b.Turn)
	}
	if c1.History[1].Move.To != e5 || c2.History[1].Move.To != d5 {
		t.Errorf("clones share history: %v / %v", c1.History, c2.History)
	}
	if b.Get(e5) != NoPiece || b.Get(d5) != NoPiece {
		t.Error("original squares mutated by clone")
	}
}

func TestBoardJSONRoundTrip(t *testing.T) {
	b := NewBoard()
	for _, s := range []string{"e2e4", "d7d5", "e4d5"} {
		m, err := ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := b.MakeMove(m.From, m.To); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var restored Board
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}

	if restored.ToFEN() != b.ToFEN() {
		t.Errorf("FEN = %q, want %q", restored.ToFEN(), b.ToFEN())
	}
	if len(restored.History) != 3 {
		t.Fatalf("history length = %d", len(restored.History))
	}
	if got := restored.Notation(); got[2] != "exd5" {
		t.Errorf("notation = %v", got)
	}
	if restored.History[0].Captured != NoPiece || restored.History[2].Captured != BlackPawn {
		t.Errorf("captured pieces lost: %+v", restored.History)
	}
	if restored.KingSquare(White) != E1 || restored.KingSquare(Black) != E8 {
		t.Error("king squares not restored")
	}
}
