package board

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned when a move is not legal in the current position.
var ErrIllegalMove = errors.New("illegal move")

// Move is a (from, to) square pair. Promotion always yields a queen,
// castling is encoded as the king's two-square step and en passant as the
// pawn's diagonal step onto the empty target square.
type Move struct {
	From Square
	To   Square
}

// NoMove represents an invalid or null move.
var NoMove = Move{From: NoSquare, To: NoSquare}

// NewMove creates a move.
func NewMove(from, to Square) Move {
	return Move{From: from, To: to}
}

// IsValid returns true if both squares are on the board.
func (m Move) IsValid() bool {
	return m.From.IsValid() && m.To.IsValid()
}

// String returns the coordinate form of the move (e.g., "e2e4").
func (m Move) String() string {
	if !m.IsValid() {
		return "0000"
	}
	return m.From.String() + m.To.String()
}

// ParseMove parses a coordinate move string. A trailing promotion letter is
// accepted and ignored since promotion is always to a queen.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	return NewMove(from, to), nil
}

// MarshalText encodes the move in coordinate form.
func (m Move) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a coordinate move.
func (m *Move) UnmarshalText(text []byte) error {
	parsed, err := ParseMove(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Record is one entry of a board's move history.
type Record struct {
	Move     Move  `json:"move"`
	Piece    Piece `json:"piece"`
	Captured Piece `json:"captured"`
}

// Notation returns the short notation used in the move list,
// e.g. "e4", "Nxf3", "O-O".
func (r Record) Notation() string {
	pt := r.Piece.Type()
	if pt == King {
		switch r.Move.To.Col() - r.Move.From.Col() {
		case 2:
			return "O-O"
		case -2:
			return "O-O-O"
		}
	}

	s := ""
	if pt != Pawn {
		s = string(pieceLetters[pt])
	}
	if r.Captured != NoPiece {
		if pt == Pawn {
			s += string(rune('a' + r.Move.From.Col()))
		}
		s += "x"
	}
	s += r.Move.To.String()
	if pt == Pawn && (r.Move.To.Row() == 0 || r.Move.To.Row() == 7) {
		s += "=Q"
	}
	return s
}

var pieceLetters = []byte{'P', 'N', 'B', 'R', 'Q', 'K'}

// GameState describes whether play continues.
type GameState uint8

const (
	Playing GameState = iota
	Check
	Checkmate
	Stalemate
)

// String returns the state name.
func (s GameState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Check:
		return "check"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	default:
		return "unknown"
	}
}

// IsOver returns true for checkmate and stalemate.
func (s GameState) IsOver() bool {
	return s == Checkmate || s == Stalemate
}
