package board

import (
	"slices"
	"strings"
)

// CastlingRights is a bit set of the four castling permissions.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling CastlingRights = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func kingSide(c Color) CastlingRights {
	if c == White {
		return WhiteKingSide
	}
	return BlackKingSide
}

func queenSide(c Color) CastlingRights {
	if c == White {
		return WhiteQueenSide
	}
	return BlackQueenSide
}

// backRank returns the row holding the color's pieces at the start.
func backRank(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// Board is a chess position plus the history of moves that produced it.
//
// Copying a Board value shares the History backing array; use Clone for an
// independent board. History entries are never modified in place.
type Board struct {
	squares [64]Piece
	kings   [2]Square

	Turn           Color
	State          GameState
	Castling       CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int
	History        []Record
}

// NewBoard returns the standard starting position.
func NewBoard() *Board {
	b, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

// Empty returns a board with no pieces, White to move and no castling rights.
func Empty() *Board {
	b := &Board{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	for i := range b.squares {
		b.squares[i] = NoPiece
	}
	b.kings = [2]Square{NoSquare, NoSquare}
	return b
}

// Get returns the piece on sq, or NoPiece.
func (b *Board) Get(sq Square) Piece {
	return b.squares[sq]
}

// SetPiece places p on sq (NoPiece clears it). Call UpdateState after
// finishing a hand-built position.
func (b *Board) SetPiece(sq Square, p Piece) {
	old := b.squares[sq]
	if old.Type() == King && b.kings[old.Color()] == sq {
		b.kings[old.Color()] = NoSquare
	}
	b.squares[sq] = p
	if p.Type() == King {
		b.kings[p.Color()] = sq
	}
}

// KingSquare returns the square of color's king, or NoSquare.
func (b *Board) KingSquare(c Color) Square {
	return b.kings[c]
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	// Clipping forces the clone's next append to reallocate, so the shared
	// prefix is never written through either board.
	c.History = slices.Clip(b.History)
	return &c
}

// InCheck returns true if color's king is attacked.
func (b *Board) InCheck(c Color) bool {
	k := b.kings[c]
	if k == NoSquare {
		return false
	}
	return isAttacked(&b.squares, k, c.Other())
}

// LastMove returns the most recent move, or NoMove.
func (b *Board) LastMove() Move {
	if len(b.History) == 0 {
		return NoMove
	}
	return b.History[len(b.History)-1].Move
}

// Notation returns the move list in short notation.
func (b *Board) Notation() []string {
	out := make([]string, len(b.History))
	for i, r := range b.History {
		out[i] = r.Notation()
	}
	return out
}

// MakeMove plays a legal move for the side to move and updates the turn,
// game state and history.
func (b *Board) MakeMove(from, to Square) error {
	if !from.IsValid() || !to.IsValid() {
		return ErrIllegalMove
	}
	piece := b.squares[from]
	if piece == NoPiece || piece.Color() != b.Turn {
		return ErrIllegalMove
	}
	if !b.isLegal(from, to, b.Turn) {
		return ErrIllegalMove
	}

	b.apply(from, to, piece)
	b.UpdateState()
	return nil
}

// MakeMoveAs sets the side to move to c and then plays the move.
func (b *Board) MakeMoveAs(from, to Square, c Color) error {
	if b.Turn != c {
		b.Turn = c
		b.EnPassant = NoSquare
	}
	return b.MakeMove(from, to)
}

func (b *Board) isLegal(from, to Square, c Color) bool {
	var buf [32]Square
	for _, sq := range b.appendLegal(buf[:0], from, c) {
		if sq == to {
			return true
		}
	}
	return false
}

// apply moves the piece without legality checks.
func (b *Board) apply(from, to Square, piece Piece) {
	us := piece.Color()
	pt := piece.Type()
	captured := b.squares[to]

	if pt == Pawn && to == b.EnPassant && captured == NoPiece {
		capSq := NewSquare(from.Row(), to.Col())
		captured = b.squares[capSq]
		b.squares[capSq] = NoPiece
	}

	b.EnPassant = NoSquare
	if pt == Pawn && abs(from.Row()-to.Row()) == 2 {
		b.EnPassant = NewSquare((from.Row()+to.Row())/2, from.Col())
	}

	if pt == King && abs(from.Col()-to.Col()) == 2 {
		row := from.Row()
		if to.Col() == 6 {
			b.squares[NewSquare(row, 5)] = b.squares[NewSquare(row, 7)]
			b.squares[NewSquare(row, 7)] = NoPiece
		} else {
			b.squares[NewSquare(row, 3)] = b.squares[NewSquare(row, 0)]
			b.squares[NewSquare(row, 0)] = NoPiece
		}
	}

	b.Castling &^= rightsLostAt(from) | rightsLostAt(to)

	b.squares[to] = piece
	b.squares[from] = NoPiece
	if pt == King {
		b.kings[us] = to
	}
	if pt == Pawn && (to.Row() == 0 || to.Row() == 7) {
		b.squares[to] = NewPiece(Queen, us)
	}

	if pt == Pawn || captured != NoPiece {
		b.HalfMoveClock = 0
	} else {
		b.HalfMoveClock++
	}
	if us == Black {
		b.FullMoveNumber++
	}

	b.History = append(b.History, Record{Move: NewMove(from, to), Piece: piece, Captured: captured})
	b.Turn = us.Other()
}

// rightsLostAt returns the castling rights revoked when a piece leaves or
// arrives on sq.
func rightsLostAt(sq Square) CastlingRights {
	switch sq {
	case E1:
		return WhiteKingSide | WhiteQueenSide
	case H1:
		return WhiteKingSide
	case A1:
		return WhiteQueenSide
	case E8:
		return BlackKingSide | BlackQueenSide
	case H8:
		return BlackKingSide
	case A8:
		return BlackQueenSide
	}
	return NoCastling
}

// UpdateState recomputes State for the side to move.
func (b *Board) UpdateState() {
	hasMoves := b.HasLegalMoves(b.Turn)
	if b.InCheck(b.Turn) {
		if hasMoves {
			b.State = Check
		} else {
			b.State = Checkmate
		}
		return
	}
	if hasMoves {
		b.State = Playing
	} else {
		b.State = Stalemate
	}
}

// HasLegalMoves returns true if color has at least one legal move.
func (b *Board) HasLegalMoves(c Color) bool {
	var buf [32]Square
	for sq := Square(0); sq < NoSquare; sq++ {
		p := b.squares[sq]
		if p == NoPiece || p.Color() != c {
			continue
		}
		if len(b.appendLegal(buf[:0], sq, c)) > 0 {
			return true
		}
	}
	return false
}

// String renders the board as text, rank 8 first.
func (b *Board) String() string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		sb.WriteByte(byte('8' - row))
		sb.WriteByte(' ')
		for col := 0; col < 8; col++ {
			p := b.squares[NewSquare(row, col)]
			if p == NoPiece {
				sb.WriteString(" .")
			} else {
				sb.WriteByte(' ')
				sb.WriteString(p.String())
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   a b c d e f g h\n")
	return sb.String()
}

// StatusText returns a one-line description of the game state.
func (b *Board) StatusText() string {
	switch b.State {
	case Check:
		return b.Turn.String() + " is in check!"
	case Checkmate:
		return "checkmate! " + b.Turn.Other().String() + " wins!"
	case Stalemate:
		return "stalemate — draw! (no legal moves)"
	default:
		return b.Turn.String() + "'s turn"
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
