package board

import (
	"fmt"
	"strings"
)

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the lowercase color name.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// MarshalText encodes the color as "white" or "black".
func (c Color) MarshalText() ([]byte, error) {
	if c >= NoColor {
		return nil, fmt.Errorf("invalid color: %d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes "white"/"w" or "black"/"b".
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses a color name.
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "White", "w":
		return White, nil
	case "black", "Black", "b":
		return Black, nil
	}
	return NoColor, fmt.Errorf("invalid color: %q", s)
}

// PieceType represents the type of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

var pieceTypeNames = [...]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King", "None"}

func (pt PieceType) String() string {
	return pieceTypeNames[min(pt, NoPieceType)]
}

// Piece combines PieceType and Color into a single value.
// Encoded as: pieceType + color*6. NoPiece marks an empty square.
type Piece uint8

const (
	WhitePawn   Piece = Piece(Pawn) + Piece(White)*6
	WhiteKnight Piece = Piece(Knight) + Piece(White)*6
	WhiteBishop Piece = Piece(Bishop) + Piece(White)*6
	WhiteRook   Piece = Piece(Rook) + Piece(White)*6
	WhiteQueen  Piece = Piece(Queen) + Piece(White)*6
	WhiteKing   Piece = Piece(King) + Piece(White)*6
	BlackPawn   Piece = Piece(Pawn) + Piece(Black)*6
	BlackKnight Piece = Piece(Knight) + Piece(Black)*6
	BlackBishop Piece = Piece(Bishop) + Piece(Black)*6
	BlackRook   Piece = Piece(Rook) + Piece(Black)*6
	BlackQueen  Piece = Piece(Queen) + Piece(Black)*6
	BlackKing   Piece = Piece(King) + Piece(Black)*6
	NoPiece     Piece = 12
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// fenChars is indexed by Piece.
const fenChars = "PNBRQKpnbrqk"

// String returns the FEN character for the piece, or a space for NoPiece.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	return fenChars[p : p+1]
}

// MarshalText encodes the piece as its FEN character, or "" for NoPiece.
func (p Piece) MarshalText() ([]byte, error) {
	if p >= NoPiece {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a FEN character; the empty string is NoPiece.
func (p *Piece) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = NoPiece
		return nil
	}
	parsed := PieceFromChar(text[0])
	if len(text) != 1 || parsed == NoPiece {
		return fmt.Errorf("invalid piece: %q", text)
	}
	*p = parsed
	return nil
}

// PieceFromChar converts a FEN character to a Piece, or NoPiece.
func PieceFromChar(c byte) Piece {
	i := strings.IndexByte(fenChars, c)
	if i < 0 {
		return NoPiece
	}
	return Piece(i)
}
