package board

var (
	knightOffsets = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookDirs      = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDirs    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// pawnDir returns the row delta of a forward pawn step.
func pawnDir(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// LegalMoves returns the legal destinations of the piece on sq. Only pieces
// of the side to move have moves.
func (b *Board) LegalMoves(sq Square) []Square {
	if !sq.IsValid() {
		return nil
	}
	p := b.squares[sq]
	if p == NoPiece || p.Color() != b.Turn {
		return nil
	}
	return b.appendLegal(nil, sq, b.Turn)
}

// LegalMovesFor returns the legal destinations of the piece on sq as if c
// were to move, without touching Turn. En passant is only available when c
// is the side to move.
func (b *Board) LegalMovesFor(sq Square, c Color) []Square {
	if !sq.IsValid() {
		return nil
	}
	p := b.squares[sq]
	if p == NoPiece || p.Color() != c {
		return nil
	}
	return b.appendLegal(nil, sq, c)
}

// CountLegalMoves returns len(LegalMovesFor(sq, c)) without allocating.
func (b *Board) CountLegalMoves(sq Square, c Color) int {
	p := b.squares[sq]
	if p == NoPiece || p.Color() != c {
		return 0
	}
	var buf [32]Square
	return len(b.appendLegal(buf[:0], sq, c))
}

// AllLegalMoves returns every legal move for c in square order.
func (b *Board) AllLegalMoves(c Color) []Move {
	var moves []Move
	var buf [32]Square
	for from := Square(0); from < NoSquare; from++ {
		p := b.squares[from]
		if p == NoPiece || p.Color() != c {
			continue
		}
		for _, to := range b.appendLegal(buf[:0], from, c) {
			moves = append(moves, NewMove(from, to))
		}
	}
	return moves
}

// appendLegal appends the legal destinations of the piece on from, which
// must belong to c.
func (b *Board) appendLegal(dst []Square, from Square, c Color) []Square {
	start := len(dst)
	dst = b.appendPseudo(dst, from, c)

	piece := b.squares[from]
	kingSq := b.kings[c]
	n := start
	for _, to := range dst[start:] {
		k := kingSq
		if piece.Type() == King {
			k = to
		}
		if k == NoSquare || !b.leavesKingAttacked(from, to, piece, k) {
			dst[n] = to
			n++
		}
	}
	return dst[:n]
}

func (b *Board) leavesKingAttacked(from, to Square, piece Piece, kingSq Square) bool {
	sq := b.squares
	if piece.Type() == Pawn && to == b.EnPassant && sq[to] == NoPiece && from.Col() != to.Col() {
		sq[NewSquare(from.Row(), to.Col())] = NoPiece
	}
	sq[to] = piece
	sq[from] = NoPiece
	return isAttacked(&sq, kingSq, piece.Color().Other())
}

// appendPseudo appends destinations that obey piece movement but may leave
// the own king in check.
func (b *Board) appendPseudo(dst []Square, from Square, c Color) []Square {
	piece := b.squares[from]
	r, col := from.Row(), from.Col()

	switch piece.Type() {
	case Pawn:
		dir := pawnDir(c)
		startRow := 6
		if c == Black {
			startRow = 1
		}

		nr := r + dir
		if inBounds(nr, col) && b.squares[NewSquare(nr, col)] == NoPiece {
			dst = append(dst, NewSquare(nr, col))
			nr2 := r + 2*dir
			if r == startRow && b.squares[NewSquare(nr2, col)] == NoPiece {
				dst = append(dst, NewSquare(nr2, col))
			}
		}
		for _, dc := range [2]int{-1, 1} {
			nc := col + dc
			if !inBounds(nr, nc) {
				continue
			}
			to := NewSquare(nr, nc)
			target := b.squares[to]
			if target != NoPiece && target.Color() != c {
				dst = append(dst, to)
				continue
			}
			if target == NoPiece && to == b.EnPassant && c == b.Turn &&
				b.squares[NewSquare(r, nc)] == NewPiece(Pawn, c.Other()) {
				dst = append(dst, to)
			}
		}

	case Knight:
		dst = b.appendSteps(dst, r, col, c, knightOffsets[:])

	case King:
		dst = b.appendSteps(dst, r, col, c, kingOffsets[:])
		dst = b.appendCastling(dst, from, c)

	case Rook:
		dst = b.appendSlides(dst, r, col, c, rookDirs[:])

	case Bishop:
		dst = b.appendSlides(dst, r, col, c, bishopDirs[:])

	case Queen:
		dst = b.appendSlides(dst, r, col, c, rookDirs[:])
		dst = b.appendSlides(dst, r, col, c, bishopDirs[:])
	}

	return dst
}

func (b *Board) appendSteps(dst []Square, r, col int, c Color, offsets [][2]int) []Square {
	for _, d := range offsets {
		nr, nc := r+d[0], col+d[1]
		if !inBounds(nr, nc) {
			continue
		}
		to := NewSquare(nr, nc)
		if target := b.squares[to]; target == NoPiece || target.Color() != c {
			dst = append(dst, to)
		}
	}
	return dst
}

func (b *Board) appendSlides(dst []Square, r, col int, c Color, dirs [][2]int) []Square {
	for _, d := range dirs {
		nr, nc := r+d[0], col+d[1]
		for inBounds(nr, nc) {
			to := NewSquare(nr, nc)
			if target := b.squares[to]; target != NoPiece {
				if target.Color() != c {
					dst = append(dst, to)
				}
				break
			}
			dst = append(dst, to)
			nr += d[0]
			nc += d[1]
		}
	}
	return dst
}

// appendCastling adds the king's two-square castling steps. The destination
// square's safety is left to the legality filter.
func (b *Board) appendCastling(dst []Square, from Square, c Color) []Square {
	row := backRank(c)
	if from != NewSquare(row, 4) {
		return dst
	}
	rook := NewPiece(Rook, c)
	them := c.Other()

	empty := func(cols ...int) bool {
		for _, cc := range cols {
			if b.squares[NewSquare(row, cc)] != NoPiece {
				return false
			}
		}
		return true
	}

	if b.Castling&kingSide(c) != 0 && b.squares[NewSquare(row, 7)] == rook && empty(5, 6) {
		if !isAttacked(&b.squares, from, them) && !isAttacked(&b.squares, NewSquare(row, 5), them) {
			dst = append(dst, NewSquare(row, 6))
		}
	}
	if b.Castling&queenSide(c) != 0 && b.squares[NewSquare(row, 0)] == rook && empty(1, 2, 3) {
		if !isAttacked(&b.squares, from, them) && !isAttacked(&b.squares, NewSquare(row, 3), them) {
			dst = append(dst, NewSquare(row, 2))
		}
	}
	return dst
}

// isAttacked reports whether sq is attacked by a piece of color by.
func isAttacked(squares *[64]Piece, sq Square, by Color) bool {
	r, c := sq.Row(), sq.Col()

	// A pawn attacks one row ahead of itself, so look one row behind sq
	// from the attacker's point of view.
	pr := r - pawnDir(by)
	pawn := NewPiece(Pawn, by)
	for _, dc := range [2]int{-1, 1} {
		if inBounds(pr, c+dc) && squares[NewSquare(pr, c+dc)] == pawn {
			return true
		}
	}

	knight := NewPiece(Knight, by)
	for _, d := range knightOffsets {
		nr, nc := r+d[0], c+d[1]
		if inBounds(nr, nc) && squares[NewSquare(nr, nc)] == knight {
			return true
		}
	}

	king := NewPiece(King, by)
	for _, d := range kingOffsets {
		nr, nc := r+d[0], c+d[1]
		if inBounds(nr, nc) && squares[NewSquare(nr, nc)] == king {
			return true
		}
	}

	queen := NewPiece(Queen, by)
	if rayHits(squares, r, c, rookDirs[:], NewPiece(Rook, by), queen) {
		return true
	}
	return rayHits(squares, r, c, bishopDirs[:], NewPiece(Bishop, by), queen)
}

func rayHits(squares *[64]Piece, r, c int, dirs [][2]int, slider, queen Piece) bool {
	for _, d := range dirs {
		nr, nc := r+d[0], c+d[1]
		for inBounds(nr, nc) {
			p := squares[NewSquare(nr, nc)]
			if p != NoPiece {
				if p == slider || p == queen {
					return true
				}
				break
			}
			nr += d[0]
			nc += d[1]
		}
	}
	return false
}
