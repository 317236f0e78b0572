// Package notation converts slowchess games to and from PGN.
package notation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notnil/chess"

	"github.com/hailam/slowchess/internal/board"
)

// ErrUnderpromotion is returned when an imported game promotes to anything
// but a queen, which the rules engine cannot represent.
var ErrUnderpromotion = errors.New("underpromotion not supported")

// Players names the two sides for the PGN header.
type Players struct {
	White string
	Black string
}

// PlayersFor names the sides of a game. Against the computer the engine side
// carries the difficulty label; in two-player games both sides are human.
func PlayersFor(vsComputer bool, computer board.Color, difficulty, human string) Players {
	human = nameOr(human, "Player")
	if !vsComputer {
		return Players{White: human, Black: human + " 2"}
	}
	engine := fmt.Sprintf("slowchess (%s)", difficulty)
	if computer == board.White {
		return Players{White: engine, Black: human}
	}
	return Players{White: human, Black: engine}
}

// Export renders the move history of b, played from the standard start
// position, as PGN.
func Export(b *board.Board, players Players, date time.Time) (string, error) {
	game := chess.NewGame()
	notation := chess.UCINotation{}

	for i, r := range b.History {
		s := uciString(r)
		m, err := notation.Decode(game.Position(), s)
		if err != nil {
			return "", fmt.Errorf("move %d (%s): %w", i+1, s, err)
		}
		if err := game.Move(m); err != nil {
			return "", fmt.Errorf("move %d (%s): %w", i+1, s, err)
		}
	}

	game.AddTagPair("Event", "slowchess game")
	game.AddTagPair("Site", "slowchess")
	game.AddTagPair("Date", date.Format("2006.01.02"))
	game.AddTagPair("White", nameOr(players.White, "White"))
	game.AddTagPair("Black", nameOr(players.Black, "Black"))
	game.AddTagPair("Result", Result(b))

	return game.String(), nil
}

// Import replays a PGN game onto a fresh board.
func Import(pgn string) (*board.Board, error) {
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	game := chess.NewGame(opt)

	b := board.NewBoard()
	for i, m := range game.Moves() {
		if p := m.Promo(); p != chess.NoPieceType && p != chess.Queen {
			return nil, fmt.Errorf("move %d: %w", i+1, ErrUnderpromotion)
		}
		from, err := board.ParseSquare(m.S1().String())
		if err != nil {
			return nil, err
		}
		to, err := board.ParseSquare(m.S2().String())
		if err != nil {
			return nil, err
		}
		if err := b.MakeMove(from, to); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
	}
	return b, nil
}

// Result returns the PGN result token for b.
func Result(b *board.Board) string {
	switch b.State {
	case board.Checkmate:
		if b.Turn == board.Black {
			return "1-0"
		}
		return "0-1"
	case board.Stalemate:
		return "1/2-1/2"
	}
	return "*"
}

// uciString writes a history entry in UCI form; pawns reaching the last
// rank always became queens.
func uciString(r board.Record) string {
	s := r.Move.String()
	if r.Piece.Type() == board.Pawn && (r.Move.To.Row() == 0 || r.Move.To.Row() == 7) {
		s += "q"
	}
	return s
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
