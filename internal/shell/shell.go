// Package shell is a line-oriented terminal front end for a game.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
	"github.com/hailam/slowchess/internal/game"
	"github.com/hailam/slowchess/internal/notation"
	"github.com/hailam/slowchess/internal/storage"
)

// Records is the stats source behind the "stats" and "history" commands.
type Records interface {
	Stats() (*storage.GameStats, error)
	RecentGames(limit int) ([]storage.ArchivedGame, error)
}

// Options configures a Shell.
type Options struct {
	Records Records // Optional
	Players func() notation.Players
	Logger  zerolog.Logger
}

// Shell reads commands and prints the board. Watch must run alongside Run
// for the computer's moves to land.
type Shell struct {
	game    *game.Game
	records Records
	players func() notation.Players

	outMu sync.Mutex
	out   io.Writer
	log   zerolog.Logger
}

// New creates a shell for g writing to out.
func New(g *game.Game, out io.Writer, opts Options) *Shell {
	s := &Shell{
		game:    g,
		records: opts.Records,
		players: opts.Players,
		out:     out,
		log:     opts.Logger.With().Str("component", "shell").Logger(),
	}
	if s.players == nil {
		s.players = func() notation.Players {
			return notation.PlayersFor(g.VsComputer(), g.ComputerColor(), g.Difficulty().String(), "")
		}
	}
	return s
}

// Run reads commands from in until "quit", end of input or ctx ends.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-quit:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.printf("%s\n%s\n", s.game.Board(), s.game.StatusText())
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if s.exec(strings.Fields(line)) {
				return nil
			}
		}
	}
}

// exec runs one command and reports whether the shell should exit.
func (s *Shell) exec(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.printHelp()
	case "d", "board":
		s.printf("%s\n%s\n", s.game.Board(), s.game.StatusText())
	case "fen":
		s.printf("%s\n", s.game.Board().ToFEN())
	case "status":
		s.printf("%s\n", s.game.StatusText())
	case "new":
		s.newGame(args)
	case "move", "m":
		if len(args) != 1 {
			s.printf("usage: move e2e4\n")
			return false
		}
		s.move(args[0])
	case "moves":
		s.legalMoves(args)
	case "difficulty", "level":
		s.difficulty(args)
	case "pgn":
		s.pgn()
	case "load":
		s.load(args)
	case "stats":
		s.stats()
	case "history":
		s.history()
	default:
		// A bare coordinate move.
		if _, err := board.ParseMove(cmd); err == nil {
			s.move(cmd)
			return false
		}
		s.printf("unknown command %q, try help\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	s.printf(`commands:
  e2e4 | move e2e4        play a move
  moves e2                legal targets from a square
  new [white|black|two]   new game; the side is yours, two is two-player
  difficulty [1-5|name]   show or set the computer's level
  d | board               show the board
  fen | status | pgn      position, status line, game record
  load game.pgn           continue a game from a PGN file
  stats | history         lifetime results and recent games
  quit
`)
}

func (s *Shell) move(text string) {
	m, err := board.ParseMove(text)
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	if err := s.game.HumanMove(m.From, m.To); err != nil {
		switch {
		case errors.Is(err, game.ErrThinking):
			s.printf("wait, the computer is thinking\n")
		case errors.Is(err, game.ErrNotYourTurn):
			s.printf("it is the computer's turn\n")
		case errors.Is(err, game.ErrGameOver):
			s.printf("the game is over, type new\n")
		default:
			s.printf("%v\n", err)
		}
		return
	}
	s.printf("%s\n%s\n", s.game.Board(), s.game.StatusText())
}

func (s *Shell) newGame(args []string) {
	vsComputer, computer := s.game.VsComputer(), s.game.ComputerColor()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "two", "2":
			vsComputer = false
		case "white", "w":
			vsComputer, computer = true, board.Black
		case "black", "b":
			vsComputer, computer = true, board.White
		default:
			s.printf("usage: new [white|black|two]\n")
			return
		}
	}

	s.game.NewGame()
	s.game.SetVsComputer(vsComputer)
	s.game.SetComputerColor(computer)
	s.printf("%s\n%s\n", s.game.Board(), s.game.StatusText())
}

func (s *Shell) legalMoves(args []string) {
	if len(args) != 1 {
		s.printf("usage: moves e2\n")
		return
	}
	sq, err := board.ParseSquare(args[0])
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	targets := s.game.LegalMoves(sq)
	if len(targets) == 0 {
		s.printf("no moves from %s\n", sq)
		return
	}
	names := make([]string, len(targets))
	for i, to := range targets {
		names[i] = to.String()
	}
	s.printf("%s: %s\n", sq, strings.Join(names, " "))
}

func (s *Shell) difficulty(args []string) {
	if len(args) == 0 {
		d := s.game.Difficulty()
		s.printf("difficulty %d (%s): depth %d, blunders %d%%, thinks %v\n",
			d, d, d.Depth(), d.BlunderChance(), d.ThinkDuration())
		return
	}
	d, err := engine.ParseDifficulty(strings.ToLower(args[0]))
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	s.game.SetDifficulty(d)
	s.printf("difficulty set to %s\n", d)
}

func (s *Shell) pgn() {
	text, err := notation.Export(s.game.Board(), s.players(), time.Now())
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	s.printf("%s\n", text)
}

// load replays a PGN file and continues from its final position in the
// current mode.
func (s *Shell) load(args []string) {
	if len(args) != 1 {
		s.printf("usage: load game.pgn\n")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	b, err := notation.Import(string(data))
	if err != nil {
		s.printf("%v\n", err)
		return
	}

	saved := &storage.SavedState{
		Board:         b,
		VsComputer:    s.game.VsComputer(),
		ComputerColor: s.game.ComputerColor(),
		AIDifficulty:  int(s.game.Difficulty()),
	}
	if m := b.LastMove(); m != board.NoMove {
		saved.LastMove = &m
	}
	if err := s.game.Restore(saved); err != nil {
		s.printf("%v\n", err)
		return
	}
	s.log.Info().Str("path", args[0]).Int("moves", len(b.History)).Msg("game loaded")
	s.printf("%s\n%s\n", s.game.Board(), s.game.StatusText())
}

func (s *Shell) stats() {
	if s.records == nil {
		s.printf("no stats database\n")
		return
	}
	st, err := s.records.Stats()
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	s.printf("played %d: %d won, %d lost, %d drawn, %d two-player\n",
		st.GamesPlayed, st.Wins, st.Losses, st.Draws, st.TwoPlayer)
	s.printf("win rate %.0f%%, best streak %d, current streak %d\n",
		st.WinRate(), st.LongestWinStrk, st.CurrentStreak)
	for d := engine.MinDifficulty; d <= engine.MaxDifficulty; d++ {
		if n := st.WinsByDiff[d.String()]; n > 0 {
			s.printf("  %-8s %d wins\n", d, n)
		}
	}
}

func (s *Shell) history() {
	if s.records == nil {
		s.printf("no stats database\n")
		return
	}
	games, err := s.records.RecentGames(5)
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	if len(games) == 0 {
		s.printf("no finished games yet\n")
		return
	}
	for _, g := range games {
		s.printf("--- %s\n%s\n", g.FinishedAt.Format(time.DateTime), g.PGN)
	}
}

// Watch polls the game every interval until ctx ends, printing the
// computer's moves as they land.
func (s *Shell) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f := s.game.Poll()
			if !f.HasCommitted() {
				continue
			}
			s.log.Debug().Str("move", f.Committed.String()).Msg("computer move shown")
			s.printf("computer plays %s\n%s\n%s\n", f.Committed, s.game.Board(), s.game.StatusText())
		}
	}
}

func (s *Shell) printf(format string, a ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, a...)
}
