package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
	"github.com/hailam/slowchess/internal/storage"
)

var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrThinking    = errors.New("computer is thinking")
	ErrGameOver    = errors.New("game is over")
)

// Options configures a Game. Zero values select the defaults.
type Options struct {
	Clock          Clock
	ThinkDurations func(engine.Difficulty) time.Duration
	Logger         zerolog.Logger

	// OnFinish is called once per game, outside the lock, when a move ends it.
	OnFinish func(Result)
}

// Result describes a finished game.
type Result struct {
	State         board.GameState
	Winner        board.Color // NoColor on stalemate
	VsComputer    bool
	ComputerColor board.Color
	Difficulty    engine.Difficulty
	Board         *board.Board // Final position, owned by the receiver
}

// HumanWon reports whether the human side won a game against the computer.
func (r Result) HumanWon() bool {
	return r.VsComputer && r.State == board.Checkmate && r.Winner != r.ComputerColor
}

// Game is the controller hosts talk to: it owns the real board, validates
// human moves and runs the thinking scheduler for the computer side. All
// methods are safe for concurrent use.
type Game struct {
	mu sync.Mutex

	board         *board.Board
	vsComputer    bool
	computerColor board.Color
	difficulty    engine.Difficulty
	lastMove      board.Move
	finished      bool

	thinker  *Thinker
	onFinish func(Result)
	log      zerolog.Logger
}

// New creates a game against the computer playing Black at the default
// difficulty.
func New(eng *engine.Engine, opts Options) *Game {
	g := &Game{
		board:         board.NewBoard(),
		vsComputer:    true,
		computerColor: board.Black,
		difficulty:    engine.DefaultDifficulty,
		lastMove:      board.NoMove,
		thinker:       NewThinker(eng, opts.Clock, opts.ThinkDurations, opts.Logger),
		onFinish:      opts.OnFinish,
		log:           opts.Logger.With().Str("component", "game").Logger(),
	}
	return g
}

// NewGame resets the board, cancelling any computer move in progress. If the
// computer plays White it starts thinking at once.
func (g *Game) NewGame() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *Game) resetLocked() {
	g.thinker.Stop()
	g.board = board.NewBoard()
	g.lastMove = board.NoMove
	g.finished = false
	g.log.Info().
		Bool("vs_computer", g.vsComputer).
		Str("computer", g.computerColor.String()).
		Str("difficulty", g.difficulty.String()).
		Msg("new game")
	g.armLocked()
}

// SetDifficulty sets the computer's strength, clamped to 1..5. A move in
// progress keeps the difficulty it started with.
func (g *Game) SetDifficulty(d engine.Difficulty) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.difficulty = d.Clamp()
}

// Difficulty returns the current difficulty.
func (g *Game) Difficulty() engine.Difficulty {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.difficulty
}

// SetVsComputer switches between playing the computer and two-player mode.
// Changing the mode starts a new game.
func (g *Game) SetVsComputer(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if on == g.vsComputer {
		return
	}
	g.vsComputer = on
	g.resetLocked()
}

// SetComputerColor chooses the computer's side. If it is now the computer's
// turn, it starts thinking.
func (g *Game) SetComputerColor(c board.Color) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c == g.computerColor {
		return
	}
	g.thinker.Stop()
	g.computerColor = c
	g.armLocked()
}

// HumanMove plays a move for the human side. Against the computer it then
// arms the scheduler for the reply.
func (g *Game) HumanMove(from, to board.Square) error {
	result, err := g.humanMove(from, to)
	if err != nil {
		return err
	}
	g.finish(result)
	return nil
}

func (g *Game) humanMove(from, to board.Square) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.board.State.IsOver():
		return nil, ErrGameOver
	case g.thinker.Thinking():
		return nil, ErrThinking
	case g.vsComputer && g.board.Turn == g.computerColor:
		return nil, ErrNotYourTurn
	}

	m := board.NewMove(from, to)
	if err := g.board.MakeMove(from, to); err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}
	g.lastMove = m
	g.log.Debug().Str("move", m.String()).Str("state", g.board.State.String()).Msg("human moved")

	g.armLocked()
	return g.finishedLocked(), nil
}

// NotifyHumanMoved arms the scheduler if it is the computer's turn. Hosts
// that apply human moves through HumanMove need not call it.
func (g *Game) NotifyHumanMoved() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armLocked()
}

// armLocked starts the computer thinking when it is its turn in a live game.
func (g *Game) armLocked() {
	if !g.vsComputer || g.board.Turn != g.computerColor || g.board.State.IsOver() {
		return
	}
	if g.thinker.Thinking() {
		return
	}
	g.thinker.Start(g.board, g.difficulty, g.computerColor)
}

// Poll advances the computer's move without blocking. Hosts call it once
// per frame; Committed is set on the one frame the computer's move lands.
func (g *Game) Poll() Frame {
	frame, result := g.poll()
	g.finish(result)
	return frame
}

func (g *Game) poll() (Frame, *Result) {
	g.mu.Lock()
	defer g.mu.Unlock()

	frame := g.thinker.Poll(g.board)
	if !frame.HasCommitted() {
		return frame, nil
	}
	g.lastMove = frame.Committed
	return frame, g.finishedLocked()
}

// finishedLocked returns the result the first time the board reaches a
// terminal state.
func (g *Game) finishedLocked() *Result {
	if g.finished || !g.board.State.IsOver() {
		return nil
	}
	g.finished = true

	r := &Result{
		State:         g.board.State,
		Winner:        board.NoColor,
		VsComputer:    g.vsComputer,
		ComputerColor: g.computerColor,
		Difficulty:    g.difficulty,
		Board:         g.board.Clone(),
	}
	if r.State == board.Checkmate {
		r.Winner = g.board.Turn.Other()
	}
	g.log.Info().Str("status", g.board.StatusText()).Int("moves", len(g.board.History)).Msg("game over")
	return r
}

func (g *Game) finish(r *Result) {
	if r != nil && g.onFinish != nil {
		g.onFinish(*r)
	}
}

// Thinking reports whether the computer is working on a move.
func (g *Game) Thinking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.thinker.Thinking()
}

// Board returns a copy of the current position.
func (g *Game) Board() *board.Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.Clone()
}

// LastMove returns the most recent move by either side, or NoMove.
func (g *Game) LastMove() board.Move {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMove
}

// VsComputer reports whether the computer plays one side.
func (g *Game) VsComputer() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vsComputer
}

// ComputerColor returns the side the computer plays.
func (g *Game) ComputerColor() board.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.computerColor
}

// LegalMoves returns the destinations of the piece on sq for the side to move.
func (g *Game) LegalMoves(sq board.Square) []board.Square {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.LegalMoves(sq)
}

// StatusText returns the status line, e.g. "white's turn  |  Move 4".
func (g *Game) StatusText() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	status := g.board.StatusText()
	if g.thinker.Thinking() {
		status = "computer is thinking..."
	}
	return fmt.Sprintf("%s  |  Move %d", status, len(g.board.History))
}

// Snapshot captures the game for the save file.
func (g *Game) Snapshot() *storage.SavedState {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := &storage.SavedState{
		Board:         g.board.Clone(),
		VsComputer:    g.vsComputer,
		ComputerColor: g.computerColor,
		AIDifficulty:  int(g.difficulty),
	}
	if g.lastMove != board.NoMove {
		m := g.lastMove
		s.LastMove = &m
	}
	return s
}

// Restore replaces the game with a saved one. If the saved position has
// the computer to move, it starts thinking.
func (g *Game) Restore(s *storage.SavedState) error {
	if s == nil || s.Board == nil {
		return errors.New("restore: no board")
	}
	if s.ComputerColor != board.White && s.ComputerColor != board.Black {
		return fmt.Errorf("restore: invalid computer color %v", s.ComputerColor)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.thinker.Stop()
	g.board = s.Board.Clone()
	g.vsComputer = s.VsComputer
	g.computerColor = s.ComputerColor
	g.difficulty = engine.Difficulty(s.AIDifficulty).Clamp()
	g.lastMove = board.NoMove
	if s.LastMove != nil {
		g.lastMove = *s.LastMove
	}
	g.finished = g.board.State.IsOver()

	g.log.Info().
		Int("moves", len(g.board.History)).
		Str("difficulty", g.difficulty.String()).
		Msg("game restored")
	g.armLocked()
	return nil
}

// Close stops any search in progress.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thinker.Stop()
}
