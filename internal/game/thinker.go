// Package game drives a chess game against the computer: the thinking
// scheduler that paces computer moves and the controller hosts talk to.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
)

// Frame is what a host sees on each poll.
type Frame struct {
	Thinking  bool       `json:"thinking"`
	Progress  float64    `json:"progress"`  // 0..1, presentation only
	Committed board.Move `json:"committed"` // NoMove unless a move was applied this frame
}

// HasCommitted reports whether the frame carries a committed move.
func (f Frame) HasCommitted() bool {
	return f.Committed != board.NoMove
}

type thinkResult struct {
	move board.Move
	err  error
}

// Thinker paces computer moves. Start launches the search in its own
// goroutine; Poll applies the result no earlier than the difficulty's think
// duration after Start, even when the search finishes sooner.
//
// A Thinker is driven from one goroutine (the host's frame loop); only the
// search runs elsewhere.
type Thinker struct {
	engine    *engine.Engine
	clock     Clock
	durations func(engine.Difficulty) time.Duration
	log       zerolog.Logger

	thinking bool
	start    time.Time
	duration time.Duration
	color    board.Color
	cancel   context.CancelFunc
	results  chan thinkResult

	pending    board.Move
	hasPending bool
}

// NewThinker creates an idle scheduler. durations may be nil to use the
// difficulty's default think time.
func NewThinker(eng *engine.Engine, clock Clock, durations func(engine.Difficulty) time.Duration, logger zerolog.Logger) *Thinker {
	if clock == nil {
		clock = SystemClock{}
	}
	if durations == nil {
		durations = engine.Difficulty.ThinkDuration
	}
	return &Thinker{
		engine:    eng,
		clock:     clock,
		durations: durations,
		log:       logger.With().Str("component", "thinker").Logger(),
		pending:   board.NoMove,
	}
}

// Start begins thinking for color c on a private copy of b. Any search
// already running is cancelled and its result discarded.
func (t *Thinker) Start(b *board.Board, d engine.Difficulty, c board.Color) {
	t.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan thinkResult, 1)

	t.thinking = true
	t.start = t.clock.Now()
	t.duration = t.durations(d)
	t.color = c
	t.cancel = cancel
	t.results = results
	t.pending, t.hasPending = board.NoMove, false

	pos := b.Clone()
	go func() {
		move, err := t.engine.ChooseMove(ctx, pos, d, c)
		results <- thinkResult{move: move, err: err} // Always send, even NoMove
	}()

	t.log.Debug().
		Str("color", c.String()).
		Int("difficulty", int(d)).
		Dur("duration", t.duration).
		Msg("thinking started")
}

// Stop abandons the current search and returns to idle.
func (t *Thinker) Stop() {
	if t.thinking {
		t.log.Debug().Msg("thinking cancelled")
	}
	t.finish()
}

// Thinking reports whether a computer move is in progress.
func (t *Thinker) Thinking() bool {
	return t.thinking
}

// Progress returns the elapsed share of the think duration, clamped to
// [0, 1]. It is 0 when idle.
func (t *Thinker) Progress() float64 {
	if !t.thinking {
		return 0
	}
	if t.duration <= 0 {
		return 1
	}
	p := float64(t.clock.Now().Sub(t.start)) / float64(t.duration)
	return min(max(p, 0), 1)
}

// Poll advances the scheduler without blocking. Once the search result is
// in and the think duration has passed, the move is applied to b and
// reported in the returned frame exactly once.
func (t *Thinker) Poll(b *board.Board) Frame {
	if !t.thinking {
		return Frame{Committed: board.NoMove}
	}

	if !t.hasPending {
		select {
		case r := <-t.results:
			if r.err != nil || r.move == board.NoMove {
				if r.err != nil && !errors.Is(r.err, engine.ErrSearchStopped) {
					t.log.Error().Err(r.err).Msg("search failed")
				} else {
					t.log.Debug().Msg("no move to play")
				}
				t.finish()
				return Frame{Committed: board.NoMove}
			}
			t.pending, t.hasPending = r.move, true
		default:
			// Still searching
		}
	}

	progress := t.Progress()
	if !t.hasPending || t.clock.Now().Sub(t.start) < t.duration {
		return Frame{Thinking: true, Progress: progress, Committed: board.NoMove}
	}

	move := t.pending
	t.finish()
	if err := b.MakeMove(move.From, move.To); err != nil {
		t.log.Error().Err(err).Str("move", move.String()).Msg("computer move rejected")
		return Frame{Committed: board.NoMove}
	}
	t.log.Info().Str("move", move.String()).Str("color", t.color.String()).Msg("computer moved")
	return Frame{Progress: 1, Committed: move}
}

func (t *Thinker) finish() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.thinking = false
	t.results = nil
	t.pending, t.hasPending = board.NoMove, false
}
