package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
)

// SearchInfo describes a finished move choice.
type SearchInfo struct {
	Difficulty Difficulty
	Depth      int
	Score      int
	Nodes      uint64
	Time       time.Duration
	Best       board.Move
	Chosen     board.Move
	Blunder    bool // Chosen was drawn at random instead of Best
}

// Difficulty represents the AI difficulty level, 1 (easy) to 5 (expert).
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Beginner
	Medium
	Hard
	Expert
)

const (
	MinDifficulty     = Easy
	MaxDifficulty     = Expert
	DefaultDifficulty = Medium
)

// DifficultySettings holds what a difficulty level changes.
type DifficultySettings struct {
	Depth         int           // Search depth in plies
	BlunderChance int           // Percent chance of playing a random move
	ThinkTime     time.Duration // Minimum time before the move is shown
	Label         string
}

var difficultySettings = [...]DifficultySettings{
	Easy:     {Depth: 1, BlunderChance: 40, ThinkTime: 400 * time.Millisecond, Label: "easy"},
	Beginner: {Depth: 2, BlunderChance: 20, ThinkTime: 700 * time.Millisecond, Label: "beginner"},
	Medium:   {Depth: 3, BlunderChance: 8, ThinkTime: 1000 * time.Millisecond, Label: "medium"},
	Hard:     {Depth: 4, BlunderChance: 0, ThinkTime: 1500 * time.Millisecond, Label: "hard"},
	Expert:   {Depth: 5, BlunderChance: 0, ThinkTime: 2000 * time.Millisecond, Label: "expert"},
}

// Clamp limits d to the valid range.
func (d Difficulty) Clamp() Difficulty {
	return min(max(d, MinDifficulty), MaxDifficulty)
}

// IsValid reports whether d is within 1..5.
func (d Difficulty) IsValid() bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Settings returns the settings for d, clamped to the valid range.
func (d Difficulty) Settings() DifficultySettings {
	return difficultySettings[d.Clamp()]
}

// Depth returns the search depth for d.
func (d Difficulty) Depth() int {
	return d.Settings().Depth
}

// BlunderChance returns the percent chance of a random move at d.
func (d Difficulty) BlunderChance() int {
	return d.Settings().BlunderChance
}

// ThinkDuration returns the minimum presentation time for a move at d.
func (d Difficulty) ThinkDuration() time.Duration {
	return d.Settings().ThinkTime
}

// String returns the difficulty label.
func (d Difficulty) String() string {
	return d.Settings().Label
}

// ParseDifficulty accepts "1".."5" or a label such as "medium".
func ParseDifficulty(s string) (Difficulty, error) {
	for d := MinDifficulty; d <= MaxDifficulty; d++ {
		if s == d.String() || s == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid difficulty: %q", s)
}

// Engine chooses moves for the computer player. It runs the root search at
// the difficulty's depth and, below Hard, sometimes swaps the result for a
// random legal move.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
	log zerolog.Logger

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine drawing blunders from rng.
func NewEngine(rng *rand.Rand, logger zerolog.Logger) *Engine {
	return &Engine{
		rng: rng,
		log: logger.With().Str("component", "engine").Logger(),
	}
}

// NewSeededEngine creates an engine with a deterministic random source.
func NewSeededEngine(seed uint64, logger zerolog.Logger) *Engine {
	return NewEngine(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), logger)
}

// ChooseMove picks the move c plays at difficulty d. It returns NoMove and
// a nil error when c has no legal moves, and ErrSearchStopped if ctx ends
// first. Safe for concurrent use.
func (e *Engine) ChooseMove(ctx context.Context, b *board.Board, d Difficulty, c board.Color) (board.Move, error) {
	d = d.Clamp()
	settings := d.Settings()

	if ctx.Err() != nil {
		return board.NoMove, ErrSearchStopped
	}

	searcher := NewSearcher()
	stop := context.AfterFunc(ctx, searcher.Stop)
	defer stop()

	start := time.Now()
	result, ok, err := searcher.SearchRoot(b, settings.Depth, c)
	if err != nil {
		e.log.Debug().Err(err).Int("difficulty", int(d)).Msg("search abandoned")
		return board.NoMove, err
	}
	if !ok {
		e.log.Debug().Str("color", c.String()).Msg("no legal moves")
		return board.NoMove, nil
	}

	chosen, blunder := e.maybeBlunder(d, result)

	info := SearchInfo{
		Difficulty: d,
		Depth:      settings.Depth,
		Score:      result.Score,
		Nodes:      result.Nodes,
		Time:       time.Since(start),
		Best:       result.Move,
		Chosen:     chosen,
		Blunder:    blunder,
	}
	e.log.Debug().
		Int("difficulty", int(d)).
		Int("depth", info.Depth).
		Int("score", info.Score).
		Uint64("nodes", info.Nodes).
		Dur("elapsed", info.Time).
		Str("best", info.Best.String()).
		Str("chosen", info.Chosen.String()).
		Bool("blunder", blunder).
		Msg("move chosen")
	if e.OnInfo != nil {
		e.OnInfo(info)
	}

	return chosen, nil
}

// maybeBlunder rolls the difficulty's blunder chance and, on a hit with more
// than one candidate, returns a uniformly random candidate instead of best.
func (e *Engine) maybeBlunder(d Difficulty, result RootResult) (board.Move, bool) {
	chance := d.BlunderChance()
	if chance == 0 || len(result.Candidates) < 2 {
		return result.Move, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng.IntN(100) >= chance {
		return result.Move, false
	}
	return result.Candidates[e.rng.IntN(len(result.Candidates))], true
}

// Evaluate returns the static evaluation of b for perspective.
func (e *Engine) Evaluate(b *board.Board, perspective board.Color) int {
	return Evaluate(b, perspective)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore/2 {
		return "Mate"
	}
	if score < -MateScore/2 {
		return "Mated"
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
