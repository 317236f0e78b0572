// Package uci lets UCI chess GUIs play against the slowchess engine at a
// chosen difficulty.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Board

	difficulty engine.Difficulty

	// Search state
	cancel     context.CancelFunc
	searchDone chan struct{}
	infinite   bool

	outMu sync.Mutex
	out   io.Writer
	log   zerolog.Logger
}

// New creates a UCI protocol handler writing responses to out. It installs
// the engine's OnInfo callback.
func New(eng *engine.Engine, out io.Writer, logger zerolog.Logger) *UCI {
	u := &UCI{
		engine:     eng,
		position:   board.NewBoard(),
		difficulty: engine.DefaultDifficulty,
		out:        out,
		log:        logger.With().Str("component", "uci").Logger(),
	}
	eng.OnInfo = u.sendInfo
	return u
}

// SetDifficulty sets the difficulty used by later "go" commands.
func (u *UCI) SetDifficulty(d engine.Difficulty) {
	u.difficulty = d.Clamp()
}

// Run reads commands from in until "quit", end of input or ctx ends. At end
// of input a depth-bounded search is allowed to finish; any other search is
// stopped before Run returns.
func (u *UCI) Run(ctx context.Context, in io.Reader) error {
	defer u.handleStop()

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

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				// A finite search still gets to report.
				if !u.infinite {
					u.wait()
				}
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleStop()
			u.position = board.NewBoard()
		case "position":
			u.handleStop()
			u.handlePosition(args)
		case "go":
			u.handleGo(ctx, args)
		case "stop":
			u.handleStop()
		case "quit":
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.wait()
			u.printf("%s\nFen: %s\n", u.position, u.position.ToFEN())
		case "eval":
			u.wait()
			score := u.engine.Evaluate(u.position, u.position.Turn)
			material := engine.EvaluateMaterial(u.position, u.position.Turn)
			u.printf("eval %d (%s) material %d\n", score, engine.ScoreToString(score), material)
		default:
			u.log.Debug().Str("command", cmd).Msg("unknown command")
		}
	}
}

func (u *UCI) handleUCI() {
	u.println("id name slowchess")
	u.println("id author slowchess")
	u.println()
	u.printf("option name Difficulty type spin default %d min %d max %d\n",
		engine.DefaultDifficulty, engine.MinDifficulty, engine.MaxDifficulty)
	u.println("uciok")
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Board
	switch args[0] {
	case "startpos":
		pos = board.NewBoard()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.printf("info string invalid fen: %v\n", err)
			return
		}
	default:
		return
	}

	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := board.ParseMove(s)
			if err == nil {
				err = pos.MakeMove(m.From, m.To)
			}
			if err != nil {
				u.printf("info string invalid move %s: %v\n", s, err)
				return
			}
		}
	}
	u.position = pos
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth    int // Overrides the difficulty for this search
	MoveTime time.Duration
	Infinite bool
}

func (u *UCI) handleGo(ctx context.Context, args []string) {
	u.handleStop()
	opts := ParseGoOptions(args)

	d := u.difficulty
	if opts.Depth > 0 {
		d = engine.Difficulty(opts.Depth).Clamp()
	}

	var searchCtx context.Context
	var cancel context.CancelFunc
	if opts.MoveTime > 0 && !opts.Infinite {
		searchCtx, cancel = context.WithTimeout(ctx, opts.MoveTime)
	} else {
		searchCtx, cancel = context.WithCancel(ctx)
	}
	u.cancel = cancel
	u.searchDone = make(chan struct{})
	u.infinite = opts.Infinite

	pos := u.position.Clone()
	done := u.searchDone
	go func() {
		defer close(done)
		defer cancel()

		move, err := u.engine.ChooseMove(searchCtx, pos, d, pos.Turn)
		if err != nil {
			// Out of time: any legal move beats none.
			u.log.Debug().Err(err).Msg("search cut short")
			if moves := pos.AllLegalMoves(pos.Turn); len(moves) > 0 {
				move = moves[0]
			}
		}
		if opts.Infinite {
			// bestmove waits for stop.
			<-searchCtx.Done()
		}
		u.printf("bestmove %s\n", move)
	}()
}

// ParseGoOptions parses "go" command arguments. Clock-based limits are
// ignored since the difficulty fixes the search depth.
func ParseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		}
	}

	return opts
}

func (u *UCI) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		fmt.Sprintf("score cp %d", info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}
	if info.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(info.Nodes)/info.Time.Seconds())))
	}
	parts = append(parts, "pv "+info.Best.String())
	u.printf("info %s\n", strings.Join(parts, " "))

	if info.Blunder {
		u.printf("info string difficulty %s plays %s\n", info.Difficulty, info.Chosen)
	}
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.cancel == nil {
		return
	}
	u.cancel()
	<-u.searchDone
	u.cancel = nil
}

// wait blocks until the current search, if any, has reported.
func (u *UCI) wait() {
	if u.searchDone != nil {
		<-u.searchDone
	}
}

// handleSetOption processes "setoption name <name> value <value>".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}

	switch strings.ToLower(strings.Join(name, " ")) {
	case "difficulty":
		d, err := engine.ParseDifficulty(strings.ToLower(strings.Join(value, " ")))
		if err != nil {
			u.printf("info string %v\n", err)
			return
		}
		u.SetDifficulty(d)
	}
}

func (u *UCI) println(a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, a...)
}

func (u *UCI) printf(format string, a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, a...)
}
