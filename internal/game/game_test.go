package game

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
)

func newTestGame(t *testing.T, clock Clock, opts Options) *Game {
	t.Helper()
	opts.Clock = clock
	opts.Logger = zerolog.Nop()
	g := New(engine.NewSeededEngine(1, zerolog.Nop()), opts)
	t.Cleanup(g.Close)
	return g
}

func play(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		m, err := board.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := g.HumanMove(m.From, m.To); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
}

// waitForSearch polls g until the computer's search has reported.
func waitForSearch(t *testing.T, g *Game) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if f := g.Poll(); f.HasCommitted() {
			t.Fatalf("committed %v before the think time", f.Committed)
		}
		g.mu.Lock()
		done := g.thinker.hasPending || !g.thinker.thinking
		g.mu.Unlock()
		if done {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("search did not finish")
}

func TestHumanMoveArmsComputer(t *testing.T) {
	clock := newFakeClock()
	g := newTestGame(t, clock, Options{})
	g.SetDifficulty(engine.Easy)

	if g.Thinking() {
		t.Fatal("computer thinking before White moved")
	}
	play(t, g, "e2e4")
	if !g.Thinking() {
		t.Fatal("computer not thinking after the human moved")
	}
	if !strings.HasPrefix(g.StatusText(), "computer is thinking") {
		t.Errorf("status = %q", g.StatusText())
	}

	d7, _ := board.ParseSquare("d7")
	d5, _ := board.ParseSquare("d5")
	if err := g.HumanMove(d7, d5); !errors.Is(err, ErrThinking) {
		t.Errorf("move while thinking: err = %v, want ErrThinking", err)
	}

	waitForSearch(t, g)
	clock.Advance(engine.Easy.ThinkDuration())
	f := g.Poll()
	if !f.HasCommitted() {
		t.Fatalf("frame = %+v, want a committed move", f)
	}
	if g.LastMove() != f.Committed {
		t.Errorf("LastMove() = %v, want %v", g.LastMove(), f.Committed)
	}
	b := g.Board()
	if b.Turn != board.White || len(b.History) != 2 {
		t.Errorf("turn=%v history=%d after the reply", b.Turn, len(b.History))
	}
	if got := g.StatusText(); got != "white's turn  |  Move 2" {
		t.Errorf("status = %q", got)
	}
}

func TestHumanMoveErrors(t *testing.T) {
	g := newTestGame(t, newFakeClock(), Options{})

	e2, _ := board.ParseSquare("e2")
	e5, _ := board.ParseSquare("e5")
	if err := g.HumanMove(e2, e5); !errors.Is(err, board.ErrIllegalMove) {
		t.Errorf("e2e5: err = %v, want ErrIllegalMove", err)
	}

	play(t, g, "e2e4")
	g.mu.Lock()
	g.thinker.Stop()
	g.mu.Unlock()

	e7, _ := board.ParseSquare("e7")
	if err := g.HumanMove(e7, e5); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("black move against the computer: err = %v, want ErrNotYourTurn", err)
	}
}

func TestTwoPlayerGameOver(t *testing.T) {
	var results []Result
	g := newTestGame(t, newFakeClock(), Options{OnFinish: func(r Result) { results = append(results, r) }})
	g.SetVsComputer(false)

	play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	if g.Thinking() {
		t.Error("computer thinking in two-player mode")
	}

	if len(results) != 1 {
		t.Fatalf("OnFinish called %d times, want 1", len(results))
	}
	r := results[0]
	if r.State != board.Checkmate || r.Winner != board.Black || r.VsComputer {
		t.Errorf("result = %+v", r)
	}
	if r.HumanWon() {
		t.Error("HumanWon() in a two-player game")
	}
	if !strings.HasPrefix(g.StatusText(), "checkmate! black wins!") {
		t.Errorf("status = %q", g.StatusText())
	}

	a2, _ := board.ParseSquare("a2")
	a3, _ := board.ParseSquare("a3")
	if err := g.HumanMove(a2, a3); !errors.Is(err, ErrGameOver) {
		t.Errorf("move after mate: err = %v, want ErrGameOver", err)
	}
	g.Poll()
	if len(results) != 1 {
		t.Errorf("OnFinish called again: %d", len(results))
	}
}

func TestComputerMatesAndFinishes(t *testing.T) {
	clock := newFakeClock()
	var results []Result
	g := newTestGame(t, clock, Options{OnFinish: func(r Result) { results = append(results, r) }})

	// Black to move; the computer plays Black and has Qh4 mate.
	b, err := board.ParseFEN("rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2")
	if err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	snap.Board = b
	snap.AIDifficulty = int(engine.Hard)
	if err := g.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if !g.Thinking() {
		t.Fatal("restore with the computer to move did not arm it")
	}

	waitForSearch(t, g)
	clock.Advance(engine.Hard.ThinkDuration())
	f := g.Poll()
	if f.Committed.String() != "d8h4" {
		t.Fatalf("computer played %v, want d8h4", f.Committed)
	}
	if len(results) != 1 || results[0].Winner != board.Black || results[0].HumanWon() {
		t.Errorf("results = %+v", results)
	}
}

func TestNewGameCancelsThinking(t *testing.T) {
	clock := newFakeClock()
	g := newTestGame(t, clock, Options{})

	play(t, g, "e2e4")
	g.NewGame()
	if g.Thinking() {
		t.Error("still thinking after NewGame")
	}
	clock.Advance(time.Hour)
	if f := g.Poll(); f.HasCommitted() {
		t.Errorf("stale move %v committed after NewGame", f.Committed)
	}
	if b := g.Board(); b.ToFEN() != board.StartFEN {
		t.Errorf("board = %q", b.ToFEN())
	}
	if g.LastMove() != board.NoMove {
		t.Errorf("last move = %v", g.LastMove())
	}
}

func TestComputerPlaysWhite(t *testing.T) {
	clock := newFakeClock()
	g := newTestGame(t, clock, Options{ThinkDurations: fixedDuration(time.Second)})
	g.SetDifficulty(engine.Beginner)

	g.SetComputerColor(board.White)
	if !g.Thinking() {
		t.Fatal("computer playing White did not start")
	}
	g.NewGame()
	if !g.Thinking() {
		t.Fatal("NewGame with the computer as White did not arm it")
	}

	before := board.NewBoard()
	waitForSearch(t, g)
	clock.Advance(time.Second)
	f := g.Poll()
	if !f.HasCommitted() {
		t.Fatal("no opening move")
	}
	if !slices.Contains(before.AllLegalMoves(board.White), f.Committed) {
		t.Errorf("opening move %v is not legal", f.Committed)
	}
}

func TestSnapshotRestore(t *testing.T) {
	clock := newFakeClock()
	g := newTestGame(t, clock, Options{})
	g.SetDifficulty(engine.Hard)
	g.SetVsComputer(false)
	play(t, g, "e2e4", "c7c5", "g1f3")

	snap := g.Snapshot()
	if snap.AIDifficulty != 4 || snap.VsComputer || snap.ComputerColor != board.Black {
		t.Errorf("snapshot settings = %+v", snap)
	}
	if snap.LastMove == nil || snap.LastMove.String() != "g1f3" {
		t.Errorf("snapshot last move = %v", snap.LastMove)
	}

	other := newTestGame(t, clock, Options{})
	if err := other.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if other.Board().ToFEN() != g.Board().ToFEN() {
		t.Errorf("restored FEN = %q", other.Board().ToFEN())
	}
	if other.Difficulty() != engine.Hard || other.VsComputer() || other.ComputerColor() != board.Black {
		t.Error("restored settings differ")
	}
	if other.LastMove() != g.LastMove() {
		t.Errorf("restored last move = %v", other.LastMove())
	}
	if other.Thinking() {
		t.Error("two-player restore armed the computer")
	}

	// Snapshots do not alias the live board.
	play(t, g, "d7d6")
	if len(snap.Board.History) != 3 {
		t.Errorf("snapshot history grew to %d", len(snap.Board.History))
	}
}

func TestRestoreRejectsBadState(t *testing.T) {
	g := newTestGame(t, newFakeClock(), Options{})
	if err := g.Restore(nil); err == nil {
		t.Error("Restore(nil) succeeded")
	}
	snap := g.Snapshot()
	snap.ComputerColor = board.NoColor
	if err := g.Restore(snap); err == nil {
		t.Error("Restore with NoColor succeeded")
	}
}

func TestDifficultyClamped(t *testing.T) {
	g := newTestGame(t, newFakeClock(), Options{})
	g.SetDifficulty(9)
	if g.Difficulty() != engine.Expert {
		t.Errorf("difficulty = %v, want expert", g.Difficulty())
	}
	snap := g.Snapshot()
	snap.AIDifficulty = 0
	if err := g.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if g.Difficulty() != engine.Easy {
		t.Errorf("restored difficulty = %v, want easy", g.Difficulty())
	}
}

// Depth 5 from the opening, on the wall clock.
func TestExpertReplyEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("depth 5 search")
	}
	g := newTestGame(t, SystemClock{}, Options{})
	g.SetDifficulty(engine.Expert)

	play(t, g, "e2e4")
	armed := time.Now()
	before := g.Board()

	var f Frame
	for time.Since(armed) < 2*time.Minute {
		f = g.Poll()
		if f.HasCommitted() {
			break
		}
		if !f.Thinking {
			t.Fatal("scheduler went idle without a move")
		}
		time.Sleep(16 * time.Millisecond)
	}
	if !f.HasCommitted() {
		t.Fatal("no reply within two minutes")
	}
	if elapsed := time.Since(armed); elapsed < 2000*time.Millisecond {
		t.Errorf("reply committed after %v, before the 2s think time", elapsed)
	}
	if !slices.Contains(before.LegalMoves(f.Committed.From), f.Committed.To) {
		t.Errorf("reply %v is not legal", f.Committed)
	}
}

func TestSwitchingModeStartsNewGame(t *testing.T) {
	g := newTestGame(t, newFakeClock(), Options{})
	play(t, g, "e2e4")
	if !g.Thinking() {
		t.Fatal("computer not thinking after e2e4")
	}

	g.SetVsComputer(false)
	if g.Thinking() {
		t.Error("still thinking in two-player mode")
	}
	if got := g.Board().ToFEN(); got != board.NewBoard().ToFEN() {
		t.Errorf("FEN after switching = %q", got)
	}
	if g.LastMove() != board.NoMove {
		t.Errorf("last move = %v", g.LastMove())
	}

	// Setting the current mode again keeps the game.
	play(t, g, "d2d4")
	g.SetVsComputer(false)
	if len(g.Board().History) != 1 {
		t.Errorf("history = %v", g.Board().Notation())
	}

	g.SetComputerColor(board.White)
	g.SetVsComputer(true)
	if len(g.Board().History) != 0 || !g.Thinking() {
		t.Errorf("vs computer as White: history = %v, thinking = %v", g.Board().Notation(), g.Thinking())
	}
}
