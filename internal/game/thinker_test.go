package game

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func fixedDuration(d time.Duration) func(engine.Difficulty) time.Duration {
	return func(engine.Difficulty) time.Duration { return d }
}

// pollUntilResult polls until the search has reported, failing if a move
// is committed on the way.
func pollUntilResult(t *testing.T, th *Thinker, b *board.Board) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if f := th.Poll(b); f.HasCommitted() {
			t.Fatalf("committed %v before the think time", f.Committed)
		}
		if th.hasPending || !th.thinking {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("search did not finish")
}

func TestThinkerWaitsForThinkTime(t *testing.T) {
	clock := newFakeClock()
	th := NewThinker(engine.NewSeededEngine(1, zerolog.Nop()), clock, fixedDuration(time.Hour), zerolog.Nop())

	b := board.NewBoard()
	m, _ := board.ParseMove("e2e4")
	if err := b.MakeMove(m.From, m.To); err != nil {
		t.Fatal(err)
	}
	before := b.ToFEN()

	th.Start(b, engine.Easy, board.Black)
	if !th.Thinking() {
		t.Fatal("Thinking() = false after Start")
	}
	if p := th.Progress(); p != 0 {
		t.Errorf("progress at start = %v, want 0", p)
	}

	// The depth-1 search finishes long before the hour is up.
	pollUntilResult(t, th, b)
	if !th.hasPending {
		t.Fatal("search returned no move")
	}

	clock.Advance(59 * time.Minute)
	f := th.Poll(b)
	if f.HasCommitted() || !f.Thinking {
		t.Fatalf("frame at 59m = %+v, want thinking without a move", f)
	}
	if f.Progress < 0.98 || f.Progress >= 1 {
		t.Errorf("progress at 59m = %v", f.Progress)
	}
	if b.ToFEN() != before {
		t.Fatal("board changed before the think time")
	}

	clock.Advance(time.Minute)
	f = th.Poll(b)
	if !f.HasCommitted() || f.Thinking {
		t.Fatalf("frame at 60m = %+v, want a committed move", f)
	}
	if b.LastMove() != f.Committed || b.Turn != board.White {
		t.Errorf("move %v not applied: last=%v turn=%v", f.Committed, b.LastMove(), b.Turn)
	}

	// Committed exactly once.
	if f := th.Poll(b); f.HasCommitted() || f.Thinking {
		t.Errorf("frame after commit = %+v, want idle", f)
	}
}

func TestThinkerNoMoveAborts(t *testing.T) {
	// Fool's mate: White, the computer, has no moves.
	b, err := board.ParseFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if err != nil {
		t.Fatal(err)
	}
	before := b.ToFEN()

	clock := newFakeClock()
	th := NewThinker(engine.NewSeededEngine(1, zerolog.Nop()), clock, fixedDuration(0), zerolog.Nop())
	th.Start(b, engine.Expert, board.White)

	pollUntilResult(t, th, b)
	if th.Thinking() {
		t.Error("still thinking with no legal moves")
	}
	if b.ToFEN() != before {
		t.Error("board changed")
	}
}

func TestThinkerStop(t *testing.T) {
	b, err := board.ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	before := b.ToFEN()

	clock := newFakeClock()
	th := NewThinker(engine.NewSeededEngine(1, zerolog.Nop()), clock, fixedDuration(0), zerolog.Nop())
	th.Start(b, engine.Expert, board.White)
	th.Stop()

	if th.Thinking() {
		t.Error("Thinking() = true after Stop")
	}
	clock.Advance(time.Hour)
	if f := th.Poll(b); f.HasCommitted() || f.Thinking {
		t.Errorf("frame after Stop = %+v", f)
	}
	if b.ToFEN() != before {
		t.Error("board changed after Stop")
	}
}

func TestThinkerRestartDiscardsOldResult(t *testing.T) {
	clock := newFakeClock()
	th := NewThinker(engine.NewSeededEngine(1, zerolog.Nop()), clock, fixedDuration(time.Second), zerolog.Nop())

	b := board.NewBoard()
	th.Start(b, engine.Easy, board.White)
	pollUntilResult(t, th, b)

	// Restarting for Black on a new position must not play a White move.
	m, _ := board.ParseMove("d2d4")
	if err := b.MakeMove(m.From, m.To); err != nil {
		t.Fatal(err)
	}
	th.Start(b, engine.Easy, board.Black)
	pollUntilResult(t, th, b)

	clock.Advance(time.Second)
	f := th.Poll(b)
	if !f.HasCommitted() {
		t.Fatal("no move committed")
	}
	if p := b.History[len(b.History)-1].Piece; p.Color() != board.Black {
		t.Errorf("committed %v moved a %v piece", f.Committed, p.Color())
	}
}

func TestThinkerProgressClamped(t *testing.T) {
	clock := newFakeClock()
	th := NewThinker(engine.NewSeededEngine(1, zerolog.Nop()), clock, fixedDuration(100*time.Millisecond), zerolog.Nop())

	if p := th.Progress(); p != 0 {
		t.Errorf("idle progress = %v, want 0", p)
	}

	b := board.NewBoard()
	th.Start(b, engine.Easy, board.White)
	defer th.Stop()

	clock.Advance(50 * time.Millisecond)
	if p := th.Progress(); p != 0.5 {
		t.Errorf("progress at half time = %v, want 0.5", p)
	}
	clock.Advance(time.Second)
	if p := th.Progress(); p != 1 {
		t.Errorf("progress past the deadline = %v, want 1", p)
	}
}

func TestDefaultThinkDurations(t *testing.T) {
	th := NewThinker(engine.NewSeededEngine(1, zerolog.Nop()), nil, nil, zerolog.Nop())
	want := []time.Duration{400, 700, 1000, 1500, 2000}
	for i, ms := range want {
		d := engine.Difficulty(i + 1)
		if got := th.durations(d); got != ms*time.Millisecond {
			t.Errorf("difficulty %d: think time %v, want %v", d, got, ms*time.Millisecond)
		}
	}
}
