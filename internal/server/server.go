// Package server exposes a Game over HTTP with a websocket stream of
// scheduler frames.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
	"github.com/hailam/slowchess/internal/game"
	"github.com/hailam/slowchess/internal/notation"
)

// StateResponse is the JSON view of a game.
type StateResponse struct {
	FEN             string   `json:"fen"`
	Turn            string   `json:"turn"`
	State           string   `json:"state"`
	Status          string   `json:"status"`
	Thinking        bool     `json:"thinking"`
	LastMove        string   `json:"last_move,omitempty"`
	Difficulty      int      `json:"difficulty"`
	DifficultyLabel string   `json:"difficulty_label"`
	VsComputer      bool     `json:"vs_computer"`
	ComputerColor   string   `json:"computer_color"`
	History         []string `json:"history"`
}

type framePayload struct {
	Thinking  bool    `json:"thinking"`
	Progress  float64 `json:"progress"`
	Committed string  `json:"committed,omitempty"`
}

// Options configures a Server.
type Options struct {
	FrameInterval time.Duration // Poll period of Run, default 16ms
	PlayerName    string        // Human name in exported PGN
	Logger        zerolog.Logger
}

// Server serves one game.
type Server struct {
	game     *game.Game
	interval time.Duration
	human    string
	hub      *hub
	log      zerolog.Logger
	router   chi.Router
}

// New creates a server for g.
func New(g *game.Game, opts Options) *Server {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 16 * time.Millisecond
	}
	s := &Server{
		game:     g,
		interval: opts.FrameInterval,
		human:    opts.PlayerName,
		hub:      newHub(),
		log:      opts.Logger.With().Str("component", "server").Logger(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/state", s.handleState)
	r.Get("/api/moves/{square}", s.handleLegalMoves)
	r.Get("/api/pgn", s.handlePGN)
	r.Post("/api/move", s.handleMove)
	r.Post("/api/difficulty", s.handleDifficulty)
	r.Post("/api/new", s.handleNewGame)
	r.Get("/ws", s.serveWS)
	return r
}

// Run polls the game once per interval until ctx ends, pushing changed
// frames to websocket clients and the full state when a computer move lands.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.hub.closeAll()

	var last framePayload
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f := s.game.Poll()
			// Repeated frames are not resent.
			if p := toFramePayload(f); p != last {
				s.hub.broadcast("frame", p)
				last = p
			}
			if f.HasCommitted() {
				s.hub.broadcast("state", s.state())
			}
		}
	}
}

func (s *Server) state() StateResponse {
	b := s.game.Board()
	d := s.game.Difficulty()
	resp := StateResponse{
		FEN:             b.ToFEN(),
		Turn:            b.Turn.String(),
		State:           b.State.String(),
		Status:          s.game.StatusText(),
		Thinking:        s.game.Thinking(),
		Difficulty:      int(d),
		DifficultyLabel: d.String(),
		VsComputer:      s.game.VsComputer(),
		ComputerColor:   s.game.ComputerColor().String(),
		History:         b.Notation(),
	}
	if m := s.game.LastMove(); m != board.NoMove {
		resp.LastMove = m.String()
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	sq, err := board.ParseSquare(chi.URLParam(r, "square"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	targets := []string{}
	for _, to := range s.game.LegalMoves(sq) {
		targets = append(targets, to.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": sq.String(), "to": targets})
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	players := notation.PlayersFor(s.game.VsComputer(), s.game.ComputerColor(), s.game.Difficulty().String(), s.human)
	pgn, err := notation.Export(s.game.Board(), players, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	_, _ = w.Write([]byte(pgn))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Move string `json:"move"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	m, err := board.ParseMove(payload.Move)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.game.HumanMove(m.From, m.To); err != nil {
		switch {
		case errors.Is(err, board.ErrIllegalMove):
			writeError(w, http.StatusUnprocessableEntity, err)
		case errors.Is(err, game.ErrThinking), errors.Is(err, game.ErrNotYourTurn), errors.Is(err, game.ErrGameOver):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	state := s.state()
	s.hub.broadcast("state", state)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Difficulty json.RawMessage `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	// Accept 3 or "medium".
	raw := string(payload.Difficulty)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	d, err := engine.ParseDifficulty(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.game.SetDifficulty(d)
	state := s.state()
	s.hub.broadcast("state", state)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		VsComputer    *bool   `json:"vs_computer"`
		ComputerColor *string `json:"computer_color"`
	}
	// An empty body keeps the current mode and side.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	var color board.Color
	if payload.ComputerColor != nil {
		c, err := board.ParseColor(*payload.ComputerColor)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		color = c
	}

	// Reset first so a mode or side change does not start a search on the
	// old position.
	s.game.NewGame()
	if payload.VsComputer != nil {
		s.game.SetVsComputer(*payload.VsComputer)
	}
	if payload.ComputerColor != nil {
		s.game.SetComputerColor(color)
	}

	state := s.state()
	s.hub.broadcast("state", state)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{send: make(chan []byte, 16)}
	s.hub.register(c)
	s.hub.sendTo(c, "state", s.state())

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, c.send); err != nil {
			s.log.Debug().Err(err).Msg("websocket write ended")
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.unregister(c)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "request_state" {
			s.hub.sendTo(c, "state", s.state())
		}
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func toFramePayload(f game.Frame) framePayload {
	p := framePayload{Thinking: f.Thinking, Progress: f.Progress}
	if f.HasCommitted() {
		p.Committed = f.Committed.String()
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
