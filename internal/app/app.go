// Package app wires a playable slowchess session: engine, game controller,
// saved game and the stats database.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/config"
	"github.com/hailam/slowchess/internal/engine"
	"github.com/hailam/slowchess/internal/game"
	"github.com/hailam/slowchess/internal/notation"
	"github.com/hailam/slowchess/internal/storage"
)

// App owns everything a host needs to play.
type App struct {
	Game    *game.Game
	Engine  *engine.Engine
	Storage *storage.Storage
	Config  config.Config

	// FirstLaunch is set when no earlier session used this data directory.
	FirstLaunch bool
	// Resumed is set when a saved game was restored.
	Resumed bool

	prefs    *storage.UserPreferences
	savePath string
	log      zerolog.Logger
}

// Open prepares a session. Settings come from cfg, then the stored
// preferences of the last session, then the saved game if there is one.
func Open(cfg config.Config, logger zerolog.Logger) (*App, error) {
	log := logger.With().Str("component", "app").Logger()

	dataDir, err := storage.ResolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	dbDir, err := storage.GetDatabaseDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("database dir: %w", err)
	}
	store, err := storage.Open(dbDir, logger)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	a := &App{
		Engine:   engine.NewSeededEngine(seed, logger),
		Storage:  store,
		Config:   cfg,
		savePath: storage.SavePath(dataDir),
		log:      log,
	}
	a.Game = game.New(a.Engine, game.Options{
		ThinkDurations: cfg.ThinkDuration,
		Logger:         logger,
		OnFinish:       a.record,
	})

	if err := a.loadSettings(); err != nil {
		a.Game.Close()
		store.Close()
		return nil, err
	}
	a.resume()

	log.Info().
		Str("data_dir", dataDir).
		Bool("first_launch", a.FirstLaunch).
		Bool("resumed", a.Resumed).
		Msg("session ready")
	return a, nil
}

func (a *App) loadSettings() error {
	first, err := a.Storage.IsFirstLaunch()
	if err != nil {
		return fmt.Errorf("first launch: %w", err)
	}
	a.FirstLaunch = first

	prefs, err := a.Storage.LoadPreferences()
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	a.prefs = prefs

	if first {
		// Nothing stored yet: the config file decides.
		a.prefs.Difficulty = a.Config.Difficulty
		a.prefs.VsComputer = a.Config.VsComputer
		a.prefs.ComputerColor = a.Config.Color()
		if err := a.Storage.MarkFirstLaunchComplete(); err != nil {
			return fmt.Errorf("mark first launch: %w", err)
		}
	}

	a.Game.SetDifficulty(engine.Difficulty(a.prefs.Difficulty))
	a.Game.SetVsComputer(a.prefs.VsComputer)
	if c := a.prefs.ComputerColor; c == board.White || c == board.Black {
		a.Game.SetComputerColor(c)
	}
	return nil
}

// resume restores the saved game. A missing or unreadable save starts a
// new game.
func (a *App) resume() {
	saved, err := storage.LoadState(a.savePath)
	if errors.Is(err, storage.ErrNoSavedGame) {
		return
	}
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.savePath).Msg("ignoring saved game")
		return
	}
	if err := a.Game.Restore(saved); err != nil {
		a.log.Warn().Err(err).Msg("ignoring saved game")
		return
	}
	a.Resumed = true
}

// PlayerName returns the human's name from the preferences.
func (a *App) PlayerName() string {
	return a.prefs.Username
}

// Players names both sides of the current game.
func (a *App) Players() notation.Players {
	return notation.PlayersFor(a.Game.VsComputer(), a.Game.ComputerColor(), a.Game.Difficulty().String(), a.prefs.Username)
}

// Stats returns the lifetime statistics.
func (a *App) Stats() (*storage.GameStats, error) {
	return a.Storage.LoadStats()
}

// RecentGames returns up to limit archived games, newest first.
func (a *App) RecentGames(limit int) ([]storage.ArchivedGame, error) {
	return a.Storage.RecentGames(limit)
}

// record is the game's OnFinish hook.
func (a *App) record(r game.Result) {
	now := time.Now()
	result := storage.GameResult{
		Won:        r.HumanWon(),
		Draw:       r.State == board.Stalemate,
		VsComputer: r.VsComputer,
		Difficulty: r.Difficulty.String(),
		Moves:      len(r.Board.History),
		FinishedAt: now,
	}

	players := notation.PlayersFor(r.VsComputer, r.ComputerColor, r.Difficulty.String(), a.prefs.Username)
	pgn, err := notation.Export(r.Board, players, now)
	if err != nil {
		a.log.Warn().Err(err).Msg("game not archived")
	} else {
		result.PGN = pgn
	}

	if err := a.Storage.RecordGame(result); err != nil {
		a.log.Error().Err(err).Msg("record game")
		return
	}
	a.log.Info().
		Str("state", r.State.String()).
		Str("winner", r.Winner.String()).
		Bool("vs_computer", r.VsComputer).
		Msg("game recorded")
}

// Close saves the game and the current settings, then releases the
// database.
func (a *App) Close() error {
	a.Game.Close()

	var errs []error
	if err := storage.SaveState(a.savePath, a.Game.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("save game: %w", err))
	}

	a.prefs.Difficulty = int(a.Game.Difficulty())
	a.prefs.VsComputer = a.Game.VsComputer()
	a.prefs.ComputerColor = a.Game.ComputerColor()
	if err := a.Storage.SavePreferences(a.prefs); err != nil {
		errs = append(errs, fmt.Errorf("save preferences: %w", err))
	}

	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
