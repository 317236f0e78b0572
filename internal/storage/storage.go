package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	keyFirstLaunch = "first_launch"
	prefixArchive  = "game/"
)

// UserPreferences stores user settings
type UserPreferences struct {
	Username      string      `json:"username"`
	Difficulty    int         `json:"difficulty"`
	VsComputer    bool        `json:"vs_computer"`
	ComputerColor board.Color `json:"computer_color"`
	LastPlayed    time.Time   `json:"last_played"`
}

// DefaultPreferences returns default user preferences
func DefaultPreferences() *UserPreferences {
	return &UserPreferences{
		Username:      "Player",
		Difficulty:    3,
		VsComputer:    true,
		ComputerColor: board.Black,
		LastPlayed:    time.Now(),
	}
}

// GameStats stores game statistics. Wins, losses and streaks are counted
// from the human's side of games against the computer.
type GameStats struct {
	GamesPlayed    int            `json:"games_played"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	Draws          int            `json:"draws"`
	TwoPlayer      int            `json:"two_player"`
	WinsByDiff     map[string]int `json:"wins_by_difficulty"`
	TotalMoves     int            `json:"total_moves"`
	LongestWinStrk int            `json:"longest_win_streak"`
	CurrentStreak  int            `json:"current_streak"`
}

// NewGameStats returns empty game statistics
func NewGameStats() *GameStats {
	return &GameStats{
		WinsByDiff: make(map[string]int),
	}
}

// WinRate returns the win rate against the computer as a percentage (0-100)
func (s *GameStats) WinRate() float64 {
	decided := s.GamesPlayed - s.TwoPlayer
	if decided <= 0 {
		return 0
	}
	return float64(s.Wins) / float64(decided) * 100
}

// GameResult represents the result of a completed game
type GameResult struct {
	Won        bool
	Draw       bool
	VsComputer bool
	Difficulty string // Difficulty label, e.g. "medium"
	Moves      int    // Half-moves played
	PGN        string // Archived when non-empty
	FinishedAt time.Time
}

// ArchivedGame is a finished game read back from the archive.
type ArchivedGame struct {
	FinishedAt time.Time
	PGN        string
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	log     zerolog.Logger
}

// Open opens (or creates) the database in dir.
func Open(dir string, logger zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Storage{
		db:      db,
		encoder: encoder,
		decoder: decoder,
		log:     logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	s.decoder.Close()
	err := s.encoder.Close()
	if cerr := s.db.Close(); cerr != nil {
		return cerr
	}
	return err
}

// IsFirstLaunch returns true if this is the first launch
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete
func (s *Storage) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SavePreferences saves user preferences
func (s *Storage) SavePreferences(prefs *UserPreferences) error {
	prefs.LastPlayed = time.Now()
	return s.putJSON(keyPreferences, prefs)
}

// LoadPreferences loads user preferences, returns defaults if not found
func (s *Storage) LoadPreferences() (*UserPreferences, error) {
	prefs := DefaultPreferences()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyPreferences, prefs)
	})
	return prefs, err
}

// SaveStats saves game statistics
func (s *Storage) SaveStats(stats *GameStats) error {
	return s.putJSON(keyStats, stats)
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := NewGameStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyStats, stats)
	})
	return stats, err
}

// RecordGame updates statistics with a finished game and archives its PGN,
// both in one transaction.
func (s *Storage) RecordGame(result GameResult) error {
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		stats := NewGameStats()
		if err := getJSON(txn, keyStats, stats); err != nil {
			return err
		}
		if stats.WinsByDiff == nil {
			stats.WinsByDiff = make(map[string]int)
		}
		applyResult(stats, result)

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(keyStats), data); err != nil {
			return err
		}

		if result.PGN == "" {
			return nil
		}
		compressed := s.encoder.EncodeAll([]byte(result.PGN), nil)
		return txn.Set(archiveKey(result.FinishedAt), compressed)
	})
	if err != nil {
		return fmt.Errorf("record game: %w", err)
	}

	s.log.Debug().
		Bool("won", result.Won).
		Bool("draw", result.Draw).
		Str("difficulty", result.Difficulty).
		Int("moves", result.Moves).
		Msg("game recorded")
	return nil
}

func applyResult(stats *GameStats, result GameResult) {
	stats.GamesPlayed++
	stats.TotalMoves += result.Moves

	if !result.VsComputer {
		stats.TwoPlayer++
		return
	}

	switch {
	case result.Draw:
		stats.Draws++
		stats.CurrentStreak = 0
	case result.Won:
		stats.Wins++
		stats.CurrentStreak++
		stats.LongestWinStrk = max(stats.LongestWinStrk, stats.CurrentStreak)
		stats.WinsByDiff[result.Difficulty]++
	default:
		stats.Losses++
		stats.CurrentStreak = 0
	}
}

// RecentGames returns up to limit archived games, newest first.
func (s *Storage) RecentGames(limit int) ([]ArchivedGame, error) {
	var games []ArchivedGame

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixArchive)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the largest key under the prefix.
		seek := append([]byte(prefixArchive), 0xff)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if limit > 0 && len(games) >= limit {
				break
			}
			item := it.Item()
			finished := time.Unix(0, int64(binary.BigEndian.Uint64(item.Key()[len(prefixArchive):])))

			err := item.Value(func(val []byte) error {
				pgn, err := s.decoder.DecodeAll(val, nil)
				if err != nil {
					return fmt.Errorf("decompress game: %w", err)
				}
				games = append(games, ArchivedGame{FinishedAt: finished, PGN: string(pgn)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return games, err
}

func archiveKey(t time.Time) []byte {
	key := make([]byte, len(prefixArchive)+8)
	copy(key, prefixArchive)
	binary.BigEndian.PutUint64(key[len(prefixArchive):], uint64(t.UnixNano()))
	return key
}

func (s *Storage) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON decodes key into v, leaving v untouched if the key is absent.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
