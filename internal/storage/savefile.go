package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hailam/slowchess/internal/board"
)

// ErrNoSavedGame is returned by LoadState when no save file exists.
var ErrNoSavedGame = errors.New("no saved game")

// SavedState is the game written at exit and restored at startup.
type SavedState struct {
	Board         *board.Board `json:"board"`
	VsComputer    bool         `json:"vs_computer"`
	ComputerColor board.Color  `json:"computer_color"`
	AIDifficulty  int          `json:"ai_difficulty"`
	LastMove      *board.Move  `json:"last_move"` // nil before the first move
}

// SaveState writes s to path as indented JSON. The file is replaced
// atomically so a crash mid-write leaves the previous save intact.
func SaveState(path string, s *SavedState) error {
	if s == nil || s.Board == nil {
		return errors.New("save state: no board")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".slowchess-save-*")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}

// LoadState reads a save file. A missing file yields ErrNoSavedGame; an
// unreadable one yields a decode error and callers start a fresh game.
func LoadState(path string) (*SavedState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSavedGame
	}
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}

	var s SavedState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode save: %w", err)
	}
	if s.Board == nil {
		return nil, fmt.Errorf("decode save: missing board")
	}
	return &s, nil
}
