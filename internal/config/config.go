// Package config holds slowchess runtime settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/slowchess/internal/board"
	"github.com/hailam/slowchess/internal/engine"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Difficulty       int    `json:"difficulty"`
	VsComputer       bool   `json:"vs_computer"`
	ComputerColor    string `json:"computer_color"`
	ThinkDurationsMs []int  `json:"think_durations_ms"` // One entry per difficulty
	FrameIntervalMs  int    `json:"frame_interval_ms"`
	DataDir          string `json:"data_dir"` // Empty means the platform directory
	LogLevel         string `json:"log_level"`
	HTTPAddr         string `json:"http_addr"`
	Seed             uint64 `json:"seed"` // 0 seeds from the clock
}

func DefaultConfig() Config {
	return Config{
		Difficulty:       int(engine.DefaultDifficulty),
		VsComputer:       true,
		ComputerColor:    "black",
		ThinkDurationsMs: []int{400, 700, 1000, 1500, 2000},
		FrameIntervalMs:  16,
		LogLevel:         "info",
		HTTPAddr:         ":8080",
	}
}

// Load overlays the JSON file at path on the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every field is in range.
func (c Config) Validate() error {
	if !engine.Difficulty(c.Difficulty).IsValid() {
		return fmt.Errorf("%w: difficulty %d not in 1..5", ErrInvalidConfig, c.Difficulty)
	}
	if _, err := board.ParseColor(c.ComputerColor); err != nil {
		return fmt.Errorf("%w: computer_color %q", ErrInvalidConfig, c.ComputerColor)
	}
	if len(c.ThinkDurationsMs) != int(engine.MaxDifficulty) {
		return fmt.Errorf("%w: think_durations_ms needs %d entries, got %d", ErrInvalidConfig, engine.MaxDifficulty, len(c.ThinkDurationsMs))
	}
	for i, ms := range c.ThinkDurationsMs {
		if ms < 0 {
			return fmt.Errorf("%w: think_durations_ms[%d] is negative", ErrInvalidConfig, i)
		}
	}
	if c.FrameIntervalMs <= 0 {
		return fmt.Errorf("%w: frame_interval_ms must be positive", ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// Color returns the computer's side. Call after Validate.
func (c Config) Color() board.Color {
	color, err := board.ParseColor(c.ComputerColor)
	if err != nil {
		return board.Black
	}
	return color
}

// ThinkDuration returns the configured think time for d.
func (c Config) ThinkDuration(d engine.Difficulty) time.Duration {
	i := int(d.Clamp()) - 1
	if i >= len(c.ThinkDurationsMs) {
		return d.ThinkDuration()
	}
	return time.Duration(c.ThinkDurationsMs[i]) * time.Millisecond
}

// FrameInterval returns the host's poll period.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}
