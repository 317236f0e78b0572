package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/hailam/slowchess/internal/config"
	"github.com/hailam/slowchess/internal/engine"
	"github.com/hailam/slowchess/internal/logx"
	"github.com/hailam/slowchess/internal/uci"
)

var (
	configPath = flag.String("config", "", "path to a JSON config file")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logx.NewLogger("info").Fatal().Err(err).Msg("load config")
	}
	// stdout belongs to the protocol.
	logger := logx.NewLogger(cfg.LogLevel)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		logger.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	eng := engine.NewSeededEngine(seed, logger)
	protocol := uci.New(eng, os.Stdout, logger)
	protocol.SetDifficulty(engine.Difficulty(cfg.Difficulty))
	if err := protocol.Run(ctx, os.Stdin); err != nil {
		logger.Error().Err(err).Msg("read commands")
	}
}
