// Command slowchess plays chess against the computer in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/slowchess/internal/app"
	"github.com/hailam/slowchess/internal/config"
	"github.com/hailam/slowchess/internal/logx"
	"github.com/hailam/slowchess/internal/shell"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON config file")
		dataDir    = flag.String("data-dir", "", "data directory (default: platform data dir)")
		logLevel   = flag.String("log-level", "", "log level, overrides the config")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logx.NewLogger("info").Fatal().Err(err).Msg("load config")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		logx.NewLogger("info").Fatal().Err(err).Msg("invalid settings")
	}
	logger := logx.NewLogger(cfg.LogLevel)

	session, err := app.Open(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session")
	}

	sh := shell.New(session.Game, os.Stdout, shell.Options{
		Records: session,
		Players: session.Players,
		Logger:  logger,
	})
	if session.FirstLaunch {
		fmt.Println("Welcome to slowchess. Type help for commands.")
	} else if session.Resumed {
		fmt.Println("Resuming your last game.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	g.Go(func() error {
		defer cancel()
		return sh.Run(ctx, os.Stdin)
	})
	g.Go(func() error {
		return sh.Watch(ctx, cfg.FrameInterval())
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("shell stopped")
	}

	if err := session.Close(); err != nil {
		logger.Error().Err(err).Msg("save session")
		os.Exit(1)
	}
}
