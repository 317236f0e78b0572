// Command slowchess-server serves a game over HTTP and websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/slowchess/internal/app"
	"github.com/hailam/slowchess/internal/config"
	"github.com/hailam/slowchess/internal/logx"
	"github.com/hailam/slowchess/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON config file")
		addr       = flag.String("addr", "", "listen address, overrides the config")
		dataDir    = flag.String("data-dir", "", "data directory (default: platform data dir)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logx.NewLogger("info").Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		logx.NewLogger("info").Fatal().Err(err).Msg("invalid settings")
	}
	logger := logx.NewLogger(cfg.LogLevel)

	session, err := app.Open(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session")
	}

	srv := server.New(session.Game, server.Options{
		FrameInterval: cfg.FrameInterval(),
		PlayerName:    session.PlayerName(),
		Logger:        logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		exitCode = 1
	}
	if err := session.Close(); err != nil {
		logger.Error().Err(err).Msg("save session")
		exitCode = 1
	}
	os.Exit(exitCode)
}
