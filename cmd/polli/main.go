package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cliffjones/polli/internal/config"
	"github.com/cliffjones/polli/internal/conversation"
	"github.com/cliffjones/polli/internal/logging"
	"github.com/cliffjones/polli/internal/persist"
	"github.com/cliffjones/polli/internal/transport"
)

// #region main
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "polli: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(envOr("POLLI_CONFIG", config.DefaultPath))
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := persist.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer backend.Close()

	repo := persist.NewRepository(backend.Provider)
	maps, results := repo.LoadAll(ctx, cfg.TalkLevels)
	for _, r := range results {
		switch r.Status {
		case persist.Loaded:
			logger.Debug("talk map loaded", "depth", r.Depth, "keys", len(r.Map))
		case persist.Missing:
			logger.Debug("talk map missing, starting empty", "depth", r.Depth)
		default:
			logger.Warn("talk map ignored, starting empty", "depth", r.Depth, "status", r.Status.String(), "err", r.Err)
		}
	}

	loop := &conversation.Loop{
		Engine:    conversation.NewEngine(maps, newRand(cfg.Seed)),
		Transport: transport.NewConsole(os.Stdin, os.Stdout),
		Saver:     repo,
		Logger:    logger,
	}
	if cfg.TurnLog.Enabled {
		turnLog, err := backend.OpenTurnLog(cfg.TurnLog.DBPath)
		if err != nil {
			// The conversation does not depend on the log.
			logger.Warn("turn log disabled", "err", err)
		} else {
			loop.Recorder = turnLog
		}
	}

	session, err := loop.Run(ctx)
	logger.Info("session ended", "session_id", session.ID, "turns", session.Turn)
	return err
}

// #endregion main

// #region helpers
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	slog.Debug("random source", "seed", seed)
	return rand.New(rand.NewPCG(seed, seed))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
