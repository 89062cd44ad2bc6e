package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/cliffjones/polli/internal/config"
	"github.com/cliffjones/polli/internal/persist"
	"github.com/cliffjones/polli/internal/replay"
	"github.com/cliffjones/polli/internal/talkmap"
)

// CLI defines the command-line interface.
type CLI struct {
	Config      string `help:"Config file path" env:"POLLI_CONFIG" default:"polli.yaml"`
	Session     string `default:"latest" help:"Session ID to export, or 'latest'"`
	Out         string `short:"o" required:"" type:"path" help:"Output fixture JSON path"`
	Seed        uint64 `default:"1" help:"Random seed recorded in the fixture"`
	StartDir    string `type:"path" help:"Directory of talk map files the fixture starts from (default: no data)"`
	Logged      bool   `help:"Expect the logged responses instead of the replayed ones"`
	Description string `help:"Fixture description"`
}

// #region main

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("fixture-export"),
		kong.Description("Export a logged session as a replay fixture."),
	)
	if err := run(os.Stdout, cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(w io.Writer, cli CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	backend := &persist.Backend{}
	defer backend.Close()
	log, err := backend.OpenTurnLog(cfg.TurnLog.DBPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	id, err := log.Resolve(ctx, cli.Session)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	entries, err := log.Session(ctx, id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no turns logged for session %s", id)
	}
	fmt.Fprintf(w, "Found %d turns in session %s\n", len(entries), id)

	start := talkmap.New(cfg.TalkLevels)
	if cli.StartDir != "" {
		start, _ = persist.NewRepository(persist.NewFileProvider(cli.StartDir)).LoadAll(ctx, cfg.TalkLevels)
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Reply
	}
	rcfg := replay.Config{Seed: cli.Seed}
	results, _ := replay.Replay(start, lines, rcfg)

	// A replayed run stops early only on an empty line, which the log never
	// holds, so results and entries line up.
	if cli.Logged {
		for i := range results {
			results[i].Response = entries[i].Response
		}
	}

	desc := cli.Description
	if desc == "" {
		desc = fmt.Sprintf("session %s, %d turns", id, len(entries))
	}
	if err := replay.NewFixture(desc, rcfg, start, results).Save(cli.Out); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", cli.Out)
	return nil
}

// #endregion extract
