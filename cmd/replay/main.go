package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/cliffjones/polli/internal/config"
	"github.com/cliffjones/polli/internal/eval"
	"github.com/cliffjones/polli/internal/persist"
	"github.com/cliffjones/polli/internal/replay"
	"github.com/cliffjones/polli/internal/talkmap"
)

// CLI defines the command-line interface.
type CLI struct {
	Config   string `help:"Config file path" env:"POLLI_CONFIG" default:"polli.yaml"`
	Fixture  string `help:"Replay a fixture file" type:"path"`
	Session  string `help:"Replay a logged session by ID, or 'latest'"`
	Seed     uint64 `default:"1" help:"Random seed for session replay"`
	StartDir string `help:"Directory of talk map files a session replay starts from (default: no data)" type:"path"`
}

// Validate requires exactly one replay source.
func (c *CLI) Validate() error {
	if (c.Fixture == "") == (c.Session == "") {
		return errors.New("exactly one of --fixture or --session is required")
	}
	return nil
}

// #region main

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("replay"),
		kong.Description("Replay a fixture or a logged session and compare responses."),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if _, err := parser.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "usage: replay --fixture path/to/fixture.json\n")
		fmt.Fprintf(os.Stderr, "       replay --session id|latest [--seed N] [--start-dir dir]\n")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	var code int
	if cli.Fixture != "" {
		code = runFixtureMode(os.Stdout, cli.Fixture)
	} else {
		code = runSessionMode(os.Stdout, cli)
	}
	os.Exit(code)
}

// #endregion main

// #region modes

func runFixtureMode(w io.Writer, path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	results, final := f.Run()
	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Response
	}
	return report(w, results, expected, final, f.Config.TalkLevels)
}

func runSessionMode(w io.Writer, cli CLI) int {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}

	backend := &persist.Backend{}
	defer backend.Close()
	log, err := backend.OpenTurnLog(cfg.TurnLog.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open turn log: %v\n", err)
		return 2
	}

	ctx := context.Background()
	id, err := log.Resolve(ctx, cli.Session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "find session: %v\n", err)
		return 2
	}
	entries, err := log.Session(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read session: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "no turns logged for session %s\n", id)
		return 2
	}

	start := talkmap.New(cfg.TalkLevels)
	if cli.StartDir != "" {
		start, _ = persist.NewRepository(persist.NewFileProvider(cli.StartDir)).LoadAll(ctx, cfg.TalkLevels)
	}

	lines := make([]string, len(entries))
	expected := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Reply
		expected[i] = e.Response
	}

	fmt.Fprintf(w, "Session %s, %d turns, seed %d\n\n", id, len(entries), cli.Seed)
	results, final := replay.Replay(start, lines, replay.Config{Seed: cli.Seed})
	return report(w, results, expected, final, cfg.TalkLevels)
}

// #endregion modes

// #region output

// report prints a comparison table and returns the exit code.
func report(w io.Writer, results []replay.Result, expected []string, final talkmap.Maps, levels int) int {
	code := printComparison(w, results, expected)

	s := replay.Summarize(results, final)
	fmt.Fprintf(w, "Replay: %d seeded, %d fallbacks, depth hits %v\n", s.Seeded, s.Fallbacks, s.DepthHits)

	check := eval.NewEvalHarness(eval.EvalConfig{Levels: levels}).Run(final)
	fmt.Fprintf(w, "Final maps: %s\n", check.Reason)
	return code
}

// printComparison outputs a comparison table and returns exit code.
func printComparison(w io.Writer, results []replay.Result, expected []string) int {
	fmt.Fprintf(w, "%-6s| %-30s| %-30s| %s\n", "Turn", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-6s+%-31s+%-31s+%s\n",
		"------", "-------------------------------", "-------------------------------", "------")

	matches := 0
	total := len(expected)
	for i := 0; i < total; i++ {
		got, match := "(none)", "DIFF"
		if i < len(results) {
			got = results[i].Response
			if got == expected[i] {
				match = "OK"
				matches++
			}
		}
		fmt.Fprintf(w, "%-6d| %-30q| %-30q| %s\n", i+1, clip(expected[i]), clip(got), match)
	}

	diverge := total - matches
	fmt.Fprintf(w, "\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

func clip(s string) string {
	const width = 26
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// #endregion output
