package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/cliffjones/polli/internal/config"
	"github.com/cliffjones/polli/internal/eval"
	"github.com/cliffjones/polli/internal/persist"
	"github.com/cliffjones/polli/internal/talkmap"
)

// errCheckFailed makes check exit non-zero after printing its report.
var errCheckFailed = errors.New("check failed")

// #region main

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("inspect"),
		kong.Description("Inspect stored talk maps and the turn log."),
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)
	if err := kctx.Run(&cli.Globals); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// #endregion main

// #region load

type loaded struct {
	cfg     config.Config
	backend *persist.Backend
	maps    talkmap.Maps
}

// load reads the config and every depth of talk map. Depths that fail to
// load are reported on stderr and come back empty.
func load(g *Globals) (*loaded, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	backend, err := persist.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	maps, results := persist.NewRepository(backend.Provider).LoadAll(context.Background(), cfg.TalkLevels)
	for _, r := range results {
		if !r.OK() && r.Status != persist.Missing {
			fmt.Fprintf(os.Stderr, "depth %d: %s: %v\n", r.Depth, r.Status, r.Err)
		}
	}
	return &loaded{cfg: cfg, backend: backend, maps: maps}, nil
}

// #endregion load

// #region keys

type keyRow struct {
	Key     string `json:"key"`
	Entries int    `json:"entries"`
}

// Run lists the keys at the requested depth in sorted order.
func (c *KeysCmd) Run(g *Globals, w io.Writer) error {
	l, err := load(g)
	if err != nil {
		return err
	}
	defer l.backend.Close()

	if c.Depth < 0 || c.Depth >= l.maps.Levels() {
		return fmt.Errorf("depth %d out of range 0..%d", c.Depth, l.maps.Levels()-1)
	}
	m := l.maps[c.Depth]
	keys := m.Keys()
	if c.Limit > 0 && len(keys) > c.Limit {
		keys = keys[:c.Limit]
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{Key: k, Entries: len(m[k])}
	}
	if g.JSON {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-40s  %s\n", "Key", "Entries")
	fmt.Fprintf(w, "%-40s+-%s\n", strings.Repeat("-", 40), "-------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-40q  %d\n", r.Key, r.Entries)
	}
	fmt.Fprintf(w, "\n%d of %d keys at depth %d, %d entries\n", len(rows), len(m), c.Depth, m.Entries())
	return nil
}

// #endregion keys

// #region show

type showResult struct {
	Depth     int      `json:"depth"`
	Key       string   `json:"key"`
	Responses []string `json:"responses"`
}

// Run prints the responses stored under the key.
func (c *ShowCmd) Run(g *Globals, w io.Writer) error {
	l, err := load(g)
	if err != nil {
		return err
	}
	defer l.backend.Close()

	depth := strings.Count(c.Key, talkmap.KeySeparator)
	if depth >= l.maps.Levels() {
		return fmt.Errorf("key %q implies depth %d, only %d depths configured", c.Key, depth, l.maps.Levels())
	}
	list, ok := l.maps[depth][c.Key]
	if !ok {
		return fmt.Errorf("key %q not found at depth %d", c.Key, depth)
	}

	if g.JSON {
		return printJSON(w, showResult{Depth: depth, Key: c.Key, Responses: list})
	}
	fmt.Fprintf(w, "depth %d, key %q, %d responses\n", depth, c.Key, len(list))
	for i, r := range list {
		fmt.Fprintf(w, "%4d  %s\n", i+1, r)
	}
	return nil
}

// #endregion show

// #region check

// Run validates the talk maps and fails when any blocking check fails.
func (c *CheckCmd) Run(g *Globals, w io.Writer) error {
	l, err := load(g)
	if err != nil {
		return err
	}
	defer l.backend.Close()

	result := eval.NewEvalHarness(eval.EvalConfig{
		Levels:     l.cfg.TalkLevels,
		MaxListLen: c.MaxListLen,
	}).Run(l.maps)

	if g.JSON {
		if err := printJSON(w, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "%-24s  %10s  %s\n", "Check", "Value", "Pass")
		fmt.Fprintf(w, "%-24s+-%10s+-%s\n", strings.Repeat("-", 24), "----------", "----")
		for _, m := range result.Metrics {
			pass := "OK"
			if !m.Pass {
				pass = "FAIL"
			}
			fmt.Fprintf(w, "%-24s  %10.0f  %s\n", m.Name, m.Value, pass)
		}
		fmt.Fprintf(w, "\n%s\n", result.Reason)
	}

	if !result.Passed {
		return errCheckFailed
	}
	return nil
}

// #endregion check

// #region fingerprint

type fingerprintRow struct {
	Line        string `json:"line"`
	Fingerprint string `json:"fingerprint"`
	Key         string `json:"key"`
}

// Run prints each line's fingerprint and the context key that ends with it.
func (c *FingerprintCmd) Run(g *Globals, w io.Writer) error {
	keys := talkmap.ContextKeys(c.Lines)
	rows := make([]fingerprintRow, len(c.Lines))
	for i, line := range c.Lines {
		rows[i] = fingerprintRow{Line: line, Fingerprint: talkmap.Fingerprint(line), Key: keys[i]}
	}
	if g.JSON {
		return printJSON(w, rows)
	}
	for i, r := range rows {
		fmt.Fprintf(w, "%d  %-30q  %-20q  %q\n", i, r.Line, r.Fingerprint, r.Key)
	}
	return nil
}

// #endregion fingerprint

// #region sessions

type sessionRow struct {
	SessionID string `json:"session_id"`
	Turns     int    `json:"turns"`
	StartedAt string `json:"started_at"`
}

// Run lists the most recent sessions in the turn log.
func (c *SessionsCmd) Run(g *Globals, w io.Writer) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	backend := &persist.Backend{}
	defer backend.Close()
	log, err := backend.OpenTurnLog(cfg.TurnLog.DBPath)
	if err != nil {
		return err
	}

	sessions, err := log.Sessions(context.Background(), c.Last)
	if err != nil {
		return err
	}
	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = sessionRow{SessionID: s.SessionID, Turns: s.Turns, StartedAt: s.StartedAt.Format("2006-01-02T15:04:05Z")}
	}
	if g.JSON {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %5s  %s\n", "Session", "Turns", "Started")
	fmt.Fprintf(w, "%-36s+-%5s+-%s\n", strings.Repeat("-", 36), "-----", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %5d  %s\n", r.SessionID, r.Turns, r.StartedAt)
	}
	return nil
}

// #endregion sessions

// #region output

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion output
