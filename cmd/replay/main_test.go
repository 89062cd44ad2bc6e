package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/cliffjones/polli/internal/logging"
	"github.com/cliffjones/polli/internal/persist"
	"github.com/cliffjones/polli/internal/replay"
)

func TestValidate_RequiresOneSource(t *testing.T) {
	cases := map[string][]string{
		"none": {},
		"both": {"--fixture", "f.json", "--session", "latest"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := parser.Parse(args); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestParse_Session(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"--session", "latest", "--seed", "9"}); err != nil {
		t.Fatal(err)
	}
	if cli.Session != "latest" || cli.Seed != 9 {
		t.Errorf("unexpected parse: %+v", cli)
	}
}

func TestFixtureMode(t *testing.T) {
	var out bytes.Buffer
	code := runFixtureMode(&out, filepath.Join("..", "..", "internal", "replay", "testdata", "greeting.json"))
	if code != 0 {
		t.Fatalf("expected exit 0, got %d:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "Summary: 2 total, 2 match, 0 diverge") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestFixtureMode_Mismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	f := &replay.Fixture{
		Config:          replay.FixtureConfig{TalkLevels: 2, Seed: 1},
		StartMaps:       []map[string][]string{{"": {"hi"}}},
		Lines:           []string{"hi"},
		ExpectedResults: []replay.FixtureExpectedResult{{Turn: 1, Response: "something else"}},
	}
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}
	if code := runFixtureMode(&bytes.Buffer{}, path); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestFixtureMode_BadFile(t *testing.T) {
	if code := runFixtureMode(&bytes.Buffer{}, filepath.Join(t.TempDir(), "absent.json")); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestSessionMode(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "turns.db")
	cfgPath := filepath.Join(dir, "polli.yaml")
	os.WriteFile(cfgPath, []byte("talk_levels: 2\nturn_log:\n  db_path: "+dbPath+"\n"), 0644)

	// A session that started from no data: seeding turn, then the only
	// possible answer.
	backend := &persist.Backend{}
	defer backend.Close()
	log, err := backend.OpenTurnLog(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	log.Record(ctx, logging.TurnEntry{SessionID: "s1", Turn: 1, Reply: "hello", Seeding: true})
	log.Record(ctx, logging.TurnEntry{SessionID: "s1", Turn: 2, Response: "hello", Reply: "bye"})

	var out bytes.Buffer
	code := runSessionMode(&out, CLI{Config: cfgPath, Session: "latest", Seed: 1})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "Session s1, 2 turns") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestSessionMode_NoSessions(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if code := runSessionMode(&bytes.Buffer{}, CLI{Config: filepath.Join(dir, "absent.yaml"), Session: "latest"}); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
