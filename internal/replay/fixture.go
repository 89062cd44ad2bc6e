package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cliffjones/polli/internal/talkmap"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	StartMaps       []map[string][]string   `json:"start_maps"`
	Lines           []string                `json:"lines"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig holds the run parameters.
type FixtureConfig struct {
	TalkLevels int    `json:"talk_levels"`
	Seed       uint64 `json:"seed"`
}

// FixtureExpectedResult captures the expected response per turn.
type FixtureExpectedResult struct {
	Turn     int    `json:"turn"`
	Response string `json:"response"`
}

// Mismatch is one turn where the replay disagreed with the fixture.
type Mismatch struct {
	Turn     int
	Expected string
	Got      string
	Missing  bool // no replayed turn at this position
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Config.TalkLevels == 0 {
		f.Config.TalkLevels = talkmap.DefaultLevels
	}
	if f.Config.TalkLevels < 0 {
		return nil, fmt.Errorf("fixture %s: talk_levels must be positive, got %d", path, f.Config.TalkLevels)
	}
	if len(f.StartMaps) > f.Config.TalkLevels {
		return nil, fmt.Errorf("fixture %s: %d start maps for %d levels", path, len(f.StartMaps), f.Config.TalkLevels)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region fixture-conversion

// NewFixture records a run: the maps it started from, the user lines, and the
// responses it produced.
func NewFixture(description string, cfg Config, start talkmap.Maps, results []Result) *Fixture {
	f := &Fixture{
		Description: description,
		Config:      FixtureConfig{TalkLevels: start.Levels(), Seed: cfg.Seed},
		StartMaps:   make([]map[string][]string, start.Levels()),
		Lines:       make([]string, 0, len(results)),
	}
	for i, m := range start {
		f.StartMaps[i] = m.Clone()
	}
	for _, r := range results {
		f.Lines = append(f.Lines, r.Line)
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{Turn: r.Turn, Response: r.Response})
	}
	return f
}

// Maps converts the fixture's start maps to talk maps sized to its level
// count. Absent depths start empty; empty lists are dropped.
func (f *Fixture) Maps() talkmap.Maps {
	maps := talkmap.New(f.Config.TalkLevels)
	for i, m := range f.StartMaps {
		if i >= len(maps) {
			break
		}
		for k, v := range m {
			if len(v) > 0 {
				maps[i][k] = append([]string(nil), v...)
			}
		}
	}
	return maps
}

// ReplayConfig returns the replay parameters recorded in the fixture.
func (f *Fixture) ReplayConfig() Config {
	return Config{Seed: f.Config.Seed}
}

// Run replays the fixture's lines from its start maps.
func (f *Fixture) Run() ([]Result, talkmap.Maps) {
	return Replay(f.Maps(), f.Lines, f.ReplayConfig())
}

// Check compares replayed results against the expected responses, turn by
// turn. Extra replayed turns are ignored.
func (f *Fixture) Check(results []Result) []Mismatch {
	var out []Mismatch
	for i, exp := range f.ExpectedResults {
		if i >= len(results) {
			out = append(out, Mismatch{Turn: exp.Turn, Expected: exp.Response, Missing: true})
			continue
		}
		if results[i].Response != exp.Response || results[i].Turn != exp.Turn {
			out = append(out, Mismatch{Turn: exp.Turn, Expected: exp.Response, Got: results[i].Response})
		}
	}
	return out
}

// #endregion fixture-conversion
