package replay

import (
	"math/rand/v2"

	"github.com/cliffjones/polli/internal/conversation"
	"github.com/cliffjones/polli/internal/talkmap"
)

// #region types
// Config controls a replay run.
type Config struct {
	Seed uint64
}

// DefaultConfig returns a fixed-seed configuration.
func DefaultConfig() Config {
	return Config{Seed: 1}
}

// Result captures one replayed turn: what the system said and the user line
// that followed it.
type Result struct {
	Turn     int
	Response string
	Line     string
	Seeded   bool // no data yet; Line became the opener
	Match    talkmap.Match
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns int
	Seeded     int
	Fallbacks  int
	DepthHits  []int // responses chosen at each depth, fallbacks excluded
	FinalMaps  talkmap.Maps
}

// #endregion types

// #region replay
// Replay feeds lines through a fresh session over a copy of start, one line
// per turn, and returns the per-turn results with the resulting maps. An
// empty line ends the run the way it ends a live session. start is never
// modified.
func Replay(start talkmap.Maps, lines []string, cfg Config) ([]Result, talkmap.Maps) {
	maps := start.Clone()
	engine := conversation.NewEngine(maps, rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)))
	s := engine.NewSession()
	results := make([]Result, 0, len(lines))

	for _, line := range lines {
		next, reply, err := engine.Respond(s)
		if err != nil {
			break
		}
		results = append(results, Result{
			Turn:     s.Turn + 1,
			Response: reply.Text,
			Line:     line,
			Seeded:   reply.Seeding,
			Match:    reply.Match,
		})

		s, err = engine.Hear(next, line)
		if err != nil || s.State == conversation.Terminated {
			break
		}
	}

	return results, maps
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result, final talkmap.Maps) Summary {
	s := Summary{
		TotalTurns: len(results),
		DepthHits:  make([]int, final.Levels()),
		FinalMaps:  final,
	}
	for _, r := range results {
		switch {
		case r.Seeded:
			s.Seeded++
		case r.Match.Fallback:
			s.Fallbacks++
		case r.Match.Depth < len(s.DepthHits):
			s.DepthHits[r.Match.Depth]++
		}
	}
	return s
}

// #endregion replay
