package conversation

import (
	"fmt"

	"github.com/cliffjones/polli/internal/talkmap"
)

// #region types
// Reply is what the system says at the start of a turn.
type Reply struct {
	Text    string
	Seeding bool // no data yet; the user's next line becomes the opener
	Match   talkmap.Match
}

// Engine owns the talk maps and applies turns to sessions.
type Engine struct {
	maps talkmap.Maps
	rng  talkmap.Rand
}

// #endregion types

// #region constructor
// NewEngine wraps maps, which must have one entry per context depth.
func NewEngine(maps talkmap.Maps, rng talkmap.Rand) *Engine {
	return &Engine{maps: maps, rng: rng}
}

// Maps returns the engine's talk maps.
func (e *Engine) Maps() talkmap.Maps {
	return e.maps
}

// NewSession returns a session sized to the engine's depth count.
func (e *Engine) NewSession() Session {
	return NewSession(e.maps.Levels())
}

// #endregion constructor

// #region respond
// Respond chooses what the system says next. With no training data it returns
// a seeding reply with empty text and leaves the window untouched.
func (e *Engine) Respond(s Session) (Session, Reply, error) {
	if s.State == Terminated {
		return s, Reply{}, ErrTerminated
	}
	if s.Levels() != e.maps.Levels() {
		return s, Reply{}, fmt.Errorf("respond: session has %d depths, maps have %d", s.Levels(), e.maps.Levels())
	}
	if e.maps.Empty() {
		return s, Reply{Seeding: true}, nil
	}

	match, err := e.maps.Lookup(lookupKeys(s), e.rng)
	if err != nil {
		return s, Reply{}, fmt.Errorf("respond: %w", err)
	}

	s.Window = s.push(s.Entered, match.Response)
	return s, Reply{Text: match.Response, Match: match}, nil
}

// #endregion respond

// #region hear
// Hear takes the user's line. An empty line ends the session without learning;
// any other line is learned at every depth under the current window.
func (e *Engine) Hear(s Session, line string) (Session, error) {
	if s.State == Terminated {
		return s, ErrTerminated
	}
	if line == "" {
		s.State = Terminated
		return s, nil
	}

	e.maps.Seed(line)
	if err := e.maps.Learn(learnKeys(s), line); err != nil {
		return s, fmt.Errorf("hear: %w", err)
	}

	s.Entered = line
	s.State = Conversing
	s.Turn++
	return s, nil
}

// #endregion hear
