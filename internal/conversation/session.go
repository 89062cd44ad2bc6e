package conversation

import (
	"errors"

	"github.com/google/uuid"

	"github.com/cliffjones/polli/internal/talkmap"
)

// ErrTerminated is returned when a turn is processed on a finished session.
var ErrTerminated = errors.New("conversation: session terminated")

// #region state
// State is the position of a session in its lifecycle.
type State int

const (
	AwaitingFirstInput State = iota
	Conversing
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingFirstInput:
		return "awaiting_first_input"
	case Conversing:
		return "conversing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// #endregion state

// #region session
// Session is the per-conversation context threaded through every turn.
//
// Window holds the most recent conversation lines, newest first, one slot per
// context depth. Even slots are system responses and odd slots the user lines
// they answered: after the system says R in reply to the user's U the window
// is [R, U, <previous window>...] truncated to the depth count.
type Session struct {
	ID      string
	State   State
	Window  []string
	Entered string // the user's latest line, "" before the first one
	Turn    int
}

// NewSession returns a fresh session for the given depth count.
func NewSession(levels int) Session {
	return Session{
		ID:     uuid.New().String(),
		State:  AwaitingFirstInput,
		Window: make([]string, levels),
	}
}

// Levels returns the number of context depths the session tracks.
func (s Session) Levels() int {
	return len(s.Window)
}

// push returns a copy of the window with lines prepended, newest last in the
// argument list, truncated to the window's length.
func (s Session) push(lines ...string) []string {
	out := make([]string, 0, len(lines)+len(s.Window))
	for i := len(lines) - 1; i >= 0; i-- {
		out = append(out, lines[i])
	}
	out = append(out, s.Window...)
	return out[:len(s.Window)]
}

// #endregion session

// #region keys
// lookupKeys chains the user's latest line with the window, the line
// being answered fingerprinted last.
func lookupKeys(s Session) []string {
	n := s.Levels()
	if n == 0 {
		return nil
	}
	lines := make([]string, 0, n)
	lines = append(lines, s.Entered)
	lines = append(lines, s.Window[:n-1]...)
	return talkmap.ContextKeys(lines)
}

// learnKeys chains the window alone: the system's latest response is the
// newest line, and the user's reply to it is what gets learned.
func learnKeys(s Session) []string {
	return talkmap.ContextKeys(s.Window)
}

// #endregion keys
