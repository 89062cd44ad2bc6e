package talkmap

import "errors"

// DefaultLevels is the number of context depths used when none is configured.
const DefaultLevels = 4

var (
	// ErrNoData is returned by Lookup when the depth-0 map has no keys.
	ErrNoData = errors.New("talkmap: no data at depth 0")
	// ErrKeyCount is returned when the number of keys differs from the number of depths.
	ErrKeyCount = errors.New("talkmap: key count does not match depth count")
)

// #region map
// Map is the response store for a single depth: context key to the
// responses that followed it, in the order they were learned.
type Map map[string][]string

// Maps holds one Map per context depth, indexed by depth.
type Maps []Map

// #endregion map

// #region match
// Match describes how a lookup resolved.
type Match struct {
	Depth      int
	Key        string
	Fallback   bool // key at depth 0 was unknown, a random key was drawn instead
	Candidates int
	Response   string
}

// #endregion match

// Rand is the randomness source used for key fallback and response choice.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}
