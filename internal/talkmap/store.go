package talkmap

import (
	"fmt"
	"sort"
)

// #region constructor
// New returns empty maps for the given number of depths.
func New(levels int) Maps {
	m := make(Maps, levels)
	for i := range m {
		m[i] = Map{}
	}
	return m
}

// #endregion constructor

// #region accessors
// Levels returns the number of depths.
func (m Maps) Levels() int {
	return len(m)
}

// Empty reports whether there is no training data at all.
func (m Maps) Empty() bool {
	return len(m) == 0 || len(m[0]) == 0
}

// Clone returns a deep copy.
func (m Maps) Clone() Maps {
	out := make(Maps, len(m))
	for i, depth := range m {
		out[i] = depth.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Keys returns the map's keys in ascending order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns the total number of stored responses.
func (m Map) Entries() int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

// #endregion accessors

// #region learn
// Seed installs the conversation opener: the empty key at depth 0 mapped to
// opening. It does nothing once depth 0 holds any data.
func (m Maps) Seed(opening string) {
	if len(m) == 0 || len(m[0]) > 0 {
		return
	}
	m[0][""] = []string{opening}
}

// Learn appends utterance under keys[i] at every depth i.
func (m Maps) Learn(keys []string, utterance string) error {
	if len(keys) != len(m) {
		return fmt.Errorf("learn: %w: got %d keys for %d depths", ErrKeyCount, len(keys), len(m))
	}
	for i, key := range keys {
		if m[i] == nil {
			m[i] = Map{}
		}
		m[i][key] = append(m[i][key], utterance)
	}
	return nil
}

// #endregion learn

// #region lookup
// Lookup picks a response for the given keys. Depths are tried from deepest to
// 1; the first known key wins. Depth 0 falls back to a random existing key
// when keys[0] is unknown. The response is drawn uniformly from the winning
// list, so repeated responses are proportionally more likely.
func (m Maps) Lookup(keys []string, rng Rand) (Match, error) {
	if m.Empty() {
		return Match{}, ErrNoData
	}
	if len(keys) != len(m) {
		return Match{}, fmt.Errorf("lookup: %w: got %d keys for %d depths", ErrKeyCount, len(keys), len(m))
	}

	match := Match{}
	var choices []string
	for i := len(m) - 1; i > 0; i-- {
		if list, ok := m[i][keys[i]]; ok && len(list) > 0 {
			match.Depth = i
			match.Key = keys[i]
			choices = list
			break
		}
	}

	if choices == nil {
		match.Depth = 0
		match.Key = keys[0]
		list, ok := m[0][match.Key]
		if !ok || len(list) == 0 {
			// Unknown context: any key will do.
			known := m[0].Keys()
			match.Key = known[rng.IntN(len(known))]
			match.Fallback = true
			list = m[0][match.Key]
		}
		choices = list
	}
	if len(choices) == 0 {
		return Match{}, fmt.Errorf("lookup: empty list for %q at depth %d: %w", match.Key, match.Depth, ErrNoData)
	}

	match.Candidates = len(choices)
	match.Response = choices[rng.IntN(len(choices))]
	return match, nil
}

// #endregion lookup
