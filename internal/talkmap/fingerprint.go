package talkmap

import (
	"strings"
)

// #region fingerprint
// Fingerprint reduces an utterance to the sorted set of lowercase ASCII
// letters it contains. "Hello, World!" and "world hello" both become "dehlorw".
func Fingerprint(text string) string {
	var seen [26]bool
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			seen[r-'a'] = true
		}
	}

	var b strings.Builder
	for i, ok := range seen {
		if ok {
			b.WriteByte(byte('a' + i))
		}
	}
	return b.String()
}

// #endregion fingerprint

// #region context-keys
// KeySeparator joins fingerprints inside a context key.
const KeySeparator = " "

// ContextKeys builds one key per line, lines ordered newest first.
// keys[0] is the fingerprint of lines[0]; every deeper key prepends the
// fingerprint of the next older line, so the newest fingerprint is always last.
func ContextKeys(lines []string) []string {
	keys := make([]string, len(lines))
	for i, line := range lines {
		if i == 0 {
			keys[0] = Fingerprint(line)
			continue
		}
		keys[i] = Fingerprint(line) + KeySeparator + keys[i-1]
	}
	return keys
}

// #endregion context-keys
