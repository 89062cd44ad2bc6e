package logging

import "time"

// #region turn-entry
// TurnEntry is a single row in the turn_log table: what the system said and
// how the user replied to it.
type TurnEntry struct {
	SessionID  string    `json:"session_id"`
	Turn       int       `json:"turn"`
	Response   string    `json:"response"`
	Reply      string    `json:"reply"`
	Seeding    bool      `json:"seeding,omitempty"`
	MatchDepth int       `json:"match_depth"`
	ContextKey string    `json:"context_key"`
	Fallback   bool      `json:"fallback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// #endregion turn-entry

// #region session-summary
// SessionSummary describes one logged session.
type SessionSummary struct {
	SessionID string
	Turns     int
	StartedAt time.Time
}

// #endregion session-summary
