// Package main defines the inspect CLI using kong.
package main

// Globals are the flags shared by every subcommand.
type Globals struct {
	Config string `help:"Config file path" env:"POLLI_CONFIG" default:"polli.yaml"`
	JSON   bool   `name:"json" help:"Output as JSON instead of a table"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Keys        KeysCmd        `cmd:"" help:"List the context keys stored at a depth"`
	Show        ShowCmd        `cmd:"" help:"Show the responses stored under a context key"`
	Check       CheckCmd       `cmd:"" help:"Validate the stored talk maps"`
	Fingerprint FingerprintCmd `cmd:"" help:"Print the fingerprint and context keys of lines, newest first"`
	Sessions    SessionsCmd    `cmd:"" help:"List sessions in the turn log"`
}

// KeysCmd lists keys at one depth.
type KeysCmd struct {
	Depth int `arg:"" optional:"" default:"0" help:"Context depth"`
	Limit int `short:"n" default:"0" help:"Show at most N keys (0 = all)"`
}

// ShowCmd prints one key's response list.
type ShowCmd struct {
	Key string `arg:"" help:"Context key; its depth is its separator count"`
}

// CheckCmd runs the talk map validation.
type CheckCmd struct {
	MaxListLen int `default:"1000" help:"Flag lists longer than this (informational)"`
}

// FingerprintCmd shows how lines turn into keys.
type FingerprintCmd struct {
	Lines []string `arg:"" help:"Conversation lines, newest first"`
}

// SessionsCmd lists logged sessions.
type SessionsCmd struct {
	Last int `short:"n" default:"20" help:"Show the N most recent sessions"`
}
