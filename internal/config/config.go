// Package config holds process-wide settings: credential sourcing and
// lint rule configuration.
package config

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// keyringService/keyringUser match the "gh" CLI's own keyring entry, so a
// machine already authenticated via `gh auth login` needs no extra setup.
const (
	keyringService = "gh:github.com"
	keyringUser    = ""
)

// Config carries process-wide settings threaded through the CLI.
type Config struct {
	GithubToken string
	Verbose     bool
}

// ResolveGithubToken sources a token with the same precedence the
// teacher's CLI uses: explicit flag, then GH_TOKEN, then GITHUB_TOKEN,
// then the OS keyring entry gh itself manages. Returns "" with no error
// when no source yields a token — callers degrade gracefully rather than
// failing outright, since many operations work fine unauthenticated
// (rate-limited).
func ResolveGithubToken(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	if token, err := keyring.Get(keyringService, keyringUser); err == nil && token != "" {
		return token
	}
	return ""
}

// Level is a diagnostic severity.
type Level int

const (
	LevelOff Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// ParseLevel parses a rule level from its TOML string form.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off":
		return LevelOff, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown lint level %q", s)
	}
}

// IgnoreTarget narrows a lint diagnostic suppression to an intersection
// of action/workflow/job; an unset field is a wildcard at that level.
type IgnoreTarget struct {
	Action   string
	Workflow string
	Job      string
}

// RuleConfig overrides a single rule's level and lists its ignore
// targets.
type RuleConfig struct {
	Level   *Level
	Ignores []IgnoreTarget
}

// LintConfig configures all four lint rules, keyed by rule name
// ("unpinned", "sha-mismatch", "unsynced-manifest", "stale-comment").
type LintConfig struct {
	Rules map[string]RuleConfig
}

// NewLintConfig builds an empty configuration; every rule runs at its
// default level with no ignores.
func NewLintConfig() LintConfig {
	return LintConfig{Rules: make(map[string]RuleConfig)}
}

// LevelFor returns the configured level override for rule, if any.
func (c LintConfig) LevelFor(rule string) (Level, bool) {
	rc, ok := c.Rules[rule]
	if !ok || rc.Level == nil {
		return 0, false
	}
	return *rc.Level, true
}

// IgnoresFor returns the ignore targets configured for rule.
func (c LintConfig) IgnoresFor(rule string) []IgnoreTarget {
	return c.Rules[rule].Ignores
}
