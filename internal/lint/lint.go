// Package lint checks a reconciled set of workflows, a manifest, and a
// lock against four rules and reports diagnostics.
package lint

import (
	"fmt"
	"strings"

	"github.com/gx-tool/gx/internal/config"
	"github.com/gx-tool/gx/internal/domain"
)

// Diagnostic is a single finding reported by a rule.
type Diagnostic struct {
	Rule     string
	Level    config.Level
	Message  string
	Workflow *string
}

// NewDiagnostic builds a workflow-less diagnostic.
func NewDiagnostic(rule string, level config.Level, message string) Diagnostic {
	return Diagnostic{Rule: rule, Level: level, Message: message}
}

// WithWorkflow attaches a workflow path to the diagnostic.
func (d Diagnostic) WithWorkflow(workflow string) Diagnostic {
	d.Workflow = &workflow
	return d
}

// String renders the diagnostic as "[level] rule: message (workflow)".
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", d.Level, d.Rule, d.Message)
	if d.Workflow != nil {
		fmt.Fprintf(&b, " (%s)", *d.Workflow)
	}
	return b.String()
}

// Context is the shared read-only state every rule checks against.
type Context struct {
	Manifest  *domain.Manifest
	Lock      *domain.Lock
	Workflows []domain.LocatedAction
	ActionSet *domain.WorkflowActionSet
}

// Rule is a single lint check.
type Rule interface {
	Name() string
	DefaultLevel() config.Level
	Check(ctx Context) []Diagnostic
}

// Result is the outcome of a full lint run.
type Result struct {
	Diagnostics []Diagnostic
	Errors      int
	Warnings    int
}

// HasViolations reports whether the run found any Error or Warn
// diagnostic.
func (r Result) HasViolations() bool {
	return r.Errors > 0 || r.Warnings > 0
}

// Run checks ctx against every built-in rule, applying lintConfig's level
// overrides and ignore filters.
func Run(ctx Context, lintConfig config.LintConfig) Result {
	rules := []Rule{
		ShaMismatchRule{},
		UnpinnedRule{},
		UnsyncedManifestRule{},
		StaleCommentRule{},
	}

	var result Result
	for _, rule := range rules {
		level := rule.DefaultLevel()
		if override, ok := lintConfig.LevelFor(rule.Name()); ok {
			level = override
		}
		if level == config.LevelOff {
			continue
		}

		ignores := lintConfig.IgnoresFor(rule.Name())
		for _, diag := range rule.Check(ctx) {
			diag.Level = level
			if matchesAnyIgnore(diag, ignores, ctx.Workflows) {
				continue
			}
			result.Diagnostics = append(result.Diagnostics, diag)
			switch level {
			case config.LevelError:
				result.Errors++
			case config.LevelWarn:
				result.Warnings++
			}
		}
	}
	return result
}

// matchesAnyIgnore reports whether diag is suppressed by any of targets.
func matchesAnyIgnore(diag Diagnostic, targets []config.IgnoreTarget, located []domain.LocatedAction) bool {
	for _, target := range targets {
		if matchesIgnore(diag, target, located) {
			return true
		}
	}
	return false
}

// matchesIgnore implements intersection matching: every field set on
// target must match for the ignore to apply. Job matching is not yet
// implemented — a target specifying job never matches, matching
// original_source's conservative stance on insufficient diagnostic
// context.
func matchesIgnore(diag Diagnostic, target config.IgnoreTarget, located []domain.LocatedAction) bool {
	if diag.Workflow == nil {
		return false
	}

	var diagAction *domain.ActionId
	for _, loc := range located {
		if loc.Location.Workflow == *diag.Workflow {
			id := loc.ID
			diagAction = &id
			break
		}
	}

	if target.Action != "" {
		if diagAction == nil || string(*diagAction) != target.Action {
			return false
		}
	}

	if target.Workflow != "" && !strings.HasSuffix(*diag.Workflow, target.Workflow) {
		return false
	}

	if target.Job != "" {
		return false
	}

	return true
}

// ShaMismatchRule flags a SHA-pinned action whose (id, version) pair has
// no corresponding lock entry.
type ShaMismatchRule struct{}

func (ShaMismatchRule) Name() string                  { return "sha-mismatch" }
func (ShaMismatchRule) DefaultLevel() config.Level     { return config.LevelError }

func (ShaMismatchRule) Check(ctx Context) []Diagnostic {
	var diags []Diagnostic
	for _, located := range ctx.Workflows {
		if !located.Version.IsSHA() {
			continue
		}
		key := domain.NewLockKey(located.ID, located.Version)
		if ctx.Lock.Has(key) {
			continue
		}
		msg := fmt.Sprintf("%s: action %s SHA %s not found in lock file",
			located.Location.Workflow, located.ID, located.Version)
		diags = append(diags, NewDiagnostic("sha-mismatch", config.LevelError, msg).WithWorkflow(located.Location.Workflow))
	}
	return diags
}

// UnpinnedRule flags every action reference that isn't pinned to a SHA.
type UnpinnedRule struct{}

func (UnpinnedRule) Name() string              { return "unpinned" }
func (UnpinnedRule) DefaultLevel() config.Level { return config.LevelError }

func (UnpinnedRule) Check(ctx Context) []Diagnostic {
	var diags []Diagnostic
	for _, located := range ctx.Workflows {
		if located.Version.IsSHA() {
			continue
		}
		msg := fmt.Sprintf("%s: action %s uses tag reference %s instead of SHA pin",
			located.Location.Workflow, located.ID, located.Version)
		diags = append(diags, NewDiagnostic("unpinned", config.LevelError, msg).WithWorkflow(located.Location.Workflow))
	}
	return diags
}

// UnsyncedManifestRule flags any symmetric difference between the
// actions used across workflows and the actions declared globally in the
// manifest.
type UnsyncedManifestRule struct{}

func (UnsyncedManifestRule) Name() string              { return "unsynced-manifest" }
func (UnsyncedManifestRule) DefaultLevel() config.Level { return config.LevelError }

func (UnsyncedManifestRule) Check(ctx Context) []Diagnostic {
	workflowActions := make(map[domain.ActionId]struct{})
	for _, id := range ctx.ActionSet.ActionIds() {
		workflowActions[id] = struct{}{}
	}
	manifestActions := make(map[domain.ActionId]struct{})
	for _, spec := range ctx.Manifest.Specs() {
		manifestActions[spec.ID] = struct{}{}
	}

	var diags []Diagnostic
	for id := range workflowActions {
		if _, ok := manifestActions[id]; !ok {
			msg := fmt.Sprintf("action %s is used in workflows but not declared in manifest (gx.toml)", id)
			diags = append(diags, NewDiagnostic("unsynced-manifest", config.LevelError, msg))
		}
	}
	for id := range manifestActions {
		if _, ok := workflowActions[id]; !ok {
			msg := fmt.Sprintf("action %s is declared in manifest (gx.toml) but not used in any workflow", id)
			diags = append(diags, NewDiagnostic("unsynced-manifest", config.LevelError, msg))
		}
	}
	return diags
}

// StaleCommentRule flags a version comment whose SHA no longer matches
// the lock's resolved SHA for that (id, version).
type StaleCommentRule struct{}

func (StaleCommentRule) Name() string              { return "stale-comment" }
func (StaleCommentRule) DefaultLevel() config.Level { return config.LevelWarn }

func (StaleCommentRule) Check(ctx Context) []Diagnostic {
	var diags []Diagnostic
	for _, located := range ctx.Workflows {
		if located.Sha == nil {
			continue
		}
		key := domain.NewLockKey(located.ID, located.Version)
		entry, ok := ctx.Lock.Get(key)
		if !ok {
			continue
		}
		if entry.Sha != *located.Sha {
			msg := fmt.Sprintf("%s: action %s version %s has stale comment (SHA %s does not match lock SHA %s)",
				located.Location.Workflow, located.ID, located.Version, *located.Sha, entry.Sha)
			diags = append(diags, NewDiagnostic("stale-comment", config.LevelWarn, msg).WithWorkflow(located.Location.Workflow))
		}
	}
	return diags
}
