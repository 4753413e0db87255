package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gx-tool/gx/internal/config"
	"github.com/gx-tool/gx/internal/domain"
)

func sha(s string) *domain.CommitSha {
	v := domain.CommitSha(s)
	return &v
}

func TestShaMismatchRule(t *testing.T) {
	ctx := Context{
		Lock: domain.NewLock(),
		Workflows: []domain.LocatedAction{
			{ID: "actions/checkout", Version: "0123456789abcdef0123456789abcdef01234567", Location: domain.WorkflowLocation{Workflow: "ci.yml"}},
		},
	}
	diags := ShaMismatchRule{}.Check(ctx)
	assert.Len(t, diags, 1)
	assert.Equal(t, "sha-mismatch", diags[0].Rule)
}

func TestShaMismatchRuleNoneWhenLocked(t *testing.T) {
	lock := domain.NewLock()
	lock.Set(domain.NewResolvedAction("actions/checkout", "0123456789abcdef0123456789abcdef01234567", "0123456789abcdef0123456789abcdef01234567", "actions/checkout", domain.RefCommit, "2024-01-01"))
	ctx := Context{
		Lock: lock,
		Workflows: []domain.LocatedAction{
			{ID: "actions/checkout", Version: "0123456789abcdef0123456789abcdef01234567", Location: domain.WorkflowLocation{Workflow: "ci.yml"}},
		},
	}
	assert.Empty(t, ShaMismatchRule{}.Check(ctx))
}

func TestUnpinnedRule(t *testing.T) {
	ctx := Context{
		Workflows: []domain.LocatedAction{
			{ID: "actions/checkout", Version: "v4.1.0", Location: domain.WorkflowLocation{Workflow: "ci.yml"}},
			{ID: "actions/setup-go", Version: "0123456789abcdef0123456789abcdef01234567", Location: domain.WorkflowLocation{Workflow: "ci.yml"}},
		},
	}
	diags := UnpinnedRule{}.Check(ctx)
	assert.Len(t, diags, 1)
}

func TestUnsyncedManifestRule(t *testing.T) {
	manifest := domain.NewManifest()
	manifest.Set("actions/stale", "v1.0.0")

	actionSet := domain.NewWorkflowActionSet()
	actionSet.Add(domain.InterpretedRef{ID: "actions/checkout", Version: "v4.1.0"})

	ctx := Context{Manifest: manifest, ActionSet: actionSet}
	diags := UnsyncedManifestRule{}.Check(ctx)
	assert.Len(t, diags, 2)
}

func TestStaleCommentRule(t *testing.T) {
	lock := domain.NewLock()
	lock.Set(domain.NewResolvedAction("actions/checkout", "v4.1.0", "deadbeef", "actions/checkout", domain.RefTag, "2024-01-01"))

	ctx := Context{
		Lock: lock,
		Workflows: []domain.LocatedAction{
			{ID: "actions/checkout", Version: "v4.1.0", Sha: sha("stalesha"), Location: domain.WorkflowLocation{Workflow: "ci.yml"}},
		},
	}
	diags := StaleCommentRule{}.Check(ctx)
	assert.Len(t, diags, 1)
	assert.Equal(t, config.LevelWarn, diags[0].Level)
}

func TestRunAppliesLevelOverridesAndIgnores(t *testing.T) {
	ctx := Context{
		Manifest: domain.NewManifest(),
		Lock:     domain.NewLock(),
		Workflows: []domain.LocatedAction{
			{ID: "actions/checkout", Version: "v4.1.0", Location: domain.WorkflowLocation{Workflow: "ci.yml"}},
		},
		ActionSet: domain.NewWorkflowActionSet(),
	}

	t.Run("default levels", func(t *testing.T) {
		result := Run(ctx, config.NewLintConfig())
		assert.True(t, result.Errors > 0)
	})

	t.Run("rule turned off", func(t *testing.T) {
		off := config.LevelOff
		cfg := config.LintConfig{Rules: map[string]config.RuleConfig{"unpinned": {Level: &off}}}
		result := Run(ctx, cfg)
		for _, d := range result.Diagnostics {
			assert.NotEqual(t, "unpinned", d.Rule)
		}
	})

	t.Run("ignore by action", func(t *testing.T) {
		cfg := config.LintConfig{Rules: map[string]config.RuleConfig{
			"unpinned": {Ignores: []config.IgnoreTarget{{Action: "actions/checkout"}}},
		}}
		result := Run(ctx, cfg)
		for _, d := range result.Diagnostics {
			assert.NotEqual(t, "unpinned", d.Rule)
		}
	})
}

func TestDiagnosticString(t *testing.T) {
	d := NewDiagnostic("unpinned", config.LevelError, "something bad").WithWorkflow("ci.yml")
	assert.Contains(t, d.String(), "unpinned")
	assert.Contains(t, d.String(), "ci.yml")
	assert.Contains(t, d.String(), "something bad")
}
