package tidy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/workflowedit"
)

type fakeRegistry struct {
	lookupShaFn  func(id domain.ActionId, version domain.Version) (domain.ResolvedAction, error)
	tagsForShaFn func(id domain.ActionId, sha domain.CommitSha) ([]domain.Version, error)
	allTagsFn    func(id domain.ActionId) ([]domain.Version, error)
}

func (f *fakeRegistry) LookupSha(id domain.ActionId, version domain.Version) (domain.ResolvedAction, error) {
	return f.lookupShaFn(id, version)
}

func (f *fakeRegistry) TagsForSha(id domain.ActionId, sha domain.CommitSha) ([]domain.Version, error) {
	if f.tagsForShaFn != nil {
		return f.tagsForShaFn(id, sha)
	}
	return nil, domain.ResolutionError{Kind: domain.ErrNoTagsForSha, Action: id, Sha: sha}
}

func (f *fakeRegistry) AllTags(id domain.ActionId) ([]domain.Version, error) {
	if f.allTagsFn != nil {
		return f.allTagsFn(id)
	}
	return nil, nil
}

type fakeUpdater struct {
	applied []workflowedit.Update
}

func (u *fakeUpdater) Apply(updates []workflowedit.Update) (map[string]int, error) {
	u.applied = append(u.applied, updates...)
	counts := make(map[string]int)
	for _, upd := range updates {
		counts[upd.Path]++
	}
	return counts, nil
}

func writeWorkflow(t *testing.T, dir, contents string) string {
	t.Helper()
	workflowDir := filepath.Join(dir, ".github", "workflows")
	require.NoError(t, os.MkdirAll(workflowDir, 0o755))
	path := filepath.Join(workflowDir, "ci.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunAddsMissingActionAndRewritesWorkflow(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "jobs:\n  build:\n    steps:\n      - uses: actions/checkout@v4.1.0\n")

	registry := &fakeRegistry{
		lookupShaFn: func(id domain.ActionId, version domain.Version) (domain.ResolvedAction, error) {
			return domain.NewResolvedAction(id, version, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", id.BaseRepo(), domain.RefTag, "2024-01-01"), nil
		},
	}
	updater := &fakeUpdater{}

	manifest := domain.NewManifest()
	lock := domain.NewLock()

	result, err := Run(context.Background(), []string{dir}, manifest, lock, registry, updater)
	require.NoError(t, err)

	v, ok := result.Manifest.Get("actions/checkout")
	require.True(t, ok)
	assert.Equal(t, domain.Version("v4.1.0"), v)

	require.Len(t, updater.applied, 1)
	assert.Contains(t, updater.applied[0].NewRef, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	assert.Equal(t, map[string]int{filepath.Join(dir, ".github", "workflows", "ci.yml"): 1}, result.ChangedFiles)
}

func TestRunPrunesUnusedManifestEntry(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "jobs:\n  build:\n    steps:\n      - uses: actions/checkout@v4.1.0\n")

	registry := &fakeRegistry{
		lookupShaFn: func(id domain.ActionId, version domain.Version) (domain.ResolvedAction, error) {
			return domain.NewResolvedAction(id, version, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", id.BaseRepo(), domain.RefTag, "2024-01-01"), nil
		},
	}
	updater := &fakeUpdater{}

	manifest := domain.NewManifest()
	manifest.Set("actions/long-gone", "v1.0.0")
	lock := domain.NewLock()

	result, err := Run(context.Background(), []string{dir}, manifest, lock, registry, updater)
	require.NoError(t, err)

	_, ok := result.Manifest.Get("actions/long-gone")
	assert.False(t, ok)
}

func TestRunReturnsErrorOnUnresolvableAction(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "jobs:\n  build:\n    steps:\n      - uses: actions/checkout@v4.1.0\n")

	registry := &fakeRegistry{
		lookupShaFn: func(id domain.ActionId, version domain.Version) (domain.ResolvedAction, error) {
			return domain.ResolvedAction{}, domain.ResolutionError{Kind: domain.ErrResolveFailed, Reason: "boom"}
		},
	}
	updater := &fakeUpdater{}

	_, err := Run(context.Background(), []string{dir}, domain.NewManifest(), domain.NewLock(), registry, updater)
	require.Error(t, err)
	var tidyErr *Error
	require.ErrorAs(t, err, &tidyErr)
	assert.Len(t, tidyErr.Unresolved, 1)
}

func TestRunNoWorkflowsIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".github", "workflows"), 0o755))

	registry := &fakeRegistry{}
	updater := &fakeUpdater{}

	manifest := domain.NewManifest()
	lock := domain.NewLock()
	result, err := Run(context.Background(), []string{dir}, manifest, lock, registry, updater)
	require.NoError(t, err)
	assert.Empty(t, result.ChangedFiles)
	assert.Empty(t, updater.applied)
}
