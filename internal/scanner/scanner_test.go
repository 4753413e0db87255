package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gx-tool/gx/internal/domain"
)

const sampleWorkflow = `
name: CI
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4.1.0
      - name: setup go
        uses: actions/setup-go@0123456789abcdef0123456789abcdef01234567 # v5.0.0
      - uses: ./local-action@v1
      - uses: docker://alpine@sha256:deadbeef
  lint:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4.1.0
`

func writeWorkflow(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindWorkflowPaths(t *testing.T) {
	root := t.TempDir()
	workflowsDir := filepath.Join(root, ".github", "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0o755))
	writeWorkflow(t, workflowsDir, "ci.yml", sampleWorkflow)
	writeWorkflow(t, workflowsDir, "release.yaml", sampleWorkflow)

	paths, err := FindWorkflowPaths([]string{root})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestScanFileExtractsRefsAndSkipsLocalAndDocker(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkflow(t, dir, "ci.yml", sampleWorkflow)

	w, err := ScanFile(path)
	require.NoError(t, err)

	assert.Len(t, w.Refs, 3)

	first := w.Refs[0]
	assert.Equal(t, "actions/checkout", first.ActionName)
	assert.Equal(t, "v4.1.0", first.Ref)
	require.NotNil(t, first.Job)
	assert.Equal(t, "build", *first.Job)
	require.NotNil(t, first.Step)
	assert.Equal(t, 0, *first.Step)

	second := w.Refs[1]
	assert.Equal(t, "actions/setup-go", second.ActionName)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", second.Ref)
	require.NotNil(t, second.Comment)
	assert.Equal(t, "v5.0.0", *second.Comment)
	require.NotNil(t, second.Step)
	assert.Equal(t, 1, *second.Step)

	third := w.Refs[2]
	assert.Equal(t, "actions/checkout", third.ActionName)
	require.NotNil(t, third.Job)
	assert.Equal(t, "lint", *third.Job)
}

func TestLocatedActionsInterpretsRefs(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkflow(t, dir, "ci.yml", sampleWorkflow)

	workflows, err := ScanAll([]string{path})
	require.NoError(t, err)

	located := LocatedActions(workflows)
	require.Len(t, located, 3)

	assert.Equal(t, domain.Version("v5.0.0"), located[1].Version)
	require.NotNil(t, located[1].Sha)
}
