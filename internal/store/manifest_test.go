package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gx-tool/gx/internal/domain"
)

func TestFileManifestLoadMissingFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gx.toml")
	fm := NewFileManifest(path)

	m, existed, err := fm.Load()
	require.NoError(t, err)
	assert.False(t, existed)
	assert.True(t, m.IsEmpty())
}

func TestFileManifestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gx.toml")
	fm := NewFileManifest(path)

	m := domain.NewManifest()
	m.Set("actions/checkout", "v4.1.0")
	m.Set("actions/setup-go", "v5.0.0")
	job := "build"
	step := 0
	m.AddOverride("actions/checkout", domain.ActionOverride{Workflow: "ci.yml", Job: &job, Step: &step, Version: "v4.2.0"})

	require.NoError(t, fm.Save(m))

	loaded, existed, err := fm.Load()
	require.NoError(t, err)
	assert.True(t, existed)

	v, ok := loaded.Get("actions/checkout")
	assert.True(t, ok)
	assert.Equal(t, domain.Version("v4.1.0"), v)

	overrides := loaded.OverridesFor("actions/checkout")
	require.Len(t, overrides, 1)
	assert.Equal(t, "ci.yml", overrides[0].Workflow)
	require.NotNil(t, overrides[0].Job)
	assert.Equal(t, "build", *overrides[0].Job)
	require.NotNil(t, overrides[0].Step)
	assert.Equal(t, 0, *overrides[0].Step)
}

func TestMemoryManifest(t *testing.T) {
	mm := NewMemoryManifest(nil, false)
	_, existed, err := mm.Load()
	require.NoError(t, err)
	assert.False(t, existed)

	m := domain.NewManifest()
	m.Set("actions/checkout", "v4.1.0")
	require.NoError(t, mm.Save(m))

	loaded, existed, err := mm.Load()
	require.NoError(t, err)
	assert.True(t, existed)
	v, ok := loaded.Get("actions/checkout")
	assert.True(t, ok)
	assert.Equal(t, domain.Version("v4.1.0"), v)
}
