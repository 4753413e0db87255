// Package store persists the manifest and lock to and from TOML files
// under .github/, and provides in-memory equivalents for testing.
package store

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/gx-tool/gx/internal/domain"
)

// ManifestFileName is the manifest's path relative to the repository
// root.
const ManifestFileName = ".github/gx.toml"

// overrideData is the on-disk shape of a single ActionOverride.
type overrideData struct {
	Workflow string `toml:"workflow"`
	Job      string `toml:"job,omitempty"`
	Step     *int   `toml:"step,omitempty"`
	Version  string `toml:"version"`
}

// manifestData is the TOML on-disk shape of a Manifest.
type manifestData struct {
	Actions   map[string]string         `toml:"actions"`
	Overrides map[string][]overrideData `toml:"overrides,omitempty"`
}

// ManifestStore loads and saves a domain.Manifest.
type ManifestStore interface {
	Load() (*domain.Manifest, bool, error)
	Save(m *domain.Manifest) error
}

// FileManifest is the on-disk ManifestStore, backed by path (typically
// ManifestFileName).
type FileManifest struct {
	path string
}

// NewFileManifest builds a FileManifest rooted at path.
func NewFileManifest(path string) *FileManifest {
	return &FileManifest{path: path}
}

// Load reads the manifest from disk. The second return value is false
// when the file does not exist, in which case an empty manifest is
// returned rather than an error.
func (s *FileManifest) Load() (*domain.Manifest, bool, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.NewManifest(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: failed to read manifest %s: %w", s.path, err)
	}

	var data manifestData
	if _, err := toml.Decode(string(raw), &data); err != nil {
		return nil, false, fmt.Errorf("store: failed to parse manifest %s: %w", s.path, err)
	}

	return manifestFromData(data), true, nil
}

// Save writes m to disk, with global specs and overrides both sorted by
// action id for deterministic diffs.
func (s *FileManifest) Save(m *domain.Manifest) error {
	data := manifestToData(m)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("store: failed to serialize manifest: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("store: failed to write manifest %s: %w", s.path, err)
	}
	return nil
}

func manifestFromData(data manifestData) *domain.Manifest {
	m := domain.NewManifest()

	ids := make([]string, 0, len(data.Actions))
	for id := range data.Actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m.Set(domain.ActionId(id), domain.Version(data.Actions[id]))
	}

	overrideIDs := make([]string, 0, len(data.Overrides))
	for id := range data.Overrides {
		overrideIDs = append(overrideIDs, id)
	}
	sort.Strings(overrideIDs)
	for _, id := range overrideIDs {
		for _, o := range data.Overrides[id] {
			override := domain.ActionOverride{
				Workflow: o.Workflow,
				Step:     o.Step,
				Version:  domain.Version(o.Version),
			}
			if o.Job != "" {
				job := o.Job
				override.Job = &job
			}
			m.AddOverride(domain.ActionId(id), override)
		}
	}

	return m
}

func manifestToData(m *domain.Manifest) manifestData {
	data := manifestData{Actions: make(map[string]string)}

	for _, spec := range m.Specs() {
		data.Actions[string(spec.ID)] = spec.Version.String()
	}

	allOverrides := m.AllOverrides()
	if len(allOverrides) > 0 {
		data.Overrides = make(map[string][]overrideData, len(allOverrides))
		ids := make([]string, 0, len(allOverrides))
		for id := range allOverrides {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		for _, id := range ids {
			for _, o := range allOverrides[domain.ActionId(id)] {
				od := overrideData{Workflow: o.Workflow, Step: o.Step, Version: o.Version.String()}
				if o.Job != nil {
					od.Job = *o.Job
				}
				data.Overrides[id] = append(data.Overrides[id], od)
			}
		}
	}

	return data
}

// MemoryManifest is an in-memory ManifestStore for tests.
type MemoryManifest struct {
	manifest *domain.Manifest
	existed  bool
}

// NewMemoryManifest builds an in-memory store, optionally pre-seeded with
// m (existed=true) or empty (existed=false).
func NewMemoryManifest(m *domain.Manifest, existed bool) *MemoryManifest {
	if m == nil {
		m = domain.NewManifest()
	}
	return &MemoryManifest{manifest: m, existed: existed}
}

func (s *MemoryManifest) Load() (*domain.Manifest, bool, error) {
	return s.manifest, s.existed, nil
}

func (s *MemoryManifest) Save(m *domain.Manifest) error {
	s.manifest = m
	s.existed = true
	return nil
}
