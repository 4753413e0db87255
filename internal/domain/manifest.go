package domain

import "fmt"

// ActionSpec is a single manifest row: an action id pinned to a version.
type ActionSpec struct {
	ID      ActionId
	Version Version
}

// NewActionSpec builds an ActionSpec.
func NewActionSpec(id ActionId, version Version) ActionSpec {
	return ActionSpec{ID: id, Version: version}
}

func (s ActionSpec) String() string {
	return fmt.Sprintf("%s@%s", s.ID, s.Version)
}

// ActionOverride scopes a version to a specific workflow location. Scope
// keys are minimally specified: an omitted key is a wildcard at that
// level. Scope order, from most to least specific, is step > job >
// workflow > global.
type ActionOverride struct {
	Workflow string
	Job      *string
	Step     *int
	Version  Version
}

// Manifest is the declarative store of global action versions plus
// per-location overrides.
type Manifest struct {
	specs     map[ActionId]ActionSpec
	order     []ActionId
	overrides map[ActionId][]ActionOverride
}

// NewManifest builds an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		specs:     make(map[ActionId]ActionSpec),
		overrides: make(map[ActionId][]ActionOverride),
	}
}

// Get returns the global spec version for id, if any.
func (m *Manifest) Get(id ActionId) (Version, bool) {
	spec, ok := m.specs[id]
	if !ok {
		return "", false
	}
	return spec.Version, true
}

// Set inserts or updates the global version for id.
func (m *Manifest) Set(id ActionId, version Version) {
	if _, exists := m.specs[id]; !exists {
		m.order = append(m.order, id)
	}
	m.specs[id] = ActionSpec{ID: id, Version: version}
}

// Remove deletes the global entry for id, if present.
func (m *Manifest) Remove(id ActionId) {
	if _, ok := m.specs[id]; !ok {
		return
	}
	delete(m.specs, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Has reports whether id has a global entry.
func (m *Manifest) Has(id ActionId) bool {
	_, ok := m.specs[id]
	return ok
}

// IsEmpty reports whether the manifest has no global entries.
func (m *Manifest) IsEmpty() bool {
	return len(m.specs) == 0
}

// Specs returns every global spec, in insertion order.
func (m *Manifest) Specs() []ActionSpec {
	out := make([]ActionSpec, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.specs[id])
	}
	return out
}

// OverridesFor returns the overrides recorded for id.
func (m *Manifest) OverridesFor(id ActionId) []ActionOverride {
	return append([]ActionOverride(nil), m.overrides[id]...)
}

// AllOverrides returns every action id with at least one override.
func (m *Manifest) AllOverrides() map[ActionId][]ActionOverride {
	out := make(map[ActionId][]ActionOverride, len(m.overrides))
	for id, overrides := range m.overrides {
		out[id] = append([]ActionOverride(nil), overrides...)
	}
	return out
}

// AddOverride appends an override for id.
func (m *Manifest) AddOverride(id ActionId, override ActionOverride) {
	m.overrides[id] = append(m.overrides[id], override)
}

// ReplaceOverrides replaces the full override list for id. An empty slice
// removes the entry entirely.
func (m *Manifest) ReplaceOverrides(id ActionId, overrides []ActionOverride) {
	if len(overrides) == 0 {
		delete(m.overrides, id)
		return
	}
	m.overrides[id] = overrides
}

// ResolveVersion applies the override scope order (step > job > workflow >
// global) for id at location, returning the first match.
func (m *Manifest) ResolveVersion(id ActionId, location WorkflowLocation) (Version, bool) {
	var (
		stepMatch, jobMatch, workflowMatch *Version
	)
	for _, o := range m.overrides[id] {
		if o.Workflow != location.Workflow {
			continue
		}
		switch {
		case o.Job != nil && o.Step != nil && location.Job != nil && location.Step != nil &&
			*o.Job == *location.Job && *o.Step == *location.Step:
			v := o.Version
			if stepMatch == nil {
				stepMatch = &v
			}
		case o.Job != nil && o.Step == nil && location.Job != nil && *o.Job == *location.Job:
			v := o.Version
			if jobMatch == nil {
				jobMatch = &v
			}
		case o.Job == nil && o.Step == nil:
			v := o.Version
			if workflowMatch == nil {
				workflowMatch = &v
			}
		}
	}

	switch {
	case stepMatch != nil:
		return *stepMatch, true
	case jobMatch != nil:
		return *jobMatch, true
	case workflowMatch != nil:
		return *workflowMatch, true
	default:
		return m.Get(id)
	}
}

// DetectDrift compares the manifest's global specs against an observed
// WorkflowActionSet and returns every disagreement, optionally restricted
// to a single action id filter.
func (m *Manifest) DetectDrift(actionSet *WorkflowActionSet, filter *ActionId) []DriftItem {
	var items []DriftItem

	workflowIDs := make(map[ActionId]struct{})
	for _, id := range actionSet.ActionIds() {
		workflowIDs[id] = struct{}{}
	}
	manifestIDs := make(map[ActionId]struct{})
	for _, id := range m.order {
		manifestIDs[id] = struct{}{}
	}

	for _, id := range actionSet.ActionIds() {
		if filter != nil && id != *filter {
			continue
		}
		if _, ok := manifestIDs[id]; !ok {
			items = append(items, DriftItem{Kind: DriftMissingFromManifest, ID: id})
			continue
		}
		manifestVersion, _ := m.Get(id)
		dominant, _ := actionSet.DominantVersion(id)
		if manifestVersion != dominant {
			items = append(items, DriftItem{
				Kind:            DriftVersionMismatch,
				ID:              id,
				ManifestVersion: manifestVersion,
				WorkflowVersion: dominant,
			})
		}
	}

	for _, id := range m.order {
		if filter != nil && id != *filter {
			continue
		}
		if _, ok := workflowIDs[id]; !ok {
			items = append(items, DriftItem{Kind: DriftMissingFromWorkflow, ID: id})
		}
	}

	return items
}
