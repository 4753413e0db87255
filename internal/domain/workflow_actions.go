package domain

// WorkflowLocation pins a `uses:` reference to the precise spot it was
// found: the workflow-relative path, and (when the scanner could parse
// YAML structure) the enclosing job id and 0-based step index.
type WorkflowLocation struct {
	Workflow string
	Job      *string
	Step     *int
}

// LocatedAction is a single action reference together with its location.
type LocatedAction struct {
	ID       ActionId
	Version  Version
	Sha      *CommitSha
	Location WorkflowLocation
}

// WorkflowActionSet aggregates located actions across every scanned
// workflow, deciding which version "wins" when more than one version of
// the same action is observed.
type WorkflowActionSet struct {
	versions map[ActionId]map[Version]struct{}
	// order records first-seen insertion order per action id, used to
	// break ties for dominant version selection among non-semver
	// versions.
	order map[ActionId][]Version
	shas  map[ActionId]CommitSha
	ids   []ActionId
}

// NewWorkflowActionSet creates an empty set.
func NewWorkflowActionSet() *WorkflowActionSet {
	return &WorkflowActionSet{
		versions: make(map[ActionId]map[Version]struct{}),
		order:    make(map[ActionId][]Version),
		shas:     make(map[ActionId]CommitSha),
	}
}

// FromLocated builds a WorkflowActionSet out of already-located actions.
func FromLocated(located []LocatedAction) *WorkflowActionSet {
	set := NewWorkflowActionSet()
	for _, loc := range located {
		set.Add(InterpretedRef{ID: loc.ID, Version: loc.Version, Sha: loc.Sha})
	}
	return set
}

// Add records an interpreted action reference.
func (s *WorkflowActionSet) Add(ref InterpretedRef) {
	if _, ok := s.versions[ref.ID]; !ok {
		s.versions[ref.ID] = make(map[Version]struct{})
		s.ids = append(s.ids, ref.ID)
	}
	if _, seen := s.versions[ref.ID][ref.Version]; !seen {
		s.versions[ref.ID][ref.Version] = struct{}{}
		s.order[ref.ID] = append(s.order[ref.ID], ref.Version)
	}
	if ref.Sha != nil {
		if _, ok := s.shas[ref.ID]; !ok {
			s.shas[ref.ID] = *ref.Sha
		}
	}
}

// IsEmpty reports whether no actions have been added.
func (s *WorkflowActionSet) IsEmpty() bool {
	return len(s.versions) == 0
}

// VersionsFor returns all unique versions observed for id, in first-seen
// order.
func (s *WorkflowActionSet) VersionsFor(id ActionId) []Version {
	return append([]Version(nil), s.order[id]...)
}

// ActionIds returns every action id discovered across workflows.
func (s *WorkflowActionSet) ActionIds() []ActionId {
	return append([]ActionId(nil), s.ids...)
}

// ShaFor returns the first SHA observed for id, if any.
func (s *WorkflowActionSet) ShaFor(id ActionId) (CommitSha, bool) {
	sha, ok := s.shas[id]
	return sha, ok
}

// DominantVersion returns the semver-highest version observed for id,
// falling back to the first-seen version when none are semver.
func (s *WorkflowActionSet) DominantVersion(id ActionId) (Version, bool) {
	versions := s.VersionsFor(id)
	if len(versions) == 0 {
		return "", false
	}
	if v, ok := HighestVersion(versions); ok {
		return v, true
	}
	return versions[0], true
}

// DriftKind enumerates the kinds of manifest/workflow disagreement
// detected by Manifest.DetectDrift.
type DriftKind int

const (
	DriftMissingFromManifest DriftKind = iota
	DriftMissingFromWorkflow
	DriftVersionMismatch
)

// DriftItem describes a single manifest/workflow disagreement.
type DriftItem struct {
	Kind             DriftKind
	ID               ActionId
	ManifestVersion  Version
	WorkflowVersion  Version
}

// String renders a DriftItem using the same phrasing as
// original_source/src/domain/manifest.rs's Display impl.
func (d DriftItem) String() string {
	switch d.Kind {
	case DriftMissingFromManifest:
		return d.ID.String() + ": in workflow but not in gx.toml"
	case DriftMissingFromWorkflow:
		return d.ID.String() + ": in gx.toml but not in any workflow"
	default:
		return d.ID.String() + ": workflow has " + d.WorkflowVersion.String() + ", gx.toml has " + d.ManifestVersion.String()
	}
}
