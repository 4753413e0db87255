package domain

import "fmt"

// ResolutionError is a structured failure from a VersionRegistry lookup or
// an ActionResolver operation.
type ResolutionError struct {
	Kind   ResolutionErrorKind
	Spec   ActionSpec
	Action ActionId
	Sha    CommitSha
	Reason string
}

// ResolutionErrorKind enumerates the shapes ResolutionError can take.
type ResolutionErrorKind int

const (
	ErrResolveFailed ResolutionErrorKind = iota
	ErrNoTagsForSha
	ErrTokenRequired
)

func (e ResolutionError) Error() string {
	switch e.Kind {
	case ErrNoTagsForSha:
		return fmt.Sprintf("no tags found for %s at SHA %s", e.Action, e.Sha)
	case ErrTokenRequired:
		return "token required for resolution"
	default:
		return fmt.Sprintf("failed to resolve %s: %s", e.Spec, e.Reason)
	}
}

// IsTokenRequired reports whether err is a TokenRequired ResolutionError.
func IsTokenRequired(err error) bool {
	re, ok := err.(ResolutionError)
	return ok && re.Kind == ErrTokenRequired
}

// ResolutionResult is the outcome of resolving or validating a single
// ActionSpec.
type ResolutionResult struct {
	// Kind selects which fields are populated.
	Kind ResolutionResultKind

	// Resolved / Corrected
	Resolved ResolvedAction

	// Corrected only
	Original ActionSpec

	// Unresolved only
	Spec   ActionSpec
	Reason string
}

type ResolutionResultKind int

const (
	ResultResolved ResolutionResultKind = iota
	ResultCorrected
	ResultUnresolved
)

// VersionRegistry queries a remote action registry (GitHub in practice)
// for commit SHAs and tags.
type VersionRegistry interface {
	// LookupSha resolves a version reference to its current commit.
	LookupSha(id ActionId, version Version) (ResolvedAction, error)
	// TagsForSha returns every tag that currently points at sha.
	TagsForSha(id ActionId, sha CommitSha) ([]Version, error)
	// AllTags returns every version tag available for id's repository.
	AllTags(id ActionId) ([]Version, error)
}

// ActionResolver resolves ActionSpecs against a VersionRegistry.
type ActionResolver struct {
	registry VersionRegistry
}

// NewActionResolver builds a resolver around registry.
func NewActionResolver(registry VersionRegistry) *ActionResolver {
	return &ActionResolver{registry: registry}
}

// Registry returns the underlying registry.
func (r *ActionResolver) Registry() VersionRegistry {
	return r.registry
}

// Resolve looks up spec's commit directly.
func (r *ActionResolver) Resolve(spec ActionSpec) ResolutionResult {
	resolved, err := r.registry.LookupSha(spec.ID, spec.Version)
	if err != nil {
		return ResolutionResult{Kind: ResultUnresolved, Spec: spec, Reason: err.Error()}
	}
	return ResolutionResult{Kind: ResultResolved, Resolved: resolved}
}

// ValidateAndCorrect checks whether spec's version actually corresponds
// to workflowSha, correcting the recorded version when it does not (e.g.
// a stale comment next to a SHA pin). Registry failures degrade
// gracefully: the original spec is kept as resolved rather than failing
// the whole operation, since a missing token only blocks validation, not
// pinning.
func (r *ActionResolver) ValidateAndCorrect(spec ActionSpec, workflowSha CommitSha) ResolutionResult {
	tags, err := r.registry.TagsForSha(spec.ID, workflowSha)
	if err != nil {
		return ResolutionResult{
			Kind: ResultResolved,
			Resolved: NewResolvedAction(spec.ID, spec.Version, workflowSha, "", RefCommit, ""),
		}
	}

	for _, t := range tags {
		if t == spec.Version {
			return ResolutionResult{
				Kind:     ResultResolved,
				Resolved: NewResolvedAction(spec.ID, spec.Version, workflowSha, "", RefCommit, ""),
			}
		}
	}

	if correctVersion, ok := SelectBestTag(tags); ok {
		return ResolutionResult{
			Kind:     ResultCorrected,
			Original: spec,
			Resolved: NewResolvedAction(spec.ID, correctVersion, workflowSha, "", RefCommit, ""),
		}
	}

	return ResolutionResult{
		Kind:     ResultResolved,
		Resolved: NewResolvedAction(spec.ID, spec.Version, workflowSha, "", RefCommit, ""),
	}
}

// CorrectVersion looks up the tags that currently point at sha and picks
// the canonical one via SelectBestTag, reporting whether it differs from
// originalVersion. Registry failures are not propagated: the caller (tidy,
// adding a new manifest entry pinned to a SHA) keeps the original version
// rather than failing the whole run over a missing token or a quiet
// registry hiccup.
func (r *ActionResolver) CorrectVersion(id ActionId, sha CommitSha, originalVersion Version) (Version, bool) {
	tags, err := r.registry.TagsForSha(id, sha)
	if err != nil {
		return originalVersion, false
	}
	best, ok := SelectBestTag(tags)
	if !ok {
		return originalVersion, false
	}
	return best, best != originalVersion
}

// RefineVersion looks up the tags pointing at sha and returns the
// canonical one, for populating a lock entry's Version completeness field
// when nothing better is already known.
func (r *ActionResolver) RefineVersion(id ActionId, sha CommitSha) (Version, bool) {
	tags, err := r.registry.TagsForSha(id, sha)
	if err != nil {
		return "", false
	}
	return SelectBestTag(tags)
}

type tagCandidate struct {
	version   Version
	precision VersionPrecision
	isSemver  bool
}

// SelectBestTag picks the canonical tag among several that resolve to the
// same commit. Preference order: fewer semver components first (a major
// tag like "v4" beats "v4.1" beats "v4.1.0"), then higher value among
// equally-precise candidates, with non-semver tags always losing to
// semver ones and ties broken by first occurrence.
//
// This deliberately replaces original_source's cruder "semver-like then
// string length" heuristic (see resolution.rs's select_best_tag) with the
// component-count rule spec.md documents explicitly: string length is an
// unreliable proxy for precision once a prerelease suffix appears
// (e.g. "v4-beta" is longer than "v4.1" despite having fewer components).
func SelectBestTag(tags []Version) (Version, bool) {
	if len(tags) == 0 {
		return "", false
	}

	candidates := make([]tagCandidate, 0, len(tags))
	for _, t := range tags {
		precision, ok := t.Precision()
		candidates = append(candidates, tagCandidate{version: t, precision: precision, isSemver: ok})
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if isBetterTag(c, best) {
			best = c
		}
	}
	return best.version, true
}

// isBetterTag reports whether a should replace b as the selected tag.
func isBetterTag(a, b tagCandidate) bool {
	if a.isSemver != b.isSemver {
		return a.isSemver
	}
	if !a.isSemver {
		return false // first occurrence wins among non-semver
	}
	if a.precision != b.precision {
		return a.precision < b.precision
	}
	return a.version != b.version && higherVersion(b.version, a.version) == a.version
}
