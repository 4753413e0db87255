// Package tidy implements the tidy reconciliation pipeline: scan
// workflows, synchronize the manifest and lock with what is actually
// referenced, then rewrite workflow files to match.
package tidy

import (
	"context"
	"fmt"
	"strings"

	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/scanner"
	"github.com/gx-tool/gx/internal/slogctx"
	"github.com/gx-tool/gx/internal/workflowedit"
)

// Error wraps a tidy failure. The only failure mode tidy itself produces
// is an unresolvable set of actions; everything else (manifest/lock I/O,
// workflow scanning) is surfaced by its caller from the store/scanner
// packages directly.
type Error struct {
	Unresolved []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to resolve %d action(s):\n  %s", len(e.Unresolved), strings.Join(e.Unresolved, "\n  "))
}

// Result is everything tidy produced: the updated manifest and lock
// (ready to be persisted by the caller) and a per-file count of workflow
// lines rewritten.
type Result struct {
	Manifest     *domain.Manifest
	Lock         *domain.Lock
	ChangedFiles map[string]int
}

// Run scans every workflow under roots, reconciles manifest and lock
// against what it finds, resolves every version to a commit via registry,
// and rewrites workflow files to the resolved SHA/version pairs.
func Run(ctx context.Context, roots []string, manifest *domain.Manifest, lock *domain.Lock, registry domain.VersionRegistry, updater workflowedit.Updater) (Result, error) {
	paths, err := scanner.FindWorkflowPaths(roots)
	if err != nil {
		return Result{}, err
	}
	workflows, err := scanner.ScanAll(paths)
	if err != nil {
		return Result{}, err
	}

	located := scanner.LocatedActions(workflows)
	if len(located) == 0 {
		return Result{Manifest: manifest, Lock: lock, ChangedFiles: map[string]int{}}, nil
	}

	actionSet := domain.FromLocated(located)

	pruneUnused(ctx, manifest, actionSet)
	addMissing(ctx, manifest, located, actionSet, registry)
	upgradeShaVersions(ctx, manifest, registry)

	syncOverrides(ctx, manifest, located, actionSet)
	pruneStaleOverrides(ctx, manifest, located)

	resolver := domain.NewActionResolver(registry)
	if err := updateLock(ctx, lock, manifest, resolver); err != nil {
		return Result{}, err
	}

	lock.Retain(buildKeysToRetain(manifest))

	if manifest.IsEmpty() {
		return Result{Manifest: manifest, Lock: lock, ChangedFiles: map[string]int{}}, nil
	}

	updates := buildWorkflowUpdates(manifest, lock, located, workflows)
	changed, err := updater.Apply(updates)
	if err != nil {
		return Result{}, err
	}

	return Result{Manifest: manifest, Lock: lock, ChangedFiles: changed}, nil
}

func pruneUnused(ctx context.Context, manifest *domain.Manifest, actionSet *domain.WorkflowActionSet) {
	workflowIDs := make(map[domain.ActionId]struct{})
	for _, id := range actionSet.ActionIds() {
		workflowIDs[id] = struct{}{}
	}

	for _, spec := range manifest.Specs() {
		if _, ok := workflowIDs[spec.ID]; !ok {
			slogctx.Info(ctx, "removing unused action from manifest", "action", spec.ID.String())
			manifest.Remove(spec.ID)
		}
	}
}

func addMissing(ctx context.Context, manifest *domain.Manifest, located []domain.LocatedAction, actionSet *domain.WorkflowActionSet, registry domain.VersionRegistry) {
	manifestIDs := make(map[domain.ActionId]struct{})
	for _, spec := range manifest.Specs() {
		manifestIDs[spec.ID] = struct{}{}
	}

	resolver := domain.NewActionResolver(registry)

	for _, id := range actionSet.ActionIds() {
		if _, ok := manifestIDs[id]; ok {
			continue
		}

		version := selectDominantVersion(id, actionSet)
		corrected := version

		if version.IsSHA() {
			for _, loc := range located {
				if loc.ID == id && loc.Version == version && loc.Sha != nil {
					correctedVersion, wasCorrected := resolver.CorrectVersion(id, *loc.Sha, version)
					if wasCorrected {
						slogctx.Info(ctx, "corrected version from SHA lookup",
							"action", id.String(), "sha", loc.Sha.String(), "version", correctedVersion.String())
					}
					corrected = correctedVersion
					break
				}
			}
		}

		manifest.Set(id, corrected)
		slogctx.Info(ctx, "added action to manifest", "action", id.String(), "version", corrected.String())
	}
}

func upgradeShaVersions(ctx context.Context, manifest *domain.Manifest, registry domain.VersionRegistry) {
	for _, spec := range manifest.Specs() {
		if !spec.Version.IsSHA() {
			continue
		}

		tags, err := registry.TagsForSha(spec.ID, domain.CommitSha(spec.Version.String()))
		if err != nil {
			if domain.IsTokenRequired(err) {
				slogctx.Debug(ctx, "no token available, keeping SHA version", "action", spec.ID.String())
			} else {
				slogctx.Debug(ctx, "could not upgrade SHA version", "action", spec.ID.String(), "error", err.Error())
			}
			continue
		}

		bestTag, ok := domain.SelectBestTag(tags)
		if !ok {
			continue
		}

		manifest.Set(spec.ID, bestTag)
		slogctx.Info(ctx, "upgraded SHA version to tag", "action", spec.ID.String(), "version", bestTag.String())
	}
}

func selectDominantVersion(id domain.ActionId, actionSet *domain.WorkflowActionSet) domain.Version {
	if v, ok := actionSet.DominantVersion(id); ok {
		return v
	}
	versions := actionSet.VersionsFor(id)
	return versions[0]
}

// syncOverrides records an override for every located step whose version
// differs from the manifest global, but only when multiple distinct
// versions of that action appear across workflows at all — a single
// dominant version never needs an override, since the manifest already is
// the authority.
func syncOverrides(ctx context.Context, manifest *domain.Manifest, located []domain.LocatedAction, actionSet *domain.WorkflowActionSet) {
	for _, action := range located {
		versions := actionSet.VersionsFor(action.ID)
		if len(versions) <= 1 {
			continue
		}

		globalVersion, ok := manifest.Get(action.ID)
		if !ok {
			continue
		}
		if action.Version == globalVersion {
			continue
		}

		alreadyCovered := false
		for _, o := range manifest.OverridesFor(action.ID) {
			if o.Workflow == action.Location.Workflow && samePtr(o.Job, action.Location.Job) && sameIntPtr(o.Step, action.Location.Step) {
				alreadyCovered = true
				break
			}
		}
		if alreadyCovered {
			continue
		}

		slogctx.Info(ctx, "recording override", "action", action.ID.String(), "workflow", action.Location.Workflow, "version", action.Version.String())
		manifest.AddOverride(action.ID, domain.ActionOverride{
			Workflow: action.Location.Workflow,
			Job:      action.Location.Job,
			Step:     action.Location.Step,
			Version:  action.Version,
		})
	}
}

// pruneStaleOverrides removes overrides whose workflow, job, or step no
// longer exists among the currently scanned locations.
func pruneStaleOverrides(ctx context.Context, manifest *domain.Manifest, located []domain.LocatedAction) {
	liveWorkflows := make(map[string]struct{})
	for _, a := range located {
		liveWorkflows[a.Location.Workflow] = struct{}{}
	}

	for id, overrides := range manifest.AllOverrides() {
		var pruned []domain.ActionOverride
		for _, o := range overrides {
			if _, ok := liveWorkflows[o.Workflow]; !ok {
				slogctx.Info(ctx, "removing stale override (workflow gone)", "action", id.String(), "workflow", o.Workflow)
				continue
			}
			if o.Job != nil && !jobExists(located, o.Workflow, *o.Job) {
				slogctx.Info(ctx, "removing stale override (job gone)", "action", id.String(), "workflow", o.Workflow, "job", *o.Job)
				continue
			}
			if o.Job != nil && o.Step != nil && !stepExists(located, o.Workflow, *o.Job, *o.Step) {
				slogctx.Info(ctx, "removing stale override (step gone)", "action", id.String(), "workflow", o.Workflow, "job", *o.Job)
				continue
			}
			pruned = append(pruned, o)
		}
		manifest.ReplaceOverrides(id, pruned)
	}
}

func jobExists(located []domain.LocatedAction, workflow, job string) bool {
	for _, a := range located {
		if a.Location.Workflow == workflow && a.Location.Job != nil && *a.Location.Job == job {
			return true
		}
	}
	return false
}

func stepExists(located []domain.LocatedAction, workflow, job string, step int) bool {
	for _, a := range located {
		if a.Location.Workflow == workflow && a.Location.Job != nil && *a.Location.Job == job &&
			a.Location.Step != nil && *a.Location.Step == step {
			return true
		}
	}
	return false
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// buildKeysToRetain collects one LockKey per (action, version) pair
// referenced by the manifest's globals and overrides, so the lock can be
// pruned of anything no longer reachable.
func buildKeysToRetain(manifest *domain.Manifest) []domain.LockKey {
	var keys []domain.LockKey
	seen := make(map[domain.LockKey]struct{})

	for _, spec := range manifest.Specs() {
		key := domain.LockKeyFromSpec(spec)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	for id, overrides := range manifest.AllOverrides() {
		for _, o := range overrides {
			key := domain.NewLockKey(id, o.Version)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// updateLock resolves every manifest spec and override version into the
// lock, populating each entry's completeness fields. Returns a *Error
// listing every spec that could not be resolved.
func updateLock(ctx context.Context, lock *domain.Lock, manifest *domain.Manifest, resolver *domain.ActionResolver) error {
	var unresolved []string

	for _, spec := range manifest.Specs() {
		populateLockEntry(ctx, lock, resolver, spec, &unresolved)
	}
	for id, overrides := range manifest.AllOverrides() {
		for _, o := range overrides {
			populateLockEntry(ctx, lock, resolver, domain.NewActionSpec(id, o.Version), &unresolved)
		}
	}

	if len(unresolved) > 0 {
		return &Error{Unresolved: unresolved}
	}
	return nil
}

func populateLockEntry(ctx context.Context, lock *domain.Lock, resolver *domain.ActionResolver, spec domain.ActionSpec, unresolved *[]string) {
	key := domain.LockKeyFromSpec(spec)

	if entry, ok := lock.Get(key); ok && entry.IsComplete(spec.Version) {
		return
	}

	if !lock.Has(key) {
		slogctx.Debug(ctx, "resolving", "spec", spec.String())
		result := resolver.Resolve(spec)
		switch result.Kind {
		case domain.ResultResolved:
			lock.Set(result.Resolved)
		case domain.ResultCorrected:
			lock.Set(result.Resolved)
		case domain.ResultUnresolved:
			slogctx.Debug(ctx, "could not resolve", "spec", result.Spec.String(), "reason", result.Reason)
			*unresolved = append(*unresolved, fmt.Sprintf("%s: %s", result.Spec, result.Reason))
			return
		}
	}

	entry, ok := lock.Get(key)
	if !ok {
		return
	}

	if entry.Version == nil || *entry.Version == "" {
		if refined, ok := resolver.RefineVersion(spec.ID, entry.Sha); ok {
			v := refined.String()
			lock.SetVersion(key, &v)
		}
	}

	if specifier, ok := spec.Version.Specifier(); ok {
		lock.SetSpecifier(key, &specifier)
	} else {
		lock.SetSpecifier(key, nil)
	}
}

// buildWorkflowUpdates resolves, for every scanned step, the version that
// applies at its location (override hierarchy: step > job > workflow >
// global), looks up the lock entry for that version, and renders the new
// workflow ref as a file-rewrite Update.
func buildWorkflowUpdates(manifest *domain.Manifest, lock *domain.Lock, located []domain.LocatedAction, workflows []scanner.Workflow) []workflowedit.Update {
	var updates []workflowedit.Update

	i := 0
	for _, w := range workflows {
		for _, ref := range w.Refs {
			action := located[i]
			i++

			version, ok := manifest.ResolveVersion(action.ID, action.Location)
			if !ok {
				continue
			}
			key := domain.LockKeyFromSpec(domain.NewActionSpec(action.ID, version))
			entry, ok := lock.Get(key)
			if !ok {
				continue
			}

			var newRef string
			if version.IsSHA() {
				newRef = fmt.Sprintf("%s@%s", action.ID, entry.Sha)
			} else {
				newRef = fmt.Sprintf("%s@%s # %s", action.ID, entry.Sha, version)
			}

			updates = append(updates, workflowedit.Update{Path: w.Path, Line: ref.Line, NewRef: newRef})
		}
	}

	return updates
}
