// Package upgrade implements the upgrade command: find newer versions for
// manifest actions (bounded by mode and scope), apply them, and rewrite
// workflow files to match.
package upgrade

import (
	"context"
	"fmt"

	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/scanner"
	"github.com/gx-tool/gx/internal/slogctx"
	"github.com/gx-tool/gx/internal/workflowedit"
)

// Mode selects how upgrade looks for new versions.
type Mode int

const (
	// ModeSafe upgrades within the current major version only.
	ModeSafe Mode = iota
	// ModeLatest upgrades to the absolute latest version, crossing majors.
	ModeLatest
	// ModePinned upgrades to one specific version (Scope must be Single).
	ModePinned
)

// Scope selects which manifest actions are candidates.
type Scope int

const (
	// ScopeAll considers every manifest entry.
	ScopeAll Scope = iota
	// ScopeSingle considers only Target.
	ScopeSingle
)

// Request describes one upgrade invocation.
type Request struct {
	Mode    Mode
	Scope   Scope
	Target  domain.ActionId
	Version domain.Version // only meaningful when Mode == ModePinned
}

// Error is a structured upgrade failure.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func notInManifest(id domain.ActionId) error {
	return &Error{Reason: fmt.Sprintf("%s not found in manifest", id)}
}

// Candidate is one action whose version is changing.
type Candidate struct {
	ID       domain.ActionId
	Current  domain.Version
	Upgraded domain.Version
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s %s -> %s", c.ID, c.Current, c.Upgraded)
}

// Result is everything Run produced.
type Result struct {
	Manifest     *domain.Manifest
	Lock         *domain.Lock
	ChangedFiles map[string]int
	Upgrades     []Candidate
}

// Run finds upgrades per req, applies them to manifest and lock, resolves
// new versions to commits, and rewrites workflow files.
func Run(ctx context.Context, roots []string, manifest *domain.Manifest, lock *domain.Lock, registry domain.VersionRegistry, updater workflowedit.Updater, req Request) (Result, error) {
	resolver := domain.NewActionResolver(registry)

	upgrades, repins, err := determineUpgrades(ctx, manifest, lock, resolver, req)
	if err != nil {
		return Result{}, err
	}
	if len(upgrades) == 0 && len(repins) == 0 {
		slogctx.Info(ctx, "all actions are up to date")
		return Result{Manifest: manifest, Lock: lock, ChangedFiles: map[string]int{}}, nil
	}

	for _, u := range upgrades {
		slogctx.Info(ctx, "upgrading action", "action", u.String())
		manifest.Set(u.ID, u.Upgraded)
	}

	for _, u := range upgrades {
		resolveAndStore(ctx, resolver, domain.NewActionSpec(u.ID, u.Upgraded), lock, "could not resolve")
	}
	for _, spec := range repins {
		resolveAndStore(ctx, resolver, spec, lock, "could not re-pin")
	}

	var retain []domain.LockKey
	for _, spec := range manifest.Specs() {
		retain = append(retain, domain.LockKeyFromSpec(spec))
	}
	lock.Retain(retain)

	updateKeys := make([]domain.LockKey, 0, len(upgrades)+len(repins))
	for _, u := range upgrades {
		updateKeys = append(updateKeys, domain.NewLockKey(u.ID, u.Upgraded))
	}
	for _, spec := range repins {
		updateKeys = append(updateKeys, domain.LockKeyFromSpec(spec))
	}
	updateMap := lock.BuildUpdateMap(updateKeys)

	paths, err := scanner.FindWorkflowPaths(roots)
	if err != nil {
		return Result{}, err
	}
	workflows, err := scanner.ScanAll(paths)
	if err != nil {
		return Result{}, err
	}

	render := func(id domain.ActionId, _ *string, _ *int) (string, bool) {
		newRef, ok := updateMap[id]
		return newRef, ok
	}
	updates := workflowedit.UpdatesFromLocated(workflows, render)

	changed, err := updater.Apply(updates)
	if err != nil {
		return Result{}, err
	}

	return Result{Manifest: manifest, Lock: lock, ChangedFiles: changed, Upgrades: upgrades}, nil
}

func determineUpgrades(ctx context.Context, manifest *domain.Manifest, lock *domain.Lock, resolver *domain.ActionResolver, req Request) ([]Candidate, []domain.ActionSpec, error) {
	switch req.Mode {
	case ModePinned:
		return determinePinned(resolver, manifest, req)
	default:
		return determineSafeOrLatest(ctx, manifest, lock, resolver, req)
	}
}

func determineSafeOrLatest(ctx context.Context, manifest *domain.Manifest, lock *domain.Lock, resolver *domain.ActionResolver, req Request) ([]Candidate, []domain.ActionSpec, error) {
	specs := manifest.Specs()
	if req.Scope == ScopeSingle {
		filtered := specs[:0:0]
		for _, s := range specs {
			if s.ID == req.Target {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			return nil, nil, notInManifest(req.Target)
		}
		specs = filtered
	}
	if len(specs) == 0 {
		return nil, nil, nil
	}

	slogctx.Info(ctx, "checking for upgrades")

	var upgrades []Candidate
	var repins []domain.ActionSpec

	for _, spec := range specs {
		if _, isSemver := spec.Version.Precision(); !isSemver {
			if spec.Version.IsSHA() {
				slogctx.Info(ctx, "skipping action pinned to bare SHA", "action", spec.ID.String())
			} else {
				slogctx.Info(ctx, "re-pinning non-semver ref", "action", spec.ID.String(), "version", spec.Version.String())
				repins = append(repins, spec)
			}
			continue
		}

		tags, err := resolver.Registry().AllTags(spec.ID)
		if err != nil {
			slogctx.Warn(ctx, "could not check upgrades", "action", spec.ID.String(), "error", err.Error())
			continue
		}

		allowMajor := req.Mode == ModeLatest
		action, ok := domain.FindUpgradeCandidate(spec.Version, lockVersionFor(lock, spec), tags, allowMajor)
		if !ok {
			continue
		}

		dc := domain.UpgradeCandidate{ID: spec.ID, Current: spec.Version, Action: action}
		upgrades = append(upgrades, Candidate{ID: spec.ID, Current: spec.Version, Upgraded: dc.ManifestVersion()})
	}

	if len(upgrades) == 0 && len(repins) == 0 {
		return nil, nil, nil
	}
	return upgrades, repins, nil
}

// lockVersionFor returns the lock's completeness Version field for spec,
// if the lock has an entry for it with that field set (whether or not its
// Specifier is current). FindUpgradeCandidate uses
// this as a floor alongside the manifest version, so the upgrader never
// re-proposes a version the lock has already resolved to.
func lockVersionFor(lock *domain.Lock, spec domain.ActionSpec) *domain.Version {
	entry, ok := lock.Get(domain.LockKeyFromSpec(spec))
	if !ok || entry.Version == nil {
		return nil
	}
	v := domain.Version(*entry.Version)
	return &v
}

func determinePinned(resolver *domain.ActionResolver, manifest *domain.Manifest, req Request) ([]Candidate, []domain.ActionSpec, error) {
	if req.Scope != ScopeSingle {
		return nil, nil, &Error{Reason: "pinned mode requires a single action target"}
	}

	current, ok := manifest.Get(req.Target)
	if !ok {
		return nil, nil, notInManifest(req.Target)
	}

	tags, err := resolver.Registry().AllTags(req.Target)
	if err != nil {
		return nil, nil, &Error{Reason: fmt.Sprintf("could not fetch tags for %s: %s", req.Target, err.Error())}
	}

	found := false
	for _, t := range tags {
		if t == req.Version {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, &Error{Reason: fmt.Sprintf("%s not found in registry for %s", req.Version, req.Target)}
	}

	return []Candidate{{ID: req.Target, Current: current, Upgraded: req.Version}}, nil, nil
}

func resolveAndStore(ctx context.Context, resolver *domain.ActionResolver, spec domain.ActionSpec, lock *domain.Lock, unresolvedMsg string) {
	result := resolver.Resolve(spec)
	switch result.Kind {
	case domain.ResultResolved, domain.ResultCorrected:
		lock.Set(result.Resolved)
	case domain.ResultUnresolved:
		slogctx.Warn(ctx, unresolvedMsg, "spec", result.Spec.String(), "reason", result.Reason)
	}
}
