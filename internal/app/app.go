// Package app orchestrates the four gx commands (init, tidy, upgrade,
// lint) on top of the domain/scanner/tidy/upgrade/lint/store/registry
// packages, applying the persistence rules that differentiate them: init
// always writes, tidy only writes when a manifest already existed, and
// upgrade only writes when its target manifest already existed.
package app

import (
	"context"
	"fmt"

	"github.com/gx-tool/gx/internal/config"
	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/lint"
	"github.com/gx-tool/gx/internal/registry"
	"github.com/gx-tool/gx/internal/scanner"
	"github.com/gx-tool/gx/internal/slogctx"
	"github.com/gx-tool/gx/internal/store"
	"github.com/gx-tool/gx/internal/tidy"
	"github.com/gx-tool/gx/internal/upgrade"
	"github.com/gx-tool/gx/internal/workflowedit"
)

// Error is a structured orchestration failure.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// errAlreadyInitialized is returned by Init when a manifest already exists.
var errAlreadyInitialized = &Error{Reason: "manifest already exists at " + store.ManifestFileName}

// App bundles the collaborators every command needs: a manifest/lock
// store pair, a version registry, and a workflow file updater. roots
// scopes workflow discovery, typically the repository root.
type App struct {
	Roots    []string
	Manifest store.ManifestStore
	Lock     store.LockStore
	Registry domain.VersionRegistry
	Updater  workflowedit.Updater
}

// New builds an App rooted at roots, using on-disk stores, a
// GitHub-backed registry authenticated with token (may be empty), and an
// on-disk workflow updater.
func New(roots []string, token string) *App {
	return &App{
		Roots:    roots,
		Manifest: store.NewFileManifest(store.ManifestFileName),
		Lock:     store.NewFileLock(store.LockFileName),
		Registry: registryFor(token),
		Updater:  workflowedit.NewFileUpdater(),
	}
}

// Init bootstraps the manifest and lock from the current workflow state.
// It fails if a manifest already exists, and always persists its result.
func (a *App) Init(ctx context.Context) (tidy.Result, error) {
	_, existed, err := a.Manifest.Load()
	if err != nil {
		return tidy.Result{}, err
	}
	if existed {
		return tidy.Result{}, errAlreadyInitialized
	}

	result, err := a.runTidy(ctx)
	if err != nil {
		return tidy.Result{}, err
	}

	if err := a.persist(result.Manifest, result.Lock); err != nil {
		return tidy.Result{}, err
	}
	return result, nil
}

// Tidy reconciles the manifest and lock with the scanned workflows. It
// persists only when a manifest already existed — this lets Tidy double
// as a dry-run check against an uninitialized repo.
func (a *App) Tidy(ctx context.Context) (tidy.Result, error) {
	_, existed, err := a.Manifest.Load()
	if err != nil {
		return tidy.Result{}, err
	}

	result, err := a.runTidy(ctx)
	if err != nil {
		return tidy.Result{}, err
	}

	if existed {
		if err := a.persist(result.Manifest, result.Lock); err != nil {
			return tidy.Result{}, err
		}
	} else {
		slogctx.Info(ctx, "no manifest present, discarding tidy result (dry run)")
	}
	return result, nil
}

func (a *App) runTidy(ctx context.Context) (tidy.Result, error) {
	manifest, _, err := a.Manifest.Load()
	if err != nil {
		return tidy.Result{}, err
	}
	lock, _, _, err := a.Lock.Load()
	if err != nil {
		return tidy.Result{}, err
	}
	return tidy.Run(ctx, a.Roots, manifest, lock, a.Registry, a.Updater)
}

// Upgrade finds and applies upgrades per req, persisting only when a
// manifest already existed.
func (a *App) Upgrade(ctx context.Context, req upgrade.Request) (upgrade.Result, error) {
	manifest, existed, err := a.Manifest.Load()
	if err != nil {
		return upgrade.Result{}, err
	}
	lock, _, _, err := a.Lock.Load()
	if err != nil {
		return upgrade.Result{}, err
	}

	result, err := upgrade.Run(ctx, a.Roots, manifest, lock, a.Registry, a.Updater, req)
	if err != nil {
		return upgrade.Result{}, err
	}

	if existed {
		if err := a.persist(result.Manifest, result.Lock); err != nil {
			return upgrade.Result{}, err
		}
	}
	return result, nil
}

// Lint scans the current workflow state and runs every lint rule against
// it plus the loaded manifest and lock.
func (a *App) Lint(ctx context.Context, lintConfig config.LintConfig) (lint.Result, error) {
	manifest, _, err := a.Manifest.Load()
	if err != nil {
		return lint.Result{}, err
	}
	loadedLock, _, _, err := a.Lock.Load()
	if err != nil {
		return lint.Result{}, err
	}

	paths, err := scanner.FindWorkflowPaths(a.Roots)
	if err != nil {
		return lint.Result{}, err
	}
	workflows, err := scanner.ScanAll(paths)
	if err != nil {
		return lint.Result{}, err
	}
	located := scanner.LocatedActions(workflows)
	actionSet := domain.FromLocated(located)

	lintCtx := lint.Context{
		Manifest:  manifest,
		Lock:      loadedLock,
		Workflows: located,
		ActionSet: actionSet,
	}
	return lint.Run(lintCtx, lintConfig), nil
}

func registryFor(token string) domain.VersionRegistry {
	return registry.NewGitHubRegistry(token)
}

// persist saves the manifest before the lock, per the ordering guarantee
// that a crash mid-save still leaves a self-consistent manifest/lock on
// disk.
func (a *App) persist(manifest *domain.Manifest, lock *domain.Lock) error {
	if err := a.Manifest.Save(manifest); err != nil {
		return fmt.Errorf("app: failed to save manifest: %w", err)
	}
	if err := a.Lock.Save(lock); err != nil {
		return fmt.Errorf("app: failed to save lock: %w", err)
	}
	return nil
}
