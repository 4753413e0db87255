package domain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// UpgradeAction describes how an upgrade affects the manifest.
type UpgradeAction struct {
	// InRange is true when Candidate sits inside the manifest's current
	// range; the manifest then adopts Candidate itself. When false, the
	// manifest moves to NewManifestVersion.
	InRange             bool
	Candidate           Version
	NewManifestVersion  Version
}

// UpgradeCandidate is a proposed version bump for a single action.
type UpgradeCandidate struct {
	ID      ActionId
	Current Version
	Action  UpgradeAction
}

// Candidate returns the version that will be resolved into the lock.
func (c UpgradeCandidate) Candidate() Version {
	return c.Action.Candidate
}

// ManifestVersion returns the version that should be stored in the
// manifest: the resolved candidate itself for an in-range upgrade (the
// manifest adopts the finer precision the candidate was found at), or the
// precision-preserving cross-range version otherwise.
func (c UpgradeCandidate) ManifestVersion() Version {
	if c.Action.InRange {
		return c.Action.Candidate
	}
	return c.Action.NewManifestVersion
}

func (c UpgradeCandidate) String() string {
	return fmt.Sprintf("%s %s -> %s", c.ID, c.Current, c.Candidate())
}

// ExtractAtPrecision truncates candidate to the given precision, e.g. a
// candidate "v3.2.1" at PrecisionMajor becomes "v3".
func ExtractAtPrecision(candidate Version, precision VersionPrecision) Version {
	stripped := stripVPrefix(string(candidate))
	base, _, _ := strings.Cut(stripped, "-")
	parts := strings.Split(base, ".")
	if len(parts) == 1 && parts[0] == "" {
		return candidate
	}

	switch precision {
	case PrecisionMajor:
		if len(parts) < 1 {
			return candidate
		}
		return Version("v" + parts[0])
	case PrecisionMinor:
		if len(parts) >= 2 {
			return Version("v" + parts[0] + "." + parts[1])
		}
		return Version("v" + parts[0])
	default: // PrecisionPatch
		switch {
		case len(parts) >= 3:
			return Version("v" + parts[0] + "." + parts[1] + "." + parts[2])
		case len(parts) == 2:
			return Version("v" + parts[0] + "." + parts[1])
		default:
			return Version("v" + parts[0])
		}
	}
}

// FindUpgradeCandidate selects the best available upgrade for an action
// currently pinned at manifestVersion (optionally floored by the version
// actually resolved in the lock), from a set of candidate tags.
//
// allowMajor=false (safe mode) constrains candidates to the manifest's
// existing major (for Major/Minor precision) or major.minor (for Patch
// precision) range. allowMajor=true (latest mode) removes that
// constraint entirely.
//
// A stable manifest version excludes all pre-release candidates. A
// pre-release manifest version allows both, preferring stable candidates
// when one is available.
//
// Returns false if manifestVersion isn't semver-like, or no candidate
// strictly exceeds the floor under the applicable constraints.
func FindUpgradeCandidate(manifestVersion Version, lockVersion *Version, candidates []Version, allowMajor bool) (UpgradeAction, bool) {
	precision, ok := manifestVersion.Precision()
	if !ok {
		return UpgradeAction{}, false
	}
	manifestSemver, ok := parseSemver(manifestVersion.String())
	if !ok {
		return UpgradeAction{}, false
	}

	manifestIsPrerelease := manifestSemver.Prerelease() != ""

	floor := manifestSemver
	if lockVersion != nil {
		if lockSemver, ok := parseSemver(lockVersion.String()); ok {
			if lockSemver.GreaterThan(floor) {
				floor = lockSemver
			}
		}
	}

	var bestTag Version
	var bestParsed *semver.Version
	found := false

	for _, c := range candidates {
		parsed, ok := parseSemver(c.String())
		if !ok {
			continue
		}
		if parsed.Compare(floor) <= 0 {
			continue
		}
		if !manifestIsPrerelease && parsed.Prerelease() != "" {
			continue
		}
		if !allowMajor {
			switch precision {
			case PrecisionMajor, PrecisionMinor:
				if parsed.Major() != manifestSemver.Major() {
					continue
				}
			case PrecisionPatch:
				if parsed.Major() != manifestSemver.Major() || parsed.Minor() != manifestSemver.Minor() {
					continue
				}
			}
		}

		if !found || betterCandidate(parsed, bestParsed) {
			bestTag = c
			bestParsed = parsed
			found = true
		}
	}

	if !found {
		return UpgradeAction{}, false
	}

	isInRange := false
	switch precision {
	case PrecisionMajor, PrecisionMinor:
		isInRange = bestParsed.Major() == manifestSemver.Major()
	case PrecisionPatch:
		isInRange = bestParsed.Major() == manifestSemver.Major() && bestParsed.Minor() == manifestSemver.Minor()
	}

	if isInRange {
		return UpgradeAction{InRange: true, Candidate: bestTag}, true
	}
	return UpgradeAction{
		InRange:            false,
		Candidate:          bestTag,
		NewManifestVersion: ExtractAtPrecision(bestTag, precision),
	}, true
}

// betterCandidate reports whether a should replace the current best b:
// stable versions always beat pre-release ones; among equally-stable
// candidates, the higher version wins.
func betterCandidate(a, b *semver.Version) bool {
	aStable := a.Prerelease() == ""
	bStable := b.Prerelease() == ""
	if aStable != bStable {
		return aStable
	}
	return a.Compare(b) > 0
}
