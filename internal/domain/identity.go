// Package domain holds the core types and algorithms for reconciling
// GitHub Action references across workflows, a manifest, and a lock.
package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ActionId identifies an action by its slash-separated repository path,
// e.g. "actions/checkout" or "github/codeql-action/upload-sarif".
type ActionId string

// BaseRepo returns the first two path segments ("owner/repo"), trimming
// any subpath beyond that.
func (id ActionId) BaseRepo() string {
	parts := strings.Split(string(id), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "/")
}

func (id ActionId) String() string { return string(id) }

// VersionPrecision describes how precisely a semver-like version string is
// pinned.
type VersionPrecision int

const (
	// PrecisionMajor means only the major component is specified ("v4").
	PrecisionMajor VersionPrecision = iota
	// PrecisionMinor means major and minor are specified ("v4.1").
	PrecisionMinor
	// PrecisionPatch means major, minor, and patch are specified ("v4.1.0").
	PrecisionPatch
)

// Version is a version string in one of three shapes: a 40-hex-char
// commit SHA, a semver-like tag, or an opaque ref (branch name, "latest",
// malformed input).
type Version string

func (v Version) String() string { return string(v) }

// NormalizeVersion adds a 'v' prefix when s starts with a digit; anything
// else (branch names, already-prefixed tags) passes through unchanged.
func NormalizeVersion(s string) Version {
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
		return Version("v" + s)
	}
	return Version(s)
}

// IsSHA reports whether v is a 40-character hex commit SHA.
func (v Version) IsSHA() bool {
	return CommitSha(v).Valid()
}

// IsSemverLike reports whether v looks like a semantic version tag.
func (v Version) IsSemverLike() bool {
	s := stripVPrefix(string(v))
	if s == "" {
		return false
	}
	return s[0] >= '0' && s[0] <= '9'
}

func stripVPrefix(s string) string {
	if strings.HasPrefix(s, "v") || strings.HasPrefix(s, "V") {
		return s[1:]
	}
	return s
}

// Precision detects how precisely v is pinned, stripping any pre-release
// suffix before counting dotted components. Returns false for non-semver
// versions (SHAs, branch names).
func (v Version) Precision() (VersionPrecision, bool) {
	stripped := stripVPrefix(string(v))
	base, _, _ := strings.Cut(stripped, "-")

	parts := strings.Split(base, ".")
	if len(parts) == 0 || !isDigits(parts[0]) {
		return 0, false
	}

	switch len(parts) {
	case 1:
		return PrecisionMajor, true
	case 2:
		if isDigits(parts[1]) {
			return PrecisionMinor, true
		}
	case 3:
		if isDigits(parts[1]) && isDigits(parts[2]) {
			return PrecisionPatch, true
		}
	}
	return 0, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Specifier derives a semver range specifier from v based on its
// precision: Major/Minor -> "^N[.M]", Patch -> "~N.M.P". Returns false for
// non-semver versions.
func (v Version) Specifier() (string, bool) {
	stripped := stripVPrefix(string(v))
	precision, ok := v.Precision()
	if !ok {
		return "", false
	}
	switch precision {
	case PrecisionMajor, PrecisionMinor:
		return "^" + stripped, true
	default:
		return "~" + stripped, true
	}
}

// HighestVersion selects the maximum of versions under semver order.
// Non-semver strings always lose to semver strings; between two
// non-semver strings, the first one wins.
func HighestVersion(versions []Version) (Version, bool) {
	if len(versions) == 0 {
		return "", false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if higherVersion(best, v) == v {
			best = v
		}
	}
	return best, true
}

// higherVersion returns whichever of a, b is "higher": semver comparison
// when both parse, otherwise the semver-parseable one, otherwise a.
func higherVersion(a, b Version) Version {
	pa, aok := parseSemver(string(a))
	pb, bok := parseSemver(string(b))
	switch {
	case aok && bok:
		if pa.Compare(pb) >= 0 {
			return a
		}
		return b
	case !bok:
		return a
	default:
		return b
	}
}

// parseSemver attempts to parse a version string leniently, the way
// original_source's parse_semver does: strip a leading v/V, then try the
// string as-is, then with ".0" appended, then with ".0.0" appended. This
// mirrors original_source/src/domain/action/identity.rs exactly, using
// Masterminds/semver/v3 as the parser since it tolerates these partial
// forms natively via NewVersion (unlike golang.org/x/mod/semver, which
// requires a fully-qualified "vMAJOR.MINOR.PATCH").
func parseSemver(version string) (*semver.Version, bool) {
	normalized := stripVPrefix(version)
	if v, err := semver.NewVersion(normalized); err == nil {
		return v, true
	}
	if v, err := semver.NewVersion(normalized + ".0"); err == nil {
		return v, true
	}
	if v, err := semver.NewVersion(normalized + ".0.0"); err == nil {
		return v, true
	}
	return nil, false
}

// CommitSha is a resolved 40-character hexadecimal commit hash.
type CommitSha string

func (s CommitSha) String() string { return string(s) }

// Valid reports whether s is exactly 40 hex characters.
func (s CommitSha) Valid() bool {
	str := string(s)
	if len(str) != 40 {
		return false
	}
	for _, c := range str {
		if !isHex(c) {
			return false
		}
	}
	return true
}

func isHex(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
