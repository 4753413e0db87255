package domain

import (
	"fmt"
	"strings"
)

// LockKey identifies a single (action, version) pair. Distinct versions
// of the same action get distinct keys, since overrides can pin multiple
// versions of one action at once.
type LockKey struct {
	ID      ActionId
	Version Version
}

// NewLockKey builds a LockKey.
func NewLockKey(id ActionId, version Version) LockKey {
	return LockKey{ID: id, Version: version}
}

// LockKeyFromSpec builds a LockKey from an ActionSpec.
func LockKeyFromSpec(spec ActionSpec) LockKey {
	return LockKey{ID: spec.ID, Version: spec.Version}
}

func (k LockKey) String() string {
	return fmt.Sprintf("%s@%s", k.ID, k.Version)
}

// ParseLockKey parses a "owner/repo@version" string, splitting on the
// last '@' (mirroring original_source's rsplit-based parse). Everything
// before that '@' becomes the id, so a version containing '@' is not
// parsed back intact.
func ParseLockKey(s string) (LockKey, bool) {
	idx := strings.LastIndex(s, "@")
	if idx < 0 {
		return LockKey{}, false
	}
	return LockKey{ID: ActionId(s[:idx]), Version: Version(s[idx+1:])}, true
}

// LockEntry is a resolved action: the commit it points at, the repository
// it was resolved against, the kind of ref it is, and the date it was
// resolved. Version and Specifier are optional-but-coupled completeness
// fields populated by tidy to refine stale entries.
type LockEntry struct {
	Sha        CommitSha
	Repository string
	RefType    RefType
	Date       string
	Version    *string
	Specifier  *string
}

// IsComplete reports whether this entry is fully populated for the given
// target manifest version: Version must be set, and Specifier must equal
// that version's derived specifier.
func (e LockEntry) IsComplete(manifestVersion Version) bool {
	if e.Version == nil || *e.Version == "" {
		return false
	}
	expected, ok := manifestVersion.Specifier()
	if !ok {
		return e.Specifier == nil
	}
	return e.Specifier != nil && *e.Specifier == expected
}

// ResolvedAction is the result of successfully resolving an ActionSpec to
// a commit.
type ResolvedAction struct {
	ID         ActionId
	Version    Version
	Sha        CommitSha
	Repository string
	RefType    RefType
	Date       string
}

// NewResolvedAction builds a ResolvedAction.
func NewResolvedAction(id ActionId, version Version, sha CommitSha, repository string, refType RefType, date string) ResolvedAction {
	return ResolvedAction{ID: id, Version: version, Sha: sha, Repository: repository, RefType: refType, Date: date}
}

// ToWorkflowRef renders the "{sha} # {version}" form used when rewriting
// workflow lines for a semver-like version.
func (a ResolvedAction) ToWorkflowRef() string {
	return fmt.Sprintf("%s # %s", a.Sha, a.Version)
}

// Lock maps LockKeys to resolved entries.
type Lock struct {
	entries map[LockKey]LockEntry
	order   []LockKey
}

// NewLock builds an empty lock.
func NewLock() *Lock {
	return &Lock{entries: make(map[LockKey]LockEntry)}
}

// NewLockFromMap builds a lock pre-populated from entries, in map
// iteration order (used by the lock store when loading a lock file).
func NewLockFromMap(entries map[LockKey]LockEntry) *Lock {
	l := NewLock()
	for k, v := range entries {
		l.entries[k] = v
		l.order = append(l.order, k)
	}
	return l
}

// Get returns the entry for key, if any.
func (l *Lock) Get(key LockKey) (LockEntry, bool) {
	e, ok := l.entries[key]
	return e, ok
}

// Has reports whether key has an entry.
func (l *Lock) Has(key LockKey) bool {
	_, ok := l.entries[key]
	return ok
}

// Set records a resolved action.
func (l *Lock) Set(action ResolvedAction) {
	key := NewLockKey(action.ID, action.Version)
	if _, exists := l.entries[key]; !exists {
		l.order = append(l.order, key)
	}
	l.entries[key] = LockEntry{
		Sha:        action.Sha,
		Repository: action.Repository,
		RefType:    action.RefType,
		Date:       action.Date,
	}
}

// SetVersion sets the Version completeness field on an existing entry.
func (l *Lock) SetVersion(key LockKey, version *string) {
	if e, ok := l.entries[key]; ok {
		e.Version = version
		l.entries[key] = e
	}
}

// SetSpecifier sets the Specifier completeness field on an existing
// entry.
func (l *Lock) SetSpecifier(key LockKey, specifier *string) {
	if e, ok := l.entries[key]; ok {
		e.Specifier = specifier
		l.entries[key] = e
	}
}

// Retain keeps only the given keys, dropping everything else.
func (l *Lock) Retain(keys []LockKey) {
	keep := make(map[LockKey]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	newOrder := l.order[:0:0]
	for _, k := range l.order {
		if _, ok := keep[k]; ok {
			newOrder = append(newOrder, k)
		} else {
			delete(l.entries, k)
		}
	}
	l.order = newOrder
}

// Entries returns every (key, entry) pair, in insertion order.
func (l *Lock) Entries() []struct {
	Key   LockKey
	Entry LockEntry
} {
	out := make([]struct {
		Key   LockKey
		Entry LockEntry
	}, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, struct {
			Key   LockKey
			Entry LockEntry
		}{k, l.entries[k]})
	}
	return out
}

// BuildUpdateMap produces the id -> replacement-string map used by the
// workflow updater, for the given set of keys.
//
//   - "{sha} # {version}" when the key resolves and the version is not
//     itself a SHA.
//   - "{sha}" when the version equals a SHA.
//   - the raw version string as a fallback when the key is absent — this
//     path is reachable only if an earlier invariant was violated and
//     should be treated as a bug marker, per spec.md's open question.
func (l *Lock) BuildUpdateMap(keys []LockKey) map[ActionId]string {
	out := make(map[ActionId]string, len(keys))
	for _, key := range keys {
		entry, ok := l.entries[key]
		if !ok {
			out[key.ID] = key.Version.String()
			continue
		}
		if key.Version.IsSHA() {
			out[key.ID] = entry.Sha.String()
		} else {
			out[key.ID] = fmt.Sprintf("%s # %s", entry.Sha, key.Version)
		}
	}
	return out
}
