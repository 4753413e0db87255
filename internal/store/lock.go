package store

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gx-tool/gx/internal/domain"
)

// LockFileName is the lock's path relative to the repository root.
const LockFileName = ".github/gx.lock"

// LockFileVersion is the current on-disk format version. Loading a file
// with a missing or older version header marks it dirty for a rewrite on
// the next save.
const LockFileVersion = "1.0"

type lockEntryData struct {
	Sha        string `toml:"sha"`
	Repository string `toml:"repository"`
	RefType    string `toml:"ref_type"`
	Date       string `toml:"date"`
	Version    string `toml:"version,omitempty"`
	Specifier  string `toml:"specifier,omitempty"`
}

type lockData struct {
	Version string                   `toml:"version"`
	Actions map[string]lockEntryData `toml:"actions"`
}

// LockStore loads and saves a domain.Lock. Dirty reports whether the
// most recently loaded file needs rewriting (e.g. a stale version
// header), mirroring original_source's silent-migration-on-load
// behavior.
type LockStore interface {
	Load() (lock *domain.Lock, existed bool, dirty bool, err error)
	Save(lock *domain.Lock) error
}

// FileLock is the on-disk LockStore, backed by path (typically
// LockFileName).
type FileLock struct {
	path string
}

// NewFileLock builds a FileLock rooted at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Load reads the lock from disk.
func (s *FileLock) Load() (*domain.Lock, bool, bool, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.NewLock(), false, false, nil
	}
	if err != nil {
		return nil, false, false, fmt.Errorf("store: failed to read lock %s: %w", s.path, err)
	}

	var data lockData
	if _, err := toml.Decode(string(raw), &data); err != nil {
		return nil, false, false, fmt.Errorf("store: failed to parse lock %s: %w", s.path, err)
	}

	dirty := data.Version != LockFileVersion
	return lockFromData(data), true, dirty, nil
}

// Save writes lock to disk under the current LockFileVersion header,
// with entries sorted by key for deterministic diffs.
func (s *FileLock) Save(lock *domain.Lock) error {
	data := lockToData(lock)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("store: failed to serialize lock: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("store: failed to write lock %s: %w", s.path, err)
	}
	return nil
}

func lockFromData(data lockData) *domain.Lock {
	entries := make(map[domain.LockKey]domain.LockEntry, len(data.Actions))
	for k, v := range data.Actions {
		key, ok := domain.ParseLockKey(k)
		if !ok {
			continue
		}
		entry := domain.LockEntry{
			Sha:        domain.CommitSha(v.Sha),
			Repository: v.Repository,
			RefType:    domain.ParseRefType(v.RefType),
			Date:       v.Date,
		}
		if v.Version != "" {
			version := v.Version
			entry.Version = &version
		}
		if v.Specifier != "" {
			specifier := v.Specifier
			entry.Specifier = &specifier
		}
		entries[key] = entry
	}
	return domain.NewLockFromMap(entries)
}

func lockToData(lock *domain.Lock) lockData {
	data := lockData{Version: LockFileVersion, Actions: make(map[string]lockEntryData)}
	for _, kv := range lock.Entries() {
		ed := lockEntryData{
			Sha:        kv.Entry.Sha.String(),
			Repository: kv.Entry.Repository,
			RefType:    string(kv.Entry.RefType),
			Date:       kv.Entry.Date,
		}
		if kv.Entry.Version != nil {
			ed.Version = *kv.Entry.Version
		}
		if kv.Entry.Specifier != nil {
			ed.Specifier = *kv.Entry.Specifier
		}
		data.Actions[kv.Key.String()] = ed
	}
	return data
}

// MemoryLock is an in-memory LockStore for tests.
type MemoryLock struct {
	lock    *domain.Lock
	existed bool
	dirty   bool
}

// NewMemoryLock builds an in-memory store, optionally pre-seeded with
// lock (existed=true) or empty (existed=false).
func NewMemoryLock(lock *domain.Lock, existed bool) *MemoryLock {
	if lock == nil {
		lock = domain.NewLock()
	}
	return &MemoryLock{lock: lock, existed: existed}
}

func (s *MemoryLock) Load() (*domain.Lock, bool, bool, error) {
	return s.lock, s.existed, s.dirty, nil
}

func (s *MemoryLock) Save(lock *domain.Lock) error {
	s.lock = lock
	s.existed = true
	s.dirty = false
	return nil
}
