package domain

// RefType classifies what kind of git ref a resolved action version points
// at.
type RefType string

const (
	RefRelease RefType = "release"
	RefTag     RefType = "tag"
	RefBranch  RefType = "branch"
	RefCommit  RefType = "commit"
)

// ParseRefType converts a string into a RefType, defaulting unknown values
// to RefTag.
func ParseRefType(s string) RefType {
	switch RefType(s) {
	case RefRelease, RefTag, RefBranch, RefCommit:
		return RefType(s)
	default:
		return RefTag
	}
}

// UsesRef holds the raw, uninterpreted pieces parsed from a `uses:` line:
// the action name, the ref after '@', and an optional trailing comment.
type UsesRef struct {
	ActionName string
	UsesRef    string
	Comment    *string
}

// InterpretedRef is the result of applying the (ref, comment) -> (version,
// sha) interpretation rules to a UsesRef.
type InterpretedRef struct {
	ID      ActionId
	Version Version
	Sha     *CommitSha
}

// Interpret applies the interpretation rules from spec.md §4.2:
//   - comment present: version = normalize(comment); if the ref is a
//     40-hex SHA, record it.
//   - comment absent: version = ref as-is (possibly itself a SHA); never
//     record a sha field in that case.
func (u UsesRef) Interpret() InterpretedRef {
	var version Version
	var sha *CommitSha

	if u.Comment != nil {
		version = NormalizeVersion(*u.Comment)
		if CommitSha(u.UsesRef).Valid() {
			s := CommitSha(u.UsesRef)
			sha = &s
		}
	} else {
		version = Version(u.UsesRef)
	}

	return InterpretedRef{
		ID:      ActionId(u.ActionName),
		Version: version,
		Sha:     sha,
	}
}
