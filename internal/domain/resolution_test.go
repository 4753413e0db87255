package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectBestTagPrefersFewerComponents(t *testing.T) {
	tag, ok := SelectBestTag([]Version{"v4.1.0", "v4.1", "v4"})
	assert.True(t, ok)
	assert.Equal(t, Version("v4"), tag)
}

func TestSelectBestTagHigherValueAmongEqualPrecision(t *testing.T) {
	tag, ok := SelectBestTag([]Version{"v4", "v5"})
	assert.True(t, ok)
	assert.Equal(t, Version("v5"), tag)
}

func TestSelectBestTagSemverBeatsNonSemver(t *testing.T) {
	tag, ok := SelectBestTag([]Version{"latest-stable", "v4.1.0"})
	assert.True(t, ok)
	assert.Equal(t, Version("v4.1.0"), tag)
}

func TestSelectBestTagNonSemverTiesKeepFirst(t *testing.T) {
	tag, ok := SelectBestTag([]Version{"main", "stable"})
	assert.True(t, ok)
	assert.Equal(t, Version("main"), tag)
}

func TestSelectBestTagEmpty(t *testing.T) {
	_, ok := SelectBestTag(nil)
	assert.False(t, ok)
}

type fakeRegistry struct {
	lookupShaFn  func(id ActionId, version Version) (ResolvedAction, error)
	tagsForShaFn func(id ActionId, sha CommitSha) ([]Version, error)
	allTagsFn    func(id ActionId) ([]Version, error)
}

func (f *fakeRegistry) LookupSha(id ActionId, version Version) (ResolvedAction, error) {
	return f.lookupShaFn(id, version)
}

func (f *fakeRegistry) TagsForSha(id ActionId, sha CommitSha) ([]Version, error) {
	return f.tagsForShaFn(id, sha)
}

func (f *fakeRegistry) AllTags(id ActionId) ([]Version, error) {
	return f.allTagsFn(id)
}

func TestActionResolverResolve(t *testing.T) {
	reg := &fakeRegistry{
		lookupShaFn: func(id ActionId, version Version) (ResolvedAction, error) {
			return NewResolvedAction(id, version, "deadbeef", id.BaseRepo(), RefTag, "2024-01-01"), nil
		},
	}
	resolver := NewActionResolver(reg)

	result := resolver.Resolve(NewActionSpec("actions/checkout", "v4.1.0"))
	assert.Equal(t, ResultResolved, result.Kind)
	assert.Equal(t, CommitSha("deadbeef"), result.Resolved.Sha)
}

func TestActionResolverResolveFailure(t *testing.T) {
	reg := &fakeRegistry{
		lookupShaFn: func(id ActionId, version Version) (ResolvedAction, error) {
			return ResolvedAction{}, errors.New("not found")
		},
	}
	resolver := NewActionResolver(reg)

	result := resolver.Resolve(NewActionSpec("actions/checkout", "v4.1.0"))
	assert.Equal(t, ResultUnresolved, result.Kind)
	assert.Equal(t, "not found", result.Reason)
}

func TestActionResolverValidateAndCorrect(t *testing.T) {
	t.Run("matching tag keeps version", func(t *testing.T) {
		reg := &fakeRegistry{
			tagsForShaFn: func(id ActionId, sha CommitSha) ([]Version, error) {
				return []Version{"v4.1.0"}, nil
			},
		}
		resolver := NewActionResolver(reg)
		result := resolver.ValidateAndCorrect(NewActionSpec("actions/checkout", "v4.1.0"), "deadbeef")
		assert.Equal(t, ResultResolved, result.Kind)
		assert.Equal(t, Version("v4.1.0"), result.Resolved.Version)
	})

	t.Run("mismatched tag corrects to best", func(t *testing.T) {
		reg := &fakeRegistry{
			tagsForShaFn: func(id ActionId, sha CommitSha) ([]Version, error) {
				return []Version{"v4", "v4.1.0"}, nil
			},
		}
		resolver := NewActionResolver(reg)
		result := resolver.ValidateAndCorrect(NewActionSpec("actions/checkout", "v4.2.0"), "deadbeef")
		assert.Equal(t, ResultCorrected, result.Kind)
		assert.Equal(t, Version("v4"), result.Resolved.Version)
	})

	t.Run("registry failure degrades to resolved original", func(t *testing.T) {
		reg := &fakeRegistry{
			tagsForShaFn: func(id ActionId, sha CommitSha) ([]Version, error) {
				return nil, errors.New("no token")
			},
		}
		resolver := NewActionResolver(reg)
		result := resolver.ValidateAndCorrect(NewActionSpec("actions/checkout", "v4.1.0"), "deadbeef")
		assert.Equal(t, ResultResolved, result.Kind)
		assert.Equal(t, Version("v4.1.0"), result.Resolved.Version)
	})
}

func TestActionResolverCorrectVersion(t *testing.T) {
	reg := &fakeRegistry{
		tagsForShaFn: func(id ActionId, sha CommitSha) ([]Version, error) {
			return []Version{"v4", "v4.1.0"}, nil
		},
	}
	resolver := NewActionResolver(reg)

	corrected, changed := resolver.CorrectVersion("actions/checkout", "deadbeef", "v4.1.0")
	assert.True(t, changed)
	assert.Equal(t, Version("v4"), corrected)
}

func TestActionResolverRefineVersion(t *testing.T) {
	reg := &fakeRegistry{
		tagsForShaFn: func(id ActionId, sha CommitSha) ([]Version, error) {
			return []Version{"v4.1.0"}, nil
		},
	}
	resolver := NewActionResolver(reg)

	v, ok := resolver.RefineVersion("actions/checkout", "deadbeef")
	assert.True(t, ok)
	assert.Equal(t, Version("v4.1.0"), v)
}
