package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRefType(t *testing.T) {
	assert.Equal(t, RefRelease, ParseRefType("release"))
	assert.Equal(t, RefBranch, ParseRefType("branch"))
	assert.Equal(t, RefTag, ParseRefType("bogus"))
}

func TestUsesRefInterpret(t *testing.T) {
	sha := "0123456789abcdef0123456789abcdef01234567"
	comment := "v4.1.0"

	t.Run("sha pinned with version comment", func(t *testing.T) {
		u := UsesRef{ActionName: "actions/checkout", UsesRef: sha, Comment: &comment}
		got := u.Interpret()
		assert.Equal(t, ActionId("actions/checkout"), got.ID)
		assert.Equal(t, Version("v4.1.0"), got.Version)
		if assert.NotNil(t, got.Sha) {
			assert.Equal(t, CommitSha(sha), *got.Sha)
		}
	})

	t.Run("tag ref without comment", func(t *testing.T) {
		u := UsesRef{ActionName: "actions/checkout", UsesRef: "v4.1.0"}
		got := u.Interpret()
		assert.Equal(t, Version("v4.1.0"), got.Version)
		assert.Nil(t, got.Sha)
	})

	t.Run("sha ref without comment records no sha field", func(t *testing.T) {
		u := UsesRef{ActionName: "actions/checkout", UsesRef: sha}
		got := u.Interpret()
		assert.Equal(t, Version(sha), got.Version)
		assert.Nil(t, got.Sha)
	})

	t.Run("comment normalizes bare numeric version", func(t *testing.T) {
		numericComment := "4.1.0"
		u := UsesRef{ActionName: "actions/checkout", UsesRef: sha, Comment: &numericComment}
		got := u.Interpret()
		assert.Equal(t, Version("v4.1.0"), got.Version)
	})
}
