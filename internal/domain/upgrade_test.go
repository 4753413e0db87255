package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindUpgradeCandidateSafeModeStaysInMajor(t *testing.T) {
	candidates := []Version{"v4.0.0", "v4.1.0", "v5.0.0"}

	action, ok := FindUpgradeCandidate("v4", nil, candidates, false)
	assert.True(t, ok)
	assert.True(t, action.InRange)
	assert.Equal(t, Version("v4.1.0"), action.Candidate)
}

func TestFindUpgradeCandidateLatestModeCrossesMajor(t *testing.T) {
	candidates := []Version{"v4.0.0", "v4.1.0", "v5.0.0"}

	action, ok := FindUpgradeCandidate("v4", nil, candidates, true)
	assert.True(t, ok)
	assert.False(t, action.InRange)
	assert.Equal(t, Version("v5.0.0"), action.Candidate)
	assert.Equal(t, Version("v5"), action.NewManifestVersion)
}

func TestFindUpgradeCandidateNoneStrictlyHigher(t *testing.T) {
	candidates := []Version{"v4.0.0", "v3.9.0"}
	_, ok := FindUpgradeCandidate("v4.0.0", nil, candidates, false)
	assert.False(t, ok)
}

func TestFindUpgradeCandidateNonSemverManifestVersion(t *testing.T) {
	_, ok := FindUpgradeCandidate("main", nil, []Version{"v1.0.0"}, false)
	assert.False(t, ok)
}

func TestFindUpgradeCandidateExcludesPrereleaseForStableManifest(t *testing.T) {
	candidates := []Version{"v4.1.0-beta.1"}
	_, ok := FindUpgradeCandidate("v4.0.0", nil, candidates, false)
	assert.False(t, ok)
}

func TestFindUpgradeCandidatePrereleaseManifestPrefersStable(t *testing.T) {
	candidates := []Version{"v4.1.0-beta.1", "v4.1.0"}
	action, ok := FindUpgradeCandidate("v4.0.0-beta.1", nil, candidates, false)
	assert.True(t, ok)
	assert.Equal(t, Version("v4.1.0"), action.Candidate)
}

func TestFindUpgradeCandidateRespectsLockFloor(t *testing.T) {
	candidates := []Version{"v4.1.0", "v4.2.0"}
	lockVersion := Version("v4.1.0")
	action, ok := FindUpgradeCandidate("v4.0", &lockVersion, candidates, false)
	assert.True(t, ok)
	assert.Equal(t, Version("v4.2.0"), action.Candidate)
}

func TestFindUpgradeCandidatePatchPrecisionConstrainedToMinor(t *testing.T) {
	candidates := []Version{"v4.1.1", "v4.2.0"}
	action, ok := FindUpgradeCandidate("v4.1.0", nil, candidates, false)
	assert.True(t, ok)
	assert.Equal(t, Version("v4.1.1"), action.Candidate)
}

func TestUpgradeCandidateManifestVersion(t *testing.T) {
	t.Run("in range adopts resolved candidate", func(t *testing.T) {
		c := UpgradeCandidate{ID: "actions/checkout", Current: "v4", Action: UpgradeAction{InRange: true, Candidate: "v4.2.0"}}
		assert.Equal(t, Version("v4.2.0"), c.ManifestVersion())
	})
	t.Run("out of range uses new manifest version", func(t *testing.T) {
		c := UpgradeCandidate{ID: "actions/checkout", Current: "v4", Action: UpgradeAction{InRange: false, Candidate: "v5.0.0", NewManifestVersion: "v5"}}
		assert.Equal(t, Version("v5"), c.ManifestVersion())
	})
}

func TestExtractAtPrecision(t *testing.T) {
	testCases := []struct {
		candidate Version
		precision VersionPrecision
		want      Version
	}{
		{"v5.2.1", PrecisionMajor, "v5"},
		{"v5.2.1", PrecisionMinor, "v5.2"},
		{"v5.2.1", PrecisionPatch, "v5.2.1"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ExtractAtPrecision(tc.candidate, tc.precision))
	}
}
