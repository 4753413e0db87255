package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gx-tool/gx/internal/domain"
	"github.com/gx-tool/gx/internal/upgrade"
)

func TestParseUpgradeArgNoActionNoLatest(t *testing.T) {
	req, err := parseUpgradeArg("", false)
	require.NoError(t, err)
	assert.Equal(t, upgrade.Request{Mode: upgrade.ModeSafe, Scope: upgrade.ScopeAll}, req)
}

func TestParseUpgradeArgNoActionLatest(t *testing.T) {
	req, err := parseUpgradeArg("", true)
	require.NoError(t, err)
	assert.Equal(t, upgrade.Request{Mode: upgrade.ModeLatest, Scope: upgrade.ScopeAll}, req)
}

func TestParseUpgradeArgActionNoLatest(t *testing.T) {
	req, err := parseUpgradeArg("actions/checkout", false)
	require.NoError(t, err)
	assert.Equal(t, upgrade.Request{Mode: upgrade.ModeSafe, Scope: upgrade.ScopeSingle, Target: "actions/checkout"}, req)
}

func TestParseUpgradeArgActionLatest(t *testing.T) {
	req, err := parseUpgradeArg("actions/checkout", true)
	require.NoError(t, err)
	assert.Equal(t, upgrade.Request{Mode: upgrade.ModeLatest, Scope: upgrade.ScopeSingle, Target: "actions/checkout"}, req)
}

func TestParseUpgradeArgPinnedVersionNoLatest(t *testing.T) {
	req, err := parseUpgradeArg("actions/checkout@v5.1.0", false)
	require.NoError(t, err)
	assert.Equal(t, upgrade.Request{
		Mode: upgrade.ModePinned, Scope: upgrade.ScopeSingle,
		Target: domain.ActionId("actions/checkout"), Version: domain.Version("v5.1.0"),
	}, req)
}

func TestParseUpgradeArgPinnedVersionLatestIsError(t *testing.T) {
	_, err := parseUpgradeArg("actions/checkout@v5.1.0", true)
	assert.Error(t, err)
}

func TestChooseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, chooseLogLevel(true))
	assert.Equal(t, slog.LevelWarn, chooseLogLevel(false))
}

func TestEnableFancyOutput(t *testing.T) {
	assert.True(t, enableFancyOutput("always", false))
	assert.True(t, enableFancyOutput("always", true))
	assert.False(t, enableFancyOutput("never", false))
	assert.False(t, enableFancyOutput("auto", true), "verbose output disables fancy output even in auto mode")
}
