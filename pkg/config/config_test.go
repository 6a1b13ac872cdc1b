package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = nil
		globalMu.Unlock()
	})
}

func TestGettersBeforeInitialize(t *testing.T) {
	resetGlobal(t)
	assert.False(t, IsInitialized())
	assert.Nil(t, GetEngine())
	assert.Nil(t, GetPermissions())
	assert.Panics(t, func() { Global() })
}

func TestInitializeRegistersSections(t *testing.T) {
	resetGlobal(t)
	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))
	require.True(t, IsInitialized())

	var ids []string
	for _, s := range Global().GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{SectionIDEngine, SectionIDPermissions}, ids)
	assert.NotNil(t, GetEngine())
	assert.NotNil(t, GetPermissions())
}

func TestInitializeLoadsSavedSettings(t *testing.T) {
	resetGlobal(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Initialize(path))

	require.NoError(t, GetEngine().SetData(map[string]any{"max_per_domain": 7}))
	require.NoError(t, GetPermissions().SetData(map[string]any{"notification_ttl": "9s"}))
	require.NoError(t, Global().SaveAll())

	resetGlobal(t)
	require.NoError(t, Initialize(path))
	_, maxPerDomain, _, _ := GetEngine().Settings()
	assert.Equal(t, 7, maxPerDomain)
	ttl, _ := GetPermissions().Timing()
	assert.Equal(t, 9*time.Second, ttl)
}
