package plugins

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestLogger struct{}

func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func unitNames(units []Unit) []string {
	names := make([]string, 0, len(units))
	for _, unit := range units {
		names = append(names, unit.Name)
	}
	return names
}

func TestDiscover_MixedUnits(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	require.NoError(t, registry.Register(EntryPointName("alpha"), noop))
	require.NoError(t, registry.Register(EntryPointName("beta"), noop))

	writeFile(t, dir, "alpha.yaml", "description: first\n")
	writeFile(t, dir, "beta.yml", "")
	writeFile(t, dir, "gamma.yaml", "description: no entry point\n")
	writeFile(t, dir, "broken.yaml", "restart: [unclosed\n")
	writeFile(t, dir, PackageMarker, "")
	writeFile(t, dir, "README.md", "not a plugin")
	writeFile(t, dir, ".hidden.yaml", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	units, err := Discover(dir, registry, &TestLogger{})
	require.NoError(t, err)

	// os.ReadDir order is by file name
	assert.Equal(t, []string{"alpha", "beta", "broken", "gamma"}, unitNames(units))

	byName := map[string]Unit{}
	for _, unit := range units {
		byName[unit.Name] = unit
	}

	assert.Equal(t, UnitStatusResolved, byName["alpha"].Status)
	assert.NotNil(t, byName["alpha"].EntryPoint)
	assert.Equal(t, "first", byName["alpha"].Manifest.Description)
	assert.Equal(t, RestartNever, byName["alpha"].Manifest.Restart.Policy)

	assert.Equal(t, UnitStatusResolved, byName["beta"].Status)

	assert.Equal(t, UnitStatusImportFailed, byName["broken"].Status)
	assert.True(t, errors.IsPluginLoadError(byName["broken"].Err))
	assert.Nil(t, byName["broken"].EntryPoint)

	assert.Equal(t, UnitStatusMissingEntryPoint, byName["gamma"].Status)
	assert.True(t, errors.IsNotFoundError(byName["gamma"].Err))
	assert.Nil(t, byName["gamma"].EntryPoint)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	units, err := Discover(filepath.Join(t.TempDir(), "absent"), NewRegistry(), &TestLogger{})

	assert.NotNil(t, units)
	assert.Empty(t, units)
	assert.True(t, errors.IsDiscoveryError(err))
}

func TestDiscover_OnlyPackageMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PackageMarker, "")

	units, err := Discover(dir, NewRegistry(), &TestLogger{})

	assert.Empty(t, units)
	assert.True(t, errors.IsNoPluginsError(err))
	assert.False(t, errors.IsDiscoveryError(err))
}

func TestDiscover_DisabledAndInvalidNames(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	require.NoError(t, registry.Register(EntryPointName("off"), noop))
	require.NoError(t, registry.Register(EntryPointName("on"), noop))

	writeFile(t, dir, "off.yaml", "enabled: false\n")
	writeFile(t, dir, "on.yaml", "enabled: true\n")
	writeFile(t, dir, "bad name.yaml", "")

	units, err := Discover(dir, registry, &TestLogger{})
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "bad name", units[0].Name)
	assert.Equal(t, UnitStatusImportFailed, units[0].Status)
	assert.Equal(t, "on", units[1].Name)
	assert.Equal(t, UnitStatusResolved, units[1].Status)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "full.yaml", `
description: "Posts a heartbeat"
enabled: true
restart:
  policy: on-failure
  max_retries: 3
  initial_interval: 2s
  max_interval: 30s
`)
	writeFile(t, dir, "badpolicy.yaml", "restart:\n  policy: sometimes\n")

	manifest, err := LoadManifest(filepath.Join(dir, "full.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Posts a heartbeat", manifest.Description)
	assert.True(t, manifest.IsEnabled())
	assert.Equal(t, RestartOnFailure, manifest.Restart.Policy)
	assert.Equal(t, 3, manifest.Restart.MaxRetries)
	assert.Equal(t, 2*time.Second, manifest.Restart.InitialInterval)
	assert.Equal(t, 30*time.Second, manifest.Restart.MaxInterval)

	_, err = LoadManifest(filepath.Join(dir, "badpolicy.yaml"))
	assert.True(t, errors.IsValidationError(err))

	_, err = LoadManifest(filepath.Join(dir, "absent.yaml"))
	assert.True(t, errors.IsIOError(err))
}
