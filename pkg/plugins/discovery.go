package plugins

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-bot/pkg/errors"
	"github.com/core-tools/hsu-bot/pkg/logging"
)

// PackageMarker is the reserved file in a plugin directory that is never a plugin
const PackageMarker = "package.yaml"

var manifestExtensions = []string{".yaml", ".yml"}

type UnitStatus string

const (
	UnitStatusResolved          UnitStatus = "resolved"
	UnitStatusMissingEntryPoint UnitStatus = "missing-entry-point"
	UnitStatusImportFailed      UnitStatus = "import-failed"
)

// Unit is one discovered plugin. It is never modified after Discover returns it.
type Unit struct {
	Name       string
	Source     string
	Manifest   Manifest
	EntryPoint EntryPoint
	Status     UnitStatus
	Err        error
}

// Discover lists the plugin manifests directly inside dir and resolves each to
// its entry point in registry. A failing unit is recorded and never stops the
// others. The returned error is a non-fatal discovery-level condition: missing
// or unreadable directory, or no plugins at all.
func Discover(dir string, registry *Registry, logger logging.Logger) ([]Unit, error) {
	logger.Infof("Discovering plugins, directory: %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Unit{}, errors.NewDiscoveryError("plugin directory does not exist", err).WithContext("directory", dir)
		}
		return []Unit{}, errors.NewIOError("failed to read plugin directory", err).WithContext("directory", dir)
	}

	units := make([]Unit, 0, len(entries))
	for _, entry := range entries {
		name, ok := pluginNameFromEntry(entry)
		if !ok {
			continue
		}

		unit := loadUnit(name, filepath.Join(dir, entry.Name()), registry)
		if unit.Status == UnitStatusResolved && !unit.Manifest.IsEnabled() {
			logger.Infof("Skipping disabled plugin, name: %s", name)
			continue
		}

		switch unit.Status {
		case UnitStatusImportFailed:
			logger.Errorf("Failed to import plugin, name: %s, source: %s, error: %v", name, unit.Source, unit.Err)
		case UnitStatusMissingEntryPoint:
			logger.Warnf("Plugin has no entry point, name: %s, expected: %s", name, EntryPointName(name))
		default:
			logger.Debugf("Plugin resolved, name: %s, source: %s", name, unit.Source)
		}

		units = append(units, unit)
	}

	if len(units) == 0 {
		return units, errors.NewNoPluginsError("no plugins found", nil).WithContext("directory", dir)
	}

	logger.Infof("Discovered %d plugins in %s", len(units), dir)
	return units, nil
}

func pluginNameFromEntry(entry os.DirEntry) (string, bool) {
	fileName := entry.Name()
	if entry.IsDir() || fileName == PackageMarker || strings.HasPrefix(fileName, ".") {
		return "", false
	}

	extension := filepath.Ext(fileName)
	for _, candidate := range manifestExtensions {
		if extension == candidate {
			return strings.TrimSuffix(fileName, extension), true
		}
	}
	return "", false
}

func loadUnit(name string, source string, registry *Registry) Unit {
	unit := Unit{
		Name:   name,
		Source: source,
	}

	if err := ValidatePluginName(name); err != nil {
		unit.Status = UnitStatusImportFailed
		unit.Err = errors.NewPluginLoadError("invalid plugin name", err).WithContext("plugin", name)
		return unit
	}

	manifest, err := LoadManifest(source)
	if err != nil {
		unit.Status = UnitStatusImportFailed
		unit.Err = errors.NewPluginLoadError("failed to load plugin manifest", err).WithContext("plugin", name)
		return unit
	}
	unit.Manifest = manifest

	entryPoint, ok := registry.Lookup(EntryPointName(name))
	if !ok {
		unit.Status = UnitStatusMissingEntryPoint
		unit.Err = errors.NewNotFoundError("entry point not registered", nil).
			WithContext("plugin", name).
			WithContext("entry_point", EntryPointName(name))
		return unit
	}

	unit.EntryPoint = entryPoint
	unit.Status = UnitStatusResolved
	return unit
}
