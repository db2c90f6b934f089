package plugins

import (
	"os"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"

	"gopkg.in/yaml.v3"
)

type RestartPolicy string

const (
	RestartNever     RestartPolicy = "never"
	RestartOnFailure RestartPolicy = "on-failure"
	RestartAlways    RestartPolicy = "always"
)

type RestartConfig struct {
	Policy          RestartPolicy `yaml:"policy"`
	MaxRetries      int           `yaml:"max_retries,omitempty"` // 0 means unlimited
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"`
	MaxInterval     time.Duration `yaml:"max_interval,omitempty"`
}

// Manifest is the content of a <name>.yaml file in the plugin directory
type Manifest struct {
	Description string        `yaml:"description,omitempty"`
	Enabled     *bool         `yaml:"enabled,omitempty"` // Pointer to distinguish unset from false
	Restart     RestartConfig `yaml:"restart,omitempty"`
}

// IsEnabled reports whether the plugin should be launched
func (m Manifest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// LoadManifest reads and parses a plugin manifest, applying defaults
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errors.NewIOError("failed to read plugin manifest", err).WithContext("path", path)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, errors.NewValidationError("failed to parse plugin manifest", err).WithContext("path", path)
	}

	setManifestDefaults(&manifest)

	if err := ValidateRestartConfig(manifest.Restart); err != nil {
		return Manifest{}, errors.NewValidationError("invalid plugin manifest", err).WithContext("path", path)
	}

	return manifest, nil
}

func setManifestDefaults(manifest *Manifest) {
	if manifest.Restart.Policy == "" {
		manifest.Restart.Policy = RestartNever
	}
	if manifest.Restart.InitialInterval == 0 {
		manifest.Restart.InitialInterval = time.Second
	}
	if manifest.Restart.MaxInterval == 0 {
		manifest.Restart.MaxInterval = time.Minute
	}
}
