package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/core-tools/hsu-bot/pkg/errors"
)

// EntryPoint is the single operation a plugin exposes. It may block for the
// lifetime of the process or return once its setup is done, and must honour
// ctx cancellation.
type EntryPoint func(ctx context.Context) error

// EntryPointName returns the registered name the plugin called name must use.
func EntryPointName(name string) string {
	return fmt.Sprintf("run_%s_plugin", name)
}

// Registry maps entry point names to their implementations. Plugin packages
// populate it at init time so nothing is resolved by reflection.
type Registry struct {
	entryPoints map[string]EntryPoint
	mutex       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		entryPoints: make(map[string]EntryPoint),
	}
}

// Register adds an entry point under its full name (run_<plugin>_plugin)
func (r *Registry) Register(entryPointName string, entryPoint EntryPoint) error {
	if entryPointName == "" {
		return errors.NewValidationError("entry point name cannot be empty", nil)
	}
	if entryPoint == nil {
		return errors.NewValidationError("entry point cannot be nil", nil).WithContext("entry_point", entryPointName)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.entryPoints[entryPointName]; exists {
		return errors.NewValidationError("entry point already registered", nil).WithContext("entry_point", entryPointName)
	}
	r.entryPoints[entryPointName] = entryPoint
	return nil
}

// Lookup returns the entry point registered under entryPointName
func (r *Registry) Lookup(entryPointName string) (EntryPoint, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	entryPoint, ok := r.entryPoints[entryPointName]
	return entryPoint, ok
}

// Names returns all registered entry point names, sorted
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.entryPoints))
	for name := range r.entryPoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the process-wide registry that built-in plugins register into
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a plugin's entry point to the default registry under
// EntryPointName(pluginName).
func Register(pluginName string, entryPoint EntryPoint) error {
	return defaultRegistry.Register(EntryPointName(pluginName), entryPoint)
}

// MustRegister is Register for init functions
func MustRegister(pluginName string, entryPoint EntryPoint) {
	if err := Register(pluginName, entryPoint); err != nil {
		panic(err)
	}
}
