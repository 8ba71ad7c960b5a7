// Package registry holds package metadata for every package in the
// dependency closure. It is populated once and read-only afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/phobologic/elm-module-graph/internal/model"
)

// ErrPackageNotFound is returned when a package is not registered. It means
// manifest loading produced an inconsistent closure.
var ErrPackageNotFound = errors.New("package not found")

// Registry maps package names to their metadata.
type Registry struct {
	packages map[string]model.PackageInfo
}

// New builds a Registry from packages. The map and its slices are copied.
func New(packages map[string]model.PackageInfo) *Registry {
	r := &Registry{packages: make(map[string]model.PackageInfo, len(packages))}
	for name, info := range packages {
		r.packages[name] = model.PackageInfo{
			SourceDirs:   append([]string(nil), info.SourceDirs...),
			Dependencies: append([]string(nil), info.Dependencies...),
		}
	}
	return r
}

// Lookup returns the metadata for name.
func (r *Registry) Lookup(name string) (model.PackageInfo, error) {
	info, ok := r.packages[name]
	if !ok {
		return model.PackageInfo{}, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	}
	return info, nil
}

// Names returns all registered package names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.packages))
	for name := range r.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered packages.
func (r *Registry) Len() int {
	return len(r.packages)
}
