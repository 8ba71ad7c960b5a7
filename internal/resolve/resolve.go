// Package resolve locates the source file that provides an imported module.
package resolve

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/elm-module-graph/internal/model"
	"github.com/phobologic/elm-module-graph/internal/registry"
)

// Extension is the source file extension.
const Extension = ".elm"

// SearchDir is a candidate source directory and the package that owns it.
type SearchDir struct {
	Package string
	Dir     string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStat replaces the file existence check.
func WithStat(stat func(string) (fs.FileInfo, error)) Option {
	return func(r *Resolver) { r.stat = stat }
}

// WithLogger sets the logger used for unresolved module warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// Resolver maps imported module names to files using a package registry.
type Resolver struct {
	registry *registry.Registry
	stat     func(string) (fs.FileInfo, error)
	logger   *slog.Logger
}

// New creates a Resolver over reg.
func New(reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: reg,
		stat:     os.Stat,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ModulePath converts a dotted module name to a relative file path,
// e.g. "Json.Decode" -> "Json/Decode.elm". Empty segments are kept, so a
// malformed name like "Foo." never maps onto a real module file.
func ModulePath(module string) string {
	return filepath.FromSlash(strings.ReplaceAll(module, ".", "/") + Extension)
}

// SearchDirs returns the directories searched for imports made from pkg:
// pkg's own source directories, then each dependency's source directories in
// dependency order. Dependencies of dependencies are not searched.
func (r *Resolver) SearchDirs(pkg string) ([]SearchDir, error) {
	info, err := r.registry.Lookup(pkg)
	if err != nil {
		return nil, err
	}

	dirs := make([]SearchDir, 0, len(info.SourceDirs))
	for _, dir := range info.SourceDirs {
		dirs = append(dirs, SearchDir{Package: pkg, Dir: dir})
	}
	for _, dep := range info.Dependencies {
		depInfo, err := r.registry.Lookup(dep)
		if err != nil {
			return nil, fmt.Errorf("dependency of %s: %w", pkg, err)
		}
		for _, dir := range depInfo.SourceDirs {
			dirs = append(dirs, SearchDir{Package: dep, Dir: dir})
		}
	}
	return dirs, nil
}

// Resolve finds the file providing module as imported from pkg. The first
// match in SearchDirs order wins. When nothing matches a warning is logged
// and ok is false. An error is returned only for unregistered packages.
func (r *Resolver) Resolve(pkg, module string) (res model.Resolution, ok bool, err error) {
	dirs, err := r.SearchDirs(pkg)
	if err != nil {
		return model.Resolution{}, false, err
	}

	rel := ModulePath(module)
	for _, sd := range dirs {
		path := filepath.Join(sd.Dir, rel)
		fi, err := r.stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		return model.Resolution{Package: sd.Package, Module: module, Path: path}, true, nil
	}

	r.logger.Warn("source file not found for module", "module", module, "importer", pkg)
	return model.Resolution{}, false, nil
}
