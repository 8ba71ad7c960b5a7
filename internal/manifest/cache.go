package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/phobologic/elm-module-graph/internal/model"
	"github.com/phobologic/elm-module-graph/internal/registry"
)

// DefaultCompilerVersion names the package cache directory used when the
// manifest does not pin an exact compiler version.
const DefaultCompilerVersion = "0.19.1"

// BuildDir is the compiler's build artifact directory next to elm.json.
const BuildDir = "elm-stuff"

// ErrNoBuildDir is returned when a project has never been built.
var ErrNoBuildDir = errors.New("elm-stuff folder not found (run elm make and try again)")

// Cache locates installed packages under ELM_HOME.
type Cache struct {
	Home            string
	CompilerVersion string
}

// DefaultHome returns $ELM_HOME or ~/.elm.
func DefaultHome() string {
	if home := os.Getenv("ELM_HOME"); home != "" {
		return ExpandHome(home)
	}
	return ExpandHome("~/.elm")
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// CompilerVersionFor returns the manifest's elm-version when it is an exact
// version, otherwise DefaultCompilerVersion.
func CompilerVersionFor(m *Manifest) string {
	if m.ElmVersion == "" {
		return DefaultCompilerVersion
	}
	v, err := semver.StrictNewVersion(m.ElmVersion)
	if err != nil {
		return DefaultCompilerVersion
	}
	return v.String()
}

// PackageDir returns the directory holding name at version.
func (c Cache) PackageDir(name, version string) string {
	return filepath.Join(c.Home, c.CompilerVersion, "packages", filepath.FromSlash(name), version)
}

// CheckBuildDir returns ErrNoBuildDir when projectDir has no elm-stuff.
func CheckBuildDir(projectDir string) error {
	fi, err := os.Stat(filepath.Join(projectDir, BuildDir))
	if err != nil || !fi.IsDir() {
		return ErrNoBuildDir
	}
	return nil
}

// LoadRegistry registers the project at projectDir under its package name
// together with every pinned dependency found in the cache. It returns the
// registry and the project's package name.
func LoadRegistry(projectDir string, m *Manifest, cache Cache, logger *slog.Logger) (*registry.Registry, string, error) {
	deps, err := m.ExactDependencies()
	if err != nil {
		return nil, "", err
	}

	name := m.PackageName()
	packages := map[string]model.PackageInfo{name: m.Info(projectDir)}

	for _, dep := range deps {
		dir := cache.PackageDir(dep.Name, dep.Version)
		pm, err := Load(filepath.Join(dir, FileName))
		if err != nil {
			return nil, "", fmt.Errorf("loading package %s %s: %w", dep.Name, dep.Version, err)
		}
		packages[dep.Name] = pm.Info(dir)
		logger.Debug("package registered", "package", dep.Name, "version", dep.Version, "dir", dir)
	}

	reg := registry.New(packages)
	logger.Debug("registry loaded", "count", reg.Len(), "packages", reg.Names())
	return reg, name, nil
}
