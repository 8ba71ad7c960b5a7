// Package manifest loads elm.json files and the installed dependency
// packages they pin, producing the package registry used for resolution.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/phobologic/elm-module-graph/internal/model"
)

// FileName is the manifest file name.
const FileName = "elm.json"

// DefaultProjectName is used when the manifest declares no repository.
const DefaultProjectName = "user/project"

var (
	// ErrNotFound is returned when no elm.json exists above a path.
	ErrNotFound = errors.New("elm.json not found")
	// ErrNotApplication is returned when exact dependency versions are
	// requested from a package manifest.
	ErrNotApplication = errors.New("can not get exact dependencies for a package; please try an application")
)

var repositoryRe = regexp.MustCompile(`([^/]+/[^/]+?)(\.\w+)?$`)

// Kind is the manifest type.
type Kind int

const (
	Application Kind = iota
	Package
)

func (k Kind) String() string {
	switch k {
	case Application:
		return "application"
	case Package:
		return "package"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "application":
		*k = Application
	case "package":
		*k = Package
	default:
		return fmt.Errorf("unknown manifest type %q", s)
	}
	return nil
}

// ApplicationDependencies is the dependency block of an application manifest.
type ApplicationDependencies struct {
	Direct   Dependencies `json:"direct"`
	Indirect Dependencies `json:"indirect"`
}

// Manifest is a decoded elm.json.
type Manifest struct {
	Kind              Kind
	Name              string
	Repository        string
	Version           string
	ElmVersion        string
	SourceDirectories []string
	ExposedModules    ExposedModules

	// Application holds direct/indirect pins; only set for applications.
	Application ApplicationDependencies
	// Constraints holds dependency constraints; only set for packages.
	Constraints Dependencies
}

type rawManifest struct {
	Type              *Kind           `json:"type"`
	Name              string          `json:"name"`
	Repository        string          `json:"repository"`
	Version           string          `json:"version"`
	ElmVersion        string          `json:"elm-version"`
	SourceDirectories []string        `json:"source-directories"`
	ExposedModules    ExposedModules  `json:"exposed-modules"`
	Dependencies      json.RawMessage `json:"dependencies"`
}

// Parse decodes manifest data.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", FileName, err)
	}
	if raw.Type == nil {
		return nil, fmt.Errorf("decoding %s: missing type", FileName)
	}

	m := &Manifest{
		Kind:              *raw.Type,
		Name:              raw.Name,
		Repository:        raw.Repository,
		Version:           raw.Version,
		ElmVersion:        raw.ElmVersion,
		SourceDirectories: raw.SourceDirectories,
		ExposedModules:    raw.ExposedModules,
	}

	if len(raw.Dependencies) > 0 {
		var target any = &m.Constraints
		if m.Kind == Application {
			target = &m.Application
		}
		if err := json.Unmarshal(raw.Dependencies, target); err != nil {
			return nil, fmt.Errorf("decoding %s dependencies: %w", FileName, err)
		}
	}
	return m, nil
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Find returns the nearest elm.json at or above path.
func Find(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w for: %s", ErrNotFound, path)
		}
		dir = parent
	}
}

// PackageName returns "<user>/<project>" derived from the repository URL,
// falling back to the declared name and then DefaultProjectName.
func (m *Manifest) PackageName() string {
	if match := repositoryRe.FindStringSubmatch(m.Repository); match != nil {
		return match[1]
	}
	if m.Name != "" {
		return m.Name
	}
	return DefaultProjectName
}

// Info returns the package metadata for a manifest located in dir.
func (m *Manifest) Info(dir string) model.PackageInfo {
	sourceDirs := m.SourceDirectories
	if sourceDirs == nil {
		sourceDirs = []string{"src"}
	}

	info := model.PackageInfo{SourceDirs: make([]string, 0, len(sourceDirs))}
	for _, d := range sourceDirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(dir, d)
		}
		info.SourceDirs = append(info.SourceDirs, filepath.Clean(d))
	}

	if m.Kind == Application {
		info.Dependencies = append(m.Application.Direct.Names(), m.Application.Indirect.Names()...)
	} else {
		info.Dependencies = m.Constraints.Names()
	}
	return info
}

// ExactDependencies returns every pinned dependency of an application,
// direct first. Each pin must be an exact semantic version.
func (m *Manifest) ExactDependencies() (Dependencies, error) {
	if m.Kind != Application {
		return nil, ErrNotApplication
	}

	deps := make(Dependencies, 0, len(m.Application.Direct)+len(m.Application.Indirect))
	seen := make(map[string]struct{})
	for _, group := range []Dependencies{m.Application.Direct, m.Application.Indirect} {
		for _, dep := range group {
			if _, err := semver.StrictNewVersion(dep.Version); err != nil {
				return nil, fmt.Errorf("dependency %s: invalid version %q: %w", dep.Name, dep.Version, err)
			}
			if _, dup := seen[dep.Name]; dup {
				continue
			}
			seen[dep.Name] = struct{}{}
			deps = append(deps, dep)
		}
	}
	return deps, nil
}
