// Package scan extracts import statements and module declarations from Elm
// source text.
package scan

import (
	"regexp"
	"strings"
)

const (
	// ForeignPrefix marks runtime-provided modules that have no source file.
	ForeignPrefix = "Native."

	// DefaultModuleName is used for files without a module declaration.
	DefaultModuleName = "Main"
)

// Block comments are matched as an alternative so that the scan consumes them
// and an import inside a comment never matches.
var (
	importRe = regexp.MustCompile(`(?ms)\{-.*?-\}|^import\s+([A-Z][\w.]*)`)
	moduleRe = regexp.MustCompile(`^(?:port )?module\s+([A-Z][\w.]*)`)
)

// Scanner reads the import list and module name out of a source file.
type Scanner interface {
	Imports(source []byte) []string
	ModuleName(source []byte) (string, bool)
}

// Regexp is the default line-oriented Scanner.
type Regexp struct{}

// Imports implements Scanner.
func (Regexp) Imports(source []byte) []string {
	return Imports(source)
}

// ModuleName implements Scanner.
func (Regexp) ModuleName(source []byte) (string, bool) {
	return ModuleName(source)
}

// Imports returns imported module names in order of appearance. Duplicates are
// kept; foreign modules are dropped.
func Imports(source []byte) []string {
	var names []string
	for _, m := range importRe.FindAllSubmatch(source, -1) {
		name := string(m[1])
		if name == "" || IsForeign(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// ModuleName returns the declared module name when source starts with a
// module declaration.
func ModuleName(source []byte) (string, bool) {
	m := moduleRe.FindSubmatch(source)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// ModuleNameOrDefault returns the declared module name or DefaultModuleName.
func ModuleNameOrDefault(s Scanner, source []byte) string {
	if name, ok := s.ModuleName(source); ok {
		return name
	}
	return DefaultModuleName
}

// IsForeign reports whether name lives in the runtime-provided namespace.
func IsForeign(name string) bool {
	return strings.HasPrefix(name, ForeignPrefix)
}
