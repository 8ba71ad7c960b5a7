// Package model defines core data structures for elm-module-graph.
package model

import (
	"sort"
	"strings"
)

// PackageInfo describes where a package keeps its sources and what it depends on.
type PackageInfo struct {
	// SourceDirs are absolute, cleaned directories searched in order.
	SourceDirs []string
	// Dependencies lists direct dependencies first, then indirect ones,
	// in manifest order.
	Dependencies []string
}

// QualifiedModule identifies a module across the whole dependency closure.
type QualifiedModule struct {
	Package string
	Module  string
}

// Key returns the graph key "<package> <module>".
func (q QualifiedModule) Key() string {
	return q.Package + " " + q.Module
}

func (q QualifiedModule) String() string {
	return q.Key()
}

// ParseKey splits a graph key on its first space.
func ParseKey(key string) (QualifiedModule, bool) {
	pkg, mod, ok := strings.Cut(key, " ")
	if !ok {
		return QualifiedModule{}, false
	}
	return QualifiedModule{Package: pkg, Module: mod}, true
}

// Node is a single module in the graph.
type Node struct {
	Imports []string `json:"imports" yaml:"imports"`
	Package string   `json:"package" yaml:"package"`
}

// Graph maps qualified module keys to their nodes.
type Graph map[string]Node

// Keys returns the graph keys in sorted order.
func (g Graph) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Edges returns the total number of import edges.
func (g Graph) Edges() int {
	n := 0
	for _, node := range g {
		n += len(node.Imports)
	}
	return n
}

// Resolution is a successfully located imported module.
type Resolution struct {
	Package string
	Module  string
	Path    string
}

// Qualified returns the resolution's qualified module.
func (r Resolution) Qualified() QualifiedModule {
	return QualifiedModule{Package: r.Package, Module: r.Module}
}
