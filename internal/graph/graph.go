// Package graph builds the module dependency graph and computes PageRank.
package graph

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/phobologic/elm-module-graph/internal/model"
	"github.com/phobologic/elm-module-graph/internal/scan"
)

// Resolver locates the file that provides an imported module.
type Resolver interface {
	Resolve(pkg, module string) (model.Resolution, bool, error)
}

// Seed is the starting point of a traversal: a module and its import list.
// The seed module itself is never resolved to a file.
type Seed struct {
	Package string
	Module  string
	Imports []string
}

// Builder walks imports from a seed until no new modules are found.
type Builder struct {
	Resolver Resolver
	Scanner  scan.Scanner
	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type pending struct {
	module  model.QualifiedModule
	path    string
	imports []string
	scanned bool
}

// Build returns the graph of every module reachable from seed. Unresolved
// imports are dropped. Errors come from unregistered packages and unreadable
// source files.
func (b *Builder) Build(seed Seed) (model.Graph, error) {
	readFile := b.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	scanner := b.Scanner
	if scanner == nil {
		scanner = scan.Regexp{}
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := make(model.Graph)
	stack := []pending{{
		module:  model.QualifiedModule{Package: seed.Package, Module: seed.Module},
		imports: seed.Imports,
		scanned: true,
	}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := cur.module.Key()
		if _, seen := g[key]; seen {
			continue
		}

		if !cur.scanned {
			source, err := readFile(cur.path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", cur.path, err)
			}
			cur.imports = scanner.Imports(source)
		}

		resolved, err := b.resolveAll(cur.module.Package, cur.imports)
		if err != nil {
			return nil, err
		}

		imports := make([]string, 0, len(resolved))
		for _, r := range resolved {
			imports = append(imports, r.Qualified().Key())
		}
		g[key] = model.Node{Imports: imports, Package: cur.module.Package}
		logger.Debug("module discovered", "module", key, "imports", len(imports))

		// Push in reverse so the first import is visited first.
		for i := len(resolved) - 1; i >= 0; i-- {
			r := resolved[i]
			if _, seen := g[r.Qualified().Key()]; seen {
				continue
			}
			stack = append(stack, pending{module: r.Qualified(), path: r.Path})
		}
	}

	return g, nil
}

// resolveAll resolves each distinct name in imports, keeping first-seen order
// and dropping names that resolve to an already collected module.
func (b *Builder) resolveAll(pkg string, imports []string) ([]model.Resolution, error) {
	var resolved []model.Resolution
	names := make(map[string]struct{}, len(imports))
	keys := make(map[string]struct{}, len(imports))
	for _, name := range imports {
		if _, dup := names[name]; dup {
			continue
		}
		names[name] = struct{}{}

		r, ok, err := b.Resolver.Resolve(pkg, name)
		if err != nil {
			return nil, fmt.Errorf("resolving %s from %s: %w", name, pkg, err)
		}
		if !ok {
			continue
		}
		key := r.Qualified().Key()
		if _, dup := keys[key]; dup {
			continue
		}
		keys[key] = struct{}{}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// Stats summarises a graph.
type Stats struct {
	Modules  int
	Edges    int
	Packages int
}

// Summarize counts modules, edges and distinct packages in g.
func Summarize(g model.Graph) Stats {
	pkgs := make(map[string]struct{})
	for _, node := range g {
		pkgs[node.Package] = struct{}{}
	}
	return Stats{Modules: len(g), Edges: g.Edges(), Packages: len(pkgs)}
}

// Rank applies PageRank to the module graph. An import edge from A to B
// passes rank from A to B, so widely imported modules rank highest.
func Rank(g model.Graph) map[string]float64 {
	if len(g) == 0 {
		return nil
	}

	nodes := make(map[string]struct{}, len(g))
	for key := range g {
		nodes[key] = struct{}{}
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for key, node := range g {
		for _, imp := range node.Imports {
			if _, ok := nodes[imp]; !ok {
				continue
			}
			outEdges[key] = append(outEdges[key], imp)
			outDegree[key]++
		}
	}

	if len(outEdges) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for key := range nodes {
			ranks[key] = uniform
		}
		return ranks
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
