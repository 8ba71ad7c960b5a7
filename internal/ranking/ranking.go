// Package ranking narrows a module graph to its most central or most
// relevant modules.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/elm-module-graph/internal/model"
)

// Order returns graph keys sorted by rank descending, ties broken by key.
func Order(g model.Graph, ranks map[string]float64) []string {
	keys := g.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return ranks[keys[i]] > ranks[keys[j]]
	})
	return keys
}

// SelectModules returns a graph with only the top maxModules modules by rank.
// Imports of dropped modules are removed. If maxModules is <= 0 or >= len(g),
// g is returned unchanged.
func SelectModules(g model.Graph, ranks map[string]float64, maxModules int) model.Graph {
	if maxModules <= 0 || maxModules >= len(g) {
		return g
	}

	selected := make(map[string]struct{}, maxModules)
	for _, key := range Order(g, ranks)[:maxModules] {
		selected[key] = struct{}{}
	}
	return restrict(g, selected)
}

// FilterByPackage returns a graph containing only modules whose package name
// contains substr (case-insensitive), keeping the imports between them.
func FilterByPackage(g model.Graph, substr string) model.Graph {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	for key, node := range g {
		if strings.Contains(strings.ToLower(node.Package), lower) {
			matched[key] = struct{}{}
		}
	}
	return restrict(g, matched)
}

func restrict(g model.Graph, keep map[string]struct{}) model.Graph {
	out := make(model.Graph, len(keep))
	for key := range keep {
		node := g[key]
		imports := make([]string, 0, len(node.Imports))
		for _, imp := range node.Imports {
			if _, ok := keep[imp]; ok {
				imports = append(imports, imp)
			}
		}
		out[key] = model.Node{Imports: imports, Package: node.Package}
	}
	return out
}
