// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/elm-module-graph/internal/model"
	"github.com/phobologic/elm-module-graph/internal/ranking"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a module graph into TOON format. Modules are listed in
// rank order; imports follow the same order with each module's imports sorted.
func Encode(project string, g model.Graph, ranks map[string]float64) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(project)))

	order := ranking.Order(g, ranks)

	moduleRows := make([][]string, 0, len(order))
	for _, key := range order {
		q, ok := model.ParseKey(key)
		if !ok {
			q = model.QualifiedModule{Package: g[key].Package, Module: key}
		}
		moduleRows = append(moduleRows, []string{
			q.Package,
			q.Module,
			fmt.Sprintf("%.4f", ranks[key]),
		})
	}
	parts = append(parts, formatTabular("modules", []string{"package", "module", "rank"}, moduleRows))

	var importRows [][]string
	for _, key := range order {
		imports := append([]string(nil), g[key].Imports...)
		sort.Strings(imports)
		for _, imp := range imports {
			importRows = append(importRows, []string{key, imp})
		}
	}
	parts = append(parts, formatTabular("imports", []string{"source", "target"}, importRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
