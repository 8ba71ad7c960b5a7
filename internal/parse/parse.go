// Package parse extracts imports and module declarations from Elm source
// using tree-sitter.
package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/elm-module-graph/internal/lang"
	"github.com/phobologic/elm-module-graph/internal/scan"
)

const (
	captureName   = "name"
	captureModule = "definition.module"
	captureImport = "reference.import"
)

// TreeSitter is a scan.Scanner backed by the tree-sitter Elm grammar.
// It is not safe for concurrent use.
type TreeSitter struct {
	parser *sitter.Parser
	query  *sitter.Query
}

var _ scan.Scanner = (*TreeSitter)(nil)

// NewTreeSitter creates a scanner for the registered elm language.
func NewTreeSitter() (*TreeSitter, error) {
	l, ok := lang.Languages["elm"]
	if !ok {
		return nil, fmt.Errorf("elm language not registered")
	}
	q, err := l.GetTagQuery()
	if err != nil {
		return nil, fmt.Errorf("elm query: %w", err)
	}
	return &TreeSitter{parser: l.NewParser(), query: q}, nil
}

// Imports implements scan.Scanner.
func (ts *TreeSitter) Imports(source []byte) []string {
	var names []string
	for _, c := range ts.extract(source) {
		if c.kind == captureImport && !scan.IsForeign(c.name) {
			names = append(names, c.name)
		}
	}
	return names
}

// ModuleName implements scan.Scanner. The declaration counts only when it
// opens the file; leading comments or blank lines mean no name.
func (ts *TreeSitter) ModuleName(source []byte) (string, bool) {
	for _, c := range ts.extract(source) {
		if c.kind == captureModule && c.start == 0 {
			return c.name, true
		}
	}
	return "", false
}

type capture struct {
	kind  string
	name  string
	start uint32
}

// extract runs the tag query and returns captures in document order.
func (ts *TreeSitter) extract(source []byte) []capture {
	if len(source) == 0 {
		return nil
	}

	tree, err := ts.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(ts.query, tree.RootNode())

	var captures []capture
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode, defNode *sitter.Node
		var kind string
		for _, c := range match.Captures {
			switch cname := ts.query.CaptureNameForId(c.Index); cname {
			case captureName:
				nameNode = c.Node
			case captureModule, captureImport:
				kind = cname
				defNode = c.Node
			}
		}
		if nameNode == nil || defNode == nil {
			continue
		}

		captures = append(captures, capture{
			kind:  kind,
			name:  lang.NodeText(nameNode, source),
			start: defNode.StartByte(),
		})
	}
	return captures
}
