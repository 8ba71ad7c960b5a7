// Package output serialises a module graph.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/elm-module-graph/internal/model"
	"github.com/phobologic/elm-module-graph/internal/toon"
)

// DefaultPath is the default output file.
const DefaultPath = "module-graph.json"

// Format is an output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOON Format = "toon"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, YAML, TOON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// FormatForPath infers the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toon":
		return TOON
	default:
		return JSON
	}
}

// Document is everything a serialised graph may need.
type Document struct {
	Project string
	Graph   model.Graph
	// Ranks is only used by TOON.
	Ranks map[string]float64
}

// Encode renders doc in format.
func Encode(doc Document, format Format) ([]byte, error) {
	g := normalize(doc.Graph)

	switch format {
	case JSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return buf.Bytes(), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		return buf.Bytes(), nil
	case TOON:
		return []byte(toon.Encode(doc.Project, g, doc.Ranks) + "\n"), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Write encodes doc to w.
func Write(w io.Writer, doc Document, format Format) error {
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes doc and writes it to path. Encoding happens before the
// file is touched, so a failure leaves no partial output.
func WriteFile(path string, doc Document, format Format) error {
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// normalize replaces nil import lists so they serialise as empty lists.
func normalize(g model.Graph) model.Graph {
	out := make(model.Graph, len(g))
	for key, node := range g {
		if node.Imports == nil {
			node.Imports = []string{}
		}
		out[key] = node
	}
	return out
}
