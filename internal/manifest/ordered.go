package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Dependency is a package name paired with a version or constraint string.
type Dependency struct {
	Name    string
	Version string
}

// Dependencies is a JSON object of name -> version that keeps key order.
type Dependencies []Dependency

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dependencies) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var out Dependencies
	err := decodeObject(data, func(key string, dec *json.Decoder) error {
		var version string
		if err := dec.Decode(&version); err != nil {
			return fmt.Errorf("dependency %s: %w", key, err)
		}
		out = append(out, Dependency{Name: key, Version: version})
		return nil
	})
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// Names returns the dependency names in manifest order.
func (d Dependencies) Names() []string {
	names := make([]string, 0, len(d))
	for _, dep := range d {
		names = append(names, dep.Name)
	}
	return names
}

// ExposedModules is either a flat list of module names or an object of
// category -> list. Categories are flattened in manifest order.
type ExposedModules []string

// UnmarshalJSON implements json.Unmarshaler.
func (e *ExposedModules) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*e = list
		return nil
	}

	var out ExposedModules
	err := decodeObject(trimmed, func(key string, dec *json.Decoder) error {
		var list []string
		if err := dec.Decode(&list); err != nil {
			return fmt.Errorf("exposed-modules category %q: %w", key, err)
		}
		out = append(out, list...)
		return nil
	})
	if err != nil {
		return err
	}
	*e = out
	return nil
}

// decodeObject walks the members of a JSON object in document order, handing
// each value to fn through the decoder.
func decodeObject(data []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
