// Package setting turns a YAML book description into the canonical Book
// model used by the rest of the build.
//
// Loading is split in two steps. Load parses the document into a generic
// tree. Resolve rewrites file paths against the setting file's directory,
// fills defaults, validates referenced files and returns a *Book.
package setting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the setting file at path into a generic tree.
func Load(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("setting file not found: %w", err)}
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ConfigError{Path: path, Err: errors.New("setting path is a directory")}
	}
	if info.Size() == 0 {
		return nil, &ConfigError{Path: path, Err: ErrEmptyFile}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read setting file: %w", err)}
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to parse setting file: %w", err)}
	}

	tree, ok := asMap(root)
	if !ok {
		return nil, &ConfigError{Path: path, Err: ErrNotMapping}
	}
	return tree, nil
}

// LoadBook loads and resolves the setting file at path. Relative file paths
// are resolved against the directory containing the setting file.
func LoadBook(path string, opts ...Option) (*Book, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	tree, err := Load(abs)
	if err != nil {
		return nil, err
	}

	book, err := Resolve(tree, filepath.Dir(abs), opts...)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Path == "" {
			cfgErr.Path = abs
		}
		return nil, err
	}
	return book, nil
}

// asMap accepts both map shapes yaml.v3 can produce for a mapping node.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
