package setting

import (
	"path/filepath"
	"strings"
)

// FilePathKey is the only key whose scalar values are rewritten by RewritePaths.
const FilePathKey = "filePath"

// RewritePaths returns a copy of tree in which every non-empty string stored
// under a filePath key is made absolute relative to baseDir. Backslash
// separators are accepted. The input tree is not modified.
func RewritePaths(tree any, baseDir string) any {
	return rewrite(tree, "", baseDir)
}

func rewrite(v any, key, baseDir string) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = rewrite(child, k, baseDir)
		}
		return out
	case map[any]any:
		m, _ := asMap(node)
		return rewrite(m, key, baseDir)
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = rewrite(child, "", baseDir)
		}
		return out
	case string:
		if key != FilePathKey || node == "" {
			return node
		}
		return absPath(node, baseDir)
	default:
		return v
	}
}

func absPath(p, baseDir string) string {
	p = filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}
